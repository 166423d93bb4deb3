package main

import (
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"pricingcli/internal/config"
	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/infrastructure"
	"pricingcli/internal/services"
)

type calculateOptions struct {
	po        string
	sinapi    string
	cdhu      string
	sicro     string
	db        string
	out       string
	maxPasses int
}

func newCalculateCmd(global *globalOptions) *cobra.Command {
	opts := &calculateOptions{}

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Price every budget item and export the services and inputs tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalculate(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.po, "po", "", "Budget workbook (PO)")
	cmd.Flags().StringVar(&opts.sinapi, "sinapi", "", "SINAPI reference workbook")
	cmd.Flags().StringVar(&opts.cdhu, "cdhu", "", "CDHU table workbook")
	cmd.Flags().StringVar(&opts.sicro, "sicro", "", "SICRO analytic composition report")
	cmd.Flags().StringVar(&opts.db, "db", "", "Quotation sqlite database")
	cmd.Flags().StringVar(&opts.out, "out", "", "Output directory for the exported tables")
	cmd.Flags().IntVar(&opts.maxPasses, "max-passes", 0, fmt.Sprintf("Solver pass cap (default %d)", config.DefaultMaxPasses))

	return cmd
}

// apply copies every set flag over the configuration
func (o *calculateOptions) apply(cfg *config.Config) error {
	for _, f := range []struct {
		flag   string
		target *string
	}{
		{o.po, &cfg.Sources.PO},
		{o.sinapi, &cfg.Sources.SINAPI},
		{o.cdhu, &cfg.Sources.CDHU},
		{o.sicro, &cfg.Sources.SICRO},
		{o.db, &cfg.Sources.Database},
	} {
		if f.flag == "" {
			continue
		}
		p, err := absolute(f.flag)
		if err != nil {
			return err
		}
		*f.target = p
	}
	if o.maxPasses < 0 {
		return apierrors.NewAppValidationError("--max-passes must not be negative").
			WithContext("max_passes", o.maxPasses)
	}
	if o.maxPasses > 0 {
		cfg.Engine.MaxPasses = o.maxPasses
	}
	return cfg.Validate()
}

// outputs moves the exported artifacts under --out when it is set
func (o *calculateOptions) outputs(paths *config.Paths) (*config.Paths, error) {
	if o.out == "" {
		return paths, nil
	}
	dir, err := absolute(o.out)
	if err != nil {
		return nil, err
	}
	return paths.WithOutputDir(dir), nil
}

func runCalculate(cmd *cobra.Command, global *globalOptions, opts *calculateOptions) error {
	cfg, err := global.load(true)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger, err := global.logger(cfg)
	if err != nil {
		return err
	}

	paths, err := config.GetPaths(cfg)
	if err != nil {
		return err
	}
	if paths, err = opts.outputs(paths); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	svc := services.NewCalculationService(services.CalculationOptions{
		Paths:     paths,
		MaxPasses: cfg.Engine.MaxPasses,
		Logger:    logger,
	})

	status, err := svc.Calculate(ctx)
	if err != nil {
		return err
	}

	printStatus(cmd.OutOrStdout(), status)
	return nil
}

func printStatus(w io.Writer, status *services.RunStatus) {
	fmt.Fprintf(w, "run %s %s\n", status.RunID, status.State)

	if m := status.Manifest; m != nil {
		fmt.Fprintf(w, "items: %d  details: %d  passes: %d  unsolved: %d  (%d ms)\n",
			m.Items, m.Details, m.Passes, m.Unsolved, m.DurationMS)
		printCounts(w, "status", m.ByStatus)
		printCounts(w, "method", m.ByMethod)
		for _, f := range m.Files {
			fmt.Fprintf(w, "wrote %s\n", f)
		}
		fmt.Fprintf(w, "fingerprint %s\n", m.Fingerprint)
	}

	for _, missing := range status.Missing {
		fmt.Fprintf(w, "skipped source: %s\n", missing)
	}
}

func printCounts(w io.Writer, label string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s %-16s %d\n", label, k, counts[k])
	}
}
