package main

import (
	"github.com/spf13/cobra"

	"pricingcli/internal/app"
	"pricingcli/internal/infrastructure"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the priced grid, composition inspector and recalculation API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load(false)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			logger, err := global.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = infrastructure.CloseLogFile() }()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides configuration)")
	return cmd
}
