package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"pricingcli/internal/config"
	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/pricing"
)

// RunInfo identifies the run whose assembly is exported
type RunInfo struct {
	RunID     string
	StartedAt time.Time
	RowsRead  map[string]int
}

// Exporter persists an assembly as the services and detail tables, an
// xlsx copy of both and a manifest
type Exporter struct {
	paths  *config.Paths
	csv    *CSVWriter
	logger *slog.Logger
}

// NewExporter writes to the output artifacts named by paths
func NewExporter(paths *config.Paths, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &Exporter{
		paths:  paths,
		csv:    NewCSVWriter(paths.OutputDir, logger),
		logger: logger,
	}
}

// Export writes every artifact and returns the manifest it saved.
// The CSV tables are the cache the viewer reloads; the workbook is a copy
// for spreadsheet users.
func (e *Exporter) Export(ctx context.Context, asm *pricing.Assembly, run RunInfo) (*Manifest, error) {
	if asm == nil {
		return nil, fmt.Errorf("nothing to export")
	}

	if err := e.csv.WriteSimpleCSV(e.paths.ServicesCSV, PricedItemHeaders, PricedItemRecords(asm.Items)); err != nil {
		return nil, apierrors.NewStorageError("write services table", err).WithContext("path", e.paths.ServicesCSV)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.csv.WriteSimpleCSV(e.paths.InsumosCSV, DetailHeaders, DetailRecords(asm.Details)); err != nil {
		return nil, apierrors.NewStorageError("write detail table", err).WithContext("path", e.paths.InsumosCSV)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := WriteWorkbook(e.paths.ExportXLSX, asm.Items, asm.Details); err != nil {
		return nil, apierrors.NewStorageError("write workbook", err).WithContext("path", e.paths.ExportXLSX)
	}

	fingerprint, err := Fingerprint(e.paths.ServicesCSV, e.paths.InsumosCSV)
	if err != nil {
		return nil, fmt.Errorf("fingerprint tables: %w", err)
	}

	finished := time.Now().UTC()
	started := run.StartedAt.UTC()
	if run.StartedAt.IsZero() {
		started = finished
	}

	m := &Manifest{
		RunID:      run.RunID,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMS: finished.Sub(started).Milliseconds(),
		Items:      asm.Summary.Items,
		Details:    len(asm.Details),
		ByStatus:   make(map[string]int, len(asm.Summary.ByStatus)),
		ByMethod:   make(map[string]int, len(asm.Summary.ByMethod)),
		RowsRead:   run.RowsRead,
		Passes:     asm.Summary.SolverPasses,
		Unsolved:   asm.Summary.Unsolved,
		Files: []string{
			filepath.Base(e.paths.ServicesCSV),
			filepath.Base(e.paths.InsumosCSV),
			filepath.Base(e.paths.ExportXLSX),
		},
		Fingerprint: fingerprint,
	}
	for k, v := range asm.Summary.ByStatus {
		m.ByStatus[string(k)] = v
	}
	for k, v := range asm.Summary.ByMethod {
		m.ByMethod[string(k)] = v
	}

	if err := WriteManifest(e.paths.ManifestJSON, m); err != nil {
		return nil, apierrors.NewStorageError("write manifest", err).WithContext("path", e.paths.ManifestJSON)
	}

	e.logger.InfoContext(ctx, "Export complete",
		slog.String("run_id", run.RunID),
		slog.String("output_dir", e.paths.OutputDir),
		slog.Int("items", m.Items),
		slog.Int("details", m.Details),
		slog.String("fingerprint", fingerprint))

	return m, nil
}

// Load reloads the last exported tables
func (e *Exporter) Load() (*Tables, error) {
	return ReadTables(e.paths.ServicesCSV, e.paths.InsumosCSV)
}
