package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	RootDir   string
	DataDir   string
	OutputDir string
	LogsDir   string

	// Input files as configured; discovery may still replace them
	POFile       string
	SINAPIFile   string
	CDHUFile     string
	SICROFile    string
	DatabaseFile string

	// Output artifacts
	ServicesCSV  string
	InsumosCSV   string
	ExportXLSX   string
	ManifestJSON string
}

// GetPaths resolves every path of cfg against its root directory
func GetPaths(cfg *Config) (*Paths, error) {
	if cfg == nil {
		cfg = Default()
	}

	root, err := filepath.Abs(cfg.Paths.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", cfg.Paths.Root, err)
	}

	under := func(base, p string) string {
		if p == "" {
			return base
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	dataDir := under(root, cfg.Paths.DataDir)
	outputDir := under(root, cfg.Paths.OutputDir)

	paths := &Paths{
		RootDir:   root,
		DataDir:   dataDir,
		LogsDir:   under(root, cfg.Paths.LogsDir),

		POFile:       under(dataDir, cfg.Sources.PO),
		SINAPIFile:   under(dataDir, cfg.Sources.SINAPI),
		CDHUFile:     under(dataDir, cfg.Sources.CDHU),
		SICROFile:    under(dataDir, cfg.Sources.SICRO),
		DatabaseFile: under(root, cfg.Sources.Database),
	}

	return paths.WithOutputDir(outputDir), nil
}

// WithOutputDir returns a copy whose output artifacts live under dir
func (p *Paths) WithOutputDir(dir string) *Paths {
	out := *p
	out.OutputDir = dir
	out.ServicesCSV = out.GetOutputPath(ServicesCSV)
	out.InsumosCSV = out.GetOutputPath(InsumosCSV)
	out.ExportXLSX = out.GetOutputPath(ExportXLSX)
	out.ManifestJSON = out.GetOutputPath(ManifestJSON)
	return &out
}

// EnsureDirectories creates the output and logs directories
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetOutputPath returns the path for an output file
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("root", p.RootDir),
			slog.String("data", p.DataDir),
			slog.String("output", p.OutputDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("sources",
			slog.String("po", p.POFile),
			slog.Bool("po_exists", FileExists(p.POFile)),
			slog.String("sinapi", p.SINAPIFile),
			slog.String("cdhu", p.CDHUFile),
			slog.String("sicro", p.SICROFile),
			slog.String("database", p.DatabaseFile),
		),
		slog.Group("outputs",
			slog.String("services_csv", p.ServicesCSV),
			slog.String("insumos_csv", p.InsumosCSV),
		))
}
