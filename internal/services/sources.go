package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"pricingcli/internal/config"
	"pricingcli/internal/dataprocessing"
	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/files"
	"pricingcli/internal/quotations"
	"pricingcli/pkg/contracts/domain"
)

// SourcePaths names the input files of a run. Empty or missing cost
// library paths fall back to discovery in the data directory.
type SourcePaths struct {
	DataDir  string
	PO       string
	SINAPI   string
	CDHU     string
	SICRO    string
	Database string
}

// SourcePathsFrom takes the configured inputs of paths
func SourcePathsFrom(paths *config.Paths) SourcePaths {
	return SourcePaths{
		DataDir:  paths.DataDir,
		PO:       paths.POFile,
		SINAPI:   paths.SINAPIFile,
		CDHU:     paths.CDHUFile,
		SICRO:    paths.SICROFile,
		Database: paths.DatabaseFile,
	}
}

// Sources is everything read from disk before resolution starts.
// SICRO rows stay unparsed because the report grammar needs the closure
// of the requested codes.
type Sources struct {
	Items    []domain.RequestedItem
	ISD      domain.SourceFragment
	CSD      domain.SourceFragment
	Analytic domain.SourceFragment
	Regional domain.SourceFragment
	Report   [][]string
	Quotes   *quotations.Store

	// Missing lists the inputs that were skipped
	Missing []string
	// RowsRead counts raw rows per sheet label
	RowsRead map[string]int
}

type sourceLoader struct {
	discovery *files.Discovery
	logger    *slog.Logger

	mu      sync.Mutex
	missing []string
	rows    map[string]int
}

// LoadSources reads every input concurrently. Only a missing or unreadable
// budget sheet is an error; other inputs are skipped with a warning.
func LoadSources(ctx context.Context, paths SourcePaths, logger *slog.Logger) (*Sources, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &sourceLoader{
		discovery: files.NewDiscovery(paths.DataDir),
		logger:    logger,
		rows:      make(map[string]int),
	}
	src := &Sources{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		path, err := l.discovery.Locate(paths.PO, config.POPatterns...)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBudgetMissing, err)
		}
		layout := dataprocessing.POLayout()
		rows, err := files.ReadSheet(path, layout)
		if err != nil {
			return apierrors.NewParsingError("read budget sheet", fmt.Errorf("%w: %w", ErrBudgetMissing, err)).
				WithContext("path", path)
		}
		l.count(layout, rows)
		src.Items = dataprocessing.ParsePO(rows, layout, logger)
		return nil
	})

	g.Go(func() error {
		wb := l.open(paths.SINAPI, "SINAPI", config.SINAPIPatterns)
		if wb == nil {
			return nil
		}
		defer func() { _ = wb.Close() }()

		if rows := l.sheet(wb, dataprocessing.ISDLayout()); rows != nil {
			src.ISD = dataprocessing.ParsePriceSheet(rows, dataprocessing.ISDLayout(), logger)
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		if rows := l.sheet(wb, dataprocessing.CSDLayout()); rows != nil {
			src.CSD = dataprocessing.ParsePriceSheet(rows, dataprocessing.CSDLayout(), logger)
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		if rows := l.sheet(wb, dataprocessing.AnalyticLayout()); rows != nil {
			src.Analytic = dataprocessing.ParseAnalytic(rows, dataprocessing.AnalyticLayout(), logger)
		}
		return nil
	})

	g.Go(func() error {
		wb := l.open(paths.CDHU, "CDHU", config.CDHUPatterns)
		if wb == nil {
			return nil
		}
		defer func() { _ = wb.Close() }()
		if rows := l.sheet(wb, dataprocessing.RegionalLayout()); rows != nil {
			src.Regional = dataprocessing.ParseRegional(rows, dataprocessing.RegionalLayout(), logger)
		}
		return nil
	})

	g.Go(func() error {
		wb := l.open(paths.SICRO, "SICRO", config.SICROPatterns)
		if wb == nil {
			return nil
		}
		defer func() { _ = wb.Close() }()
		src.Report = l.sheet(wb, dataprocessing.ReportLayout())
		return nil
	})

	g.Go(func() error {
		store, err := quotations.Load(gctx, paths.Database)
		if err != nil {
			if errors.Is(err, quotations.ErrDatabaseMissing) {
				logger.WarnContext(gctx, "Quotation database not found, market tier disabled",
					slog.String("path", paths.Database))
			} else {
				logger.WarnContext(gctx, "Quotation database unreadable, market tier disabled",
					slog.String("path", paths.Database),
					slog.String("error", err.Error()))
			}
			l.skip("quotations")
			return nil
		}
		src.Quotes = store
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(l.missing)
	src.Missing = l.missing
	src.RowsRead = l.rows

	logger.InfoContext(ctx, "Sources loaded",
		slog.Int("items", len(src.Items)),
		slog.Int("isd_prices", len(src.ISD.Prices)),
		slog.Int("csd_prices", len(src.CSD.Prices)),
		slog.Int("analytic_blocks", len(src.Analytic.Compositions)),
		slog.Int("cdhu_blocks", len(src.Regional.Compositions)),
		slog.Int("sicro_rows", len(src.Report)),
		slog.Int("quotations", src.Quotes.Len()),
		slog.Any("missing", src.Missing))

	return src, nil
}

// open locates and opens a cost library, or returns nil after a warning
func (l *sourceLoader) open(configured, name string, patterns []string) *files.Workbook {
	path, err := l.discovery.Locate(configured, patterns...)
	if err == nil {
		var wb *files.Workbook
		if wb, err = files.OpenWorkbook(path); err == nil {
			return wb
		}
	}
	l.logger.Warn("Source workbook skipped",
		slog.String("source", name),
		slog.String("configured", configured),
		slog.String("error", err.Error()))
	l.skip(name)
	return nil
}

// sheet reads one layout, or returns nil after a warning
func (l *sourceLoader) sheet(wb *files.Workbook, layout dataprocessing.Layout) [][]string {
	rows, err := wb.Rows(layout)
	if err != nil {
		l.logger.Warn("Source sheet skipped",
			slog.String("source", string(layout.Source)),
			slog.String("sheet", layout.SheetLabel()),
			slog.String("error", err.Error()))
		l.skip(sheetKey(layout))
		return nil
	}
	l.count(layout, rows)
	return rows
}

func (l *sourceLoader) count(layout dataprocessing.Layout, rows [][]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[sheetKey(layout)] += len(rows)
}

func (l *sourceLoader) skip(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.missing = append(l.missing, name)
}

// sheetKey labels a sheet as SOURCE/sheet, or just the sheet for the budget
func sheetKey(layout dataprocessing.Layout) string {
	if layout.Source == "" {
		return layout.SheetLabel()
	}
	return string(layout.Source) + "/" + layout.SheetLabel()
}
