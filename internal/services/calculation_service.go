package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pricingcli/internal/config"
	"pricingcli/internal/exporter"
	"pricingcli/internal/infrastructure"
	"pricingcli/internal/pricing"
	"pricingcli/internal/websocket"
	"pricingcli/pkg/contracts/domain"
	"pricingcli/pkg/contracts/events"
)

// Broadcaster publishes calculation events to viewers
type Broadcaster interface {
	BroadcastWithTrace(ctx context.Context, messageType string, data interface{})
}

// Run states reported by Status
const (
	RunStateIdle      = "idle"
	RunStateRunning   = "running"
	RunStateCompleted = "completed"
	RunStateFailed    = "failed"
)

// RunStatus describes the current or last calculation
type RunStatus struct {
	RunID      string             `json:"run_id,omitempty"`
	State      string             `json:"state"`
	StartedAt  *time.Time         `json:"started_at,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	Error      string             `json:"error,omitempty"`
	Summary    *pricing.Summary   `json:"summary,omitempty"`
	Manifest   *exporter.Manifest `json:"manifest,omitempty"`
	Missing    []string           `json:"missing_sources,omitempty"`
}

// Snapshot is an immutable view of the last exported tables
type Snapshot struct {
	RunID    string
	LoadedAt time.Time
	Items    []domain.PricedItem
	Details  []domain.CompositionDetail
	Grid     *Grid

	byParent map[string][]domain.CompositionDetail
}

func newSnapshot(runID string, items []domain.PricedItem, details []domain.CompositionDetail) *Snapshot {
	s := &Snapshot{
		RunID:    runID,
		LoadedAt: time.Now(),
		Items:    items,
		Details:  details,
		Grid:     BuildGrid(items),
		byParent: make(map[string][]domain.CompositionDetail),
	}
	s.Grid.RunID = runID
	for _, d := range details {
		s.byParent[d.ParentCode] = append(s.byParent[d.ParentCode], d)
	}
	return s
}

// CompositionView is the breakdown of one composition code
type CompositionView struct {
	Code     string                     `json:"code"`
	Source   domain.SourceTag           `json:"source"`
	Children []domain.CompositionDetail `json:"children"`
	Total    float64                    `json:"total"`
	Items    []domain.PricedItem        `json:"items,omitempty"`
}

// CalculationService runs pricing calculations and serves their results.
// At most one calculation runs at a time; readers always see a complete
// snapshot because results are swapped in atomically.
type CalculationService struct {
	paths    *config.Paths
	sources  SourcePaths
	pipeline *Pipeline
	exporter *exporter.Exporter
	hub      Broadcaster
	metrics  *infrastructure.BusinessMetrics
	tracer   trace.Tracer
	timeout  time.Duration
	logger   *slog.Logger

	running  atomic.Bool
	snapshot atomic.Pointer[Snapshot]
	status   atomic.Pointer[RunStatus]
}

// CalculationOptions configures a CalculationService
type CalculationOptions struct {
	Paths     *config.Paths
	Sources   *SourcePaths
	MaxPasses int
	Timeout   time.Duration
	Hub       Broadcaster
	Metrics   *infrastructure.BusinessMetrics
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

// NewCalculationService creates the service. Sources default to the
// configured inputs of Paths.
func NewCalculationService(opts CalculationOptions) *CalculationService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("service", "calculation"))

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.MeterName)
	}

	sources := SourcePathsFrom(opts.Paths)
	if opts.Sources != nil {
		sources = *opts.Sources
	}

	s := &CalculationService{
		paths:    opts.Paths,
		sources:  sources,
		pipeline: NewPipeline(opts.MaxPasses, tracer, logger),
		exporter: exporter.NewExporter(opts.Paths, logger),
		hub:      opts.Hub,
		metrics:  opts.Metrics,
		tracer:   tracer,
		timeout:  opts.Timeout,
		logger:   logger,
	}
	s.status.Store(&RunStatus{State: RunStateIdle})
	return s
}

// Calculate runs a calculation synchronously and returns its final status
func (s *CalculationService) Calculate(ctx context.Context) (*RunStatus, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.reject(ctx)
		return nil, ErrCalculationRunning
	}
	runID := infrastructure.GenerateRunID()
	return s.run(ctx, runID)
}

// StartCalculation begins a calculation in the background and returns its
// run ID. The run is detached from ctx except for its trace ID.
func (s *CalculationService) StartCalculation(ctx context.Context) (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.reject(ctx)
		return "", ErrCalculationRunning
	}
	runID := infrastructure.GenerateRunID()
	now := time.Now().UTC()
	s.status.Store(&RunStatus{RunID: runID, State: RunStateRunning, StartedAt: &now})

	runCtx := infrastructure.WithTraceID(context.Background(), infrastructure.GetTraceID(ctx))
	var cancel context.CancelFunc = func() {}
	if s.timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
	}

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Calculation panicked",
					slog.String("run_id", runID),
					slog.Any("panic", r))
				s.fail(runCtx, runID, now, fmt.Errorf("calculation panicked: %v", r))
				s.running.Store(false)
			}
		}()
		_, _ = s.run(runCtx, runID)
	}()

	return runID, nil
}

// run executes one calculation. The caller must hold the running flag.
func (s *CalculationService) run(ctx context.Context, runID string) (*RunStatus, error) {
	defer s.running.Store(false)

	started := time.Now().UTC()
	ctx = infrastructure.WithRunID(ctx, runID)
	ctx = infrastructure.EnsureTraceID(ctx)

	ctx, span := s.tracer.Start(ctx, "pricing.calculation",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	if s.metrics != nil {
		s.metrics.CalculationActive.Add(ctx, 1)
		defer s.metrics.CalculationActive.Add(ctx, -1)
	}

	s.status.Store(&RunStatus{RunID: runID, State: RunStateRunning, StartedAt: &started})
	s.broadcast(ctx, websocket.TypeCalculationStarted, events.CalculationStarted{RunID: runID})
	s.logger.InfoContext(ctx, "Calculation started", slog.String("run_id", runID))

	result, err := s.pipeline.Run(ctx, s.sources)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(ctx, runID, started, err)
	}

	manifest, err := s.exporter.Export(ctx, result.Assembly, exporter.RunInfo{
		RunID:     runID,
		StartedAt: started,
		RowsRead:  result.Sources.RowsRead,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(ctx, runID, started, fmt.Errorf("export failed: %w", err))
	}

	s.snapshot.Store(newSnapshot(runID, result.Assembly.Items, result.Assembly.Details))

	finished := time.Now().UTC()
	summary := result.Assembly.Summary
	status := &RunStatus{
		RunID:      runID,
		State:      RunStateCompleted,
		StartedAt:  &started,
		FinishedAt: &finished,
		Summary:    &summary,
		Manifest:   manifest,
		Missing:    result.Sources.Missing,
	}
	s.status.Store(status)

	infrastructure.RecordCalculationMetrics(ctx, s.metrics, infrastructure.CalculationOutcome{
		RunID:    runID,
		Duration: finished.Sub(started),
		Passes:   summary.SolverPasses,
		Unsolved: summary.Unsolved,
		ByStatus: manifest.ByStatus,
		ByMethod: manifest.ByMethod,
		RowsRead: result.Sources.RowsRead,
	})

	s.broadcast(ctx, websocket.TypeCalculationComplete, events.CalculationComplete{
		RunID:       runID,
		Items:       summary.Items,
		Details:     summary.Details,
		ByStatus:    manifest.ByStatus,
		Fingerprint: manifest.Fingerprint,
	})
	s.logger.InfoContext(ctx, "Calculation completed",
		slog.String("run_id", runID),
		slog.String("otel_trace_id", infrastructure.TraceIDFromContext(ctx)),
		slog.Duration("duration", finished.Sub(started)),
		slog.Int("items", summary.Items),
		slog.Int("errors", summary.ByStatus[domain.StatusError]))

	return status, nil
}

func (s *CalculationService) fail(ctx context.Context, runID string, started time.Time, err error) error {
	finished := time.Now().UTC()
	s.status.Store(&RunStatus{
		RunID:      runID,
		State:      RunStateFailed,
		StartedAt:  &started,
		FinishedAt: &finished,
		Error:      err.Error(),
	})

	infrastructure.RecordError(ctx, err)
	infrastructure.RecordCalculationMetrics(ctx, s.metrics, infrastructure.CalculationOutcome{
		RunID:    runID,
		Duration: finished.Sub(started),
		Err:      err,
	})
	s.broadcast(ctx, websocket.TypeCalculationFailed, events.CalculationFailed{
		RunID: runID,
		Error: err.Error(),
	})
	s.logger.ErrorContext(ctx, "Calculation failed",
		slog.String("run_id", runID),
		slog.String("otel_trace_id", infrastructure.TraceIDFromContext(ctx)),
		slog.String("error", err.Error()))
	return err
}

func (s *CalculationService) reject(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.CalculationRejectedTotal.Add(ctx, 1)
	}
	s.logger.WarnContext(ctx, "Calculation rejected, another run is in flight")
}

func (s *CalculationService) broadcast(ctx context.Context, messageType string, data interface{}) {
	if s.hub != nil {
		s.hub.BroadcastWithTrace(ctx, messageType, data)
	}
}

// IsRunning reports whether a calculation is in flight
func (s *CalculationService) IsRunning() bool {
	return s.running.Load()
}

// Status returns the current or last run status
func (s *CalculationService) Status() RunStatus {
	return *s.status.Load()
}

// Snapshot returns the current results, reloading the exported tables from
// disk when nothing was calculated in this process. While a run is writing
// the tables there is nothing to serve yet.
func (s *CalculationService) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.snapshot.Load(); snap != nil {
		return snap, nil
	}
	if s.IsRunning() {
		return nil, ErrNoResults
	}
	return s.Reload(ctx)
}

// Reload replaces the snapshot with the tables on disk. It fails with
// ErrCalculationRunning while a run may be rewriting them.
func (s *CalculationService) Reload(ctx context.Context) (*Snapshot, error) {
	if s.IsRunning() {
		s.logger.WarnContext(ctx, "Reload rejected, a calculation is writing the tables")
		return nil, ErrCalculationRunning
	}
	tables, err := s.exporter.Load()
	if err != nil {
		if errors.Is(err, exporter.ErrTableMissing) {
			return nil, ErrNoResults
		}
		return nil, fmt.Errorf("reload tables: %w", err)
	}

	runID := ""
	if m, err := exporter.ReadManifest(s.paths.ManifestJSON); err == nil {
		runID = m.RunID
	}

	snap := newSnapshot(runID, tables.Items, tables.Details)
	s.snapshot.Store(snap)
	s.logger.InfoContext(ctx, "Results reloaded from disk",
		slog.String("run_id", runID),
		slog.Int("items", len(tables.Items)),
		slog.Int("details", len(tables.Details)))
	return snap, nil
}

// Grid returns the budget tree of the current results
func (s *CalculationService) Grid(ctx context.Context) (*Grid, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Grid, nil
}

// Item returns one budget row by index
func (s *CalculationService) Item(ctx context.Context, index string) (*GridRow, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	row, ok := snap.Grid.Find(strings.TrimSpace(index))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, index)
	}
	return row, nil
}

// Composition returns the exported breakdown of code and the budget items
// that use it. Total sums the rows of the first source that exported code.
func (s *CalculationService) Composition(ctx context.Context, code string) (*CompositionView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	children, ok := snap.byParent[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCompositionNotFound, code)
	}

	view := &CompositionView{
		Code:     code,
		Source:   children[0].Composition,
		Children: children,
	}
	for _, c := range children {
		if c.Composition == view.Source {
			view.Total += c.Subtotal
		}
	}
	for _, it := range snap.Items {
		if it.Code == code && !it.IsHeader() {
			view.Items = append(view.Items, it)
		}
	}
	return view, nil
}
