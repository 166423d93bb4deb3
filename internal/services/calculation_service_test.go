package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"pricingcli/internal/config"
	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/shared/testutil"
	"pricingcli/internal/websocket"
	"pricingcli/pkg/contracts/domain"
)

type recordingHub struct {
	mu    sync.Mutex
	types []string
}

func (h *recordingHub) BroadcastWithTrace(_ context.Context, messageType string, _ interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.types = append(h.types, messageType)
}

func (h *recordingHub) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.types...)
}

func newTestService(t *testing.T, hub Broadcaster) (*CalculationService, *config.Paths) {
	t.Helper()
	svc, paths, _ := newLoggedTestService(t, hub)
	return svc, paths
}

func newLoggedTestService(t *testing.T, hub Broadcaster) (*CalculationService, *config.Paths, *testutil.LogCapture) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteBudgetFixtures(t, root)

	cfg := config.Default()
	cfg.Paths.Root = root
	cfg.Paths.OutputDir = "out"
	paths, err := config.GetPaths(cfg)
	require.NoError(t, err)

	logger, capture := testutil.NewTestLogger(nil)
	return NewCalculationService(CalculationOptions{Paths: paths, Hub: hub, Logger: logger}), paths, capture
}

func TestCalculate(t *testing.T) {
	hub := &recordingHub{}
	svc, paths, logs := newLoggedTestService(t, hub)

	status, err := svc.Calculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStateCompleted, status.State)
	require.NotNil(t, status.Summary)
	assert.Equal(t, 4, status.Summary.Items)
	assert.Equal(t, 1, status.Summary.Headers)
	assert.Contains(t, status.Missing, "CDHU")
	assert.Contains(t, status.Missing, "SICRO")
	assert.Contains(t, status.Missing, "quotations")
	assert.FileExists(t, paths.ServicesCSV)
	assert.FileExists(t, paths.InsumosCSV)
	assert.FileExists(t, paths.ExportXLSX)
	assert.FileExists(t, paths.ManifestJSON)
	assert.False(t, svc.IsRunning())

	assert.Equal(t, []string{websocket.TypeCalculationStarted, websocket.TypeCalculationComplete}, hub.seen())

	skipped := testutil.AssertLogged(t, logs, slog.LevelWarn, "Quotation database not found")
	assert.Equal(t, "calculation", skipped.Attrs["service"])
	testutil.AssertNoErrors(t, logs)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Items, 5)

	byIndex := map[string]domain.PricedItem{}
	for _, it := range snap.Items {
		byIndex[it.Index] = it
	}
	assert.Equal(t, domain.MethodSumChildren, byIndex["1"].Method)
	assert.Equal(t, "SERVIÇOS PRELIMINARES", byIndex["1"].Description)
	assert.InDelta(t, 8, byIndex["1.1"].ResolvedPrice, 1e-9)
	assert.Equal(t, domain.MethodCalculated, byIndex["1.1"].Method)
	assert.Equal(t, domain.StatusOK, byIndex["1.1"].Status)
	assert.Equal(t, domain.MethodCatalogDirect, byIndex["1.2"].Method)
	assert.Equal(t, domain.MethodManual, byIndex["1.3"].Method)
	assert.Equal(t, domain.StatusError, byIndex["1.4"].Status)

	// two SINAPI rows for 100 and the manual audit row for ZZZ
	require.Len(t, snap.Details, 3)
	assert.Equal(t, domain.SourceManual, snap.Details[2].Source)

	grid, err := svc.Grid(context.Background())
	require.NoError(t, err)
	require.Len(t, grid.Rows, 1)
	assert.InDelta(t, 80+6+50, grid.Rows[0].Total, 1e-9)

	row, err := svc.Item(context.Background(), "1.1")
	require.NoError(t, err)
	assert.InDelta(t, 10, row.PriceWithBDI, 1e-9)

	_, err = svc.Item(context.Background(), "9.9")
	assert.ErrorIs(t, err, ErrItemNotFound)

	comp, err := svc.Composition(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSINAPI, comp.Source)
	assert.Len(t, comp.Children, 2)
	assert.InDelta(t, 8, comp.Total, 1e-9)
	require.Len(t, comp.Items, 1)
	assert.Equal(t, "1.1", comp.Items[0].Index)

	_, err = svc.Composition(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrCompositionNotFound)
}

func TestCalculateRejectsConcurrentRun(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.running.Store(true)

	_, err := svc.Calculate(context.Background())
	assert.ErrorIs(t, err, ErrCalculationRunning)

	_, err = svc.StartCalculation(context.Background())
	assert.ErrorIs(t, err, ErrCalculationRunning)
}

func TestReloadRejectedWhileRunning(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Calculate(context.Background())
	require.NoError(t, err)

	svc.running.Store(true)
	_, err = svc.Reload(context.Background())
	assert.ErrorIs(t, err, ErrCalculationRunning)

	// the previous results are still served
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Items, 5)

	svc.running.Store(false)
	_, err = svc.Reload(context.Background())
	assert.NoError(t, err)
}

func TestSnapshotWhileFirstRunIsWriting(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.running.Store(true)

	_, err := svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestStartCalculation(t *testing.T) {
	hub := &recordingHub{}
	svc, _ := newTestService(t, hub)

	runID, err := svc.StartCalculation(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		return svc.Status().State == RunStateCompleted
	}, 10*time.Second, 20*time.Millisecond)
	assert.Equal(t, runID, svc.Status().RunID)
	assert.Contains(t, hub.seen(), websocket.TypeCalculationComplete)
}

func TestSnapshotReloadsFromDisk(t *testing.T) {
	svc, paths := newTestService(t, nil)
	_, err := svc.Calculate(context.Background())
	require.NoError(t, err)

	fresh := NewCalculationService(CalculationOptions{Paths: paths})
	snap, err := fresh.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Items, 5)
	assert.Equal(t, svc.Status().RunID, snap.RunID)
}

func TestSnapshotWithoutResults(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestCalculateWithoutBudget(t *testing.T) {
	hub := &recordingHub{}
	cfg := config.Default()
	cfg.Paths.Root = t.TempDir()
	paths, err := config.GetPaths(cfg)
	require.NoError(t, err)

	svc := NewCalculationService(CalculationOptions{Paths: paths, Hub: hub})
	_, err = svc.Calculate(context.Background())
	assert.ErrorIs(t, err, ErrBudgetMissing)
	assert.Equal(t, RunStateFailed, svc.Status().State)
	assert.Contains(t, hub.seen(), websocket.TypeCalculationFailed)
	assert.False(t, svc.IsRunning())
}

func TestCalculateWithUnreadableBudget(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Root = t.TempDir()
	paths, err := config.GetPaths(cfg)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.POFile), 0755))
	require.NoError(t, os.WriteFile(paths.POFile, []byte("not a workbook"), 0644))

	svc := NewCalculationService(CalculationOptions{Paths: paths})
	_, err = svc.Calculate(context.Background())

	assert.ErrorIs(t, err, ErrBudgetMissing)
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeParsing, appErr.Type)
	assert.Equal(t, paths.POFile, appErr.Context["path"])
}

func TestPipelineExpandsReport(t *testing.T) {
	src := &Sources{
		Items: []domain.RequestedItem{
			{Index: "1", SourceLibrary: "SICRO", Code: "S1", Quantity: 1, Kind: domain.ItemKindItem},
		},
		Report: [][]string{
			{"S1", "Composição S1", "", "", "", ""},
			{"S2", "Sub composição", "2", "m3", "m3", ""},
			{"M1", "Material", "1", "kg", "kg", "5"},
			{"S2", "Sub composição", "", "", "", ""},
			{"M2", "Areia", "3", "m3", "m3", "2"},
		},
	}

	res := NewPipeline(0, nil, nil).Resolve(context.Background(), src)

	require.Len(t, res.Assembly.Items, 1)
	got := res.Assembly.Items[0]
	assert.InDelta(t, 17, got.ResolvedPrice, 1e-9)
	assert.Equal(t, domain.MethodCalculated, got.Method)
	assert.Equal(t, domain.StatusOK, got.Status)
	assert.Len(t, res.Assembly.Details, 3)
}

func TestPipelineRecordsStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	src := &Sources{
		Items: []domain.RequestedItem{
			{Index: "1", SourceLibrary: "PROPRIO", Code: "X", Quantity: 1, Kind: domain.ItemKindItem},
		},
	}
	NewPipeline(0, provider.Tracer("test"), nil).Resolve(context.Background(), src)

	attrs := map[string]int64{}
	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
		if span.Name() != "pricing.assemble" {
			continue
		}
		for _, kv := range span.Attributes() {
			attrs[string(kv.Key)] = kv.Value.AsInt64()
		}
	}
	assert.Equal(t, []string{"pricing.merge", "pricing.solve", "pricing.assemble"}, names)
	assert.Equal(t, int64(1), attrs["items"])
	assert.Equal(t, int64(1), attrs["errors"])
}
