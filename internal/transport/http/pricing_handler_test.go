package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/services"
	"pricingcli/pkg/contracts/domain"
)

// MockPricingService is a mock implementation of PricingServiceInterface
type MockPricingService struct {
	mock.Mock
}

func (m *MockPricingService) StartCalculation(ctx context.Context) (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockPricingService) Status() services.RunStatus {
	args := m.Called()
	return args.Get(0).(services.RunStatus)
}

func (m *MockPricingService) Reload(ctx context.Context) (*services.Snapshot, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Snapshot), args.Error(1)
}

func (m *MockPricingService) Grid(ctx context.Context) (*services.Grid, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Grid), args.Error(1)
}

func (m *MockPricingService) Item(ctx context.Context, index string) (*services.GridRow, error) {
	args := m.Called(index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GridRow), args.Error(1)
}

func (m *MockPricingService) Composition(ctx context.Context, code string) (*services.CompositionView, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CompositionView), args.Error(1)
}

func newTestRouter(svc *MockPricingService) http.Handler {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewPricingHandler(svc, logger, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api", h.Routes())
	return r
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPricingHandler_GetGrid(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockPricingService)
		expectedStatus int
		expectedType   string
	}{
		{
			name: "grid available",
			setupMock: func(m *MockPricingService) {
				m.On("Grid").Return(services.BuildGrid([]domain.PricedItem{
					{RequestedItem: domain.RequestedItem{Index: "1", Quantity: 2, Kind: domain.ItemKindItem}, ResolvedPrice: 5},
				}), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "no results yet",
			setupMock: func(m *MockPricingService) {
				m.On("Grid").Return(nil, services.ErrNoResults)
			},
			expectedStatus: http.StatusNotFound,
			expectedType:   apierrors.TypeNoResults,
		},
		{
			name: "unexpected failure",
			setupMock: func(m *MockPricingService) {
				m.On("Grid").Return(nil, errors.New("disk on fire"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedType:   apierrors.TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPricingService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/grid", nil)
			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			body := decodeProblem(t, rec)
			if tt.expectedType != "" {
				assert.Equal(t, tt.expectedType, body["type"])
				assert.NotContains(t, rec.Body.String(), "disk on fire")
			} else {
				assert.InDelta(t, 10, body["total"], 1e-9)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestPricingHandler_GetItem(t *testing.T) {
	svc := new(MockPricingService)
	svc.On("Item", "1.2").Return(&services.GridRow{
		PricedItem: domain.PricedItem{RequestedItem: domain.RequestedItem{Index: "1.2", Code: "100"}},
	}, nil)
	svc.On("Item", "9").Return(nil, services.ErrItemNotFound)

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/1.2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.2", decodeProblem(t, rec)["index"])

	rec = httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.TypeItemNotFound, decodeProblem(t, rec)["type"])
}

func TestPricingHandler_GetComposition(t *testing.T) {
	svc := new(MockPricingService)
	svc.On("Composition", "ABC-1").Return(&services.CompositionView{Code: "ABC-1", Source: domain.SourceCDHU, Total: 12}, nil)
	svc.On("Composition", "MISSING").Return(nil, services.ErrCompositionNotFound)

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/composition/abc-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CDHU", decodeProblem(t, rec)["source"])

	rec = httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/composition/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.TypeCompositionNotFound, decodeProblem(t, rec)["type"])
}

func TestPricingHandler_PostCalculation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockPricingService)
		expectedStatus int
		expectedType   string
	}{
		{
			name: "empty body starts a run",
			setupMock: func(m *MockPricingService) {
				m.On("StartCalculation").Return("run-1", nil)
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name: "explicit full mode",
			body: `{"mode":"full"}`,
			setupMock: func(m *MockPricingService) {
				m.On("StartCalculation").Return("run-2", nil)
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name: "run in flight",
			setupMock: func(m *MockPricingService) {
				m.On("StartCalculation").Return("", services.ErrCalculationRunning)
			},
			expectedStatus: http.StatusConflict,
			expectedType:   apierrors.TypeCalculationRunning,
		},
		{
			name: "reload mode",
			body: `{"mode":"reload"}`,
			setupMock: func(m *MockPricingService) {
				m.On("Reload").Return(&services.Snapshot{RunID: "old", Items: make([]domain.PricedItem, 3)}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "reload while a run writes the tables",
			body: `{"mode":"reload"}`,
			setupMock: func(m *MockPricingService) {
				m.On("Reload").Return(nil, services.ErrCalculationRunning)
			},
			expectedStatus: http.StatusConflict,
			expectedType:   apierrors.TypeCalculationRunning,
		},
		{
			name:           "unknown mode",
			body:           `{"mode":"partial"}`,
			setupMock:      func(m *MockPricingService) {},
			expectedStatus: http.StatusBadRequest,
			expectedType:   apierrors.TypeValidation,
		},
		{
			name:           "malformed json",
			body:           `{"mode":`,
			setupMock:      func(m *MockPricingService) {},
			expectedStatus: http.StatusBadRequest,
			expectedType:   apierrors.TypeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPricingService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/calculation", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			body := decodeProblem(t, rec)
			if tt.expectedType != "" {
				assert.Equal(t, tt.expectedType, body["type"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestPricingHandler_GetCalculation(t *testing.T) {
	svc := new(MockPricingService)
	svc.On("Status").Return(services.RunStatus{RunID: "run-9", State: services.RunStateCompleted})

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculation", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "run-9", body["run_id"])
	assert.Equal(t, "completed", body["state"])
}

type fixedClients int

func (c fixedClients) GetHubMetrics() map[string]interface{} {
	return map[string]interface{}{"active_clients": int(c)}
}

func TestHealthHandler(t *testing.T) {
	svc := new(MockPricingService)
	svc.On("Status").Return(services.RunStatus{State: services.RunStateFailed, RunID: "r"})

	h := NewHealthHandler("1.0.0", svc, fixedClients(2), nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "degraded", body["status"])
	require.IsType(t, map[string]interface{}{}, body["websocket"])
	assert.Equal(t, float64(2), body["websocket"].(map[string]interface{})["active_clients"])
	assert.Equal(t, "1.0.0", body["version"])
}
