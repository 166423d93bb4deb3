package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/services"
)

// Calculation modes accepted by POST /api/calculation
const (
	ModeFull   = "full"
	ModeReload = "reload"
)

// CalculationRequest is the optional body of POST /api/calculation
type CalculationRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=full reload"`
}

// CalculationAccepted is returned when a background run starts
type CalculationAccepted struct {
	RunID     string `json:"run_id"`
	State     string `json:"state"`
	StatusURL string `json:"status_url"`
}

// ReloadResult is returned after reloading the tables from disk
type ReloadResult struct {
	RunID   string `json:"run_id,omitempty"`
	Items   int    `json:"items"`
	Details int    `json:"details"`
}

// PricingHandler serves the budget viewer API
type PricingHandler struct {
	service      PricingServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(service PricingServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PricingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &PricingHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "pricing_handler")),
		errorHandler: RegisterPricingErrors(errorHandler),
		validate:     validator.New(),
	}
}

// RegisterPricingErrors maps the calculation service errors to problem types
func RegisterPricingErrors(h *apierrors.ErrorHandler) *apierrors.ErrorHandler {
	return h.
		Register(services.ErrCalculationRunning, http.StatusConflict, apierrors.TypeCalculationRunning, "Calculation Already Running").
		Register(services.ErrNoResults, http.StatusNotFound, apierrors.TypeNoResults, "No Results").
		Register(services.ErrCompositionNotFound, http.StatusNotFound, apierrors.TypeCompositionNotFound, "Composition Not Found").
		Register(services.ErrItemNotFound, http.StatusNotFound, apierrors.TypeItemNotFound, "Item Not Found").
		Register(services.ErrBudgetMissing, http.StatusUnprocessableEntity, apierrors.TypeSourceMissing, "Budget Sheet Missing")
}

// Routes returns the viewer routes. postMiddleware wraps only
// POST /calculation, which is where rate limiting belongs.
func (h *PricingHandler) Routes(postMiddleware ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/grid", h.GetGrid)
	r.Get("/items/{index}", h.GetItem)
	r.Get("/composition/{code}", h.GetComposition)
	r.Get("/calculation", h.GetCalculation)
	r.With(postMiddleware...).Post("/calculation", h.PostCalculation)

	return r
}

// GetGrid handles GET /api/grid
func (h *PricingHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	grid, err := h.service.Grid(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, grid)
}

// GetItem handles GET /api/items/{index}
func (h *PricingHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	index := strings.TrimSpace(chi.URLParam(r, "index"))
	if index == "" {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationErrors([]apierrors.ValidationError{
			{Field: "index", Message: "Item index is required"},
		}))
		return
	}

	row, err := h.service.Item(r.Context(), index)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, row)
}

// GetComposition handles GET /api/composition/{code}
func (h *PricingHandler) GetComposition(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationErrors([]apierrors.ValidationError{
			{Field: "code", Message: "Composition code is required"},
		}))
		return
	}

	view, err := h.service.Composition(r.Context(), strings.ToUpper(code))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// GetCalculation handles GET /api/calculation
func (h *PricingHandler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status())
}

// PostCalculation handles POST /api/calculation. An empty body starts a
// full recalculation in the background.
func (h *PricingHandler) PostCalculation(w http.ResponseWriter, r *http.Request) {
	var req CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, validationProblem(err))
		return
	}

	if req.Mode == ModeReload {
		snap, err := h.service.Reload(r.Context())
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		render.JSON(w, r, ReloadResult{
			RunID:   snap.RunID,
			Items:   len(snap.Items),
			Details: len(snap.Details),
		})
		return
	}

	runID, err := h.service.StartCalculation(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Calculation accepted", slog.String("run_id", runID))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, CalculationAccepted{
		RunID:     runID,
		State:     services.RunStateRunning,
		StatusURL: "/api/calculation",
	})
}

func validationProblem(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}
	out := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apierrors.ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: "failed on the '" + fe.Tag() + "' rule",
		})
	}
	return apierrors.NewValidationErrors(out)
}
