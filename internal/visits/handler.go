package visits

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/platform/httpx"
	"github.com/novadent/novadent/internal/shared"
)

// Handler wires HTTP endpoints for the visits module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs visits handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers visit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/reject", h.reject)
}

type createRequest struct {
	PatientID int64  `json:"patient_id" validate:"required,gt=0"`
	ServiceID *int64 `json:"service_id,omitempty"`
	Date      string `json:"date,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		PatientID: req.PatientID,
		ServiceID: req.ServiceID,
		ActorID:   shared.ActorFromContext(r.Context()),
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		input.Date = date
	}
	v, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("date"); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		filter.Date = date
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"visits": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	v, err := h.service.Get(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

type stockLineRequest struct {
	ItemID   int64  `json:"item_id" validate:"required,gt=0"`
	Quantity string `json:"quantity" validate:"required"`
	Notes    string `json:"notes,omitempty"`
}

type completeRequest struct {
	StockItems          []stockLineRequest `json:"stock_items" validate:"dive"`
	DentistNotes        string             `json:"dentist_notes,omitempty"`
	Findings            string             `json:"findings,omitempty"`
	TreatmentPlan       string             `json:"treatment_plan,omitempty"`
	PaymentStatus       string             `json:"payment_status" validate:"required,oneof=paid hmo_fully_covered partial unpaid"`
	OnsitePaymentAmount string             `json:"onsite_payment_amount,omitempty"`
	PaymentMethodChange string             `json:"payment_method_change,omitempty" validate:"omitempty,oneof=maya_to_cash"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req completeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CompleteInput{
		Note: Note{
			DentistNotes:  req.DentistNotes,
			Findings:      req.Findings,
			TreatmentPlan: req.TreatmentPlan,
		},
		Outcome:      DeclaredOutcome(req.PaymentStatus),
		MethodChange: req.PaymentMethodChange,
		ActorID:      shared.ActorFromContext(r.Context()),
	}
	for _, line := range req.StockItems {
		qty, err := decimal.NewFromString(line.Quantity)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "quantity must be a decimal number")
			return
		}
		input.StockLines = append(input.StockLines, StockLine{ItemID: line.ItemID, Qty: qty, Notes: line.Notes})
	}
	if req.OnsitePaymentAmount != "" {
		amount, err := decimal.NewFromString(req.OnsitePaymentAmount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "onsite_payment_amount must be a decimal number")
			return
		}
		input.OnsiteAmount = amount
	}

	v, err := h.service.CompleteWithDetails(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	v, err := h.service.Reject(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrVisitNotFound), errors.Is(err, inventory.ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, inventory.ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrUnknownOutcome), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrNoPendingPayment), errors.Is(err, inventory.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("visits request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
