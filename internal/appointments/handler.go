package appointments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/novadent/novadent/internal/platform/httpx"
	"github.com/novadent/novadent/internal/shared"
)

// Handler wires HTTP endpoints for the appointments module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs appointments handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers appointment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.book)
	r.Get("/{id}", h.get)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/complete", h.complete)
}

type bookRequest struct {
	PatientID int64  `json:"patient_id" validate:"required,gt=0"`
	ServiceID *int64 `json:"service_id,omitempty"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	Notes     string `json:"notes,omitempty"`
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	appt, err := h.service.Book(r.Context(), BookInput{
		PatientID: req.PatientID,
		ServiceID: req.ServiceID,
		Date:      date,
		StartTime: req.StartTime,
		Notes:     req.Notes,
		ActorID:   shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, appt)
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
	httpx.JSON(w, http.StatusOK, map[string]any{"appointments": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	appt, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.service.Approve)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.service.Cancel)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.service.Complete)
}

func (h *Handler) doTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, int64) (Appointment, error)) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	appt, err := fn(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
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
	case errors.Is(err, ErrAppointmentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrClinicClosed), errors.Is(err, ErrCapacityFull):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Slot Unavailable", err.Error())
	case errors.Is(err, ErrInvalidSlot):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("appointments request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
