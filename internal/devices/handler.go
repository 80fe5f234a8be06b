package devices

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/novadent/novadent/internal/platform/httpx"
	"github.com/novadent/novadent/internal/shared"
)

// Handler wires device administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs devices handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers device routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/revoke", h.revoke)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), Status(r.URL.Query().Get("status")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"devices": list})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.Approve)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.service.Revoke)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, int64) (Device, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	d, err := fn(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDeviceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("devices request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}