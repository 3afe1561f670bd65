package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fincasa/fincasa/internal/adapter/http/dto"
	"github.com/fincasa/fincasa/internal/adapter/http/middleware"
	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/usecase"
)

// SeriesService defines the behavior needed by SeriesHandler.
type SeriesService interface {
	CreateRecurringSeries(ctx context.Context, input usecase.CreateSeriesInput) ([]*domain.Entry, error)
	GetSeries(ctx context.Context, callerID, memberID string) ([]*domain.Entry, error)
	UpdateSeriesFromMember(ctx context.Context, input usecase.UpdateSeriesInput) ([]*domain.Entry, error)
	GenerateFutureOccurrences(ctx context.Context, input usecase.GenerateOccurrencesInput) ([]*domain.Entry, error)
}

// SeriesHandler handles series-related HTTP requests.
type SeriesHandler struct {
	seriesUC SeriesService
	clock    usecase.Clock
}

// NewSeriesHandler creates a new SeriesHandler.
func NewSeriesHandler(seriesUC SeriesService, clock usecase.Clock) *SeriesHandler {
	return &SeriesHandler{seriesUC: seriesUC, clock: clock}
}

// Create creates a recurring or installment series.
func (h *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	var req dto.CreateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	members, err := h.seriesUC.CreateRecurringSeries(r.Context(), req.ToUseCaseInput(callerID))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create series", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(members, h.clock.Now()),
		Total:   int64(len(members)),
	})
}

// Get resolves the full series from any of its members.
func (h *SeriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing series member ID", "")
		return
	}

	members, err := h.seriesUC.GetSeries(r.Context(), callerID, id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get series", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(members, h.clock.Now()),
		Total:   int64(len(members)),
	})
}

// Update applies a forward-propagating edit from one series member.
func (h *SeriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing series member ID", "")
		return
	}

	var req dto.UpdateSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	affected, err := h.seriesUC.UpdateSeriesFromMember(r.Context(), req.ToUseCaseInput(callerID, id))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to update series", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(affected, h.clock.Now()),
		Total:   int64(len(affected)),
	})
}

// Generate extends a series with future occurrences.
func (h *SeriesHandler) Generate(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing series member ID", "")
		return
	}

	var req dto.GenerateOccurrencesRequest
	if r.Body != nil {
		// Body is optional; count defaults to one occurrence.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	created, err := h.seriesUC.GenerateFutureOccurrences(r.Context(), req.ToUseCaseInput(callerID, id))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to generate occurrences", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(created, h.clock.Now()),
		Total:   int64(len(created)),
	})
}
