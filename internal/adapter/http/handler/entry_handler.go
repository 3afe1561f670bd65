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

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	CreateEntry(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error)
	GetEntry(ctx context.Context, callerID, id string) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error)
	MarkPaid(ctx context.Context, input usecase.MarkPaidInput) (*domain.Entry, error)
	MarkPending(ctx context.Context, input usecase.TransitionInput) (*domain.Entry, error)
	Cancel(ctx context.Context, input usecase.TransitionInput) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, input usecase.TransitionInput) error
	ListByPeriod(ctx context.Context, input usecase.ListByPeriodInput) ([]*domain.Entry, error)
	ListByCategory(ctx context.Context, input usecase.ListByCategoryInput) ([]*domain.Entry, error)
	ListByAccount(ctx context.Context, input usecase.ListByAccountInput) ([]*domain.Entry, error)
	ListOverdue(ctx context.Context, callerID string) ([]*domain.Entry, error)
	ListRecurring(ctx context.Context, callerID string) ([]*domain.Entry, error)
}

// EntryHandler handles entry-related HTTP requests.
type EntryHandler struct {
	entryUC EntryService
	clock   usecase.Clock
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService, clock usecase.Clock) *EntryHandler {
	return &EntryHandler{entryUC: entryUC, clock: clock}
}

// Create creates a new single entry.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	var req dto.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.entryUC.CreateEntry(r.Context(), req.ToUseCaseInput(callerID))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create entry", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry, h.clock.Now()))
}

// Get retrieves an entry by ID.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	entry, err := h.entryUC.GetEntry(r.Context(), callerID, id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry, h.clock.Now()))
}

// Update edits a pending entry.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	var req dto.UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.entryUC.UpdateEntry(r.Context(), req.ToUseCaseInput(callerID, id))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to update entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry, h.clock.Now()))
}

// MarkPaid marks an entry as paid.
func (h *EntryHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	var req dto.MarkPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.entryUC.MarkPaid(r.Context(), req.ToUseCaseInput(callerID, id))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to mark entry paid", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry, h.clock.Now()))
}

// MarkPending undoes a payment.
func (h *EntryHandler) MarkPending(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to revert entry", h.entryUC.MarkPending)
}

// Cancel cancels an entry.
func (h *EntryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to cancel entry", h.entryUC.Cancel)
}

func (h *EntryHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	errMessage string,
	apply func(ctx context.Context, input usecase.TransitionInput) (*domain.Entry, error),
) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	var req dto.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := apply(r.Context(), req.ToUseCaseInput(callerID, id))
	if err != nil {
		writeError(w, mapDomainError(err), errMessage, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry, h.clock.Now()))
}

// Delete tombstones an entry.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	var req dto.TransitionRequest
	if r.Body != nil {
		// Body is optional on delete.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.entryUC.DeleteEntry(r.Context(), req.ToUseCaseInput(callerID, id)); err != nil {
		writeError(w, mapDomainError(err), "failed to delete entry", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListByPeriod lists entries due inside [from, to].
func (h *EntryHandler) ListByPeriod(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	entries, err := h.entryUC.ListByPeriod(r.Context(), usecase.ListByPeriodInput{
		CallerID: callerID,
		From:     from,
		To:       to,
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	h.writeEntries(w, entries)
}

// ListByCategory lists entries of one category.
func (h *EntryHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	categoryID := chi.URLParam(r, "id")
	if categoryID == "" {
		writeError(w, http.StatusBadRequest, "missing category ID", "")
		return
	}

	entries, err := h.entryUC.ListByCategory(r.Context(), usecase.ListByCategoryInput{
		CallerID:   callerID,
		CategoryID: categoryID,
		Limit:      parseIntQuery(r, "limit", 50),
		Offset:     parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	h.writeEntries(w, entries)
}

// ListByAccount lists entries of one account.
func (h *EntryHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	entries, err := h.entryUC.ListByAccount(r.Context(), usecase.ListByAccountInput{
		CallerID:  callerID,
		AccountID: accountID,
		Limit:     parseIntQuery(r, "limit", 50),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	h.writeEntries(w, entries)
}

// ListOverdue lists pending entries past their due date.
func (h *EntryHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	entries, err := h.entryUC.ListOverdue(r.Context(), callerID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list overdue entries", err.Error())
		return
	}

	h.writeEntries(w, entries)
}

// ListRecurring lists recurring series roots.
func (h *EntryHandler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetCallerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "")
		return
	}

	entries, err := h.entryUC.ListRecurring(r.Context(), callerID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list recurring entries", err.Error())
		return
	}

	h.writeEntries(w, entries)
}

func (h *EntryHandler) writeEntries(w http.ResponseWriter, entries []*domain.Entry) {
	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries, h.clock.Now()),
		Total:   int64(len(entries)),
	})
}
