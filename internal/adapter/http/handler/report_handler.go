package handler

import (
	"context"
	"net/http"

	"github.com/fincasa/fincasa/internal/adapter/http/middleware"
	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/usecase"
)

// ReportService defines the behavior needed by ReportHandler.
type ReportService interface {
	SumByPeriod(ctx context.Context, input usecase.SumByPeriodInput) (*usecase.PeriodSummary, error)
}

// ReportHandler handles aggregation HTTP requests.
type ReportHandler struct {
	reportUC ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportUC ReportService) *ReportHandler {
	return &ReportHandler{reportUC: reportUC}
}

// Summary computes income, expense and balance over a due-date period.
// Optional filters: category_id, kind, status.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
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

	summary, err := h.reportUC.SumByPeriod(r.Context(), usecase.SumByPeriodInput{
		CallerID:   callerID,
		From:       from,
		To:         to,
		CategoryID: r.URL.Query().Get("category_id"),
		Kind:       domain.EntryKind(r.URL.Query().Get("kind")),
		Status:     domain.EntryStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to compute summary", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
