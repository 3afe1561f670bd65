package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/fincasa/fincasa/internal/adapter/http/dto"
	"github.com/fincasa/fincasa/internal/adapter/http/handler/mocks"
	"github.com/fincasa/fincasa/internal/adapter/http/middleware"
	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/usecase"
	ucmocks "github.com/fincasa/fincasa/internal/usecase/mocks"
)

var handlerTestNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// newCallerRequest builds a JSON request already carrying the caller
// identity, the way requests arrive after the CallerID middleware.
func newCallerRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	return req.WithContext(context.WithValue(req.Context(), middleware.CallerContextKey, "user-1"))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func testEntry(id string) *domain.Entry {
	return &domain.Entry{
		ID:          id,
		Description: "Electricity bill",
		Amount:      decimal.RequireFromString("120.50"),
		DueDate:     time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Kind:        domain.KindExpense,
		Status:      domain.StatusPending,
		Recurrence:  domain.RecurrenceNone,
		CategoryID:  "cat-1",
		AccountID:   "acc-1",
		CreatedAt:   handlerTestNow.Add(-24 * time.Hour),
		UpdatedAt:   handlerTestNow.Add(-24 * time.Hour),
	}
}

func newEntryHandlerForTest(t *testing.T) (*EntryHandler, *mocks.MockEntryService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockEntryService(ctrl)
	return NewEntryHandler(svc, ucmocks.NewMockClock(handlerTestNow)), svc
}

func TestEntryHandlerCreate(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	var captured usecase.CreateEntryInput
	svc.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, input usecase.CreateEntryInput) (*domain.Entry, error) {
			captured = input
			return testEntry("ent-1"), nil
		})

	req := newCallerRequest(http.MethodPost, "/api/v1/entries", map[string]any{
		"description": "Electricity bill",
		"amount":      "120.50",
		"due_date":    "2025-03-20T00:00:00Z",
		"kind":        "expense",
		"category_id": "cat-1",
		"account_id":  "acc-1",
	})
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.CallerID != "user-1" {
		t.Errorf("expected caller user-1, got %q", captured.CallerID)
	}
	if captured.Kind != domain.KindExpense {
		t.Errorf("expected kind expense, got %q", captured.Kind)
	}
	if !captured.Amount.Equal(decimal.RequireFromString("120.50")) {
		t.Errorf("expected amount 120.50, got %s", captured.Amount)
	}

	var resp dto.EntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "ent-1" {
		t.Errorf("expected entry ID ent-1, got %q", resp.ID)
	}
	if resp.DueDate != "2025-03-20" {
		t.Errorf("expected due date 2025-03-20, got %q", resp.DueDate)
	}
	if resp.Overdue {
		t.Error("entry due in the future should not be overdue")
	}
}

func TestEntryHandlerCreateMissingCaller(t *testing.T) {
	h, _ := newEntryHandlerForTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestEntryHandlerCreateInvalidBody(t *testing.T) {
	h, _ := newEntryHandlerForTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", bytes.NewBufferString("{not json"))
	req = req.WithContext(context.WithValue(req.Context(), middleware.CallerContextKey, "user-1"))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestEntryHandlerCreateValidationError(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	svc.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).Return(nil, domain.ErrInvalidAmount)

	req := newCallerRequest(http.MethodPost, "/api/v1/entries", map[string]any{
		"description": "Electricity bill",
		"amount":      "0",
		"kind":        "expense",
	})
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestEntryHandlerGet(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	svc.EXPECT().GetEntry(gomock.Any(), "user-1", "ent-1").Return(testEntry("ent-1"), nil)

	req := withURLParam(newCallerRequest(http.MethodGet, "/api/v1/entries/ent-1", nil), "id", "ent-1")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.EntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "ent-1" {
		t.Errorf("expected entry ID ent-1, got %q", resp.ID)
	}
}

func TestEntryHandlerGetNotFound(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	svc.EXPECT().GetEntry(gomock.Any(), "user-1", "ent-missing").Return(nil, domain.ErrEntryNotFound)

	req := withURLParam(newCallerRequest(http.MethodGet, "/api/v1/entries/ent-missing", nil), "id", "ent-missing")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestEntryHandlerGetForbidden(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	svc.EXPECT().GetEntry(gomock.Any(), "user-1", "ent-1").Return(nil, domain.ErrUnauthorized)

	req := withURLParam(newCallerRequest(http.MethodGet, "/api/v1/entries/ent-1", nil), "id", "ent-1")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

func TestEntryHandlerUpdateConflict(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	svc.EXPECT().UpdateEntry(gomock.Any(), gomock.Any()).Return(nil, domain.ErrConcurrencyConflict)

	req := withURLParam(newCallerRequest(http.MethodPut, "/api/v1/entries/ent-1", map[string]any{
		"description":         "Electricity bill",
		"amount":              "135.00",
		"due_date":            "2025-03-20T00:00:00Z",
		"category_id":         "cat-1",
		"account_id":          "acc-1",
		"expected_updated_at": handlerTestNow.Add(-48 * time.Hour),
	}), "id", "ent-1")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
}

func TestEntryHandlerUpdate(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	var captured usecase.UpdateEntryInput
	updated := testEntry("ent-1")
	updated.Amount = decimal.RequireFromString("135.00")

	svc.EXPECT().UpdateEntry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error) {
			captured = input
			return updated, nil
		})

	token := handlerTestNow.Add(-24 * time.Hour)
	req := withURLParam(newCallerRequest(http.MethodPut, "/api/v1/entries/ent-1", map[string]any{
		"description":         "Electricity bill",
		"amount":              "135.00",
		"due_date":            "2025-03-20T00:00:00Z",
		"category_id":         "cat-1",
		"account_id":          "acc-1",
		"expected_updated_at": token,
	}), "id", "ent-1")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.EntryID != "ent-1" {
		t.Errorf("expected entry ID ent-1, got %q", captured.EntryID)
	}
	if !captured.ExpectedUpdatedAt.Equal(token) {
		t.Errorf("expected token %v, got %v", token, captured.ExpectedUpdatedAt)
	}
}

func TestEntryHandlerMarkPaid(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	paid := testEntry("ent-1")
	paidDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	paid.Status = domain.StatusPaid
	paid.PaidDate = &paidDate

	svc.EXPECT().MarkPaid(gomock.Any(), gomock.Any()).Return(paid, nil)

	req := withURLParam(newCallerRequest(http.MethodPost, "/api/v1/entries/ent-1/pay", map[string]any{
		"expected_updated_at": handlerTestNow.Add(-24 * time.Hour),
	}), "id", "ent-1")
	rec := httptest.NewRecorder()

	h.MarkPaid(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.EntryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "paid" {
		t.Errorf("expected status paid, got %q", resp.Status)
	}
	if resp.PaidDate != "2025-03-15" {
		t.Errorf("expected paid date 2025-03-15, got %q", resp.PaidDate)
	}
}

func TestEntryHandlerCancelInvalidTransition(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	svc.EXPECT().Cancel(gomock.Any(), gomock.Any()).Return(nil, domain.ErrInvalidTransition)

	req := withURLParam(newCallerRequest(http.MethodPost, "/api/v1/entries/ent-1/cancel", map[string]any{
		"expected_updated_at": handlerTestNow,
	}), "id", "ent-1")
	rec := httptest.NewRecorder()

	h.Cancel(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
}

func TestEntryHandlerDelete(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	var captured usecase.TransitionInput
	svc.EXPECT().DeleteEntry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, input usecase.TransitionInput) error {
			captured = input
			return nil
		})

	req := withURLParam(newCallerRequest(http.MethodDelete, "/api/v1/entries/ent-1", map[string]any{
		"expected_updated_at": handlerTestNow.Add(-24 * time.Hour),
	}), "id", "ent-1")
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
	if captured.EntryID != "ent-1" {
		t.Errorf("expected entry ID ent-1, got %q", captured.EntryID)
	}
}

func TestEntryHandlerListByPeriod(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	var captured usecase.ListByPeriodInput
	svc.EXPECT().ListByPeriod(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, input usecase.ListByPeriodInput) ([]*domain.Entry, error) {
			captured = input
			return []*domain.Entry{testEntry("ent-1"), testEntry("ent-2")}, nil
		})

	req := newCallerRequest(http.MethodGet, "/api/v1/entries?from=2025-03-01&to=2025-03-31", nil)
	rec := httptest.NewRecorder()

	h.ListByPeriod(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	wantFrom := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !captured.From.Equal(wantFrom) {
		t.Errorf("expected from %v, got %v", wantFrom, captured.From)
	}

	var resp dto.ListEntriesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected total 2, got %d", resp.Total)
	}
	if len(resp.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(resp.Entries))
	}
}

func TestEntryHandlerListByPeriodMissingFrom(t *testing.T) {
	h, _ := newEntryHandlerForTest(t)

	req := newCallerRequest(http.MethodGet, "/api/v1/entries?to=2025-03-31", nil)
	rec := httptest.NewRecorder()

	h.ListByPeriod(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestEntryHandlerListOverdueDerivesFlag(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	overdue := testEntry("ent-1")
	overdue.DueDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	svc.EXPECT().ListOverdue(gomock.Any(), "user-1").Return([]*domain.Entry{overdue}, nil)

	req := newCallerRequest(http.MethodGet, "/api/v1/entries/overdue", nil)
	rec := httptest.NewRecorder()

	h.ListOverdue(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ListEntriesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(resp.Entries))
	}
	if !resp.Entries[0].Overdue {
		t.Error("pending entry past due date should render as overdue")
	}
}

func TestEntryHandlerListByAccount(t *testing.T) {
	h, svc := newEntryHandlerForTest(t)

	var captured usecase.ListByAccountInput
	svc.EXPECT().ListByAccount(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, input usecase.ListByAccountInput) ([]*domain.Entry, error) {
			captured = input
			return []*domain.Entry{testEntry("ent-1")}, nil
		})

	req := withURLParam(newCallerRequest(http.MethodGet, "/api/v1/accounts/acc-1/entries?limit=10&offset=5", nil), "id", "acc-1")
	rec := httptest.NewRecorder()

	h.ListByAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.AccountID != "acc-1" {
		t.Errorf("expected account acc-1, got %q", captured.AccountID)
	}
	if captured.Limit != 10 || captured.Offset != 5 {
		t.Errorf("expected limit 10 offset 5, got %d/%d", captured.Limit, captured.Offset)
	}
}
