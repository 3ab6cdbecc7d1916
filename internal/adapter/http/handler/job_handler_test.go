package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

type billingRunnerStub struct {
	result *usecase.GenerationResult
	err    error
	tenant string
}

func (s *billingRunnerStub) Run(ctx context.Context) (*usecase.GenerationResult, error) {
	s.tenant, _ = domain.TenantFromContext(ctx)
	return s.result, s.err
}

type sweeperStub struct {
	updated int64
	err     error
}

func (s *sweeperStub) SweepOverdue(ctx context.Context) (int64, error) {
	return s.updated, s.err
}

func TestJobHandler_RunBilling(t *testing.T) {
	runner := &billingRunnerStub{result: &usecase.GenerationResult{Generated: 3, Existing: 1, Details: []usecase.GenerationDetail{}}}
	h := NewJobHandler(runner, &sweeperStub{})

	rec := httptest.NewRecorder()
	h.RunBilling(rec, newRequest(t, http.MethodPost, "/jobs/billing", nil, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if runner.tenant != testTenant {
		t.Fatalf("billing ran for tenant %q", runner.tenant)
	}
	resp := decodeBody[usecase.GenerationResult](t, rec)
	if resp.Generated != 3 || resp.Existing != 1 {
		t.Fatalf("unexpected result %+v", resp)
	}
}

func TestJobHandler_RunBillingOmitsDueDateWhenNotComputed(t *testing.T) {
	due := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	runner := &billingRunnerStub{result: &usecase.GenerationResult{
		Generated: 1,
		Skipped:   1,
		Details: []usecase.GenerationDetail{
			{EnrollmentID: "enr-1", Code: "MT00001", Outcome: usecase.OutcomeGenerated, DueDate: &due, PeriodKey: "04/2024"},
			{EnrollmentID: "enr-2", Code: "MT00002", Outcome: usecase.OutcomeSkipped, Reason: usecase.ReasonNotStarted},
		},
	}}
	h := NewJobHandler(runner, &sweeperStub{})

	rec := httptest.NewRecorder()
	h.RunBilling(rec, newRequest(t, http.MethodPost, "/jobs/billing", nil, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if n := strings.Count(rec.Body.String(), `"due_date"`); n != 1 {
		t.Fatalf("expected due_date only on the generated detail, found %d in %s", n, rec.Body.String())
	}
	resp := decodeBody[usecase.GenerationResult](t, rec)
	if len(resp.Details) != 2 || resp.Details[0].DueDate == nil || !resp.Details[0].DueDate.Equal(due) {
		t.Fatalf("unexpected details %+v", resp.Details)
	}
	if resp.Details[1].DueDate != nil {
		t.Fatalf("skipped detail carries a due date %s", resp.Details[1].DueDate)
	}
}

func TestJobHandler_RunBilling_Failure(t *testing.T) {
	h := NewJobHandler(&billingRunnerStub{err: errors.New("db down")}, &sweeperStub{})

	rec := httptest.NewRecorder()
	h.RunBilling(rec, newRequest(t, http.MethodPost, "/jobs/billing", nil, nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestJobHandler_SweepOverdue(t *testing.T) {
	h := NewJobHandler(&billingRunnerStub{}, &sweeperStub{updated: 7})

	rec := httptest.NewRecorder()
	h.SweepOverdue(rec, newRequest(t, http.MethodPost, "/jobs/overdue-sweep", nil, nil))

	if resp := decodeBody[map[string]int64](t, rec); rec.Code != http.StatusOK || resp["updated"] != 7 {
		t.Fatalf("unexpected %d %+v", rec.Code, resp)
	}
}
