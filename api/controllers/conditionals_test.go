package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/api/middleware"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

type testConditionalsService struct {
	conditionals.Service
	createFn  func(ctx context.Context, input conditionals.CreateConditionalInput) (*conditionals.ConditionalView, error)
	recordFn  func(ctx context.Context, id uuid.UUID, input conditionals.RecordExecutionInput) (*conditionals.ExecutionResult, error)
	advanceFn func(ctx context.Context, id uuid.UUID, input conditionals.AdvanceInput) (*conditionals.AdvanceResult, error)
	notesFn   func(ctx context.Context, conditionalID, executionID uuid.UUID, notes string) (*conditionals.ExecutionView, error)
}

func (s *testConditionalsService) CreateConditional(ctx context.Context, input conditionals.CreateConditionalInput) (*conditionals.ConditionalView, error) {
	return s.createFn(ctx, input)
}

func (s *testConditionalsService) RecordExecution(ctx context.Context, id uuid.UUID, input conditionals.RecordExecutionInput) (*conditionals.ExecutionResult, error) {
	return s.recordFn(ctx, id, input)
}

func (s *testConditionalsService) Advance(ctx context.Context, id uuid.UUID, input conditionals.AdvanceInput) (*conditionals.AdvanceResult, error) {
	return s.advanceFn(ctx, id, input)
}

func (s *testConditionalsService) UpdateExecutionNotes(ctx context.Context, conditionalID, executionID uuid.UUID, notes string) (*conditionals.ExecutionView, error) {
	return s.notesFn(ctx, conditionalID, executionID, notes)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParams(req *http.Request, kv ...string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		routeCtx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error.Code
}

func TestConditionalCreateParsesDateAndFrequency(t *testing.T) {
	licenseID := uuid.New()
	var got conditionals.CreateConditionalInput
	svc := &testConditionalsService{
		createFn: func(_ context.Context, input conditionals.CreateConditionalInput) (*conditionals.ConditionalView, error) {
			got = input
			return &conditionals.ConditionalView{ID: uuid.New(), LicenseID: input.LicenseID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"description":"Monthly noise report","due_date":"2024-07-15","frequency":"monthly"}`))
	req = addRouteParams(req, "licenseId", licenseID.String())
	resp := httptest.NewRecorder()
	ConditionalCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.LicenseID != licenseID {
		t.Fatalf("unexpected license %s", got.LicenseID)
	}
	if got.Frequency != enums.FrequencyMonthly {
		t.Fatalf("unexpected frequency %s", got.Frequency)
	}
	if !got.DueDate.Equal(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date %v", got.DueDate)
	}
}

func TestConditionalCreateRejectsUnknownFrequency(t *testing.T) {
	svc := &testConditionalsService{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"description":"x","due_date":"2024-07-15","frequency":"weekly"}`))
	req = addRouteParams(req, "licenseId", uuid.NewString())
	resp := httptest.NewRecorder()
	ConditionalCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRecordExecutionFallsBackToActor(t *testing.T) {
	conditionalID := uuid.New()
	var got conditionals.RecordExecutionInput
	svc := &testConditionalsService{
		recordFn: func(_ context.Context, id uuid.UUID, input conditionals.RecordExecutionInput) (*conditionals.ExecutionResult, error) {
			if id != conditionalID {
				t.Fatalf("unexpected conditional %s", id)
			}
			got = input
			return &conditionals.ExecutionResult{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"executed_at":"2024-06-20T09:30:00Z","notes":" done ","expected_version":3}`))
	req = req.WithContext(middleware.WithActor(req.Context(), "inspector@site"))
	req = addRouteParams(req, "conditionalId", conditionalID.String())
	resp := httptest.NewRecorder()
	ConditionalRecordExecution(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.ExecutedBy != "inspector@site" {
		t.Fatalf("expected actor fallback, got %q", got.ExecutedBy)
	}
	if got.Outcome != enums.ExecutionOutcomeCompleted {
		t.Fatalf("expected default outcome, got %s", got.Outcome)
	}
	if got.Notes != "done" {
		t.Fatalf("expected trimmed notes, got %q", got.Notes)
	}
	if got.ExpectedVersion == nil || *got.ExpectedVersion != 3 {
		t.Fatalf("expected version 3, got %v", got.ExpectedVersion)
	}
}

func TestRecordExecutionMapsConflict(t *testing.T) {
	svc := &testConditionalsService{
		recordFn: func(context.Context, uuid.UUID, conditionals.RecordExecutionInput) (*conditionals.ExecutionResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "conditional was modified concurrently")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"executed_by":"ana","executed_at":"2024-06-20"}`))
	req = addRouteParams(req, "conditionalId", uuid.NewString())
	resp := httptest.NewRecorder()
	ConditionalRecordExecution(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if code := errorCode(t, resp.Body.Bytes()); code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestRecordExecutionRequiresExecutedAt(t *testing.T) {
	svc := &testConditionalsService{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"executed_by":"ana"}`))
	req = addRouteParams(req, "conditionalId", uuid.NewString())
	resp := httptest.NewRecorder()
	ConditionalRecordExecution(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdvanceAcceptsEmptyBody(t *testing.T) {
	called := false
	svc := &testConditionalsService{
		advanceFn: func(_ context.Context, _ uuid.UUID, input conditionals.AdvanceInput) (*conditionals.AdvanceResult, error) {
			called = true
			if input.ExpectedVersion != nil {
				t.Fatalf("expected no version")
			}
			return &conditionals.AdvanceResult{Advanced: false}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = addRouteParams(req, "conditionalId", uuid.NewString())
	resp := httptest.NewRecorder()
	ConditionalAdvance(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestExecutionNotesRejectsOtherFields(t *testing.T) {
	svc := &testConditionalsService{}
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"notes":"x","outcome":"failed"}`))
	req = addRouteParams(req, "conditionalId", uuid.NewString(), "executionId", uuid.NewString())
	resp := httptest.NewRecorder()
	ConditionalExecutionNotes(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestExecutionNotesUpdates(t *testing.T) {
	executionID := uuid.New()
	svc := &testConditionalsService{
		notesFn: func(_ context.Context, _ uuid.UUID, id uuid.UUID, notes string) (*conditionals.ExecutionView, error) {
			return &conditionals.ExecutionView{ID: id, Notes: notes}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"notes":"photo attached"}`))
	req = addRouteParams(req, "conditionalId", uuid.NewString(), "executionId", executionID.String())
	resp := httptest.NewRecorder()
	ConditionalExecutionNotes(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data conditionals.ExecutionView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ID != executionID || envelope.Data.Notes != "photo attached" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}
