package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/licenses"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

type testLicensesService struct {
	licenses.Service
	created *licenses.CreateLicenseInput
	updated *licenses.UpdateLicenseInput
	listed  *licenses.ListParams
}

func (s *testLicensesService) CreateLicense(_ context.Context, input licenses.CreateLicenseInput) (*licenses.LicenseView, error) {
	s.created = &input
	return &licenses.LicenseView{ID: uuid.New(), Status: enums.ComplianceStatusActive}, nil
}

func (s *testLicensesService) UpdateLicense(_ context.Context, id uuid.UUID, input licenses.UpdateLicenseInput) (*licenses.LicenseView, error) {
	s.updated = &input
	return &licenses.LicenseView{ID: id}, nil
}

func (s *testLicensesService) ListLicenses(_ context.Context, params licenses.ListParams) ([]licenses.LicenseView, error) {
	s.listed = &params
	return []licenses.LicenseView{}, nil
}

func TestLicenseCreateParsesDates(t *testing.T) {
	svc := &testLicensesService{}
	projectID := uuid.New()
	body := `{"project_id":"` + projectID.String() + `","number":" LO-123 ","issued_at":"2023-01-10","expires_at":"2025-01-10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/licenses", strings.NewReader(body))
	resp := httptest.NewRecorder()
	LicenseCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created.ProjectID != projectID || svc.created.Number != "LO-123" {
		t.Fatalf("unexpected input %+v", svc.created)
	}
	if svc.created.ExpiresAt == nil || !svc.created.ExpiresAt.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected expiry %v", svc.created.ExpiresAt)
	}
}

func TestLicenseCreateWithoutExpiryIsAllowed(t *testing.T) {
	svc := &testLicensesService{}
	body := `{"project_id":"` + uuid.NewString() + `","number":"LO-9"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/licenses", strings.NewReader(body))
	resp := httptest.NewRecorder()
	LicenseCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.created.ExpiresAt != nil || svc.created.IssuedAt != nil {
		t.Fatalf("expected nil dates, got %+v", svc.created)
	}
}

func TestLicenseUpdateClearFlags(t *testing.T) {
	svc := &testLicensesService{}
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"clear_expires_at":true,"issuer":"SEMAD"}`))
	req = addRouteParams(req, "licenseId", uuid.NewString())
	resp := httptest.NewRecorder()
	LicenseUpdate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.updated.ClearExpiresAt || svc.updated.Issuer == nil || *svc.updated.Issuer != "SEMAD" {
		t.Fatalf("unexpected update %+v", svc.updated)
	}
}

func TestLicenseListFilters(t *testing.T) {
	svc := &testLicensesService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses?status=expiring_soon&expiring_within_days=30", nil)
	resp := httptest.NewRecorder()
	LicenseList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listed.Status == nil || *svc.listed.Status != enums.ComplianceStatusExpiringSoon {
		t.Fatalf("unexpected status filter %+v", svc.listed.Status)
	}
	if svc.listed.ExpiringWithinDays == nil || *svc.listed.ExpiringWithinDays != 30 {
		t.Fatalf("unexpected horizon %+v", svc.listed.ExpiringWithinDays)
	}
}

func TestLicenseListRejectsUnknownStatus(t *testing.T) {
	svc := &testLicensesService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses?status=valid", nil)
	resp := httptest.NewRecorder()
	LicenseList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
