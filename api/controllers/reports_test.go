package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/reports"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

type testReportsService struct {
	params *reports.ExpiryParams
}

func (s *testReportsService) LicenseExpiry(_ context.Context, params reports.ExpiryParams) (*reports.ExpiryReport, error) {
	s.params = &params
	expires := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	return &reports.ExpiryReport{
		GeneratedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Rows: []reports.ExpiryRow{
			{Kind: enums.EntityKindLicense, ID: uuid.New(), Number: "LO-1", ExpiresAt: &expires, Status: enums.ComplianceStatusExpiringSoon},
		},
	}, nil
}

func TestLicenseExpiryReportJSON(t *testing.T) {
	svc := &testReportsService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/license-expiry?expiring_within_days=30&include_waste_handlers=true", nil)
	resp := httptest.NewRecorder()
	LicenseExpiryReport(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.params.IncludeWasteHandlers || svc.params.ExpiringWithinDays == nil || *svc.params.ExpiringWithinDays != 30 {
		t.Fatalf("unexpected params %+v", svc.params)
	}
	if !strings.Contains(resp.Body.String(), `"number":"LO-1"`) {
		t.Fatalf("expected report rows in body: %s", resp.Body.String())
	}
}

func TestLicenseExpiryReportCSV(t *testing.T) {
	svc := &testReportsService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/license-expiry?format=csv", nil)
	resp := httptest.NewRecorder()
	LicenseExpiryReport(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Disposition"); !strings.Contains(got, "license-expiry-2024-06-01.csv") {
		t.Fatalf("unexpected disposition %q", got)
	}
	lines := strings.Split(strings.TrimSpace(resp.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "license,LO-1,,,2024-06-20,expiring_soon,") {
		t.Fatalf("unexpected csv body %q", resp.Body.String())
	}
}

func TestLicenseExpiryReportRejectsBadFormat(t *testing.T) {
	svc := &testReportsService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/license-expiry?format=pdf", nil)
	resp := httptest.NewRecorder()
	LicenseExpiryReport(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.params != nil {
		t.Fatal("service must not be called on invalid input")
	}
}
