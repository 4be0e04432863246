package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sitecompliance-backend/internal/licenses"
	"github.com/angelmondragon/sitecompliance-backend/internal/residues"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	pkgpagination "github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
)

type stubLicenses struct {
	rows   []licenses.LicenseView
	err    error
	params licenses.ListParams
}

func (s *stubLicenses) ListLicenses(_ context.Context, params licenses.ListParams) ([]licenses.LicenseView, error) {
	s.params = params
	return s.rows, s.err
}

type stubHandlers struct {
	rows   []residues.HandlerView
	called bool
}

func (s *stubHandlers) List(_ context.Context, _ residues.ListParams) ([]residues.HandlerView, error) {
	s.called = true
	return s.rows, nil
}

func day(t *testing.T, value string) *time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, value)
	require.NoError(t, err)
	return &d
}

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T, lic *stubLicenses, handlers *stubHandlers) *service {
	t.Helper()
	svc, err := NewService(lic, handlers, nil)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return impl
}

func TestLicenseExpiryMergesAndOrders(t *testing.T) {
	lic := &stubLicenses{rows: []licenses.LicenseView{
		{ID: uuid.New(), Number: "LO-2", ExpiresAt: day(t, "2024-08-01"), Status: enums.ComplianceStatusActive, DaysUntilExpiry: intPtr(61)},
		{ID: uuid.New(), Number: "LO-undated", Status: enums.ComplianceStatusIndeterminate},
	}}
	handlers := &stubHandlers{rows: []residues.HandlerView{
		{ID: uuid.New(), Role: enums.WasteHandlerTransporter, Name: "Transportes Beta", LicenseNumber: "LT-9", LicenseExpiresAt: day(t, "2024-06-10"), Status: enums.ComplianceStatusExpiringSoon},
	}}
	svc := newTestService(t, lic, handlers)

	report, err := svc.LicenseExpiry(context.Background(), ExpiryParams{ExpiringWithinDays: intPtr(90), IncludeWasteHandlers: true})
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, []string{"LT-9", "LO-2", "LO-undated"}, []string{report.Rows[0].Number, report.Rows[1].Number, report.Rows[2].Number})
	assert.Equal(t, enums.EntityKindWasteHandler, report.Rows[0].Kind)
	assert.Equal(t, "Transportes Beta (transporter)", report.Rows[0].Holder)
	assert.Equal(t, pkgpagination.MaxLimit, lic.params.Limit)
	require.NotNil(t, lic.params.ExpiringWithinDays)
	assert.Equal(t, 90, *lic.params.ExpiringWithinDays)
	assert.False(t, report.Truncated)
}

func TestLicenseExpiryProjectScopeSkipsWasteHandlers(t *testing.T) {
	handlers := &stubHandlers{}
	svc := newTestService(t, &stubLicenses{}, handlers)
	projectID := uuid.New()

	report, err := svc.LicenseExpiry(context.Background(), ExpiryParams{ProjectID: &projectID, IncludeWasteHandlers: true})
	require.NoError(t, err)
	assert.False(t, handlers.called)
	assert.NotNil(t, report.Rows)
	assert.Empty(t, report.Rows)
}

func TestLicenseExpiryPropagatesValidation(t *testing.T) {
	lic := &stubLicenses{err: pkgerrors.New(pkgerrors.CodeValidation, "days_until_expiry must not be negative")}
	svc := newTestService(t, lic, &stubHandlers{})

	_, err := svc.LicenseExpiry(context.Background(), ExpiryParams{ExpiringWithinDays: intPtr(-1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestWriteCSV(t *testing.T) {
	report := &ExpiryReport{Rows: []ExpiryRow{
		{Kind: enums.EntityKindLicense, Number: "LO-1", Issuer: "SEMAD, Regional", ExpiresAt: day(t, "2024-06-20"), Status: enums.ComplianceStatusExpiringSoon, DaysUntilExpiry: intPtr(19)},
		{Kind: enums.EntityKindLicense, Number: "LO-2", Status: enums.ComplianceStatusIndeterminate},
	}}
	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"license", "LO-1", "SEMAD, Regional", "", "2024-06-20", "expiring_soon", "19"}, records[1])
	assert.Equal(t, []string{"license", "LO-2", "", "", "", "indeterminate", ""}, records[2])
}
