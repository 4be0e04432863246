package licenses

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

type stubLicenseRepo struct {
	created   *models.License
	updated   *models.License
	found     *models.License
	listRows  []models.License
	lastQuery listQuery
}

func (s *stubLicenseRepo) Create(ctx context.Context, license *models.License) error {
	s.created = license
	return nil
}

func (s *stubLicenseRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	if s.found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s.found
	return &cp, nil
}

func (s *stubLicenseRepo) Update(ctx context.Context, license *models.License) error {
	s.updated = license
	return nil
}

func (s *stubLicenseRepo) List(ctx context.Context, q listQuery) ([]models.License, error) {
	s.lastQuery = q
	return s.listRows, nil
}

type stubRefs struct {
	err  error
	last models.EntityRef
}

func (s *stubRefs) Resolve(ctx context.Context, ref models.EntityRef) error {
	s.last = ref
	return s.err
}

func day(t *testing.T, value string) *time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return &d
}

func newTestService(t *testing.T, repo *stubLicenseRepo, refs *stubRefs, now string) *service {
	t.Helper()
	engine := compliance.NewEngine(compliance.Options{WarningWindow: 30 * 24 * time.Hour})
	svc, err := NewService(repo, refs, engine, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	impl := svc.(*service)
	fixed := day(t, now).Add(10 * time.Hour)
	impl.now = func() time.Time { return fixed }
	return impl
}

func TestCreateLicenseClassifiesOnWrite(t *testing.T) {
	repo := &stubLicenseRepo{}
	refs := &stubRefs{}
	svc := newTestService(t, repo, refs, "2024-03-01")
	projectID := uuid.New()

	view, err := svc.CreateLicense(context.Background(), CreateLicenseInput{
		ProjectID: projectID,
		Number:    " LO-123/2024 ",
		IssuedAt:  day(t, "2024-01-10"),
		ExpiresAt: day(t, "2024-03-20"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if refs.last.Kind != enums.EntityKindProject || refs.last.ID != projectID {
		t.Fatalf("expected project reference check, got %+v", refs.last)
	}
	if repo.created.Number != "LO-123/2024" {
		t.Fatalf("expected trimmed number, got %q", repo.created.Number)
	}
	if repo.created.Status != enums.ComplianceStatusExpiringSoon || view.Status != enums.ComplianceStatusExpiringSoon {
		t.Fatalf("expected expiring_soon, got %s / %s", repo.created.Status, view.Status)
	}
	if view.DaysUntilExpiry == nil || *view.DaysUntilExpiry != 19 {
		t.Fatalf("expected 19 days until expiry, got %v", view.DaysUntilExpiry)
	}
}

func TestCreateLicenseRejectsInvertedDates(t *testing.T) {
	svc := newTestService(t, &stubLicenseRepo{}, &stubRefs{}, "2024-03-01")
	_, err := svc.CreateLicense(context.Background(), CreateLicenseInput{
		ProjectID: uuid.New(),
		Number:    "LO-1",
		IssuedAt:  day(t, "2024-05-01"),
		ExpiresAt: day(t, "2024-04-01"),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateLicenseUnknownProject(t *testing.T) {
	refs := &stubRefs{err: pkgerrors.New(pkgerrors.CodeNotFound, "project not found")}
	svc := newTestService(t, &stubLicenseRepo{}, refs, "2024-03-01")
	_, err := svc.CreateLicense(context.Background(), CreateLicenseInput{ProjectID: uuid.New(), Number: "LO-1"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetLicenseRecomputesStatus(t *testing.T) {
	repo := &stubLicenseRepo{found: &models.License{
		ID:        uuid.New(),
		Number:    "LO-9",
		ExpiresAt: day(t, "2024-02-28"),
		Status:    enums.ComplianceStatusActive,
	}}
	svc := newTestService(t, repo, &stubRefs{}, "2024-03-01")
	view, err := svc.GetLicense(context.Background(), repo.found.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Status != enums.ComplianceStatusExpired {
		t.Fatalf("expected expired on read, got %s", view.Status)
	}
}

func TestGetLicenseNotFound(t *testing.T) {
	svc := newTestService(t, &stubLicenseRepo{}, &stubRefs{}, "2024-03-01")
	_, err := svc.GetLicense(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateLicenseClearsExpiry(t *testing.T) {
	repo := &stubLicenseRepo{found: &models.License{
		ID:        uuid.New(),
		Number:    "LO-9",
		ExpiresAt: day(t, "2024-02-28"),
	}}
	svc := newTestService(t, repo, &stubRefs{}, "2024-03-01")
	view, err := svc.UpdateLicense(context.Background(), repo.found.ID, UpdateLicenseInput{ClearExpiresAt: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.updated.ExpiresAt != nil {
		t.Fatalf("expected expiry cleared")
	}
	if view.Status != enums.ComplianceStatusIndeterminate {
		t.Fatalf("expected indeterminate, got %s", view.Status)
	}
}

func TestUpdateLicenseRejectsEmptyNumber(t *testing.T) {
	repo := &stubLicenseRepo{found: &models.License{ID: uuid.New(), Number: "LO-9"}}
	svc := newTestService(t, repo, &stubRefs{}, "2024-03-01")
	empty := "  "
	_, err := svc.UpdateLicense(context.Background(), repo.found.ID, UpdateLicenseInput{Number: &empty})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListLicensesFiltersByComputedStatus(t *testing.T) {
	repo := &stubLicenseRepo{listRows: []models.License{
		{ID: uuid.New(), Number: "a", ExpiresAt: day(t, "2024-02-01")},
		{ID: uuid.New(), Number: "b", ExpiresAt: day(t, "2024-03-10")},
		{ID: uuid.New(), Number: "c"},
	}}
	svc := newTestService(t, repo, &stubRefs{}, "2024-03-01")
	status := enums.ComplianceStatusExpired
	within := 15

	out, err := svc.ListLicenses(context.Background(), ListParams{Status: &status, ExpiringWithinDays: &within})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].Number != "a" {
		t.Fatalf("expected only the expired license, got %+v", out)
	}
	if repo.lastQuery.expiresOnOrBefore == nil || !repo.lastQuery.expiresOnOrBefore.Equal(*day(t, "2024-03-16")) {
		t.Fatalf("expected horizon 2024-03-16, got %v", repo.lastQuery.expiresOnOrBefore)
	}

	negative := -1
	if _, err := svc.ListLicenses(context.Background(), ListParams{ExpiringWithinDays: &negative}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative horizon, got %v", err)
	}
}
