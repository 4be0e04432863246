package projects

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/avcbs"
	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/internal/licenses"
	"github.com/angelmondragon/sitecompliance-backend/internal/references"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fixture struct {
	db     *gorm.DB
	svc    *service
	client models.Client
	tower  models.Project
	shed   models.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{db: db}
	f.client = models.Client{ID: uuid.New(), Name: "Construtora Alfa"}
	f.tower = models.Project{ID: uuid.New(), ClientID: f.client.ID, Name: "Torre A"}
	f.shed = models.Project{ID: uuid.New(), ClientID: f.client.ID, Name: "Galpão B"}
	require.NoError(t, db.Create(&f.client).Error)
	require.NoError(t, db.Create(&f.tower).Error)
	require.NoError(t, db.Create(&f.shed).Error)

	active := models.License{ID: uuid.New(), ProjectID: f.tower.ID, Number: "LO-2", IssuedAt: date(2024, 1, 1), ExpiresAt: date(2025, 1, 1)}
	rows := []any{
		&models.License{ID: uuid.New(), ProjectID: f.tower.ID, Number: "LO-1", ExpiresAt: date(2024, 5, 1)},
		&active,
		&models.Avcb{ID: uuid.New(), ProjectID: f.tower.ID, PPCINumber: "PPCI-1", ExpiresAt: date(2024, 6, 15)},
		&models.Conditional{
			ID: uuid.New(), LicenseID: active.ID, Description: "Noise monitoring",
			DueDate: *date(2024, 5, 20), AnchorDate: *date(2024, 5, 20), Frequency: enums.FrequencyMonthly, Version: 1,
		},
	}
	shedLicense := models.License{ID: uuid.New(), ProjectID: f.shed.ID, Number: "LI-3", ExpiresAt: date(2024, 6, 21)}
	rows = append(rows, &shedLicense, &models.Conditional{
		ID: uuid.New(), LicenseID: shedLicense.ID, Description: "Soil report",
		DueDate: *date(2024, 8, 1), AnchorDate: *date(2024, 8, 1), Frequency: enums.FrequencyOneTime, Version: 1,
	})
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}

	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(db),
		Refs:         references.NewGormRegistry(db),
		Licenses:     licenses.NewRepository(db),
		Avcbs:        avcbs.NewRepository(db),
		Conditionals: conditionals.NewRepository(db),
		Engine:       compliance.NewEngine(compliance.Options{WarningWindow: 30 * 24 * time.Hour}),
	})
	require.NoError(t, err)
	f.svc = svc.(*service)
	now := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	return f
}

func TestProjectSummary(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.Summary(context.Background(), f.tower.ID)
	require.NoError(t, err)
	assert.Equal(t, "Torre A", summary.ProjectName)
	assert.Len(t, summary.Licenses, 2)
	assert.Equal(t, 1, summary.ExpiredCount)
	assert.Equal(t, 1, summary.ExpiringSoonCount)
	assert.Equal(t, 1, summary.OverdueObligationCount)
	assert.False(t, summary.Compliant)

	_, err = f.svc.Summary(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDashboardRollsUpProjects(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, view.ProjectCount)
	assert.Equal(t, 1, view.CompliantProjects)
	assert.Equal(t, map[string]int{"expired": 1, "active": 1, "expiring_soon": 1}, view.Licenses)
	assert.Equal(t, map[string]int{"expiring_soon": 1}, view.Avcbs)
	assert.Equal(t, map[string]int{"overdue": 1, "pending": 1}, view.Obligations)

	require.Len(t, view.ExpiringSoon, 2)
	assert.Equal(t, "PPCI-1", view.ExpiringSoon[0].Label)
	assert.Equal(t, "LI-3", view.ExpiringSoon[1].Label)
	require.Len(t, view.Overdue, 1)
	assert.Equal(t, "Noise monitoring", view.Overdue[0].Description)

	require.Len(t, view.Projects, 2)
	assert.Equal(t, "Galpão B", view.Projects[0].ProjectName)
	assert.True(t, view.Projects[0].Compliant)
}

func TestCreateAndListProjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProject(ctx, CreateProjectInput{ClientID: f.client.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.CreateProject(ctx, CreateProjectInput{ClientID: uuid.New(), Name: "Orphan"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	created, err := f.svc.CreateProject(ctx, CreateProjectInput{ClientID: f.client.ID, Name: " Ponte C "})
	require.NoError(t, err)
	assert.Equal(t, "Ponte C", created.Name)

	page, err := f.svc.ListProjects(ctx, ListParams{ClientID: &f.client.ID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)

	next, err := f.svc.ListProjects(ctx, ListParams{ClientID: &f.client.ID, Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, next.Items, 1)
	assert.Empty(t, next.NextCursor)

	_, err = f.svc.ListProjects(ctx, ListParams{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
