package processes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sitecompliance-backend/internal/references"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

func newTestService(t *testing.T) (*service, models.License) {
	t.Helper()
	db := dbtest.Open(t)
	license := models.License{ID: uuid.New(), ProjectID: uuid.New(), Number: "LI-5"}
	require.NoError(t, db.Create(&license).Error)
	svc, err := NewService(NewRepository(db), references.NewGormRegistry(db), nil)
	require.NoError(t, err)
	impl := svc.(*service)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	impl.now = func() time.Time { return now }
	return impl, license
}

func TestProcessTimeline(t *testing.T) {
	svc, license := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProcess(ctx, CreateProcessInput{LicenseID: license.ID, ProtocolNumber: " 2024/0001 ", CurrentStatus: "protocolado"})
	require.NoError(t, err)
	assert.Equal(t, "2024/0001", p.ProtocolNumber)
	require.Len(t, p.Timeline, 1)

	p, err = svc.AppendTimeline(ctx, p.ID, TimelineInput{Status: "em análise", Note: "técnico designado"})
	require.NoError(t, err)
	assert.Equal(t, "em análise", p.CurrentStatus)

	earlier := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	p, err = svc.AppendTimeline(ctx, p.ID, TimelineInput{Status: "vistoria agendada", OccurredAt: &earlier})
	require.NoError(t, err)
	assert.Equal(t, "em análise", p.CurrentStatus)

	stored, err := svc.GetProcess(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Timeline, 3)
	assert.Equal(t, "em análise", stored.CurrentStatus)

	list, err := svc.ListByLicense(ctx, license.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProcessValidation(t *testing.T) {
	svc, license := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProcess(ctx, CreateProcessInput{LicenseID: license.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProcess(ctx, CreateProcessInput{LicenseID: uuid.New(), ProtocolNumber: "1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AppendTimeline(ctx, uuid.New(), TimelineInput{Status: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	p, err := svc.CreateProcess(ctx, CreateProcessInput{LicenseID: license.ID, ProtocolNumber: "1"})
	require.NoError(t, err)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.AppendTimeline(ctx, p.ID, TimelineInput{Status: "x", OccurredAt: &future})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
