package references

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

func TestGormRegistryResolvesExistingLicense(t *testing.T) {
	db := dbtest.Open(t)
	lic := models.License{ID: uuid.New(), ProjectID: uuid.New(), Number: "LO-1"}
	require.NoError(t, db.Create(&lic).Error)

	r := NewGormRegistry(db)
	ctx := context.Background()

	assert.NoError(t, r.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindLicense, ID: lic.ID}))

	err := r.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindAvcb, ID: lic.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGormRegistryResolvesWasteHandler(t *testing.T) {
	db := dbtest.Open(t)
	handler := models.WasteHandler{ID: uuid.New(), Role: enums.WasteHandlerTransporter, Name: "Transportes Beta", LicenseNumber: "LT-9"}
	require.NoError(t, db.Create(&handler).Error)

	r := NewGormRegistry(db)
	assert.NoError(t, r.Resolve(context.Background(), models.EntityRef{Kind: enums.EntityKindWasteHandler, ID: handler.ID}))
}

func TestResolveRejectsBadRefs(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	err := r.Resolve(ctx, models.EntityRef{Kind: "invoice", ID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = r.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindLicense})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = r.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindLicense, ID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolveWrapsLoaderFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(enums.EntityKindProcess, func(context.Context, uuid.UUID) (bool, error) {
		return false, errors.New("db down")
	})
	err := r.Resolve(context.Background(), models.EntityRef{Kind: enums.EntityKindProcess, ID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
