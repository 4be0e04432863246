package clients

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/dbtest"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	pkgpagination "github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
)

func TestRepositoryListPaginates(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		c := &models.Client{ID: uuid.New(), Name: "client", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, repo.Create(ctx, c))
	}

	first, err := repo.List(ctx, pkgpagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 3)
	page := pkgpagination.Build(first, 2, func(c models.Client) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))

	rest, err := repo.List(ctx, pkgpagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.True(t, rest[0].CreatedAt.Equal(base))

	found, err := repo.FindByID(ctx, rest[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "client", found.Name)
}
