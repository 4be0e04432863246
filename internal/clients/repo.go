package clients

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	pkgpagination "github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
)

// Repository exposes client persistence operations.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	return r.DB(ctx).Create(client).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.DB(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// List returns clients newest first using cursor pagination.
func (r *Repository) List(ctx context.Context, params pkgpagination.Params) ([]models.Client, error) {
	q, err := pkgpagination.Apply(r.DB(ctx).Model(&models.Client{}), params)
	if err != nil {
		return nil, err
	}
	var rows []models.Client
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
