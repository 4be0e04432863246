package attachments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, a *models.Attachment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.DB(ctx).Create(a).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	var a models.Attachment
	if err := r.DB(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) ListByOwner(ctx context.Context, owner models.EntityRef) ([]models.Attachment, error) {
	var rows []models.Attachment
	err := r.DB(ctx).
		Where("attachable_type = ? AND attachable_id = ?", owner.Kind, owner.ID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
