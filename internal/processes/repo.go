package processes

import (
	"context"
	"time"

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

func (r *Repository) Create(ctx context.Context, p *models.Process) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.DB(ctx).Create(p).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Process, error) {
	var p models.Process
	if err := r.DB(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListByLicense(ctx context.Context, licenseID uuid.UUID) ([]models.Process, error) {
	var rows []models.Process
	err := r.DB(ctx).Where("license_id = ?", licenseID).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// SaveTimeline overwrites the timeline and current status of a process.
func (r *Repository) SaveTimeline(ctx context.Context, p *models.Process) error {
	return r.DB(ctx).Model(&models.Process{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"timeline":       p.Timeline,
			"current_status": p.CurrentStatus,
			"updated_at":     time.Now().UTC(),
		}).Error
}
