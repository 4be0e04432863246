package licenses

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

// Repository exposes license persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a license repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a new license row.
func (r *Repository) Create(ctx context.Context, license *models.License) error {
	if license.ID == uuid.Nil {
		license.ID = uuid.New()
	}
	return r.DB(ctx).Create(license).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	var license models.License
	if err := r.DB(ctx).Where("id = ?", id).First(&license).Error; err != nil {
		return nil, err
	}
	return &license, nil
}

// Update writes the editable columns back.
func (r *Repository) Update(ctx context.Context, license *models.License) error {
	return r.DB(ctx).Model(&models.License{}).
		Where("id = ?", license.ID).
		Updates(map[string]any{
			"number":              license.Number,
			"issuer":              license.Issuer,
			"type":                license.Type,
			"issued_at":           license.IssuedAt,
			"expires_at":          license.ExpiresAt,
			"metadata":            license.Metadata,
			"status":              license.Status,
			"status_evaluated_at": license.StatusEvaluatedAt,
			"updated_at":          time.Now().UTC(),
		}).Error
}

// List returns licenses ordered by expiry (soonest first, undated last).
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.License, error) {
	query := r.DB(ctx).Model(&models.License{})
	if q.projectID != nil {
		query = query.Where("project_id = ?", *q.projectID)
	}
	if q.expiresOnOrBefore != nil {
		query = query.Where("expires_at IS NOT NULL AND expires_at <= ?", *q.expiresOnOrBefore)
	}
	query = query.Order("expires_at IS NULL").Order("expires_at ASC").Order("id ASC")
	if q.limit > 0 {
		query = query.Limit(q.limit)
	}
	var rows []models.License
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.License, error) {
	return r.List(ctx, listQuery{projectID: &projectID})
}

func (r *Repository) ListAll(ctx context.Context) ([]models.License, error) {
	return r.List(ctx, listQuery{})
}

// UpdateStatusWithTx persists a recomputed status.
func (r *Repository) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error {
	return tx.Model(&models.License{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              status,
			"status_evaluated_at": evaluatedAt,
		}).Error
}
