package avcbs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

// Repository exposes AVCB persistence operations.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, avcb *models.Avcb) error {
	if avcb.ID == uuid.Nil {
		avcb.ID = uuid.New()
	}
	return r.DB(ctx).Create(avcb).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Avcb, error) {
	var avcb models.Avcb
	if err := r.DB(ctx).Where("id = ?", id).First(&avcb).Error; err != nil {
		return nil, err
	}
	return &avcb, nil
}

func (r *Repository) Update(ctx context.Context, avcb *models.Avcb) error {
	return r.DB(ctx).Model(&models.Avcb{}).
		Where("id = ?", avcb.ID).
		Updates(map[string]any{
			"license_id":                avcb.LicenseID,
			"ppci_number":               avcb.PPCINumber,
			"issued_at":                 avcb.IssuedAt,
			"expires_at":                avcb.ExpiresAt,
			"has_compensatory_measures": avcb.HasCompensatoryMeasures,
			"metadata":                  avcb.Metadata,
			"status":                    avcb.Status,
			"status_evaluated_at":       avcb.StatusEvaluatedAt,
			"updated_at":                time.Now().UTC(),
		}).Error
}

func (r *Repository) List(ctx context.Context, q listQuery) ([]models.Avcb, error) {
	query := r.DB(ctx).Model(&models.Avcb{})
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
	var rows []models.Avcb
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Avcb, error) {
	return r.List(ctx, listQuery{projectID: &projectID})
}

func (r *Repository) ListAll(ctx context.Context) ([]models.Avcb, error) {
	return r.List(ctx, listQuery{})
}

func (r *Repository) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error {
	return tx.Model(&models.Avcb{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              status,
			"status_evaluated_at": evaluatedAt,
		}).Error
}
