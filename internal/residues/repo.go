package residues

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

// Repository exposes waste handler persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a waste handler repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, handler *models.WasteHandler) error {
	if handler.ID == uuid.Nil {
		handler.ID = uuid.New()
	}
	return r.DB(ctx).Create(handler).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WasteHandler, error) {
	var handler models.WasteHandler
	if err := r.DB(ctx).Where("id = ?", id).First(&handler).Error; err != nil {
		return nil, err
	}
	return &handler, nil
}

// Update writes the editable columns back. The role never changes.
func (r *Repository) Update(ctx context.Context, handler *models.WasteHandler) error {
	return r.DB(ctx).Model(&models.WasteHandler{}).
		Where("id = ?", handler.ID).
		Updates(map[string]any{
			"name":                handler.Name,
			"facility_type":       handler.FacilityType,
			"license_number":      handler.LicenseNumber,
			"license_issued_at":   handler.LicenseIssuedAt,
			"license_expires_at":  handler.LicenseExpiresAt,
			"contact_email":       handler.ContactEmail,
			"contact_phone":       handler.ContactPhone,
			"status":              handler.Status,
			"status_evaluated_at": handler.StatusEvaluatedAt,
			"updated_at":          time.Now().UTC(),
		}).Error
}

// Delete removes the row; it reports gorm.ErrRecordNotFound when nothing matched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.WasteHandler{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns handlers ordered by licence expiry (soonest first, undated last).
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.WasteHandler, error) {
	query := r.DB(ctx).Model(&models.WasteHandler{})
	if q.role != nil {
		query = query.Where("role = ?", *q.role)
	}
	if q.expiresOnOrBefore != nil {
		query = query.Where("license_expires_at IS NOT NULL AND license_expires_at <= ?", *q.expiresOnOrBefore)
	}
	query = query.Order("license_expires_at IS NULL").Order("license_expires_at ASC").Order("id ASC")
	if q.limit > 0 {
		query = query.Limit(q.limit)
	}
	var rows []models.WasteHandler
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]models.WasteHandler, error) {
	return r.List(ctx, listQuery{})
}

// UpdateStatusWithTx persists a recomputed licence status.
func (r *Repository) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ComplianceStatus, evaluatedAt time.Time) error {
	return tx.Model(&models.WasteHandler{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              status,
			"status_evaluated_at": evaluatedAt,
		}).Error
}
