package conditionals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

// Repository persists conditionals and their execution log.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, c *models.Conditional) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return r.DB(ctx).Create(c).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Conditional, error) {
	return r.FindByIDWithTx(r.DB(ctx), id)
}

func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Conditional, error) {
	var c models.Conditional
	if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListByLicense(ctx context.Context, licenseID uuid.UUID) ([]models.Conditional, error) {
	return r.ListByLicenses(ctx, []uuid.UUID{licenseID})
}

// ListByLicenses returns the conditionals of all given licenses ordered by due date.
func (r *Repository) ListByLicenses(ctx context.Context, licenseIDs []uuid.UUID) ([]models.Conditional, error) {
	if len(licenseIDs) == 0 {
		return nil, nil
	}
	var rows []models.Conditional
	err := r.DB(ctx).
		Where("license_id IN ?", licenseIDs).
		Order("due_date ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListAll(ctx context.Context) ([]models.Conditional, error) {
	var rows []models.Conditional
	err := r.DB(ctx).Order("due_date ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) ListExecutions(ctx context.Context, conditionalID uuid.UUID) ([]models.ConditionalExecution, error) {
	return r.ListExecutionsWithTx(r.DB(ctx), conditionalID)
}

func (r *Repository) ListExecutionsWithTx(tx *gorm.DB, conditionalID uuid.UUID) ([]models.ConditionalExecution, error) {
	var rows []models.ConditionalExecution
	err := tx.Where("conditional_id = ?", conditionalID).
		Order("executed_at DESC").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListExecutionsFor groups the execution logs of several conditionals.
func (r *Repository) ListExecutionsFor(ctx context.Context, conditionalIDs []uuid.UUID) (map[uuid.UUID][]models.ConditionalExecution, error) {
	out := make(map[uuid.UUID][]models.ConditionalExecution, len(conditionalIDs))
	if len(conditionalIDs) == 0 {
		return out, nil
	}
	var rows []models.ConditionalExecution
	err := r.DB(ctx).
		Where("conditional_id IN ?", conditionalIDs).
		Order("executed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ConditionalID] = append(out[row.ConditionalID], row)
	}
	return out, nil
}

// InsertExecutionWithTx appends to the execution log; rows are never updated
// except for notes.
func (r *Repository) InsertExecutionWithTx(tx *gorm.DB, exec *models.ConditionalExecution) error {
	if exec.ID == uuid.Nil {
		exec.ID = uuid.New()
	}
	return tx.Create(exec).Error
}

func (r *Repository) FindExecution(ctx context.Context, conditionalID, executionID uuid.UUID) (*models.ConditionalExecution, error) {
	var exec models.ConditionalExecution
	err := r.DB(ctx).
		Where("id = ? AND conditional_id = ?", executionID, conditionalID).
		First(&exec).Error
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

func (r *Repository) UpdateExecutionNotes(ctx context.Context, executionID uuid.UUID, notes string) error {
	return r.DB(ctx).Model(&models.ConditionalExecution{}).
		Where("id = ?", executionID).
		Updates(map[string]any{
			"notes":      notes,
			"updated_at": time.Now().UTC(),
		}).Error
}

// UpdateScheduleWithTx writes due date, anchor and status and bumps the
// version, but only if the stored version still equals expectedVersion.
func (r *Repository) UpdateScheduleWithTx(tx *gorm.DB, c models.Conditional, expectedVersion int64) error {
	res := tx.Model(&models.Conditional{}).
		Where("id = ? AND version = ?", c.ID, expectedVersion).
		Updates(map[string]any{
			"due_date":            c.DueDate,
			"anchor_date":         c.AnchorDate,
			"status":              c.Status,
			"status_evaluated_at": c.StatusEvaluatedAt,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "conditional was modified concurrently").
			WithDetails(map[string]any{"conditional_id": c.ID.String(), "expected_version": expectedVersion})
	}
	return nil
}

// UpdateStatusWithTx refreshes the cached status without touching the version.
func (r *Repository) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.ObligationStatus, evaluatedAt time.Time) error {
	return tx.Model(&models.Conditional{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              status,
			"status_evaluated_at": evaluatedAt,
		}).Error
}
