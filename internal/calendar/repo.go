package calendar

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

func (r *Repository) Create(ctx context.Context, e *models.CalendarEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.DB(ctx).Create(e).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CalendarEvent, error) {
	var e models.CalendarEvent
	if err := r.DB(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.DB(ctx).Model(&models.CalendarEvent{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.CalendarEvent{}).Error
}

// ListWindow returns events starting in [from, to).
func (r *Repository) ListWindow(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	var rows []models.CalendarEvent
	err := r.DB(ctx).
		Where("start_at >= ? AND start_at < ?", from, to).
		Order("start_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListAll(ctx context.Context) ([]models.CalendarEvent, error) {
	var rows []models.CalendarEvent
	err := r.DB(ctx).Order("start_at ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkRemindedWithTx(tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return tx.Model(&models.CalendarEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_reminded_at": at}).Error
}
