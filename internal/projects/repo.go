package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	pkgpagination "github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	return r.DB(ctx).Create(project).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.DB(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns projects newest first, optionally scoped to one client.
func (r *Repository) List(ctx context.Context, clientID *uuid.UUID, params pkgpagination.Params) ([]models.Project, error) {
	q := r.DB(ctx).Model(&models.Project{})
	if clientID != nil {
		q = q.Where("client_id = ?", *clientID)
	}
	q, err := pkgpagination.Apply(q, params)
	if err != nil {
		return nil, err
	}
	var rows []models.Project
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]models.Project, error) {
	var rows []models.Project
	err := r.DB(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}
