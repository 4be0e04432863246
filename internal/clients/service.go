package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	pkgpagination "github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

type clientsRepository interface {
	Create(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
	List(ctx context.Context, params pkgpagination.Params) ([]models.Client, error)
}

// Service manages the clients that own projects.
type Service interface {
	CreateClient(ctx context.Context, input CreateClientInput) (*models.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	ListClients(ctx context.Context, params pkgpagination.Params) (*pkgpagination.Page[models.Client], error)
}

type CreateClientInput struct {
	Name     string
	Document string
	Contact  types.Metadata
}

type service struct {
	repo clientsRepository
	logg *logger.Logger
}

func NewService(repo clientsRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("clients repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) CreateClient(ctx context.Context, input CreateClientInput) (*models.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	client := &models.Client{
		ID:       uuid.New(),
		Name:     name,
		Document: strings.TrimSpace(input.Document),
		Contact:  input.Contact.Clone(),
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create client")
	}
	s.logg.Info(s.logg.WithField(ctx, "client_id", client.ID.String()), "client created")
	return client, nil
}

func (s *service) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "client")
	}
	return client, nil
}

func (s *service) ListClients(ctx context.Context, params pkgpagination.Params) (*pkgpagination.Page[models.Client], error) {
	if _, err := pkgpagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list clients")
	}
	page := pkgpagination.Build(rows, params.Limit, func(c models.Client) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page, nil
}
