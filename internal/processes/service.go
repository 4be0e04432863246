package processes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

type processesRepository interface {
	Create(ctx context.Context, p *models.Process) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Process, error)
	ListByLicense(ctx context.Context, licenseID uuid.UUID) ([]models.Process, error)
	SaveTimeline(ctx context.Context, p *models.Process) error
}

type referenceResolver interface {
	Resolve(ctx context.Context, ref models.EntityRef) error
}

// Service tracks licensing procedures at the issuing agency.
type Service interface {
	CreateProcess(ctx context.Context, input CreateProcessInput) (*models.Process, error)
	GetProcess(ctx context.Context, id uuid.UUID) (*models.Process, error)
	ListByLicense(ctx context.Context, licenseID uuid.UUID) ([]models.Process, error)
	AppendTimeline(ctx context.Context, id uuid.UUID, input TimelineInput) (*models.Process, error)
}

type CreateProcessInput struct {
	LicenseID      uuid.UUID
	ProtocolNumber string
	CurrentStatus  string
}

type TimelineInput struct {
	Status     string
	Note       string
	OccurredAt *time.Time
	Extra      types.Metadata
}

type service struct {
	repo processesRepository
	refs referenceResolver
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo processesRepository, refs referenceResolver, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("processes repository required")
	}
	if refs == nil {
		return nil, fmt.Errorf("reference resolver required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, refs: refs, logg: logg, now: time.Now}, nil
}

func (s *service) CreateProcess(ctx context.Context, input CreateProcessInput) (*models.Process, error) {
	protocol := strings.TrimSpace(input.ProtocolNumber)
	if protocol == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "protocol_number is required")
	}
	if err := s.refs.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindLicense, ID: input.LicenseID}); err != nil {
		return nil, err
	}
	p := &models.Process{
		ID:             uuid.New(),
		LicenseID:      input.LicenseID,
		ProtocolNumber: protocol,
		CurrentStatus:  strings.TrimSpace(input.CurrentStatus),
		Timeline:       types.Timeline{},
	}
	if p.CurrentStatus != "" {
		p.Timeline = append(p.Timeline, types.TimelineEntry{Status: p.CurrentStatus, OccurredAt: s.now().UTC()})
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create process")
	}
	return p, nil
}

func (s *service) GetProcess(ctx context.Context, id uuid.UUID) (*models.Process, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "process")
	}
	return p, nil
}

func (s *service) ListByLicense(ctx context.Context, licenseID uuid.UUID) ([]models.Process, error) {
	rows, err := s.repo.ListByLicense(ctx, licenseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list processes")
	}
	return rows, nil
}

// AppendTimeline adds an entry; the current status follows the latest entry
// by occurrence time, so back-filled entries do not overwrite it.
func (s *service) AppendTimeline(ctx context.Context, id uuid.UUID, input TimelineInput) (*models.Process, error) {
	status := strings.TrimSpace(input.Status)
	if status == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status is required")
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "process")
	}
	occurred := s.now().UTC()
	if input.OccurredAt != nil {
		if input.OccurredAt.After(occurred) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "occurred_at cannot be in the future")
		}
		occurred = input.OccurredAt.UTC()
	}
	p.Timeline = append(p.Timeline, types.TimelineEntry{
		Status:     status,
		Note:       strings.TrimSpace(input.Note),
		OccurredAt: occurred,
		Extra:      input.Extra.Clone(),
	})
	if latest, ok := p.Timeline.Latest(); ok {
		p.CurrentStatus = latest.Status
	}
	if err := s.repo.SaveTimeline(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save timeline")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"process_id": p.ID.String(),
		"status":     p.CurrentStatus,
	}), "process timeline updated")
	return p, nil
}
