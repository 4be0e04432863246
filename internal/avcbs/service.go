package avcbs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/repo"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	pkgpagination "github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
)

type avcbsRepository interface {
	Create(ctx context.Context, avcb *models.Avcb) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Avcb, error)
	Update(ctx context.Context, avcb *models.Avcb) error
	List(ctx context.Context, q listQuery) ([]models.Avcb, error)
}

type referenceResolver interface {
	Resolve(ctx context.Context, ref models.EntityRef) error
}

// Service manages fire department certificates.
type Service interface {
	CreateAvcb(ctx context.Context, input CreateAvcbInput) (*AvcbView, error)
	GetAvcb(ctx context.Context, id uuid.UUID) (*AvcbView, error)
	UpdateAvcb(ctx context.Context, id uuid.UUID, input UpdateAvcbInput) (*AvcbView, error)
	ListAvcbs(ctx context.Context, params ListParams) ([]AvcbView, error)
}

type service struct {
	repo   avcbsRepository
	refs   referenceResolver
	engine *compliance.Engine
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo avcbsRepository, refs referenceResolver, engine *compliance.Engine, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("avcb repository required")
	}
	if refs == nil {
		return nil, fmt.Errorf("reference resolver required")
	}
	if engine == nil {
		return nil, fmt.Errorf("compliance engine required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, refs: refs, engine: engine, logg: logg, now: time.Now}, nil
}

func (s *service) CreateAvcb(ctx context.Context, input CreateAvcbInput) (*AvcbView, error) {
	if err := s.refs.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindProject, ID: input.ProjectID}); err != nil {
		return nil, err
	}
	if input.LicenseID != nil {
		if err := s.refs.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindLicense, ID: *input.LicenseID}); err != nil {
			return nil, err
		}
	}
	issued := compliance.DateOnly(input.IssuedAt)
	expires := compliance.DateOnly(input.ExpiresAt)
	if err := compliance.ValidateDateRange(issued, expires); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	avcb := &models.Avcb{
		ID:                      uuid.New(),
		ProjectID:               input.ProjectID,
		LicenseID:               input.LicenseID,
		PPCINumber:              strings.TrimSpace(input.PPCINumber),
		IssuedAt:                issued,
		ExpiresAt:               expires,
		HasCompensatoryMeasures: input.HasCompensatoryMeasures,
		Metadata:                input.Metadata.Clone(),
		Status:                  s.engine.Classify(issued, expires, now),
		StatusEvaluatedAt:       &now,
	}
	if err := s.repo.Create(ctx, avcb); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create avcb")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"avcb_id":    avcb.ID.String(),
		"project_id": avcb.ProjectID.String(),
		"status":     avcb.Status,
	}), "avcb created")
	return s.view(*avcb, now), nil
}

func (s *service) GetAvcb(ctx context.Context, id uuid.UUID) (*AvcbView, error) {
	avcb, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "avcb")
	}
	return s.view(*avcb, s.now().UTC()), nil
}

func (s *service) UpdateAvcb(ctx context.Context, id uuid.UUID, input UpdateAvcbInput) (*AvcbView, error) {
	avcb, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "avcb")
	}
	switch {
	case input.ClearLicense:
		avcb.LicenseID = nil
	case input.LicenseID != nil:
		if err := s.refs.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindLicense, ID: *input.LicenseID}); err != nil {
			return nil, err
		}
		avcb.LicenseID = input.LicenseID
	}
	if input.PPCINumber != nil {
		avcb.PPCINumber = strings.TrimSpace(*input.PPCINumber)
	}
	switch {
	case input.ClearIssuedAt:
		avcb.IssuedAt = nil
	case input.IssuedAt != nil:
		avcb.IssuedAt = compliance.DateOnly(input.IssuedAt)
	}
	switch {
	case input.ClearExpiresAt:
		avcb.ExpiresAt = nil
	case input.ExpiresAt != nil:
		avcb.ExpiresAt = compliance.DateOnly(input.ExpiresAt)
	}
	if input.HasCompensatoryMeasures != nil {
		avcb.HasCompensatoryMeasures = *input.HasCompensatoryMeasures
	}
	if input.Metadata != nil {
		avcb.Metadata = input.Metadata.Clone()
	}
	if err := compliance.ValidateDateRange(avcb.IssuedAt, avcb.ExpiresAt); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	avcb.Status = s.engine.Classify(avcb.IssuedAt, avcb.ExpiresAt, now)
	avcb.StatusEvaluatedAt = &now
	if err := s.repo.Update(ctx, avcb); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update avcb")
	}
	return s.view(*avcb, now), nil
}

func (s *service) ListAvcbs(ctx context.Context, params ListParams) ([]AvcbView, error) {
	now := s.now().UTC()
	q := listQuery{projectID: params.ProjectID}
	if params.ExpiringWithinDays != nil {
		if *params.ExpiringWithinDays < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "days_until_expiry must not be negative")
		}
		horizon := s.engine.Today(now).AddDate(0, 0, *params.ExpiringWithinDays)
		q.expiresOnOrBefore = &horizon
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *params.Status)
	}
	limit := pkgpagination.NormalizeLimit(params.Limit)
	if params.Status == nil {
		q.limit = limit
	}

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list avcbs")
	}
	out := make([]AvcbView, 0, len(rows))
	for _, row := range rows {
		v := s.view(row, now)
		if params.Status != nil && v.Status != *params.Status {
			continue
		}
		out = append(out, *v)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *service) view(m models.Avcb, now time.Time) *AvcbView {
	m.Status = s.engine.Classify(m.IssuedAt, m.ExpiresAt, now)
	v := toView(m, s.engine.DaysUntil(m.ExpiresAt, now))
	return &v
}
