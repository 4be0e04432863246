package licenses

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

type licensesRepository interface {
	Create(ctx context.Context, license *models.License) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	Update(ctx context.Context, license *models.License) error
	List(ctx context.Context, q listQuery) ([]models.License, error)
}

type referenceResolver interface {
	Resolve(ctx context.Context, ref models.EntityRef) error
}

// Service exposes license registration and status-aware reads.
type Service interface {
	CreateLicense(ctx context.Context, input CreateLicenseInput) (*LicenseView, error)
	GetLicense(ctx context.Context, id uuid.UUID) (*LicenseView, error)
	UpdateLicense(ctx context.Context, id uuid.UUID, input UpdateLicenseInput) (*LicenseView, error)
	ListLicenses(ctx context.Context, params ListParams) ([]LicenseView, error)
}

type service struct {
	repo   licensesRepository
	refs   referenceResolver
	engine *compliance.Engine
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a license service backed by the repository and reference loader.
func NewService(repo licensesRepository, refs referenceResolver, engine *compliance.Engine, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("license repository required")
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

func (s *service) CreateLicense(ctx context.Context, input CreateLicenseInput) (*LicenseView, error) {
	number := strings.TrimSpace(input.Number)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "number is required")
	}
	if err := s.refs.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindProject, ID: input.ProjectID}); err != nil {
		return nil, err
	}
	issued := compliance.DateOnly(input.IssuedAt)
	expires := compliance.DateOnly(input.ExpiresAt)
	if err := compliance.ValidateDateRange(issued, expires); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	license := &models.License{
		ID:                uuid.New(),
		ProjectID:         input.ProjectID,
		Number:            number,
		Issuer:            strings.TrimSpace(input.Issuer),
		Type:              strings.TrimSpace(input.Type),
		IssuedAt:          issued,
		ExpiresAt:         expires,
		Metadata:          input.Metadata.Clone(),
		Status:            s.engine.Classify(issued, expires, now),
		StatusEvaluatedAt: &now,
	}
	if err := s.repo.Create(ctx, license); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create license")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"license_id": license.ID.String(),
		"project_id": license.ProjectID.String(),
		"status":     license.Status,
	}), "license created")
	return s.view(*license, now), nil
}

func (s *service) GetLicense(ctx context.Context, id uuid.UUID) (*LicenseView, error) {
	license, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "license")
	}
	return s.view(*license, s.now().UTC()), nil
}

func (s *service) UpdateLicense(ctx context.Context, id uuid.UUID, input UpdateLicenseInput) (*LicenseView, error) {
	license, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "license")
	}
	if input.Number != nil {
		number := strings.TrimSpace(*input.Number)
		if number == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "number cannot be empty")
		}
		license.Number = number
	}
	if input.Issuer != nil {
		license.Issuer = strings.TrimSpace(*input.Issuer)
	}
	if input.Type != nil {
		license.Type = strings.TrimSpace(*input.Type)
	}
	switch {
	case input.ClearIssuedAt:
		license.IssuedAt = nil
	case input.IssuedAt != nil:
		license.IssuedAt = compliance.DateOnly(input.IssuedAt)
	}
	switch {
	case input.ClearExpiresAt:
		license.ExpiresAt = nil
	case input.ExpiresAt != nil:
		license.ExpiresAt = compliance.DateOnly(input.ExpiresAt)
	}
	if input.Metadata != nil {
		license.Metadata = input.Metadata.Clone()
	}
	if err := compliance.ValidateDateRange(license.IssuedAt, license.ExpiresAt); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	license.Status = s.engine.Classify(license.IssuedAt, license.ExpiresAt, now)
	license.StatusEvaluatedAt = &now
	if err := s.repo.Update(ctx, license); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update license")
	}
	return s.view(*license, now), nil
}

// ListLicenses filters by project, recomputed status and expiry horizon.
func (s *service) ListLicenses(ctx context.Context, params ListParams) ([]LicenseView, error) {
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
	if params.Status == nil {
		q.limit = pkgpagination.NormalizeLimit(params.Limit)
	}

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list licenses")
	}
	limit := pkgpagination.NormalizeLimit(params.Limit)
	out := make([]LicenseView, 0, len(rows))
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

func (s *service) view(m models.License, now time.Time) *LicenseView {
	m.Status = s.engine.Classify(m.IssuedAt, m.ExpiresAt, now)
	v := toView(m, s.engine.DaysUntil(m.ExpiresAt, now))
	return &v
}
