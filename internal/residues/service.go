// Package residues registers the waste transporters and receiving facilities a
// site ships to, and classifies their operating licences like any other permit.
package residues

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

type handlersRepository interface {
	Create(ctx context.Context, handler *models.WasteHandler) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WasteHandler, error)
	Update(ctx context.Context, handler *models.WasteHandler) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q listQuery) ([]models.WasteHandler, error)
}

// Service manages transporters and recipients. Every lookup is scoped by role
// so a transporter id never resolves under the recipients route.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*HandlerView, error)
	Get(ctx context.Context, role enums.WasteHandlerRole, id uuid.UUID) (*HandlerView, error)
	Update(ctx context.Context, role enums.WasteHandlerRole, id uuid.UUID, input UpdateInput) (*HandlerView, error)
	Delete(ctx context.Context, role enums.WasteHandlerRole, id uuid.UUID) error
	List(ctx context.Context, params ListParams) ([]HandlerView, error)
}

type service struct {
	repo   handlersRepository
	engine *compliance.Engine
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo handlersRepository, engine *compliance.Engine, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("waste handler repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("compliance engine required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, engine: engine, logg: logg, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*HandlerView, error) {
	if !input.Role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", input.Role)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	number := strings.TrimSpace(input.LicenseNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license_number is required")
	}
	facility := strings.TrimSpace(input.FacilityType)
	if err := checkFacility(input.Role, facility); err != nil {
		return nil, err
	}
	issued := compliance.DateOnly(input.LicenseIssuedAt)
	expires := compliance.DateOnly(input.LicenseExpiresAt)
	if err := compliance.ValidateDateRange(issued, expires); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	handler := &models.WasteHandler{
		ID:                uuid.New(),
		Role:              input.Role,
		Name:              name,
		FacilityType:      facility,
		LicenseNumber:     number,
		LicenseIssuedAt:   issued,
		LicenseExpiresAt:  expires,
		ContactEmail:      strings.TrimSpace(input.ContactEmail),
		ContactPhone:      strings.TrimSpace(input.ContactPhone),
		Status:            s.engine.Classify(issued, expires, now),
		StatusEvaluatedAt: &now,
	}
	if err := s.repo.Create(ctx, handler); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create waste handler")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"waste_handler_id": handler.ID.String(),
		"role":             handler.Role,
		"status":           handler.Status,
	}), "waste handler created")
	return s.view(*handler, now), nil
}

func (s *service) Get(ctx context.Context, role enums.WasteHandlerRole, id uuid.UUID) (*HandlerView, error) {
	handler, err := s.find(ctx, role, id)
	if err != nil {
		return nil, err
	}
	return s.view(*handler, s.now().UTC()), nil
}

func (s *service) Update(ctx context.Context, role enums.WasteHandlerRole, id uuid.UUID, input UpdateInput) (*HandlerView, error) {
	handler, err := s.find(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		handler.Name = name
	}
	if input.LicenseNumber != nil {
		number := strings.TrimSpace(*input.LicenseNumber)
		if number == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "license_number cannot be empty")
		}
		handler.LicenseNumber = number
	}
	if input.FacilityType != nil {
		facility := strings.TrimSpace(*input.FacilityType)
		if err := checkFacility(handler.Role, facility); err != nil {
			return nil, err
		}
		handler.FacilityType = facility
	}
	if input.ContactEmail != nil {
		handler.ContactEmail = strings.TrimSpace(*input.ContactEmail)
	}
	if input.ContactPhone != nil {
		handler.ContactPhone = strings.TrimSpace(*input.ContactPhone)
	}
	switch {
	case input.ClearLicenseIssuedAt:
		handler.LicenseIssuedAt = nil
	case input.LicenseIssuedAt != nil:
		handler.LicenseIssuedAt = compliance.DateOnly(input.LicenseIssuedAt)
	}
	switch {
	case input.ClearLicenseExpiresAt:
		handler.LicenseExpiresAt = nil
	case input.LicenseExpiresAt != nil:
		handler.LicenseExpiresAt = compliance.DateOnly(input.LicenseExpiresAt)
	}
	if err := compliance.ValidateDateRange(handler.LicenseIssuedAt, handler.LicenseExpiresAt); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	handler.Status = s.engine.Classify(handler.LicenseIssuedAt, handler.LicenseExpiresAt, now)
	handler.StatusEvaluatedAt = &now
	if err := s.repo.Update(ctx, handler); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update waste handler")
	}
	return s.view(*handler, now), nil
}

func (s *service) Delete(ctx context.Context, role enums.WasteHandlerRole, id uuid.UUID) error {
	if _, err := s.find(ctx, role, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return repo.NotFound(err, string(role))
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"waste_handler_id": id.String(),
		"role":             role,
	}), "waste handler deleted")
	return nil
}

// List filters by role, recomputed licence status and expiry horizon.
func (s *service) List(ctx context.Context, params ListParams) ([]HandlerView, error) {
	now := s.now().UTC()
	if params.Role != nil && !params.Role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", *params.Role)
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *params.Status)
	}
	q := listQuery{role: params.Role}
	if params.ExpiringWithinDays != nil {
		if *params.ExpiringWithinDays < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "days_until_expiry must not be negative")
		}
		horizon := s.engine.Today(now).AddDate(0, 0, *params.ExpiringWithinDays)
		q.expiresOnOrBefore = &horizon
	}
	limit := pkgpagination.NormalizeLimit(params.Limit)
	if params.Status == nil {
		q.limit = limit
	}

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list waste handlers")
	}
	out := make([]HandlerView, 0, len(rows))
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

func (s *service) find(ctx context.Context, role enums.WasteHandlerRole, id uuid.UUID) (*models.WasteHandler, error) {
	if !role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", role)
	}
	handler, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, string(role))
	}
	if handler.Role != role {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", role)
	}
	return handler, nil
}

func checkFacility(role enums.WasteHandlerRole, facility string) error {
	if facility != "" && role != enums.WasteHandlerRecipient {
		return pkgerrors.New(pkgerrors.CodeValidation, "facility_type applies to recipients only").
			WithDetails(map[string]any{"field": "facility_type"})
	}
	return nil
}

func (s *service) view(m models.WasteHandler, now time.Time) *HandlerView {
	m.Status = s.engine.Classify(m.LicenseIssuedAt, m.LicenseExpiresAt, now)
	v := toView(m, s.engine.DaysUntil(m.LicenseExpiresAt, now))
	return &v
}
