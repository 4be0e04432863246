package projects

import (
	"context"
	"fmt"
	"math"
	"sort"
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

type projectsRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, clientID *uuid.UUID, params pkgpagination.Params) ([]models.Project, error)
	ListAll(ctx context.Context) ([]models.Project, error)
}

type referenceResolver interface {
	Resolve(ctx context.Context, ref models.EntityRef) error
}

type licenseReader interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.License, error)
	ListAll(ctx context.Context) ([]models.License, error)
}

type avcbReader interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Avcb, error)
	ListAll(ctx context.Context) ([]models.Avcb, error)
}

type obligationReader interface {
	ListByLicenses(ctx context.Context, licenseIDs []uuid.UUID) ([]models.Conditional, error)
	ListAll(ctx context.Context) ([]models.Conditional, error)
	ListExecutionsFor(ctx context.Context, conditionalIDs []uuid.UUID) (map[uuid.UUID][]models.ConditionalExecution, error)
}

// Service manages projects and evaluates their compliance posture.
type Service interface {
	CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, params ListParams) (*pkgpagination.Page[models.Project], error)
	Summary(ctx context.Context, id uuid.UUID) (*compliance.ComplianceSummary, error)
	Dashboard(ctx context.Context) (*DashboardView, error)
}

type ServiceParams struct {
	Repo         projectsRepository
	Refs         referenceResolver
	Licenses     licenseReader
	Avcbs        avcbReader
	Conditionals obligationReader
	Engine       *compliance.Engine
	Logger       *logger.Logger
}

type service struct {
	repo         projectsRepository
	refs         referenceResolver
	licenses     licenseReader
	avcbs        avcbReader
	conditionals obligationReader
	engine       *compliance.Engine
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("projects repository required")
	}
	if params.Refs == nil {
		return nil, fmt.Errorf("reference resolver required")
	}
	if params.Licenses == nil || params.Avcbs == nil || params.Conditionals == nil {
		return nil, fmt.Errorf("artifact readers required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("compliance engine required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:         params.Repo,
		refs:         params.Refs,
		licenses:     params.Licenses,
		avcbs:        params.Avcbs,
		conditionals: params.Conditionals,
		engine:       params.Engine,
		logg:         logg,
		now:          time.Now,
	}, nil
}

func (s *service) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := s.refs.Resolve(ctx, models.EntityRef{Kind: enums.EntityKindClient, ID: input.ClientID}); err != nil {
		return nil, err
	}
	project := &models.Project{
		ID:          uuid.New(),
		ClientID:    input.ClientID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Location:    input.Location.Clone(),
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create project")
	}
	s.logg.Info(s.logg.WithProjectID(ctx, project.ID.String()), "project created")
	return project, nil
}

func (s *service) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repo.NotFound(err, "project")
	}
	return project, nil
}

func (s *service) ListProjects(ctx context.Context, params ListParams) (*pkgpagination.Page[models.Project], error) {
	if _, err := pkgpagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	pp := pkgpagination.Params{Limit: params.Limit, Cursor: params.Cursor}
	rows, err := s.repo.List(ctx, params.ClientID, pp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list projects")
	}
	page := pkgpagination.Build(rows, pp.Limit, func(p models.Project) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

// Summary evaluates one project against the current date.
func (s *service) Summary(ctx context.Context, id uuid.UUID) (*compliance.ComplianceSummary, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	licenses, err := s.licenses.ListByProject(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list project licenses")
	}
	avcbs, err := s.avcbs.ListByProject(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list project avcbs")
	}
	licenseIDs := make([]uuid.UUID, 0, len(licenses))
	for _, l := range licenses {
		licenseIDs = append(licenseIDs, l.ID)
	}
	conditionals, err := s.conditionals.ListByLicenses(ctx, licenseIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list project conditionals")
	}
	histories, err := s.histories(ctx, conditionals)
	if err != nil {
		return nil, err
	}

	summary := s.engine.Summarize(compliance.ProjectGraph{
		Project:      *project,
		Licenses:     licenses,
		Avcbs:        avcbs,
		Conditionals: histories,
	}, s.now())
	if len(summary.Warnings) > 0 {
		s.logg.Warn(s.logg.WithFields(s.logg.WithProjectID(ctx, id.String()), map[string]any{
			"warnings": len(summary.Warnings),
		}), "project has unclassifiable artifacts")
	}
	return &summary, nil
}

func (s *service) histories(ctx context.Context, conditionals []models.Conditional) ([]compliance.ConditionalHistory, error) {
	ids := make([]uuid.UUID, 0, len(conditionals))
	for _, c := range conditionals {
		ids = append(ids, c.ID)
	}
	executions, err := s.conditionals.ListExecutionsFor(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list executions")
	}
	out := make([]compliance.ConditionalHistory, 0, len(conditionals))
	for _, c := range conditionals {
		out = append(out, compliance.ConditionalHistory{Conditional: c, Executions: executions[c.ID]})
	}
	return out, nil
}

// Dashboard summarizes every project from one bulk load.
func (s *service) Dashboard(ctx context.Context) (*DashboardView, error) {
	now := s.now()
	projects, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list projects")
	}
	licenses, err := s.licenses.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list licenses")
	}
	avcbs, err := s.avcbs.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list avcbs")
	}
	conditionals, err := s.conditionals.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list conditionals")
	}
	histories, err := s.histories(ctx, conditionals)
	if err != nil {
		return nil, err
	}

	graphs := make(map[uuid.UUID]*compliance.ProjectGraph, len(projects))
	for _, p := range projects {
		graphs[p.ID] = &compliance.ProjectGraph{Project: p}
	}
	projectOfLicense := make(map[uuid.UUID]uuid.UUID, len(licenses))
	for _, l := range licenses {
		projectOfLicense[l.ID] = l.ProjectID
		if g, ok := graphs[l.ProjectID]; ok {
			g.Licenses = append(g.Licenses, l)
		}
	}
	for _, a := range avcbs {
		if g, ok := graphs[a.ProjectID]; ok {
			g.Avcbs = append(g.Avcbs, a)
		}
	}
	for _, h := range histories {
		if g, ok := graphs[projectOfLicense[h.Conditional.LicenseID]]; ok {
			g.Conditionals = append(g.Conditionals, h)
		}
	}

	view := &DashboardView{
		EvaluatedAt:  now.UTC(),
		ProjectCount: len(projects),
		Licenses:     map[string]int{},
		Avcbs:        map[string]int{},
		Obligations:  map[string]int{},
		ExpiringSoon: []compliance.ArtifactStatus{},
		Expired:      []compliance.ArtifactStatus{},
		Overdue:      []compliance.ObligationSummary{},
		Projects:     make([]ProjectHealth, 0, len(projects)),
	}
	collect := func(counts map[string]int, items []compliance.ArtifactStatus) {
		for _, item := range items {
			counts[string(item.Status)]++
			switch item.Status {
			case enums.ComplianceStatusExpiringSoon:
				view.ExpiringSoon = append(view.ExpiringSoon, item)
			case enums.ComplianceStatusExpired:
				view.Expired = append(view.Expired, item)
			}
		}
	}
	for _, p := range projects {
		summary := s.engine.Summarize(*graphs[p.ID], now)
		collect(view.Licenses, summary.Licenses)
		collect(view.Avcbs, summary.Avcbs)
		for _, o := range summary.Obligations {
			view.Obligations[string(o.Status)]++
			if o.Status == enums.ObligationStatusOverdue {
				view.Overdue = append(view.Overdue, o)
			}
		}
		if summary.Compliant {
			view.CompliantProjects++
		}
		view.Projects = append(view.Projects, ProjectHealth{
			ProjectID:              p.ID,
			ProjectName:            p.Name,
			Compliant:              summary.Compliant,
			ExpiredCount:           summary.ExpiredCount,
			ExpiringSoonCount:      summary.ExpiringSoonCount,
			OverdueObligationCount: summary.OverdueObligationCount,
		})
	}

	sort.SliceStable(view.ExpiringSoon, func(i, j int) bool {
		return daysOrMax(view.ExpiringSoon[i].DaysUntilExpiry) < daysOrMax(view.ExpiringSoon[j].DaysUntilExpiry)
	})
	sort.SliceStable(view.Overdue, func(i, j int) bool {
		return view.Overdue[i].DueDate.Before(view.Overdue[j].DueDate)
	})
	return view, nil
}

func daysOrMax(d *int) int {
	if d == nil {
		return math.MaxInt
	}
	return *d
}
