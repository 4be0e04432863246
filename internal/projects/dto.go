package projects

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/pkg/types"
)

type CreateProjectInput struct {
	ClientID    uuid.UUID
	Name        string
	Description string
	Location    types.Metadata
}

type ListParams struct {
	ClientID *uuid.UUID
	Limit    int
	Cursor   string
}

// ProjectHealth is one row of the dashboard.
type ProjectHealth struct {
	ProjectID              uuid.UUID `json:"project_id"`
	ProjectName            string    `json:"project_name"`
	Compliant              bool      `json:"compliant"`
	ExpiredCount           int       `json:"expired_count"`
	ExpiringSoonCount      int       `json:"expiring_soon_count"`
	OverdueObligationCount int       `json:"overdue_obligation_count"`
}

// DashboardView rolls every project summary up into portfolio totals.
type DashboardView struct {
	EvaluatedAt       time.Time                      `json:"evaluated_at"`
	ProjectCount      int                            `json:"project_count"`
	CompliantProjects int                            `json:"compliant_projects"`
	Licenses          map[string]int                 `json:"licenses"`
	Avcbs             map[string]int                 `json:"avcbs"`
	Obligations       map[string]int                 `json:"obligations"`
	ExpiringSoon      []compliance.ArtifactStatus    `json:"expiring_soon"`
	Expired           []compliance.ArtifactStatus    `json:"expired"`
	Overdue           []compliance.ObligationSummary `json:"overdue"`
	Projects          []ProjectHealth                `json:"projects"`
}
