package compliance

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

// ConditionalHistory pairs a conditional with its execution log.
type ConditionalHistory struct {
	Conditional models.Conditional
	Executions  []models.ConditionalExecution
}

// ProjectGraph is everything the aggregator needs about a single project.
type ProjectGraph struct {
	Project      models.Project
	Licenses     []models.License
	Avcbs        []models.Avcb
	Conditionals []ConditionalHistory
}

// ArtifactStatus is the classified state of a license or AVCB.
type ArtifactStatus struct {
	Kind            enums.EntityKind       `json:"kind"`
	ID              uuid.UUID              `json:"id"`
	Label           string                 `json:"label"`
	Status          enums.ComplianceStatus `json:"status"`
	IssuedAt        *time.Time             `json:"issued_at,omitempty"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
	DaysUntilExpiry *int                   `json:"days_until_expiry,omitempty"`
}

// ObligationSummary is the derived state of one conditional.
type ObligationSummary struct {
	ID           uuid.UUID              `json:"id"`
	LicenseID    uuid.UUID              `json:"license_id"`
	Description  string                 `json:"description"`
	Frequency    enums.Frequency        `json:"frequency"`
	DueDate      time.Time              `json:"due_date"`
	DaysUntilDue int                    `json:"days_until_due"`
	Status       enums.ObligationStatus `json:"status"`
}

// DataQualityWarning flags an artifact that could not be classified.
type DataQualityWarning struct {
	Kind    enums.EntityKind `json:"kind"`
	ID      uuid.UUID        `json:"id"`
	Message string           `json:"message"`
}

// ComplianceSummary is the per-project fold of every artifact and obligation.
type ComplianceSummary struct {
	ProjectID                uuid.UUID            `json:"project_id"`
	ProjectName              string               `json:"project_name"`
	EvaluatedAt              time.Time            `json:"evaluated_at"`
	Licenses                 []ArtifactStatus     `json:"licenses"`
	Avcbs                    []ArtifactStatus     `json:"avcbs"`
	Obligations              []ObligationSummary  `json:"obligations"`
	Warnings                 []DataQualityWarning `json:"warnings"`
	ExpiredCount             int                  `json:"expired_count"`
	ExpiringSoonCount        int                  `json:"expiring_soon_count"`
	IndeterminateCount       int                  `json:"indeterminate_count"`
	OverdueObligationCount   int                  `json:"overdue_obligation_count"`
	DueSoonObligationCount   int                  `json:"due_soon_obligation_count"`
	FulfilledObligationCount int                  `json:"fulfilled_obligation_count"`
	Compliant                bool                 `json:"compliant"`
}

// Summarize folds a project graph into a ComplianceSummary. A project is
// compliant when nothing is expired and no obligation is overdue.
func (e *Engine) Summarize(graph ProjectGraph, now time.Time) ComplianceSummary {
	summary := ComplianceSummary{
		ProjectID:   graph.Project.ID,
		ProjectName: graph.Project.Name,
		EvaluatedAt: now,
		Licenses:    make([]ArtifactStatus, 0, len(graph.Licenses)),
		Avcbs:       make([]ArtifactStatus, 0, len(graph.Avcbs)),
		Obligations: make([]ObligationSummary, 0, len(graph.Conditionals)),
		Warnings:    []DataQualityWarning{},
	}

	for _, l := range graph.Licenses {
		status := e.artifact(enums.EntityKindLicense, l.ID, l.Number, l.IssuedAt, l.ExpiresAt, now)
		summary.Licenses = append(summary.Licenses, status)
		summary.count(status)
	}
	for _, a := range graph.Avcbs {
		status := e.artifact(enums.EntityKindAvcb, a.ID, a.PPCINumber, a.IssuedAt, a.ExpiresAt, now)
		summary.Avcbs = append(summary.Avcbs, status)
		summary.count(status)
	}
	for _, ch := range graph.Conditionals {
		c := ch.Conditional
		status := e.ObligationStatus(c, ch.Executions, now)
		summary.Obligations = append(summary.Obligations, ObligationSummary{
			ID:           c.ID,
			LicenseID:    c.LicenseID,
			Description:  c.Description,
			Frequency:    c.Frequency,
			DueDate:      c.DueDate,
			DaysUntilDue: daysBetween(e.Today(now), calendarDay(c.DueDate)),
			Status:       status,
		})
		switch status {
		case enums.ObligationStatusOverdue:
			summary.OverdueObligationCount++
		case enums.ObligationStatusDueSoon:
			summary.DueSoonObligationCount++
		case enums.ObligationStatusFulfilled:
			summary.FulfilledObligationCount++
		}
	}

	summary.Compliant = summary.ExpiredCount == 0 && summary.OverdueObligationCount == 0
	return summary
}

func (e *Engine) artifact(kind enums.EntityKind, id uuid.UUID, label string, issuedAt, expiresAt *time.Time, now time.Time) ArtifactStatus {
	return ArtifactStatus{
		Kind:            kind,
		ID:              id,
		Label:           label,
		Status:          e.Classify(issuedAt, expiresAt, now),
		IssuedAt:        issuedAt,
		ExpiresAt:       expiresAt,
		DaysUntilExpiry: e.DaysUntil(expiresAt, now),
	}
}

func (s *ComplianceSummary) count(a ArtifactStatus) {
	switch a.Status {
	case enums.ComplianceStatusExpired:
		s.ExpiredCount++
	case enums.ComplianceStatusExpiringSoon:
		s.ExpiringSoonCount++
	case enums.ComplianceStatusIndeterminate:
		s.IndeterminateCount++
		s.Warnings = append(s.Warnings, DataQualityWarning{
			Kind:    a.Kind,
			ID:      a.ID,
			Message: "no issue or expiry date recorded",
		})
	}
}
