package compliance

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

func TestSummarize_CountsAndCompliance(t *testing.T) {
	engine := newTestEngine()
	now := date(t, "2024-03-01")

	overdue := monthlyConditional(t, "2024-02-10")
	fulfilled := monthlyConditional(t, "2024-03-10")
	graph := ProjectGraph{
		Project: models.Project{ID: uuid.New(), Name: "Tower A"},
		Licenses: []models.License{
			{ID: uuid.New(), Number: "LO-1", IssuedAt: datePtr(t, "2023-01-01"), ExpiresAt: datePtr(t, "2024-02-01")},
			{ID: uuid.New(), Number: "LO-2", ExpiresAt: datePtr(t, "2024-03-15")},
			{ID: uuid.New(), Number: "LO-3"},
		},
		Avcbs: []models.Avcb{
			{ID: uuid.New(), PPCINumber: "PPCI-9", IssuedAt: datePtr(t, "2023-06-01"), ExpiresAt: datePtr(t, "2026-06-01")},
		},
		Conditionals: []ConditionalHistory{
			{Conditional: overdue},
			{Conditional: fulfilled, Executions: []models.ConditionalExecution{
				execution(t, "2024-02-20", enums.ExecutionOutcomeCompleted, nil),
			}},
		},
	}

	summary := engine.Summarize(graph, now)

	if summary.ExpiredCount != 1 || summary.ExpiringSoonCount != 1 || summary.IndeterminateCount != 1 {
		t.Fatalf("unexpected artifact counts: %+v", summary)
	}
	if summary.OverdueObligationCount != 1 || summary.FulfilledObligationCount != 1 {
		t.Fatalf("unexpected obligation counts: %+v", summary)
	}
	if summary.Compliant {
		t.Fatal("expected project to be non-compliant")
	}
	if len(summary.Warnings) != 1 || summary.Warnings[0].Kind != enums.EntityKindLicense {
		t.Fatalf("expected one license data quality warning, got %+v", summary.Warnings)
	}
	if summary.Avcbs[0].Status != enums.ComplianceStatusActive {
		t.Fatalf("expected active avcb, got %s", summary.Avcbs[0].Status)
	}
	if d := summary.Licenses[1].DaysUntilExpiry; d == nil || *d != 14 {
		t.Fatalf("expected 14 days until expiry, got %v", d)
	}
	if summary.Obligations[0].DaysUntilDue != -20 {
		t.Fatalf("expected -20 days until due, got %d", summary.Obligations[0].DaysUntilDue)
	}
}

func TestSummarize_EmptyProjectIsCompliant(t *testing.T) {
	engine := newTestEngine()
	summary := engine.Summarize(ProjectGraph{Project: models.Project{ID: uuid.New()}}, time.Now())
	if !summary.Compliant {
		t.Fatal("expected empty project to be compliant")
	}
	if summary.Licenses == nil || summary.Obligations == nil || summary.Warnings == nil {
		t.Fatal("expected empty slices rather than nil")
	}
}

func TestSummarize_ExpiringSoonStillCompliant(t *testing.T) {
	engine := newTestEngine()
	graph := ProjectGraph{
		Project:  models.Project{ID: uuid.New()},
		Licenses: []models.License{{ID: uuid.New(), ExpiresAt: datePtr(t, "2024-03-15")}},
	}
	summary := engine.Summarize(graph, date(t, "2024-03-01"))
	if !summary.Compliant || summary.ExpiringSoonCount != 1 {
		t.Fatalf("expected compliant with one expiring item, got %+v", summary)
	}
}
