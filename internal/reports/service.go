// Package reports builds exports over the permit registers.
package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sitecompliance-backend/internal/licenses"
	"github.com/angelmondragon/sitecompliance-backend/internal/residues"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	pkgpagination "github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
)

type licenseLister interface {
	ListLicenses(ctx context.Context, params licenses.ListParams) ([]licenses.LicenseView, error)
}

type handlerLister interface {
	List(ctx context.Context, params residues.ListParams) ([]residues.HandlerView, error)
}

// ExpiryParams filters the licence expiry report. Waste handler licences have
// no project, so they are left out whenever ProjectID is set.
type ExpiryParams struct {
	ProjectID            *uuid.UUID
	Status               *enums.ComplianceStatus
	ExpiringWithinDays   *int
	IncludeWasteHandlers bool
}

type ExpiryRow struct {
	Kind            enums.EntityKind       `json:"kind"`
	ID              uuid.UUID              `json:"id"`
	ProjectID       *uuid.UUID             `json:"project_id,omitempty"`
	Number          string                 `json:"number"`
	Issuer          string                 `json:"issuer,omitempty"`
	Holder          string                 `json:"holder,omitempty"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`
	Status          enums.ComplianceStatus `json:"status"`
	DaysUntilExpiry *int                   `json:"days_until_expiry,omitempty"`
}

// ExpiryReport lists licences soonest expiry first, undated last. Truncated
// is set when a register hit the list cap.
type ExpiryReport struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Rows        []ExpiryRow `json:"rows"`
	Truncated   bool        `json:"truncated"`
}

type Service interface {
	LicenseExpiry(ctx context.Context, params ExpiryParams) (*ExpiryReport, error)
}

type service struct {
	licenses licenseLister
	handlers handlerLister
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the report service. handlers may be nil, in which case
// waste handler licences are never included.
func NewService(licenses licenseLister, handlers handlerLister, logg *logger.Logger) (Service, error) {
	if licenses == nil {
		return nil, fmt.Errorf("license lister required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{licenses: licenses, handlers: handlers, logg: logg, now: time.Now}, nil
}

func (s *service) LicenseExpiry(ctx context.Context, params ExpiryParams) (*ExpiryReport, error) {
	report := &ExpiryReport{GeneratedAt: s.now().UTC(), Rows: []ExpiryRow{}}

	views, err := s.licenses.ListLicenses(ctx, licenses.ListParams{
		ProjectID:          params.ProjectID,
		Status:             params.Status,
		ExpiringWithinDays: params.ExpiringWithinDays,
		Limit:              pkgpagination.MaxLimit,
	})
	if err != nil {
		return nil, err
	}
	report.Truncated = len(views) == pkgpagination.MaxLimit
	for _, v := range views {
		projectID := v.ProjectID
		report.Rows = append(report.Rows, ExpiryRow{
			Kind:            enums.EntityKindLicense,
			ID:              v.ID,
			ProjectID:       &projectID,
			Number:          v.Number,
			Issuer:          v.Issuer,
			ExpiresAt:       v.ExpiresAt,
			Status:          v.Status,
			DaysUntilExpiry: v.DaysUntilExpiry,
		})
	}

	if params.IncludeWasteHandlers && params.ProjectID == nil && s.handlers != nil {
		handlers, err := s.handlers.List(ctx, residues.ListParams{
			Status:             params.Status,
			ExpiringWithinDays: params.ExpiringWithinDays,
			Limit:              pkgpagination.MaxLimit,
		})
		if err != nil {
			return nil, err
		}
		report.Truncated = report.Truncated || len(handlers) == pkgpagination.MaxLimit
		for _, h := range handlers {
			report.Rows = append(report.Rows, ExpiryRow{
				Kind:            enums.EntityKindWasteHandler,
				ID:              h.ID,
				Number:          h.LicenseNumber,
				Holder:          fmt.Sprintf("%s (%s)", h.Name, h.Role),
				ExpiresAt:       h.LicenseExpiresAt,
				Status:          h.Status,
				DaysUntilExpiry: h.DaysUntilExpiry,
			})
		}
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i].ExpiresAt, report.Rows[j].ExpiresAt
		switch {
		case a == nil || b == nil:
			return a != nil && b == nil
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return report.Rows[i].Number < report.Rows[j].Number
	})

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"rows":      len(report.Rows),
		"truncated": report.Truncated,
	}), "license expiry report generated")
	return report, nil
}

var csvHeader = []string{"kind", "number", "issuer", "holder", "expires_at", "status", "days_until_expiry"}

// WriteCSV renders the report rows with a header line.
func (r *ExpiryReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		expires, days := "", ""
		if row.ExpiresAt != nil {
			expires = row.ExpiresAt.Format(time.DateOnly)
		}
		if row.DaysUntilExpiry != nil {
			days = strconv.Itoa(*row.DaysUntilExpiry)
		}
		if err := cw.Write([]string{
			string(row.Kind), row.Number, row.Issuer, row.Holder, expires, string(row.Status), days,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
