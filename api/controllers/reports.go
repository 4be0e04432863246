package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/sitecompliance-backend/api/responses"
	"github.com/angelmondragon/sitecompliance-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
)

// LicenseExpiryReport answers JSON by default and CSV with format=csv.
func LicenseExpiryReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reports"))
			return
		}
		filters, err := parseArtifactFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		includeHandlers := false
		if raw := strings.TrimSpace(q.Get("include_waste_handlers")); raw != "" {
			if includeHandlers, err = strconv.ParseBool(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid include_waste_handlers").
					WithDetails(map[string]any{"field": "include_waste_handlers"}))
				return
			}
		}
		format := strings.ToLower(strings.TrimSpace(q.Get("format")))
		if format != "" && format != "json" && format != "csv" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported format %q", format).
				WithDetails(map[string]any{"field": "format"}))
			return
		}

		report, err := svc.LicenseExpiry(r.Context(), reports.ExpiryParams{
			ProjectID:            filters.projectID,
			Status:               filters.status,
			ExpiringWithinDays:   filters.expiringWithin,
			IncludeWasteHandlers: includeHandlers,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if format != "csv" {
			responses.WriteSuccess(w, report)
			return
		}

		filename := "license-expiry-" + report.GeneratedAt.Format(time.DateOnly) + ".csv"
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.WriteHeader(http.StatusOK)
		if err := report.WriteCSV(w); err != nil {
			logg.Error(r.Context(), "failed to stream license expiry report", err)
		}
	}
}
