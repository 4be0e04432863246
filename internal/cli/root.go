// Package cli implements compliancectl, an operator tool over the compliance
// engine. Pure commands run offline; summary reads the configured database.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/sitecompliance-backend/api/validators"
	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
	"github.com/angelmondragon/sitecompliance-backend/internal/projects"
)

// ProjectsOpener connects to storage on demand and returns the projects
// service plus a release func.
type ProjectsOpener func(ctx context.Context) (projects.Service, func(), error)

// App holds what the commands need.
type App struct {
	Options  compliance.Options
	Projects ProjectsOpener
	Now      func() time.Time
}

// NewRootCmd creates the top-level "compliancectl" command.
func NewRootCmd(app *App) *cobra.Command {
	if app.Now == nil {
		app.Now = time.Now
	}
	root := &cobra.Command{
		Use:           "compliancectl",
		Short:         "Inspect license, AVCB and obligation compliance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newClassifyCmd(app),
		newNextCmd(app),
		newRemindersCmd(app),
		newSummaryCmd(app),
	)

	return root
}

// nowFlag resolves --now, falling back to the app clock.
func (a *App) nowFlag(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return a.Now().UTC(), nil
	}
	t, err := parseDateFlag("now", raw)
	if err != nil {
		return time.Time{}, err
	}
	return *t, nil
}

func (a *App) engine(warningDays int) *compliance.Engine {
	opts := a.Options
	if warningDays >= 0 {
		opts.WarningWindow = time.Duration(warningDays) * 24 * time.Hour
		// NewEngine reads a zero window as unset.
		if warningDays == 0 {
			opts.WarningWindow = -1
		}
	}
	return compliance.NewEngine(opts)
}

func parseDateFlag(name, raw string) (*time.Time, error) {
	t, err := validators.ParseDate(name, raw)
	if err != nil {
		return nil, fmt.Errorf("--%s %q: expected YYYY-MM-DD or RFC3339", name, raw)
	}
	return t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
