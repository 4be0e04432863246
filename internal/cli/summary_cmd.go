package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
)

func newSummaryCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary <project-id>",
		Short: "Show the compliance summary of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			if app.Projects == nil {
				return fmt.Errorf("summary needs a configured database")
			}
			svc, release, err := app.Projects(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			summary, err := svc.Summary(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return writeSummary(cmd, summary)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func writeSummary(cmd *cobra.Command, s *compliance.ComplianceSummary) error {
	out := cmd.OutOrStdout()
	state := "NON-COMPLIANT"
	if s.Compliant {
		state = "COMPLIANT"
	}
	printf(out, "%s  %s\n", s.ProjectName, state)
	printf(out, "expired: %d  expiring soon: %d  indeterminate: %d\n", s.ExpiredCount, s.ExpiringSoonCount, s.IndeterminateCount)
	printf(out, "obligations overdue: %d  due soon: %d  fulfilled: %d\n\n", s.OverdueObligationCount, s.DueSoonObligationCount, s.FulfilledObligationCount)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	printf(tw, "KIND\tLABEL\tSTATUS\tEXPIRES\n")
	for _, a := range append(append([]compliance.ArtifactStatus{}, s.Licenses...), s.Avcbs...) {
		printf(tw, "%s\t%s\t%s\t%s\n", a.Kind, a.Label, a.Status, formatDate(a.ExpiresAt))
	}
	for _, o := range s.Obligations {
		due := o.DueDate
		printf(tw, "obligation\t%s\t%s\t%s\n", o.Description, o.Status, formatDate(&due))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, w := range s.Warnings {
		printf(out, "warning: %s %s: %s\n", w.Kind, w.ID, w.Message)
	}
	return nil
}
