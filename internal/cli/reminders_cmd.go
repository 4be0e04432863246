package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/sitecompliance-backend/internal/compliance"
)

func newRemindersCmd(app *App) *cobra.Command {
	var deadline, now string
	var leadDays []int

	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "List the reminder schedule ahead of a deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			deadlineAt, err := parseDateFlag("deadline", deadline)
			if err != nil {
				return err
			}
			if deadlineAt == nil {
				return fmt.Errorf("--deadline is required")
			}
			at, err := app.nowFlag(now)
			if err != nil {
				return err
			}
			if len(leadDays) == 0 {
				leadDays = compliance.DefaultLeadDays
			}

			schedule := compliance.ScheduleReminders(*deadlineAt, leadDays, at)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "LEAD\tREMIND AT\tSTATE\n")
			for _, r := range schedule {
				state := "pending"
				if r.Elapsed {
					state = "elapsed"
				}
				printf(tw, "%dd\t%s\t%s\n", r.LeadDays, r.At.Format("2006-01-02"), state)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (YYYY-MM-DD)")
	cmd.Flags().IntSliceVar(&leadDays, "lead", nil, "Lead days before the deadline (default 30,7,1)")
	cmd.Flags().StringVar(&now, "now", "", "Evaluation date (default: today)")
	return cmd
}
