package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
)

func newNextCmd(app *App) *cobra.Command {
	var anchor, frequency, now string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Compute the next due date of a recurring obligation",
		RunE: func(cmd *cobra.Command, args []string) error {
			anchorAt, err := parseDateFlag("anchor", anchor)
			if err != nil {
				return err
			}
			if anchorAt == nil {
				return fmt.Errorf("--anchor is required")
			}
			freq, err := enums.ParseFrequency(frequency)
			if err != nil {
				return fmt.Errorf("--frequency: %w", err)
			}
			at, err := app.nowFlag(now)
			if err != nil {
				return err
			}

			occ := app.engine(-1).NextOccurrence(*anchorAt, freq, at)
			out := cmd.OutOrStdout()
			printf(out, "due:     %s\n", occ.Due.Format("2006-01-02"))
			printf(out, "skipped: %d\n", occ.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&anchor, "anchor", "", "Anchor due date of the series (YYYY-MM-DD)")
	cmd.Flags().StringVar(&frequency, "frequency", string(enums.FrequencyMonthly), "monthly|quarterly|semiannual|annual|one_time")
	cmd.Flags().StringVar(&now, "now", "", "Evaluation date (default: today)")
	return cmd
}
