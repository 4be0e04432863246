package cli

import (
	"github.com/spf13/cobra"
)

func newClassifyCmd(app *App) *cobra.Command {
	var issued, expires, now string
	var warningDays int

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a license or AVCB from its issue and expiry dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			issuedAt, err := parseDateFlag("issued", issued)
			if err != nil {
				return err
			}
			expiresAt, err := parseDateFlag("expires", expires)
			if err != nil {
				return err
			}
			at, err := app.nowFlag(now)
			if err != nil {
				return err
			}

			engine := app.engine(warningDays)
			status := engine.Classify(issuedAt, expiresAt, at)
			out := cmd.OutOrStdout()
			printf(out, "status:  %s\n", status)
			printf(out, "issued:  %s\n", formatDate(issuedAt))
			printf(out, "expires: %s\n", formatDate(expiresAt))
			if days := engine.DaysUntil(expiresAt, at); days != nil {
				printf(out, "days until expiry: %d\n", *days)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&issued, "issued", "", "Issue date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&expires, "expires", "", "Expiry date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&now, "now", "", "Evaluation date (default: today)")
	cmd.Flags().IntVar(&warningDays, "warning-days", -1, "Warning window in days (default: configured)")
	return cmd
}
