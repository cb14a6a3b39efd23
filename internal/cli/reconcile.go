package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/iliyamo/party-booking/internal/service"
)

func newReconcileCmd() *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "reconcile",
		Short: "Read every backend and report the merged view and its conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.Booking.List(cmd.Context())
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return c
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy reservations to the backends that miss them or hold stale copies",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.Booking.Sync(cmd.Context())
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d write-back steps failed", len(report.Failed))
			}
			return nil
		},
	}
}

func printResult(w io.Writer, res service.Result) {
	fmt.Fprintf(w, "%d reservations\n", len(res.Reservations))
	for _, u := range res.Unavailable {
		fmt.Fprintf(w, "unavailable: %s (%s) %s\n", u.Source, u.Kind, u.Message)
	}
	for _, c := range res.Conflicts {
		fmt.Fprintf(w, "conflict: %s %s ids=%v sources=%v: %s\n", c.Kind, c.Date, c.ReservationIDs, c.Sources, c.Message)
	}
	pending := 0
	for _, wb := range res.Plan {
		pending += len(wb.MissingFrom) + len(wb.StaleIn)
	}
	fmt.Fprintf(w, "%d write-back steps pending\n", pending)
}
