package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/party-booking/internal/model"
)

func newCalendarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calendar <year> <month>",
		Short: "Print the month with booked (*) and double-booked (!) days",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			month, err := strconv.Atoi(args[1])
			if err != nil || month < 1 || month > 12 {
				return fmt.Errorf("invalid month %q", args[1])
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			days, err := a.Booking.Calendar(cmd.Context(), year, time.Month(month), time.Now().In(a.Config.Location))
			if err != nil {
				return err
			}
			renderMonth(cmd.OutOrStdout(), year, time.Month(month), days)
			return nil
		},
	}
}

// renderMonth prints the grid one week per line.  Out-of-month cells are
// blank.
func renderMonth(w io.Writer, year int, month time.Month, days []model.CalendarDay) {
	fmt.Fprintf(w, "%s %d\n", month, year)
	fmt.Fprintln(w, " Sun Mon Tue Wed Thu Fri Sat")
	for i, d := range days {
		switch {
		case !d.InMonth:
			fmt.Fprint(w, "    ")
		default:
			mark := " "
			if d.IsOverbooked {
				mark = "!"
			} else if d.ReservationCount > 0 {
				mark = "*"
			}
			fmt.Fprintf(w, " %2d%s", d.Day, mark)
		}
		if i%7 == 6 {
			fmt.Fprintln(w)
		}
	}
}
