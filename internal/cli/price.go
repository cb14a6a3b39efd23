package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iliyamo/party-booking/internal/config"
	"github.com/iliyamo/party-booking/internal/model"
	"github.com/iliyamo/party-booking/internal/service"
)

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <date> [package]",
		Short: "Quote a package, or every package, on a date",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := service.NewCatalog(config.LoadPackages())
			if err != nil {
				return err
			}
			date, err := model.ParseDate(args[0])
			if err != nil {
				return err
			}

			tiers := []model.PackageTier{}
			if len(args) == 2 {
				t, err := model.ParsePackageTier(args[1])
				if err != nil {
					return fmt.Errorf("%w: %q", err, args[1])
				}
				tiers = append(tiers, t)
			} else {
				for _, def := range catalog.Packages() {
					tiers = append(tiers, def.Tier)
				}
			}

			day := "weekday"
			if service.IsWeekend(date) {
				day = "weekend"
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "%s (%s, %s)\n", date.Format(model.DateLayout), date.Weekday(), day)
			for _, t := range tiers {
				price, err := catalog.Price(args[0], t)
				if err != nil {
					return err
				}
				def, _ := catalog.Definition(t)
				fmt.Fprintf(w, "%s\t%s\t%d\n", t, def.Name, price)
			}
			return w.Flush()
		},
	}
}
