// Package cli implements partyctl, the operator tool for pricing, reconciling
// and syncing the reservation backends.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/party-booking/internal/app"
	"github.com/iliyamo/party-booking/internal/config"
	"github.com/iliyamo/party-booking/internal/utils"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "partyctl",
		Short:         "Operate the party reservation backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newPriceCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newCalendarCmd())
	root.AddCommand(newHashPasswordCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads the configuration and opens the backends.  Callers must
// Close the result.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := utils.NewLogger(cfg.Env)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
