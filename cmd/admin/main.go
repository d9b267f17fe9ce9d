// Command admin runs maintenance tasks against a docforest deployment.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docforest/internal/config"
	"docforest/internal/domain"
)

// app carries what every subcommand needs once PersistentPreRunE has run.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Maintenance commands for the document forest",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			a.cfg = config.Load()
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			logger, closer, err := config.NewLogger(a.cfg, "admin")
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrConfig, err)
			}
			a.logger, a.logCloser = logger, closer
			slog.SetDefault(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logCloser != nil {
				a.logCloser.Close()
			}
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newReconcileCmd(a),
		newCanonicalizeTitlesCmd(a),
	)
	return root
}

// requireDatabase rejects commands that would otherwise act on an empty
// in-memory store.
func (a *app) requireDatabase() error {
	if a.cfg.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required", domain.ErrConfig)
	}
	return nil
}

// exitCode is 1 for any failure that stopped a command. Per-object errors
// inside a reconcile run are reported, not returned, so they exit 0.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConfig) {
			fmt.Fprintln(os.Stderr, "configuration error:", err)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
	stop()
	os.Exit(exitCode(err))
}
