// Command ecotrack-cli is a single-user carbon tracker over a local data
// directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"ecotrack/internal/activitylog"
	"ecotrack/internal/cli"
	"ecotrack/internal/config"
	"ecotrack/internal/localfile"
	"ecotrack/internal/log"
	"ecotrack/internal/services"
)

type app struct {
	dataDir  string
	logLevel string

	logger     *log.Logger
	activities *services.ActivityService
}

func main() {
	cli.LoadEnvFile()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ecotrack-cli",
		Short:         "Track the carbon footprint of everyday activities",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.logger = cli.SetupLogger(cmd.ErrOrStderr(), a.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", defaultDataDir(), "directory holding the local activity log")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newEstimateCmd(),
		newFactorsCmd(),
		newLogCmd(a),
		newHistoryCmd(a),
		newTodayCmd(a),
		newGoalCmd(a),
		newResetCmd(a),
		newVoiceCmd(a),
		newSheetsAuthCmd(),
	)
	return root
}

func defaultDataDir() string {
	if dir := os.Getenv("ECOTRACK_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ecotrack"
	}
	return filepath.Join(home, ".ecotrack")
}

// service opens the local store on first use, so commands that never touch
// the log do not create the data directory.
func (a *app) service() (*services.ActivityService, error) {
	if a.activities != nil {
		return a.activities, nil
	}
	store, err := localfile.New(a.dataDir)
	if err != nil {
		return nil, err
	}
	goal := config.Load().DefaultWeeklyGoal
	a.activities = services.NewActivityService(
		activitylog.NewRegistry(store),
		activitylog.NewGoalStore(store, goal),
		nil, a.logger)
	a.logger.Debug("Opened local store", "dir", store.Dir())
	return a.activities, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
