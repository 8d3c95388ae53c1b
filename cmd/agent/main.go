package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/foldsync/foldsync/internal/client"
	"github.com/foldsync/foldsync/internal/client/api"
	"github.com/foldsync/foldsync/internal/client/config"
	"github.com/foldsync/foldsync/internal/client/sync"
	"github.com/foldsync/foldsync/internal/client/watcher"
	"github.com/foldsync/foldsync/internal/version"
)

// Exit codes, stable for scripting around the agent.
const (
	exitOK      = 0
	exitError   = 1
	exitConfig  = 2
	exitNetwork = 3
	exitAuth    = 4
)

// errConfig marks configuration failures so main can map them to exitConfig.
var errConfig = errors.New("configuration error")

var rootCmd = &cobra.Command{
	Use:     "foldsync",
	Short:   "FoldSync agent CLI",
	Version: version.Detailed(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		slog.Info("foldsync",
			"version", version.Version, "revision", version.Revision, "build", version.BuildDate)

		agent, err := newAgent(cmd)
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		if err := agent.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "FoldSync config file")
	rootCmd.Flags().DurationP("interval", "i", sync.DefaultSyncInterval, "Interval between full reconciles")
	rootCmd.Flags().IntP("transfers", "t", sync.DefaultMaxTransfers, "Max concurrent transfers")
	rootCmd.Flags().Duration("debounce", watcher.DefaultDebounce, "Watcher settle window")
}

func main() {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return exitAuth
	case errors.Is(err, api.ErrTransient):
		return exitNetwork
	case errors.Is(err, errConfig):
		return exitConfig
	default:
		return exitError
	}
}

// newAgent loads the config named by --config and assembles the agent.
func newAgent(cmd *cobra.Command) (*client.Agent, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.Join(errConfig, err)
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	transfers, _ := cmd.Flags().GetInt("transfers")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	agent, err := client.New(cmd.Context(), cfg, client.Options{
		SyncInterval: interval,
		MaxTransfers: transfers,
		Debounce:     debounce,
	})
	if err != nil {
		// session setup failures keep their api error kind for exit codes;
		// anything before the first request is a config problem
		if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrTransient) ||
			errors.Is(err, api.ErrRejected) || errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Join(errConfig, err)
	}
	return agent, nil
}
