package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foldsync/foldsync/internal/server"
	"github.com/foldsync/foldsync/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "foldsync-server",
	Short:   "FoldSync Server CLI",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		slog.Info("foldsync-server",
			"version", version.Version, "revision", version.Revision, "build", version.BuildDate)

		srv, err := server.New(serverConfig())
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		return srv.Start(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Directory for the manifest database and blobs")
	rootCmd.Flags().StringP("bind", "b", server.DefaultAddr, "Address to bind the server")
	rootCmd.Flags().String("cert", "", "Path to the TLS certificate file")
	rootCmd.Flags().String("key", "", "Path to the TLS key file")
	rootCmd.Flags().Duration("delete-window", server.DefaultRecentDeleteWindow,
		"How long delete tombstones are retained (0 keeps them forever)")
}

func main() {
	// a .env next to the binary is the dev-time config path
	godotenv.Load()

	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	viper.BindPFlag("data_dir", cmd.Flags().Lookup("data-dir"))
	viper.BindPFlag("bind", cmd.Flags().Lookup("bind"))
	viper.BindPFlag("cert", cmd.Flags().Lookup("cert"))
	viper.BindPFlag("key", cmd.Flags().Lookup("key"))
	viper.BindPFlag("delete_window", cmd.Flags().Lookup("delete-window"))

	viper.SetEnvPrefix("FOLDSYNC")
	viper.AutomaticEnv()
	return nil
}

func serverConfig() *server.Config {
	return &server.Config{
		HTTP: server.HTTPConfig{
			Addr:     viper.GetString("bind"),
			CertFile: viper.GetString("cert"),
			KeyFile:  viper.GetString("key"),
		},
		DataDir:            viper.GetString("data_dir"),
		RecentDeleteWindow: viper.GetDuration("delete_window"),
	}
}
