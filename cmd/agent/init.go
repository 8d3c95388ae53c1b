package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foldsync/foldsync/internal/client/config"
	"github.com/foldsync/foldsync/internal/utils"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var serverURL string
	var apiKey string
	var localPath string
	var deviceName string

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the agent config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			configPath, _ := cmd.Flags().GetString("config")
			if utils.FileExists(configPath) {
				return errors.Join(errConfig,
					fmt.Errorf("config %q already exists", configPath))
			}

			cfg := &config.Config{
				APIURL:     serverURL,
				APIKey:     apiKey,
				LocalPath:  localPath,
				DeviceName: deviceName,
				Path:       configPath,
			}
			if err := cfg.Validate(); err != nil {
				return errors.Join(errConfig, err)
			}
			if err := cfg.Save(); err != nil {
				return errors.Join(errConfig, err)
			}

			fmt.Printf("config written to %s\n", configPath)
			fmt.Printf("  server: %s\n", cfg.APIURL)
			fmt.Printf("  folder: %s\n", cfg.LocalPath)
			fmt.Printf("  device: %s\n", cfg.DeviceName)
			return nil
		},
	}

	initCmd.Flags().SortFlags = false
	initCmd.Flags().StringVarP(&serverURL, "server", "s", "", "FoldSync server URL")
	initCmd.Flags().StringVarP(&apiKey, "key", "k", "", "Folder api key")
	initCmd.Flags().StringVarP(&localPath, "dir", "d", "", "Local folder to sync")
	initCmd.Flags().StringVar(&deviceName, "device", "", "Device name (defaults to hostname)")
	initCmd.MarkFlagRequired("server")
	initCmd.MarkFlagRequired("key")
	initCmd.MarkFlagRequired("dir")

	return initCmd
}
