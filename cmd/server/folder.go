package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foldsync/foldsync/internal/db"
	"github.com/foldsync/foldsync/internal/server"
	"github.com/foldsync/foldsync/internal/server/store"
	"github.com/foldsync/foldsync/internal/utils"
)

func init() {
	folderCmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage synced folders",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
	}
	folderCmd.AddCommand(newFolderAddCmd(), newFolderListCmd())
	rootCmd.AddCommand(folderCmd)
}

func newFolderAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Provision a folder and print its api key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			manifestStore, err := openStore()
			if err != nil {
				return err
			}
			defer manifestStore.Close()

			folder, err := manifestStore.CreateFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("folder %q created\n", folder.Name)
			fmt.Printf("  id:      %s\n", folder.ID)
			fmt.Printf("  api key: %s\n", folder.APIKey)
			return nil
		},
	}
}

func newFolderListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provisioned folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			manifestStore, err := openStore()
			if err != nil {
				return err
			}
			defer manifestStore.Close()

			folders, err := manifestStore.ListFolders(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED")
			for _, folder := range folders {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					folder.ID, folder.Name, folder.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

// openStore opens the manifest store directly; admin commands run against
// the same database the server uses, without the HTTP layer.
func openStore() (*store.Store, error) {
	cfg := &server.Config{DataDir: viper.GetString("data_dir")}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(cfg.DataDir); err != nil {
		return nil, err
	}

	sqlDB, err := db.NewSqliteDB(db.WithPath(cfg.DBPath()))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return store.New(sqlDB)
}
