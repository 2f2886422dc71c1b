package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kyri56xcaesar/kanban/internal/kanban"
)

var (
	version = "dev"
	commit  = "none"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "kanban",
	Short:   "Board, column and task management API",
	Version: version + " (" + commit + ")",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return kanban.InitAndServe(configPath)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := kanban.Migrate(configPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/kanban.env", "path to the .env configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
