package command

import (
	"github.com/spf13/cobra"

	"winery-tank-backend/internal/db"
	"winery-tank-backend/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the subscription and shipment tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Init migrates as part of opening the connection.
		if _, err := db.Init(&cfg.Database); err != nil {
			return err
		}
		log.Info(cmd.Context(), "database schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
