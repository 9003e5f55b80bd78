package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tbourn/go-country-currency/internal/repo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := repo.AutoMigrate(a.db); err != nil {
			return err
		}
		a.log.Info().Str("driver", a.cfg.Database.Driver).Msg("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
