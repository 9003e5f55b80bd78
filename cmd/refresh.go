package cmd

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-country-currency/internal/repo"
	"github.com/tbourn/go-country-currency/internal/services"
)

var refreshKey string

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one cache refresh and print the result",
	Long: `Fetches countries and exchange rates, rebuilds the cache and the summary
image, then prints the refresh result as JSON.

Examples:
  # Refresh using the configuration in .env
  country-currency refresh

  # Safe to retry: a second run with the same key replays the first result
  country-currency refresh --idempotency-key nightly-2025-10-19`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().StringVar(&refreshKey, "idempotency-key", "", "replay the stored result of an earlier refresh with this key")
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := repo.AutoMigrate(a.db); err != nil {
		return err
	}

	svc := services.NewRefreshService(a.db, a.gw, a.store)
	svc.IdempotencyTTL = a.cfg.IdempotencyTTL

	res, err := svc.Refresh(a.log.WithContext(ctx), refreshKey)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
