package cmd

import (
	"github.com/spf13/cobra"

	"github.com/romsync/romsync/pkg/logging"
)

// watchCmd runs passes on the configured interval until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile continuously on the configured interval",
	Long: `Run an immediate reconciliation pass, then keep reconciling on the
configured interval (ROMSYNC_INTERVAL, default 15m) until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bridge, settings, err := newBridge()
		if err != nil {
			return err
		}
		defer bridge.Close()

		ctx := cmd.Context()

		// First pass runs immediately; scheduled passes follow.
		result, err := bridge.Sync(ctx)
		if err != nil {
			return err
		}
		logging.Info().Str("summary", result.Summary()).Msg("Initial pass finished")

		if err := bridge.AutoSyncOn(); err != nil {
			return err
		}
		logging.Info().Dur("interval", settings.Interval).Msg("Watching for changes")

		<-ctx.Done()
		logging.Info().Msg("Shutting down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
