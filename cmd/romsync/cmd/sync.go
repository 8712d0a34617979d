package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/romsync/romsync"
)

var dryRun bool

// syncCmd runs a single reconciliation pass.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass",
	Long: `Run one reconciliation pass against the configured servers.

With --dry-run the pass computes and prints the change plan without
mutating the Emby library or the identity map.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bridge, _, err := newBridge()
		if err != nil {
			return err
		}
		defer bridge.Close()

		result, err := bridge.Sync(cmd.Context(), romsync.WithDryRun(dryRun))
		if err != nil {
			return err
		}

		fmt.Println(result.Summary())
		for _, failure := range result.Failed {
			fmt.Printf("  failed %s %s: %s\n", failure.Op, failure.ExternalID, failure.Reason)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the change plan without applying it")
	rootCmd.AddCommand(syncCmd)
}
