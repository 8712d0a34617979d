package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/romsync/romsync/internal/clients/romm"
	"github.com/romsync/romsync/internal/config"
	"github.com/romsync/romsync/pkg/catalog"
)

// platformsCmd lists the platforms known to the source server, in the
// YAML shape the platform map file expects, so the output can be saved
// and edited into a custom map.
var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List source platforms as a platform map template",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load()
		if err != nil {
			return err
		}

		client := romm.New(settings.RommURL, settings.RommAPIKey)
		platforms, err := client.Platforms(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("platforms:")
		for _, p := range platforms {
			name := p.Name
			if name == "" {
				name = catalog.NormalizePlatform(p.Slug)
			}
			fmt.Printf("  %s: %s\n", p.Slug, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
