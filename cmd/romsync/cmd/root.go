package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/romsync/romsync"
	"github.com/romsync/romsync/internal/clients/emby"
	"github.com/romsync/romsync/internal/clients/romm"
	"github.com/romsync/romsync/internal/config"
	"github.com/romsync/romsync/pkg/catalog"
	"github.com/romsync/romsync/pkg/identity"
	"github.com/romsync/romsync/pkg/logging"
	"github.com/romsync/romsync/pkg/reconcile"
)

var (
	configFile string
	verbose    bool
	quiet      bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "romsync",
	Short: "RomM to Emby library bridge",
	Long: `Romsync mirrors a RomM game library into an Emby media server.

Each pass compares the RomM collection against the Emby game library
through a persistent identity map and applies the difference: new roms
become Emby items, changed metadata is pushed as minimal updates, and
roms removed from RomM are removed from Emby. Items romsync did not
create are never touched.`,
}

// Execute adds all child commands to the root command and runs the CLI.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.romsync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".romsync")
	}

	// Load .env files first, before Viper env binding. .env.local
	// overrides .env.
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(envFile)
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	config.BindEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		logging.Debug().Str("file", viper.ConfigFileUsed()).Msg("Using config file")
	}

	configureLogging()
}

// configureLogging sets up the logging system based on configuration.
func configureLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}

	cfg := &logging.Config{
		Level:     level.String(),
		Format:    os.Getenv("LOG_FORMAT"),
		Output:    os.Getenv("LOG_OUTPUT"),
		AddCaller: level <= zerolog.DebugLevel,
	}
	if cfg.Format == "" {
		cfg.Format = "auto"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
	logging.Configure(cfg)
}

// newBridge assembles the bridge from the loaded settings. The returned
// Bridge owns the identity store; callers must Close it.
func newBridge() (romsync.Bridge, *config.Settings, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var platforms *catalog.PlatformMap
	if settings.PlatformMapPath != "" {
		platforms, err = catalog.LoadPlatformMap(settings.PlatformMapPath)
		if err != nil {
			return nil, nil, err
		}
	}

	store, err := identity.OpenSQLite(settings.DBPath)
	if err != nil {
		return nil, nil, err
	}

	source := romm.New(settings.RommURL, settings.RommAPIKey, romm.WithPlatformMap(platforms))
	target := emby.New(settings.EmbyURL, settings.EmbyAPIKey)

	bridge, err := romsync.New(
		romsync.WithSource(source),
		romsync.WithTarget(target),
		romsync.WithStore(store),
		romsync.WithWorkers(settings.Workers),
		romsync.WithInterval(settings.Interval),
		romsync.WithRetry(reconcile.DefaultRetryPolicy),
	)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return bridge, settings, nil
}
