// Package config loads bridge settings from Viper-backed configuration:
// environment variables, .env files loaded by the CLI, and an optional
// YAML config file.
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/romsync/romsync/pkg/errors"
)

// Configuration keys. Environment variables use the same names.
const (
	KeyRommURL      = "ROMM_URL"
	KeyRommAPIKey   = "ROMM_API_KEY"
	KeyEmbyURL      = "EMBY_URL"
	KeyEmbyAPIKey   = "EMBY_API_KEY"
	KeyDBPath       = "ROMSYNC_DB"
	KeyPlatformMap  = "ROMSYNC_PLATFORM_MAP"
	KeyWorkers      = "ROMSYNC_WORKERS"
	KeySyncInterval = "ROMSYNC_INTERVAL"
)

// Settings holds the assembled bridge configuration.
type Settings struct {
	RommURL         string
	RommAPIKey      string
	EmbyURL         string
	EmbyAPIKey      string
	DBPath          string
	PlatformMapPath string
	Workers         int
	Interval        time.Duration
}

// BindEnv registers all configuration keys with Viper so environment
// variables are visible even without a config file.
func BindEnv() {
	keys := []string{
		KeyRommURL, KeyRommAPIKey, KeyEmbyURL, KeyEmbyAPIKey,
		KeyDBPath, KeyPlatformMap, KeyWorkers, KeySyncInterval,
	}
	for _, key := range keys {
		// BindEnv only fails on an empty key.
		_ = viper.BindEnv(key)
	}
}

// GetString reads a string value, checking the OS environment directly
// when Viper has no value for the key.
func GetString(key string) string {
	if value := viper.GetString(key); value != "" {
		return value
	}
	return os.Getenv(key)
}

// Load assembles and validates the bridge settings.
func Load() (*Settings, error) {
	s := &Settings{
		RommURL:         GetString(KeyRommURL),
		RommAPIKey:      GetString(KeyRommAPIKey),
		EmbyURL:         GetString(KeyEmbyURL),
		EmbyAPIKey:      GetString(KeyEmbyAPIKey),
		DBPath:          GetString(KeyDBPath),
		PlatformMapPath: GetString(KeyPlatformMap),
		Workers:         viper.GetInt(KeyWorkers),
		Interval:        viper.GetDuration(KeySyncInterval),
	}

	if s.DBPath == "" {
		s.DBPath = "romsync.db"
	}
	if s.Workers <= 0 {
		s.Workers = 4
	}
	if s.Interval <= 0 {
		s.Interval = 15 * time.Minute
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.RommURL == "" {
		return &errors.ValidationError{Field: KeyRommURL, Message: "source server URL is required"}
	}
	if s.EmbyURL == "" {
		return &errors.ValidationError{Field: KeyEmbyURL, Message: "target server URL is required"}
	}
	if s.EmbyAPIKey == "" {
		return &errors.ValidationError{Field: KeyEmbyAPIKey, Message: "target API key is required"}
	}
	return nil
}
