package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "MEWSFEED"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "mewsfeed.db"
	defaultLogLevel     = "info"
)

// AppConfig captures runtime configuration for the API server. The mew
// character bounds are the deployment validation policy: either side may be
// nil, which leaves that side unrestricted. The policy is read-only at
// runtime.
type AppConfig struct {
	HTTPAddress      string
	DatabasePath     string
	LogLevel         string
	SigningSecret    string
	MewCharactersMin *int
	MewCharactersMax *int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		DatabasePath:  configViper.GetString("database.path"),
		LogLevel:      configViper.GetString("log.level"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
	}

	cfg.MewCharactersMin = optionalBound(configViper, "mew.characters_min")
	cfg.MewCharactersMax = optionalBound(configViper, "mew.characters_max")

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// optionalBound reads a length bound; zero or unset means unrestricted.
func optionalBound(configViper *viper.Viper, key string) *int {
	if !configViper.IsSet(key) {
		return nil
	}
	value := configViper.GetInt(key)
	if value == 0 {
		return nil
	}
	return &value
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.MewCharactersMin != nil && *c.MewCharactersMin < 0 {
		return fmt.Errorf("mew.characters_min must not be negative")
	}
	if c.MewCharactersMax != nil && *c.MewCharactersMax < 0 {
		return fmt.Errorf("mew.characters_max must not be negative")
	}
	if c.MewCharactersMin != nil && c.MewCharactersMax != nil && *c.MewCharactersMin > *c.MewCharactersMax {
		return fmt.Errorf("mew.characters_min must not exceed mew.characters_max")
	}
	return nil
}
