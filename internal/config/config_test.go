package config

import (
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("unexpected http address: %s", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != defaultDatabasePath {
		t.Fatalf("unexpected database path: %s", cfg.DatabasePath)
	}
	if cfg.MewCharactersMin != nil || cfg.MewCharactersMax != nil {
		t.Fatalf("expected unrestricted bounds by default")
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	configViper := NewViper()

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for missing signing secret")
	}
}

func TestLoadParsesOptionalBounds(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")
	configViper.Set("mew.characters_min", 5)
	configViper.Set("mew.characters_max", 200)

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.MewCharactersMin == nil || *cfg.MewCharactersMin != 5 {
		t.Fatalf("unexpected minimum bound: %#v", cfg.MewCharactersMin)
	}
	if cfg.MewCharactersMax == nil || *cfg.MewCharactersMax != 200 {
		t.Fatalf("unexpected maximum bound: %#v", cfg.MewCharactersMax)
	}
}

func TestLoadTreatsZeroBoundAsUnrestricted(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")
	configViper.Set("mew.characters_min", 0)
	configViper.Set("mew.characters_max", 0)

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.MewCharactersMin != nil || cfg.MewCharactersMax != nil {
		t.Fatalf("expected zero bounds to mean unrestricted")
	}
}

func TestLoadRejectsInvertedBounds(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")
	configViper.Set("mew.characters_min", 300)
	configViper.Set("mew.characters_max", 200)

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for min above max")
	}
}
