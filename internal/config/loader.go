package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if PODIUM_CONFIG is set, or the explicit path argument
//  3. env (prefix PODIUM_)
func Load(_ context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("PODIUM_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: PODIUM_DATABASE_DIR, PODIUM_PLACEMENT_LIMIT, ...
	// Keys map to koanf tags with underscores preserved.
	envProvider := env.Provider("PODIUM_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "podium_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if cfg.DatabaseDir == "" {
		return nil, fmt.Errorf("%w: database_dir must not be empty", ErrInvalidConfig)
	}
	if cfg.PlacementLimit <= 0 {
		return nil, fmt.Errorf("%w: placement_limit must be positive", ErrInvalidConfig)
	}
	if !strings.Contains(cfg.ProbeURLPattern, "%s") {
		return nil, fmt.Errorf("%w: probe_url_pattern needs a %%s placeholder", ErrInvalidConfig)
	}
	return &cfg, nil
}
