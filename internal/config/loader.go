package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the backend's environment variables.
const envPrefix = "REDPANDA_"

// Load loads configuration with the following precedence (highest first):
//
//  1. REDPANDA_* environment variables (REDPANDA_SERVER_PORT -> server.port)
//  2. YAML config file at configPath, if it exists
//  3. Hardcoded defaults
//
// A .env file in the working directory is read into the environment first,
// if present.
func Load(configPath string) (*Config, error) {
	// Best effort; absence of a .env file is the common case.
	_ = godotenv.Load()

	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
		} else if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	// REDPANDA_OLLAMA_SERVER_URL -> ollama.server_url. The first underscore
	// separates the section; the rest stay as the field name.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
