package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/prime-system/prime-agent/pkg/logger"
)

// Load reads path, expands ${VAR} references against the process
// environment, and unmarshals the result into a Config seeded with
// Default() so an omitted section keeps its default value. Comments in the
// source file are never rewritten: expansion happens on the in-memory
// bytes handed to viper, not on disk.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	expanded := os.Expand(string(raw), lookupEnv)

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config %q: %w", path, err)
	}
	return cfg, nil
}

// lookupEnv backs os.Expand's ${VAR} substitution. A reference to an unset
// variable expands to the empty string rather than the literal
// "${VAR}" — the same behavior os.ExpandEnv gives, made explicit here so
// the expansion step is visible in one place.
func lookupEnv(name string) string {
	v, ok := os.LookupEnv(name)
	if !ok {
		logger.WarnX(moduleName, "config references unset environment variable %q", name)
	}
	return v
}

const moduleName = "config"
