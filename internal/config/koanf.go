// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"warden.yaml",
	"warden.yml",
	"/etc/warden/warden.yaml",
	"/etc/warden/warden.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "WARDEN_CONFIG"

// Load builds a Config from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file (rule tables live here)
//  3. Environment variables (highest priority)
//
// The result is normalized and validated; a non-nil error means the
// configuration was rejected and nothing should start.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	cfg.Normalize()
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("configuration rejected: %w", joinValidationErrors(errs))
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// FindConfigFile returns the first existing config file path, or "".
func FindConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings is the allowlist of environment variables. Unmapped variables
// are ignored so random environment noise cannot pollute the configuration.
var envMappings = map[string]string{
	"warden_enabled":            "engine.enabled",
	"warden_decay_window":       "engine.decay_window",
	"warden_flush_interval":     "engine.flush_interval",
	"warden_max_record_bytes":   "engine.max_record_bytes",
	"warden_default_restrict":   "engine.default_restrict_duration",
	"warden_purge_max_age":      "engine.purge_max_age",
	"warden_notify_enabled":     "engine.notify_enabled",
	"warden_notify_rate_every":  "engine.notify_rate_every",
	"warden_notify_burst":       "engine.notify_burst",
	"warden_db_path":            "database.path",
	"warden_modlog_enabled":     "modlog.enabled",
	"warden_modlog_retention":   "modlog.retention_days",
	"warden_modlog_buffer_size": "modlog.buffer_size",
	"log_level":                 "logging.level",
	"log_format":                "logging.format",
	"log_caller":                "logging.caller",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile invokes callback whenever the config file changes. The
// callback is responsible for loading, validating, and swapping the new
// configuration through a Provider.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}

func joinValidationErrors(errs []ValidationError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
