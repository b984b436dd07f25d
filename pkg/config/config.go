// Package config provides YAML or TOML configuration loading with environment variable expansion.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

func isTOML(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".toml")
}

// Load loads configuration from a YAML file, or a TOML file when the name
// ends with .toml, expanding ${ENV} references first.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if isTOML(filename) {
		_, err = toml.Decode(expandedData, target)
	} else {
		err = yaml.Unmarshal([]byte(expandedData), target)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// EnsureDefault writes value to filename when no file exists there yet.
// It reports whether a file was written.
func EnsureDefault[T any](filename string, value *T) (bool, error) {
	if _, err := os.Stat(filename); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat config file %s: %w", filename, err)
	}

	var buf bytes.Buffer
	if isTOML(filename) {
		if err := toml.NewEncoder(&buf).Encode(value); err != nil {
			return false, fmt.Errorf("failed to encode config: %w", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return false, fmt.Errorf("failed to encode config: %w", err)
		}
		_ = enc.Close()
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file %s: %w", filename, err)
	}
	return true, nil
}
