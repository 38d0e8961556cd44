package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rvkernel/pkg/logging"
)

// LoadConfig reads the YAML file at path over the defaults. A missing file
// yields the defaults. The result is validated before it is returned.
func LoadConfig(path string) (KernelConfig, error) {
	config := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config found at %s, using defaults", path)
			return config, nil
		}
		return KernelConfig{}, &LoadError{
			FilePath:  path,
			ErrorType: "io",
			Message:   err.Error(),
			Err:       err,
		}
	}

	config, err = Parse(data)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.FilePath = path
		}
		return KernelConfig{}, err
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s (%d services)", path, len(config.Services))
	return config, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (KernelConfig, error) {
	config := GetDefaultConfig()

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return KernelConfig{}, &LoadError{
			ErrorType:   "parse",
			Message:     err.Error(),
			Suggestions: []string{"Check the YAML syntax and indentation"},
			Err:         err,
		}
	}
	if len(node.Content) > 0 {
		if err := node.Decode(&config); err != nil {
			return KernelConfig{}, &LoadError{
				ErrorType:   "parse",
				Message:     err.Error(),
				LineNumber:  node.Line,
				Suggestions: []string{"Durations are written like 500ms, 5s or 1m"},
				Err:         err,
			}
		}
	}

	if err := config.Validate(); err != nil {
		return KernelConfig{}, &LoadError{
			ErrorType: "validation",
			Message:   err.Error(),
			Err:       err,
		}
	}
	return config, nil
}

// Marshal encodes config as YAML.
func Marshal(config KernelConfig) ([]byte, error) {
	out, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	return out, nil
}
