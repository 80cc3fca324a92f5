// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "ARGTRACE"
	ConfigDirName  = "argtrace"
	ConfigFileName = "config.yaml"
)

// Config holds defaults for flags that were not given on the command line.
// Every key may also be set from the environment as ARGTRACE_<KEY>.
type Config struct {
	Spec       string `mapstructure:"spec"`
	Format     string `mapstructure:"format"`
	Color      string `mapstructure:"color"`
	Convention string `mapstructure:"convention"`
	Jobs       int    `mapstructure:"jobs"`
}

var configDefaults = map[string]any{
	"spec":       "",
	"format":     "text",
	"color":      "auto",
	"convention": "posix",
	"jobs":       4,
}

// LoadOptions controls how the configuration file is found.
type LoadOptions struct {
	// ExplicitFilePath must exist when set.
	ExplicitFilePath string
	// ConfigDir overrides the user config directory.
	ConfigDir string
}

// LoadConfig reads the config file and the environment. A missing default
// config file is not an error.
func LoadConfig(opts LoadOptions) (Config, error) {
	reader := viper.New()
	for key, value := range configDefaults {
		reader.SetDefault(key, value)
	}
	reader.SetEnvPrefix(EnvPrefix)
	reader.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	reader.AutomaticEnv()

	path, err := resolveConfigPath(opts)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		reader.SetConfigFile(path)
		if err := reader.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read configuration from %s: %w", path, err)
		}
	}

	var cfg Config
	if err := reader.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode configuration: %w", err)
	}
	if cfg.Jobs < 1 {
		return Config{}, fmt.Errorf("jobs must be positive, got %d", cfg.Jobs)
	}
	return cfg, nil
}

// resolveConfigPath returns the file to read, or "" when there is none.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ExplicitFilePath != "" {
		info, err := os.Stat(opts.ExplicitFilePath)
		if err != nil {
			return "", fmt.Errorf("configuration %s: %w", opts.ExplicitFilePath, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("configuration path %s is a directory", opts.ExplicitFilePath)
		}
		return opts.ExplicitFilePath, nil
	}
	dir := opts.ConfigDir
	if dir == "" {
		userDir, err := os.UserConfigDir()
		if err != nil {
			return "", nil
		}
		dir = userDir
	}
	path := filepath.Join(dir, ConfigDirName, ConfigFileName)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat configuration %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("configuration path %s is a directory", path)
	}
	return path, nil
}

// Override returns cfg with every non-empty value from flags applied.
func (cfg Config) Override(spec, format, convention string, jobs int) Config {
	if spec != "" {
		cfg.Spec = spec
	}
	if format != "" {
		cfg.Format = format
	}
	if convention != "" {
		cfg.Convention = convention
	}
	if jobs > 0 {
		cfg.Jobs = jobs
	}
	return cfg
}
