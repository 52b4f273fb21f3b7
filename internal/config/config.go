// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "descholar.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultDataDir         = ".descholar"
	DefaultContractAddress = "descholar-escrow"
	DefaultTokenSymbol     = "SCH"
	DefaultTokenDecimals   = 7
	envPrefix              = "descholar"
)

var ErrInvalidConfig = errors.New("invalid config")

type tempConfig struct {
	Config *Config `yaml:"config,omitempty"`
}

type Config struct {
	DataDir         string `yaml:"dataDir"         split_words:"true"`
	KeyFile         string `yaml:"keyFile"         split_words:"true"`
	ContractAddress string `yaml:"contractAddress" split_words:"true"`
	TokenSymbol     string `yaml:"tokenSymbol"     split_words:"true"`
	TokenIssuer     string `yaml:"tokenIssuer"     split_words:"true"`
	TokenDecimals   int32  `yaml:"tokenDecimals"   split_words:"true"`
	BlobCacheSize   uint64 `yaml:"blobCacheSize"   split_words:"true"`
	BlobGcDisabled  bool   `yaml:"blobGcDisabled"  split_words:"true"`
	Debug           bool   `yaml:"debug"`
	// Metrics are written here in the Prometheus text format on exit, for
	// the node_exporter textfile collector
	MetricsFile string `yaml:"metricsFile" split_words:"true"`
	// Spans are exported with OTLP/HTTP, configured by the OTEL_EXPORTER_OTLP_* env vars
	Tracing       bool `yaml:"tracing"`
	TracingStdout bool `yaml:"tracingStdout" split_words:"true"`
}

// DefaultConfig returns a new Config populated with default values
func DefaultConfig() *Config {
	return &Config{
		DataDir:         DefaultDataDir,
		ContractAddress: DefaultContractAddress,
		TokenSymbol:     DefaultTokenSymbol,
		TokenDecimals:   DefaultTokenDecimals,
	}
}

// findConfigFile returns the first of ~/.descholar/descholar.yaml and
// /etc/descholar/descholar.yaml that exists
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".descholar", "descholar.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/descholar/descholar.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// LoadConfig builds the config from defaults, then the YAML file, then
// DESCHOLAR_* environment variables. An empty configFile searches the
// default locations.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		// A config: section decodes into the same struct, so keys it omits
		// keep their defaults
		if err := yaml.Unmarshal(buf, &tempConfig{Config: cfg}); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ContractAddress == "" {
		return fmt.Errorf("%w: contractAddress must not be empty", ErrInvalidConfig)
	}
	if c.TokenSymbol == "" {
		return fmt.Errorf("%w: tokenSymbol must not be empty", ErrInvalidConfig)
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 18 {
		return fmt.Errorf(
			"%w: tokenDecimals %d out of range 0-18",
			ErrInvalidConfig,
			c.TokenDecimals,
		)
	}
	return nil
}
