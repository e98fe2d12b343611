// Copyright 2025 Property Underwriter
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

// Package config loads the aggregation service configuration from a YAML
// file with ${ENV_VAR} expansion, falling back to environment variables when
// no file is given. The engine itself never reads credentials directly; it
// only consumes the values resolved here.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the file or environment leaves settings unset.
const (
	DefaultPort                    = "8080"
	DefaultCacheTTLMinutes         = 60
	DefaultProviderTimeoutSeconds  = 10
	DefaultGlobalDeadlineSeconds   = 15
	DefaultMarketplaceMaxResults   = 10
	DefaultMarketplaceMaxRetries   = 2
	DefaultMarketplaceBackoffMilli = 500
)

// Config is the root configuration for the aggregation service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Cache       CacheConfig       `yaml:"cache"`
	Database    DatabaseConfig    `yaml:"database"`
	Features    FeatureFlags      `yaml:"features"`
	Providers   ProvidersConfig   `yaml:"providers"`
}

// ServerConfig configures the thin HTTP layer.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// AggregationConfig bounds one aggregation run.
type AggregationConfig struct {
	GlobalDeadlineSeconds int `yaml:"global_deadline_seconds"`
}

// GlobalDeadline returns the fan-out deadline as a duration.
func (a AggregationConfig) GlobalDeadline() time.Duration {
	secs := a.GlobalDeadlineSeconds
	if secs <= 0 {
		secs = DefaultGlobalDeadlineSeconds
	}
	return time.Duration(secs) * time.Second
}

// CacheConfig selects and sizes the response cache backend.
type CacheConfig struct {
	Backend    string `yaml:"backend"` // "memory" (default) or "redis"
	TTLMinutes int    `yaml:"ttl_minutes"`
	Capacity   int    `yaml:"capacity"`
	RedisURL   string `yaml:"redis_url"`
}

// TTL returns the cache validity window as a duration.
func (c CacheConfig) TTL() time.Duration {
	minutes := c.TTLMinutes
	if minutes <= 0 {
		minutes = DefaultCacheTTLMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// DatabaseConfig configures the persistence sink.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// FeatureFlags gate optional behavior.
type FeatureFlags struct {
	EnableComps           bool `yaml:"enable_comps"`
	UseMockIfUnconfigured bool `yaml:"use_mock_if_unconfigured"`
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	Rentcast    ProviderConfig    `yaml:"rentcast"`
	Estated     ProviderConfig    `yaml:"estated"`
	HudFmr      ProviderConfig    `yaml:"hud_fmr"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
}

// ProviderConfig is the common shape for one external source.
type ProviderConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call timeout as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	secs := p.TimeoutSeconds
	if secs <= 0 {
		secs = DefaultProviderTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// Configured reports whether the provider has usable credentials.
func (p ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

// MarketplaceConfig extends ProviderConfig with retry and result settings
// for the feature-flagged comps source.
type MarketplaceConfig struct {
	ProviderConfig `yaml:",inline"`
	MaxResults     int `yaml:"max_results"`
	MaxRetries     int `yaml:"max_retries"`
	BackoffMillis  int `yaml:"backoff_ms"`
}

// Backoff returns the initial retry backoff as a duration.
func (m MarketplaceConfig) Backoff() time.Duration {
	ms := m.BackoffMillis
	if ms <= 0 {
		ms = DefaultMarketplaceBackoffMilli
	}
	return time.Duration(ms) * time.Millisecond
}

// envVarRe matches ${VAR_NAME} placeholders in config files.
var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads a YAML config file, expanding ${ENV_VAR} placeholders from the
// process environment. Unset variables expand to the empty string.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// FromEnv builds a configuration from environment variables alone, used when
// no config file is provided.
func FromEnv() *Config {
	cfg := &Config{
		Server:   ServerConfig{Port: os.Getenv("PORT")},
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Cache: CacheConfig{
			Backend:  os.Getenv("CACHE_BACKEND"),
			RedisURL: os.Getenv("REDIS_URL"),
		},
		Features: FeatureFlags{
			EnableComps:           os.Getenv("ENABLE_COMPS") == "true",
			UseMockIfUnconfigured: os.Getenv("USE_MOCK_IF_UNCONFIGURED") != "false",
		},
		Providers: ProvidersConfig{
			Rentcast: ProviderConfig{
				APIKey:  os.Getenv("RENTCAST_API_KEY"),
				BaseURL: os.Getenv("RENTCAST_BASE_URL"),
			},
			Estated: ProviderConfig{
				APIKey:  os.Getenv("ESTATED_API_KEY"),
				BaseURL: os.Getenv("ESTATED_BASE_URL"),
			},
			HudFmr: ProviderConfig{
				APIKey:  os.Getenv("HUD_FMR_API_KEY"),
				BaseURL: os.Getenv("HUD_FMR_BASE_URL"),
			},
			Marketplace: MarketplaceConfig{
				ProviderConfig: ProviderConfig{
					APIKey:  os.Getenv("MARKETPLACE_API_KEY"),
					BaseURL: os.Getenv("MARKETPLACE_BASE_URL"),
				},
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = DefaultCacheTTLMinutes
	}
	if c.Aggregation.GlobalDeadlineSeconds <= 0 {
		c.Aggregation.GlobalDeadlineSeconds = DefaultGlobalDeadlineSeconds
	}
	if c.Providers.Marketplace.MaxResults <= 0 {
		c.Providers.Marketplace.MaxResults = DefaultMarketplaceMaxResults
	}
	if c.Providers.Marketplace.MaxRetries <= 0 {
		c.Providers.Marketplace.MaxRetries = DefaultMarketplaceMaxRetries
	}
}
