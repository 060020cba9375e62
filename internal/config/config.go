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
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/rollupdb/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "rollupdb.config"

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
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
	DefaultDatabasePath   = ".rollupdb"
	DefaultQueryTimeout   = "5s"
	DefaultRetryBackoff   = "50ms"
	DefaultMaxRetries     = 3
	DefaultPruneRetention = "72h"
	DefaultDepositSource  = "deposit_contract"
	DefaultWithdrawTarget = "withdraw_contract"
)

const envPrefix = "rollupdb"

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	BlobPlugin     string `yaml:"blobPlugin"     envconfig:"DATABASE_BLOB_PLUGIN"`
	MetadataPlugin string `yaml:"metadataPlugin" envconfig:"DATABASE_METADATA_PLUGIN"`
	DatabasePath   string `yaml:"databasePath"                                     split_words:"true"`
	QueryTimeout   string `yaml:"queryTimeout"                                     split_words:"true"`
	RetryBackoff   string `yaml:"retryBackoff"                                     split_words:"true"`
	// Must exceed the longest delay before a submission's block is sealed
	PruneRetention string `yaml:"pruneRetention"                                   split_words:"true"`
	// Layer 1 contract names shown in transaction views
	DepositSource  string `yaml:"depositSource"                                    split_words:"true"`
	WithdrawTarget string `yaml:"withdrawTarget"                                   split_words:"true"`
	MaxRetries     uint   `yaml:"maxRetries"                                       split_words:"true"`
	Tracing        bool   `yaml:"tracing"`
	TracingStdout  bool   `yaml:"tracingStdout"                                    split_words:"true"`
	Debug          bool   `yaml:"debug"`
}

func defaultConfig() *Config {
	return &Config{
		BlobPlugin:     DefaultBlobPlugin,
		MetadataPlugin: DefaultMetadataPlugin,
		DatabasePath:   DefaultDatabasePath,
		QueryTimeout:   DefaultQueryTimeout,
		RetryBackoff:   DefaultRetryBackoff,
		MaxRetries:     DefaultMaxRetries,
		PruneRetention: DefaultPruneRetention,
		DepositSource:  DefaultDepositSource,
		WithdrawTarget: DefaultWithdrawTarget,
	}
}

var globalConfig = defaultConfig()

// QueryTimeoutDuration parses QueryTimeout
func (c *Config) QueryTimeoutDuration() (time.Duration, error) {
	return parseDuration("queryTimeout", c.QueryTimeout)
}

// RetryBackoffDuration parses RetryBackoff
func (c *Config) RetryBackoffDuration() (time.Duration, error) {
	return parseDuration("retryBackoff", c.RetryBackoff)
}

// PruneRetentionDuration parses PruneRetention
func (c *Config) PruneRetentionDuration() (time.Duration, error) {
	return parseDuration("pruneRetention", c.PruneRetention)
}

func parseDuration(name string, value string) (time.Duration, error) {
	ret, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, value)
	}
	return ret, nil
}

func (c *Config) validate() error {
	if _, err := c.QueryTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.RetryBackoffDuration(); err != nil {
		return err
	}
	if _, err := c.PruneRetentionDuration(); err != nil {
		return err
	}
	if c.BlobPlugin == "" || c.MetadataPlugin == "" {
		return errors.New("blob and metadata plugins must be set")
	}
	return nil
}

// findConfigFile looks for ~/.rollupdb/rollupdb.yaml and then /etc/rollupdb/rollupdb.yaml
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".rollupdb", "rollupdb.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/rollupdb/rollupdb.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// LoadConfig builds the configuration from defaults, the YAML config file and
// the environment, in increasing order of precedence. Plugin sections are
// handed to the plugin registry
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := loadConfigFile(configFile, cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

func loadConfigFile(configFile string, cfg *Config) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config != nil {
		// Overlay the config section onto the defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, cfg); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, cfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	if tempCfg.Database != nil {
		if tempCfg.Database.Blob != nil {
			pluginName, blobConfig := pluginSection("blob", tempCfg.Database.Blob)
			if pluginName != "" {
				cfg.BlobPlugin = pluginName
			}
			mergePluginSection(pluginConfig, "blob", blobConfig)
		}
		if tempCfg.Database.Metadata != nil {
			pluginName, metadataConfig := pluginSection("metadata", tempCfg.Database.Metadata)
			if pluginName != "" {
				cfg.MetadataPlugin = pluginName
			}
			mergePluginSection(pluginConfig, "metadata", metadataConfig)
		}
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// pluginSection splits a database.<type> section into the selected plugin
// name and the per-plugin option maps
func pluginSection(
	sectionName string,
	section map[string]any,
) (string, map[string]map[string]any) {
	var pluginName string
	if pluginVal, exists := section["plugin"]; exists {
		if tmpName, ok := pluginVal.(string); ok {
			pluginName = tmpName
		}
	}
	ret := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			ret[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				sectionName,
				k,
				v,
			)
		}
	}
	return pluginName, ret
}

func mergePluginSection(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	section map[string]map[string]any,
) {
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = section
		return
	}
	maps.Copy(pluginConfig[pluginType], section)
}

func GetConfig() *Config {
	return globalConfig
}
