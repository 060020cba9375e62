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

package plugin_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/rollupdb/database/plugin"
	_ "github.com/blinklabs-io/rollupdb/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/rollupdb/database/plugin/metadata/sqlite"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type optionPlugin struct{}

func (o *optionPlugin) Start() error { return nil }
func (o *optionPlugin) Stop() error  { return nil }

var testOptions struct {
	name    string
	count   uint64
	enabled bool
	timeout time.Duration
}

func registerOptionPlugin(t *testing.T) string {
	pluginName := "option-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               pluginName,
		NewFromOptionsFunc: func() plugin.Plugin { return &optionPlugin{} },
		Options: []plugin.PluginOption{
			{
				Name:         "name",
				Type:         plugin.PluginOptionTypeString,
				DefaultValue: "default",
				Dest:         &(testOptions.name),
			},
			{
				Name:         "count",
				Type:         plugin.PluginOptionTypeUint,
				DefaultValue: uint64(1),
				Dest:         &(testOptions.count),
			},
			{
				Name:         "enabled",
				Type:         plugin.PluginOptionTypeBool,
				DefaultValue: false,
				Dest:         &(testOptions.enabled),
			},
			{
				Name:         "timeout",
				Type:         plugin.PluginOptionTypeDuration,
				DefaultValue: time.Second,
				Dest:         &(testOptions.timeout),
			},
		},
	})
	return pluginName
}

func TestSetPluginOption(t *testing.T) {
	// NOTE: This test modifies global plugin state via SetPluginOption.
	// Tests in this package are run sequentially.

	// Set data-dir for sqlite plugin to an empty string (in-memory) and ensure no error
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "sqlite", "data-dir", ""); err != nil {
		t.Fatalf("unexpected error setting sqlite data-dir: %v", err)
	}

	// Setting with wrong type should return an error
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "sqlite", "data-dir", 123); err == nil {
		t.Fatalf(
			"expected type error when setting sqlite data-dir with int, got nil",
		)
	}

	// Setting an unknown option is a no-op (non-fatal) so should not return an error
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "sqlite", "does-not-exist", "x"); err != nil {
		t.Fatalf("unexpected error when setting unknown option: %v", err)
	}

	// Test setting data-dir for badger plugin (blob type)
	if err := plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "data-dir", t.TempDir()); err != nil {
		t.Fatalf("unexpected error setting badger data-dir: %v", err)
	}

	// Test uint option handling for badger block-cache-size
	if err := plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "block-cache-size", uint64(100000000)); err != nil {
		t.Fatalf("unexpected error setting badger block-cache-size: %v", err)
	}

	// Test bool option handling for badger gc
	if err := plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc", true); err != nil {
		t.Fatalf("unexpected error setting badger gc: %v", err)
	}

	// Test plugin not found error
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "nonexistent", "data-dir", t.TempDir()); err == nil {
		t.Fatalf(
			"expected error when setting option for nonexistent plugin, got nil",
		)
	}

	// Leave the shared plugins pointing at in-memory storage for other tests
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "data-dir", ""))
}

func TestProcessConfig(t *testing.T) {
	pluginName := registerOptionPlugin(t)
	err := plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			pluginName: {
				"name":    "from-config",
				"count":   42,
				"enabled": true,
				"timeout": "3s",
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-config", testOptions.name)
	assert.Equal(t, uint64(42), testOptions.count)
	assert.True(t, testOptions.enabled)
	assert.Equal(t, 3*time.Second, testOptions.timeout)

	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"bogus": {pluginName: {"name": "x"}},
	})
	require.Error(t, err)
}

func TestProcessEnvVars(t *testing.T) {
	pluginName := registerOptionPlugin(t)
	opt := plugin.PluginOption{Name: "count"}
	envName := opt.EnvVarName("metadata", pluginName)
	assert.Equal(t, "ROLLUPDB_DATABASE_METADATA_OPTION_PLUGIN_TESTPROCESSENVVARS_COUNT", envName)
	t.Setenv(envName, "7")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, uint64(7), testOptions.count)

	t.Setenv(envName, "not-a-number")
	require.Error(t, plugin.ProcessEnvVars())
}

func TestPopulateCmdlineOptions(t *testing.T) {
	pluginName := registerOptionPlugin(t)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	require.NotNil(t, fs.Lookup("blob-badger-data-dir"))
	require.NotNil(t, fs.Lookup("metadata-sqlite-data-dir"))
	require.NoError(t, fs.Parse([]string{"--metadata-" + pluginName + "-name=from-flag"}))
	assert.Equal(t, "from-flag", testOptions.name)
}

func TestStartPluginNotFound(t *testing.T) {
	_, err := plugin.StartPlugin(plugin.PluginTypeBlob, "missing-"+t.Name(), nil, nil)
	require.Error(t, err)
}
