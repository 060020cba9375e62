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

package badger

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/blinklabs-io/rollupdb/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	b := newBlobStoreBadger()
	assert.Equal(t, DefaultSizes(), b.sizes)
	assert.Equal(t, DefaultGcInterval, b.gcInterval)
	assert.True(t, b.gcEnabled)
	assert.Empty(t, b.dataDir)
}

func TestWithSizesKeepsDefaultsForUnsetFields(t *testing.T) {
	b := newBlobStoreBadger(
		WithSizes(Sizes{
			ValueLogFile:   1 << 20,
			MemTable:       1 << 21,
			ValueThreshold: 256,
		}),
	)
	assert.Equal(
		t,
		Sizes{
			BlockCache:     DefaultBlockCacheSize,
			IndexCache:     DefaultIndexCacheSize,
			ValueLogFile:   1 << 20,
			MemTable:       1 << 21,
			ValueThreshold: 256,
		},
		b.sizes,
	)
}

func TestSizesValidate(t *testing.T) {
	testDefs := []struct {
		name    string
		sizes   Sizes
		wantErr string
	}{
		{name: "defaults", sizes: DefaultSizes()},
		{
			name:    "cache beyond int64",
			sizes:   Sizes{BlockCache: math.MaxInt64 + 1}.withDefaults(),
			wantErr: "block cache size",
		},
		{
			name:    "threshold above badger limit",
			sizes:   Sizes{ValueThreshold: maxValueThreshold + 1}.withDefaults(),
			wantErr: "exceeds",
		},
		{
			name: "threshold not below memtable",
			sizes: Sizes{
				MemTable:       4096,
				ValueThreshold: 4096,
			}.withDefaults(),
			wantErr: "memtable",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := testDef.sizes.validate()
			if testDef.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, testDef.wantErr)
		})
	}
}

func TestStartRejectsInvalidSizes(t *testing.T) {
	_, err := New(WithSizes(Sizes{ValueThreshold: maxValueThreshold + 1}))
	require.ErrorContains(t, err, "value threshold")
}

func TestWithGc(t *testing.T) {
	b := newBlobStoreBadger(WithGc(false, 0))
	assert.False(t, b.gcEnabled)
	// Non-positive intervals keep the default
	assert.Equal(t, DefaultGcInterval, b.gcInterval)

	b = newBlobStoreBadger(WithGc(true, time.Minute))
	assert.True(t, b.gcEnabled)
	assert.Equal(t, time.Minute, b.gcInterval)
}

func TestWithLoggerAndRegistry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	b := newBlobStoreBadger(
		WithLogger(logger),
		WithPromRegistry(registry),
		WithDataDir("/tmp/rollupdb"),
	)
	assert.Equal(t, logger, b.logger)
	assert.Equal(t, registry, b.promRegistry)
	assert.Equal(t, "/tmp/rollupdb", b.dataDir)
}

func TestInject(t *testing.T) {
	b := newBlobStoreBadger()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	b.Inject(logger, registry)
	assert.Equal(t, logger, b.logger)
	assert.Equal(t, registry, b.promRegistry)
	// nil values keep what is already set
	b.Inject(nil, nil)
	assert.Equal(t, logger, b.logger)
	assert.Equal(t, registry, b.promRegistry)
}

func TestPluginOptionsReachStore(t *testing.T) {
	// Plugin options are package state
	t.Cleanup(initCmdlineOptions)

	for name, value := range map[string]any{
		"data-dir":            "",
		"value-log-file-size": uint64(2 << 20),
		"memtable-size":       "8388608",
		"value-threshold":     uint64(512),
		"gc":                  false,
		"gc-interval":         "90s",
	} {
		require.NoError(
			t,
			plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", name, value),
			name,
		)
	}

	p := NewFromCmdlineOptions()
	b, ok := p.(*BlobStoreBadger)
	require.True(t, ok)
	assert.Equal(t, uint64(2<<20), b.sizes.ValueLogFile)
	assert.Equal(t, uint64(8388608), b.sizes.MemTable)
	assert.Equal(t, uint64(512), b.sizes.ValueThreshold)
	assert.Equal(t, uint64(DefaultBlockCacheSize), b.sizes.BlockCache)
	assert.False(t, b.gcEnabled)
	assert.Equal(t, 90*time.Second, b.gcInterval)

	require.NoError(t, b.Start())
	require.NoError(t, b.Stop())
}
