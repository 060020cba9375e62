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
	"sync"
	"time"

	"github.com/blinklabs-io/rollupdb/database/plugin"
)

var (
	cmdlineOptions struct {
		dataDir    string
		sizes      Sizes
		gcInterval time.Duration
		gcEnabled  bool
	}
	cmdlineOptionsMutex sync.RWMutex
)

// initCmdlineOptions sets default values for cmdlineOptions
func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.sizes = DefaultSizes()
	cmdlineOptions.gcInterval = DefaultGcInterval
	cmdlineOptions.gcEnabled = true
	cmdlineOptions.dataDir = ".rollupdb"
}

// Register plugin
func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB local key-value store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Data directory for badger storage",
					DefaultValue: ".rollupdb",
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "block-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger block cache size",
					DefaultValue: uint64(DefaultBlockCacheSize),
					Dest:         &(cmdlineOptions.sizes.BlockCache),
				},
				{
					Name:         "index-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger index cache size",
					DefaultValue: uint64(DefaultIndexCacheSize),
					Dest:         &(cmdlineOptions.sizes.IndexCache),
				},
				{
					Name:         "value-log-file-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger value log file size",
					DefaultValue: uint64(DefaultValueLogFileSize),
					Dest:         &(cmdlineOptions.sizes.ValueLogFile),
				},
				{
					Name:         "memtable-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger memtable size",
					DefaultValue: uint64(DefaultMemTableSize),
					Dest:         &(cmdlineOptions.sizes.MemTable),
				},
				{
					Name:         "value-threshold",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Values at or above this size go to the value log",
					DefaultValue: uint64(DefaultValueThreshold),
					Dest:         &(cmdlineOptions.sizes.ValueThreshold),
				},
				{
					Name:         "gc",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "Enable value log garbage collection",
					DefaultValue: true,
					Dest:         &(cmdlineOptions.gcEnabled),
				},
				{
					Name:         "gc-interval",
					Type:         plugin.PluginOptionTypeDuration,
					Description:  "Interval between value log GC runs",
					DefaultValue: DefaultGcInterval,
					Dest:         &(cmdlineOptions.gcInterval),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []BlobStoreBadgerOptionFunc{
		WithDataDir(cmdlineOptions.dataDir),
		WithSizes(cmdlineOptions.sizes),
		WithGc(cmdlineOptions.gcEnabled, cmdlineOptions.gcInterval),
	}
	cmdlineOptionsMutex.RUnlock()
	// The database is opened in Start(), after the host injects its logger
	return newBlobStoreBadger(opts...)
}
