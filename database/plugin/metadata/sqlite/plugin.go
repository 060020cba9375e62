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

package sqlite

import (
	"sync"
	"time"

	"github.com/blinklabs-io/rollupdb/database/plugin"
)

var (
	cmdlineOptions struct {
		dataDir        string
		busyTimeout    time.Duration
		vacuumInterval time.Duration
	}
	cmdlineOptionsMutex sync.RWMutex
)

// initCmdlineOptions sets default values for cmdlineOptions
func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.dataDir = ".rollupdb"
	cmdlineOptions.busyTimeout = DefaultBusyTimeout
	cmdlineOptions.vacuumInterval = DefaultVacuumInterval
}

// Register plugin
func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Data directory for sqlite storage",
					DefaultValue: ".rollupdb",
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "busy-timeout",
					Type:         plugin.PluginOptionTypeDuration,
					Description:  "Time to wait on a locked database",
					DefaultValue: DefaultBusyTimeout,
					Dest:         &(cmdlineOptions.busyTimeout),
				},
				{
					Name:         "vacuum-interval",
					Type:         plugin.PluginOptionTypeDuration,
					Description:  "Interval between VACUUM runs, 0 to disable",
					DefaultValue: DefaultVacuumInterval,
					Dest:         &(cmdlineOptions.vacuumInterval),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	dataDir := cmdlineOptions.dataDir
	busyTimeout := cmdlineOptions.busyTimeout
	vacuumInterval := cmdlineOptions.vacuumInterval
	cmdlineOptionsMutex.RUnlock()

	opts := []SqliteOptionFunc{
		WithDataDir(dataDir),
		WithBusyTimeout(busyTimeout),
		WithVacuumInterval(vacuumInterval),
		// Logger and promRegistry are injected before Start()
	}
	p, err := NewWithOptions(opts...)
	if err != nil {
		// Return a plugin that defers the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
