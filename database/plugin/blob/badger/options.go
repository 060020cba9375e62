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
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default sizes for BadgerDB (in bytes). Block status and prover run
// records are small, so these are well below badger's own defaults
const (
	DefaultBlockCacheSize   = 67108864 // 64MB
	DefaultIndexCacheSize   = 33554432 // 32MB
	DefaultValueLogFileSize = 67108864 // 64MB
	DefaultMemTableSize     = 16777216 // 16MB
	DefaultValueThreshold   = 1024

	DefaultGcInterval = 5 * time.Minute

	// badger refuses thresholds above 1MB
	maxValueThreshold = 1 << 20
)

// Sizes groups the badger memory and file sizes. A zero field keeps its
// default
type Sizes struct {
	BlockCache     uint64
	IndexCache     uint64
	ValueLogFile   uint64
	MemTable       uint64
	ValueThreshold uint64
}

// DefaultSizes returns the sizes used when none are configured
func DefaultSizes() Sizes {
	return Sizes{
		BlockCache:     DefaultBlockCacheSize,
		IndexCache:     DefaultIndexCacheSize,
		ValueLogFile:   DefaultValueLogFileSize,
		MemTable:       DefaultMemTableSize,
		ValueThreshold: DefaultValueThreshold,
	}
}

func (s Sizes) withDefaults() Sizes {
	def := DefaultSizes()
	if s.BlockCache == 0 {
		s.BlockCache = def.BlockCache
	}
	if s.IndexCache == 0 {
		s.IndexCache = def.IndexCache
	}
	if s.ValueLogFile == 0 {
		s.ValueLogFile = def.ValueLogFile
	}
	if s.MemTable == 0 {
		s.MemTable = def.MemTable
	}
	if s.ValueThreshold == 0 {
		s.ValueThreshold = def.ValueThreshold
	}
	return s
}

func (s Sizes) validate() error {
	for _, f := range []struct {
		name string
		val  uint64
	}{
		{"block cache size", s.BlockCache},
		{"index cache size", s.IndexCache},
		{"value log file size", s.ValueLogFile},
		{"memtable size", s.MemTable},
	} {
		if f.val > math.MaxInt64 {
			return fmt.Errorf("badger %s too large: %d", f.name, f.val)
		}
	}
	if s.ValueThreshold > maxValueThreshold {
		return fmt.Errorf(
			"badger value threshold %d exceeds %d",
			s.ValueThreshold,
			maxValueThreshold,
		)
	}
	if s.ValueThreshold >= s.MemTable {
		return fmt.Errorf(
			"badger value threshold %d must be below memtable size %d",
			s.ValueThreshold,
			s.MemTable,
		)
	}
	return nil
}

type BlobStoreBadgerOptionFunc func(*BlobStoreBadger)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(
	registry prometheus.Registerer,
) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.promRegistry = registry
	}
}

// WithDataDir specifies the data directory. An empty value keeps the store
// in memory
func WithDataDir(dataDir string) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.dataDir = dataDir
	}
}

// WithSizes overrides the cache, value log, memtable and value threshold
// sizes. Zero fields fall back to DefaultSizes
func WithSizes(sizes Sizes) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.sizes = sizes.withDefaults()
	}
}

// WithGc toggles value log GC for disk-backed stores. A non-positive
// interval keeps DefaultGcInterval
func WithGc(enabled bool, interval time.Duration) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.gcEnabled = enabled
		if interval > 0 {
			b.gcInterval = interval
		}
	}
}
