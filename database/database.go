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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/rollupdb/database/plugin"
	"github.com/blinklabs-io/rollupdb/database/plugin/blob"
	"github.com/blinklabs-io/rollupdb/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
	DefaultQueryTimeout   = 5 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryBackoff   = 50 * time.Millisecond
)

// Config selects the storage plugins and the store access policy. An empty
// DataDir keeps both stores in memory
type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	DataDir        string
	BlobPlugin     string
	MetadataPlugin string
	// QueryTimeout bounds each individual store call
	QueryTimeout time.Duration
	// RetryBackoff is the initial wait before retrying a transient read failure
	RetryBackoff time.Duration
	// MaxRetries is the number of retries after the first attempt of a read.
	// Zero selects DefaultMaxRetries
	MaxRetries uint
}

type Database struct {
	config   Config
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	metrics  *databaseMetrics
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.config.PromRegistry != nil {
		d.metrics = newDatabaseMetrics(d.config.PromRegistry)
	}
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New opens the configured metadata and blob plugins
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	cfg := *config
	if cfg.BlobPlugin == "" {
		cfg.BlobPlugin = DefaultBlobPlugin
	}
	if cfg.MetadataPlugin == "" {
		cfg.MetadataPlugin = DefaultMetadataPlugin
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	// Both plugin types share the data dir. Plugins without a data-dir
	// option ignore it
	for pluginType, pluginName := range map[plugin.PluginType]string{
		plugin.PluginTypeBlob:     cfg.BlobPlugin,
		plugin.PluginTypeMetadata: cfg.MetadataPlugin,
	} {
		if err := plugin.SetPluginOption(pluginType, pluginName, "data-dir", cfg.DataDir); err != nil {
			return nil, fmt.Errorf("set data dir: %w", err)
		}
	}
	metadataDb, err := metadata.New(cfg.MetadataPlugin, cfg.Logger, cfg.PromRegistry)
	if err != nil {
		return nil, err
	}
	blobDb, err := blob.New(cfg.BlobPlugin, cfg.Logger, cfg.PromRegistry)
	if err != nil {
		return nil, errors.Join(err, metadataDb.Close())
	}
	db := &Database{
		config:   cfg,
		logger:   cfg.Logger,
		blob:     blobDb,
		metadata: metadataDb,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
