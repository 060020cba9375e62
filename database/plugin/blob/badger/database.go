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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/rollupdb/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

// badgerTxn wraps a badger transaction and implements types.Txn
type badgerTxn struct {
	store    *BlobStoreBadger
	tx       *badger.Txn
	finished bool
}

func newBadgerTxn(store *BlobStoreBadger, tx *badger.Txn) *badgerTxn {
	return &badgerTxn{store: store, tx: tx}
}

// validateTxn validates a types.Txn for this BlobStore and returns the
// underlying *badgerTxn if valid.
func (d *BlobStoreBadger) validateTxn(txn types.Txn) (*badgerTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	badgerTxn, ok := txn.(*badgerTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if badgerTxn.store != d {
		return nil, errors.New("transaction from different store")
	}
	if err := badgerTxn.validateTxn(); err != nil {
		return nil, err
	}
	return badgerTxn, nil
}

// validateTxn checks if the transaction is still valid for use
func (t *badgerTxn) validateTxn() error {
	if t.finished {
		return errors.New("transaction already finished")
	}
	if t.tx == nil {
		return types.ErrNoStoreAvailable
	}
	return nil
}

func (t *badgerTxn) Commit() error {
	if t.finished {
		return nil
	}
	if t.tx == nil {
		t.finished = true
		return nil
	}
	if err := t.tx.Commit(); err != nil {
		t.finished = true
		return classifyBadgerError("commit", err)
	}
	t.finished = true
	return nil
}

func (t *badgerTxn) Rollback() error {
	if t.finished {
		return nil
	}
	if t.tx != nil {
		t.tx.Discard()
	}
	t.finished = true
	return nil
}

// BlobStoreBadger stores block status and prover runs in badger. Data is
// kept in memory only when no data directory is configured
type BlobStoreBadger struct {
	promRegistry prometheus.Registerer
	db           *badger.DB
	logger       *slog.Logger
	metrics      *blobMetrics
	gcTicker     *time.Ticker
	gcStopCh     chan struct{}
	dataDir      string
	gcWg         sync.WaitGroup
	sizes        Sizes
	gcInterval   time.Duration
	gcEnabled    bool
}

// New creates and opens a new database
func New(opts ...BlobStoreBadgerOptionFunc) (*BlobStoreBadger, error) {
	db := newBlobStoreBadger(opts...)
	if err := db.Start(); err != nil {
		return nil, err
	}
	return db, nil
}

func newBlobStoreBadger(opts ...BlobStoreBadgerOptionFunc) *BlobStoreBadger {
	db := &BlobStoreBadger{
		// Set defaults
		gcEnabled:  true, // Enable GC by default for disk-backed stores
		gcInterval: DefaultGcInterval,
		sizes:      DefaultSizes(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Inject implements the plugin.Injectable interface
func (d *BlobStoreBadger) Inject(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) {
	if logger != nil {
		d.logger = logger
	}
	if promRegistry != nil {
		d.promRegistry = promRegistry
	}
}

func (d *BlobStoreBadger) open() (*badger.DB, error) {
	if err := d.sizes.validate(); err != nil {
		return nil, err
	}
	// validate bounds every size to int64
	valueThreshold := int64(d.sizes.ValueThreshold) //nolint:gosec
	if d.dataDir == "" {
		// No dataDir, use in-memory config
		badgerOpts := badger.DefaultOptions("").
			WithLogger(NewBadgerLogger(d.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true).
			WithMemTableSize(int64(d.sizes.MemTable)). //nolint:gosec
			WithValueThreshold(valueThreshold)
		return badger.Open(badgerOpts)
	}
	// Make sure that we can read data dir, and create if it doesn't exist
	if _, err := os.Stat(d.dataDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read data dir: %w", err)
		}
		// Create data directory
		if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	blobDir := filepath.Join(
		d.dataDir,
		"blob",
	)
	badgerOpts := badger.DefaultOptions(blobDir).
		WithLogger(NewBadgerLogger(d.logger)).
		WithLoggingLevel(badger.WARNING).
		WithBlockCacheSize(int64(d.sizes.BlockCache)).     //nolint:gosec
		WithIndexCacheSize(int64(d.sizes.IndexCache)).     //nolint:gosec
		WithValueLogFileSize(int64(d.sizes.ValueLogFile)). //nolint:gosec
		WithMemTableSize(int64(d.sizes.MemTable)).         //nolint:gosec
		WithValueThreshold(valueThreshold).
		WithCompression(options.Snappy)
	return badger.Open(badgerOpts)
}

func (d *BlobStoreBadger) blobGc(t *time.Ticker, stop <-chan struct{}) {
	defer d.gcWg.Done()
	for {
		select {
		case <-t.C:
		again:
			err := d.DB().RunValueLogGC(0.5)
			if err != nil {
				// Log any actual errors
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						fmt.Sprintf("blob DB: GC failure: %s", err),
						"component", "database",
					)
				}
			} else {
				// Run it again if it just ran successfully
				goto again
			}
		case <-stop:
			return
		}
	}
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreBadger) Start() error {
	if d.db != nil {
		return nil
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	blobDb, err := d.open()
	if err != nil {
		return err
	}
	d.db = blobDb
	// Configure metrics
	if d.promRegistry != nil {
		d.registerBlobMetrics()
	}
	// Value log GC has nothing to reclaim in memory
	if d.gcEnabled && d.dataDir != "" {
		d.gcTicker = time.NewTicker(d.gcInterval)
		d.gcStopCh = make(chan struct{})
		d.gcWg.Add(1)
		go d.blobGc(d.gcTicker, d.gcStopCh)
	}
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreBadger) Stop() error {
	return d.Close()
}

// Close stops background GC and closes the database handle
func (d *BlobStoreBadger) Close() error {
	// Stop GC ticker if it exists
	if d.gcTicker != nil {
		d.gcTicker.Stop()
		if d.gcStopCh != nil {
			close(d.gcStopCh)
			d.gcStopCh = nil
		}
		// Wait for GC goroutine to finish
		d.gcWg.Wait()
		d.gcTicker = nil
	}
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// DB returns the database handle
func (d *BlobStoreBadger) DB() *badger.DB {
	return d.db
}

// NewTransaction creates a new badger transaction
func (d *BlobStoreBadger) NewTransaction(update bool) types.Txn {
	if d.db == nil {
		return newBadgerTxn(d, nil)
	}
	return newBadgerTxn(d, d.db.NewTransaction(update))
}

// Get retrieves a value from badger within a transaction
func (d *BlobStoreBadger) Get(
	txn types.Txn,
	key []byte,
) ([]byte, error) {
	badgerTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	d.metrics.observe("get")
	item, err := badgerTxn.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, classifyBadgerError("get", err)
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair in badger within a transaction
func (d *BlobStoreBadger) Set(txn types.Txn, key, val []byte) error {
	badgerTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	d.metrics.observe("set")
	if err := badgerTxn.tx.Set(key, val); err != nil {
		return classifyBadgerError("set", err)
	}
	return nil
}

// Delete removes a key from badger within a transaction
func (d *BlobStoreBadger) Delete(txn types.Txn, key []byte) error {
	badgerTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	d.metrics.observe("delete")
	if err := badgerTxn.tx.Delete(key); err != nil {
		return classifyBadgerError("delete", err)
	}
	return nil
}

// classifyBadgerError marks write conflicts as transient so the caller can
// retry the whole transaction
func classifyBadgerError(op string, err error) error {
	return types.ClassifyStorageError(
		"blob "+op,
		err,
		func(err error) bool {
			return errors.Is(err, badger.ErrConflict)
		},
	)
}
