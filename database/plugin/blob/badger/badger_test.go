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
	"testing"
	"time"

	"github.com/blinklabs-io/rollupdb/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestStore(t *testing.T, opts ...BlobStoreBadgerOptionFunc) *BlobStoreBadger {
	t.Helper()
	store, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestSetGetDelete(t *testing.T) {
	store := newTestStore(t)
	key := types.BlockStatusKey(7)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, key, []byte{0x01}))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	val, err := store.Get(txn, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, val)
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, key))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, key)
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := newTestStore(t)
	key := types.ProverRunKey(1)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, key, []byte("run")))
	require.NoError(t, txn.Rollback())
	// Finished transactions are rejected
	require.Error(t, store.Set(txn, key, []byte("run")))
	// Repeated finish calls are no-ops
	require.NoError(t, txn.Rollback())
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err := store.Get(txn, key)
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

type otherTxn struct{}

func (otherTxn) Commit() error   { return nil }
func (otherTxn) Rollback() error { return nil }

func TestValidateTxn(t *testing.T) {
	store := newTestStore(t)
	other := newTestStore(t)

	_, err := store.Get(nil, []byte("k"))
	require.ErrorIs(t, err, types.ErrNilTxn)
	_, err = store.Get(otherTxn{}, []byte("k"))
	require.ErrorIs(t, err, types.ErrTxnWrongType)

	txn := other.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, []byte("k"))
	require.Error(t, err)
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)

	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	require.ErrorIs(t, store.SetCommitTimestamp(1, nil), types.ErrNilTxn)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1700000000123, txn))
	require.NoError(t, txn.Commit())

	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts)
}

func TestWriteConflictIsTransient(t *testing.T) {
	store := newTestStore(t)
	key := types.BlockStatusKey(1)

	txn1 := store.NewTransaction(true)
	_, err := store.Get(txn1, key)
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, store.Set(txn1, key, []byte{0x01}))

	txn2 := store.NewTransaction(true)
	require.NoError(t, store.Set(txn2, key, []byte{0x02}))
	require.NoError(t, txn2.Commit())

	err = txn1.Commit()
	require.ErrorIs(t, err, badger.ErrConflict)
	assert.True(t, types.IsTransient(err))
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	store := newTestStore(t, WithPromRegistry(registry))

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	_, err := store.Get(txn, []byte("k"))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	assert.Equal(t, float64(1), testutil.ToFloat64(store.metrics.opsTotal.WithLabelValues("set")))
	assert.Equal(t, float64(1), testutil.ToFloat64(store.metrics.opsTotal.WithLabelValues("get")))
	count, err := testutil.GatherAndCount(
		registry,
		"database_blob_lsm_size_bytes",
		"database_blob_vlog_size_bytes",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDiskStoreGcStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dataDir := t.TempDir()
	store, err := New(WithDataDir(dataDir), WithGc(true, time.Hour))
	require.NoError(t, err)
	require.NotNil(t, store.gcTicker)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())
	// Close is idempotent
	require.NoError(t, store.Close())

	// Data survives a reopen
	store, err = New(WithDataDir(dataDir), WithGc(false, 0))
	require.NoError(t, err)
	txn = store.NewTransaction(false)
	val, err := store.Get(txn, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
	require.NoError(t, txn.Rollback())
	require.NoError(t, store.Close())
}
