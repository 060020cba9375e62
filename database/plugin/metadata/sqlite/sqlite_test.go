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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func setupTestStore(t *testing.T) *MetadataStoreSqlite {
	t.Helper()
	store, err := New("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

func testHash(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func testAccount(b byte) []byte {
	return bytes.Repeat([]byte{b}, 20)
}

func testMempoolTx(hash byte, account byte, createdAt time.Time) *models.MempoolTx {
	return &models.MempoolTx{
		Hash:                  testHash(hash),
		PrimaryAccountAddress: testAccount(account),
		Nonce:                 int64(hash),
		Tx:                    datatypes.JSON(`{"type":"Close","account":"0x01","nonce":1}`),
		CreatedAt:             createdAt,
	}
}

func jsonPtr(s string) *datatypes.JSON {
	ret := datatypes.JSON(s)
	return &ret
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	store1 := setupTestStore(t)
	store2 := setupTestStore(t)
	require.NoError(t, store1.AddMempoolTx(ctx, testMempoolTx(1, 1, time.Now()), nil))
	tmpTx, err := store2.GetMempoolTx(ctx, testHash(1), nil)
	require.NoError(t, err)
	assert.Nil(t, tmpTx)
}

func TestAddMempoolTxIdempotent(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	tx := testMempoolTx(1, 1, time.Now().UTC())
	require.NoError(t, store.AddMempoolTx(ctx, tx, nil))
	// Same payload with different key order and whitespace
	dup := testMempoolTx(1, 1, time.Now().UTC())
	dup.Tx = datatypes.JSON(`{ "nonce": 1, "account": "0x01", "type": "Close" }`)
	require.NoError(t, store.AddMempoolTx(ctx, dup, nil))

	conflict := testMempoolTx(1, 1, time.Now().UTC())
	conflict.Tx = datatypes.JSON(`{"type":"Close","account":"0x01","nonce":2}`)
	err := store.AddMempoolTx(ctx, conflict, nil)
	var conflictErr types.ConflictingSubmissionError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, testHash(1), conflictErr.Hash)

	stored, err := store.GetMempoolTx(ctx, testHash(1), nil)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.JSONEq(t, string(tx.Tx), string(stored.Tx))
}

func TestExecutedTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	blockIndex := int32(0)
	failReason := "nonce mismatch"
	require.NoError(t, store.AddExecutedTransaction(ctx, &models.ExecutedTransaction{
		BlockNumber: 5,
		TxHash:      testHash(1),
		Operation:   jsonPtr(`{"type":"Noop"}`),
		Success:     true,
		BlockIndex:  &blockIndex,
	}, nil))
	require.NoError(t, store.AddExecutedTransaction(ctx, &models.ExecutedTransaction{
		BlockNumber: 5,
		TxHash:      testHash(2),
		Success:     false,
		FailReason:  &failReason,
	}, nil))

	success, err := store.GetExecutedTransaction(ctx, testHash(1), nil)
	require.NoError(t, err)
	require.NotNil(t, success)
	assert.True(t, success.HasOperation())
	require.NotNil(t, success.BlockIndex)
	assert.Equal(t, int32(0), *success.BlockIndex)
	assert.Nil(t, success.FailReason)

	failure, err := store.GetExecutedTransaction(ctx, testHash(2), nil)
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.False(t, failure.HasOperation())
	assert.Nil(t, failure.BlockIndex)
	require.NotNil(t, failure.FailReason)
	assert.Equal(t, failReason, *failure.FailReason)

	missing, err := store.GetExecutedTransaction(ctx, testHash(3), nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Same hash in a later block wins
	failReason2 := "insufficient balance"
	require.NoError(t, store.AddExecutedTransaction(ctx, &models.ExecutedTransaction{
		BlockNumber: 7,
		TxHash:      testHash(2),
		FailReason:  &failReason2,
	}, nil))
	latest, err := store.GetExecutedTransaction(ctx, testHash(2), nil)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(7), latest.BlockNumber)

	// Same hash twice in one block is rejected
	require.Error(t, store.AddExecutedTransaction(ctx, &models.ExecutedTransaction{
		BlockNumber: 7,
		TxHash:      testHash(2),
		FailReason:  &failReason2,
	}, nil))
}

func TestExecutedTransactionsByBlockOrder(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	failReason := "failed"
	idx0, idx1 := int32(0), int32(1)
	records := []*models.ExecutedTransaction{
		{BlockNumber: 1, TxHash: testHash(1), FailReason: &failReason},
		{BlockNumber: 1, TxHash: testHash(2), Operation: jsonPtr(`{"type":"Noop"}`), BlockIndex: &idx1, Success: true},
		{BlockNumber: 1, TxHash: testHash(3), Operation: jsonPtr(`{"type":"Noop"}`), BlockIndex: &idx0, Success: true},
		{BlockNumber: 2, TxHash: testHash(4), FailReason: &failReason},
	}
	for _, record := range records {
		require.NoError(t, store.AddExecutedTransaction(ctx, record, nil))
	}
	ret, err := store.GetExecutedTransactionsByBlock(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, ret, 3)
	assert.Equal(t, testHash(3), ret[0].TxHash)
	assert.Equal(t, testHash(2), ret[1].TxHash)
	assert.Equal(t, testHash(1), ret[2].TxHash)

	byHashes, err := store.GetExecutedTransactionsByHashes(ctx, [][]byte{testHash(1), testHash(4)}, nil)
	require.NoError(t, err)
	assert.Len(t, byHashes, 2)
}

func TestDeleteStaleMempoolTxs(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	old := time.Now().Add(-48 * time.Hour).UTC()
	require.NoError(t, store.AddMempoolTx(ctx, testMempoolTx(1, 1, old), nil))
	require.NoError(t, store.AddMempoolTx(ctx, testMempoolTx(2, 1, old), nil))
	require.NoError(t, store.AddMempoolTx(ctx, testMempoolTx(3, 1, time.Now().UTC()), nil))
	failReason := "failed"
	require.NoError(t, store.AddExecutedTransaction(ctx, &models.ExecutedTransaction{
		BlockNumber: 1,
		TxHash:      testHash(2),
		FailReason:  &failReason,
	}, nil))

	deleted, err := store.DeleteStaleMempoolTxs(ctx, time.Now().UTC().Add(-24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := store.GetMempoolTx(ctx, testHash(1), nil)
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := store.GetMempoolTx(ctx, testHash(2), nil)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestMempoolTxsByAccount(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i := range 3 {
		require.NoError(t, store.AddMempoolTx(
			ctx,
			testMempoolTx(byte(i+1), 1, base.Add(time.Duration(i)*time.Minute)),
			nil,
		))
	}
	require.NoError(t, store.AddMempoolTx(ctx, testMempoolTx(9, 2, base), nil))

	newest, err := store.GetMempoolTxsByAccount(ctx, testAccount(1), 2, types.SortNewestFirst, nil)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, testHash(3), newest[0].Hash)
	assert.Equal(t, testHash(2), newest[1].Hash)

	oldest, err := store.GetMempoolTxsByAccount(ctx, testAccount(1), 10, types.SortOldestFirst, nil)
	require.NoError(t, err)
	require.Len(t, oldest, 3)
	assert.Equal(t, testHash(1), oldest[0].Hash)
}

func TestExecutedPriorityOperations(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	now := time.Now().UTC()
	op := &models.ExecutedPriorityOperation{
		BlockNumber:        3,
		BlockIndex:         0,
		Operation:          datatypes.JSON(`{"type":"Deposit"}`),
		PriorityOpSerialID: 11,
		EthHash:            testHash(0xee),
		FromAccount:        testAccount(0xa),
		ToAccount:          testAccount(0xb),
		CreatedAt:          now,
	}
	require.NoError(t, store.AddExecutedPriorityOperation(ctx, op, nil))
	// Serial ids are unique
	dup := *op
	dup.ID = 0
	require.Error(t, store.AddExecutedPriorityOperation(ctx, &dup, nil))

	bySerial, err := store.GetExecutedPriorityOperationBySerialID(ctx, 11, nil)
	require.NoError(t, err)
	require.NotNil(t, bySerial)
	assert.Equal(t, int64(3), bySerial.BlockNumber)

	byHash, err := store.GetExecutedPriorityOperationByEthHash(ctx, testHash(0xee), nil)
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, int64(11), byHash.PriorityOpSerialID)

	missing, err := store.GetExecutedPriorityOperationBySerialID(ctx, 12, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byBlock, err := store.GetExecutedPriorityOperationsByBlock(ctx, 3, nil)
	require.NoError(t, err)
	assert.Len(t, byBlock, 1)

	for _, account := range [][]byte{testAccount(0xa), testAccount(0xb)} {
		byAccount, err := store.GetExecutedPriorityOperationsByAccount(ctx, account, 10, types.SortNewestFirst, nil)
		require.NoError(t, err)
		assert.Len(t, byAccount, 1)
	}
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	txn := store.Transaction()
	require.NoError(t, store.AddMempoolTx(ctx, testMempoolTx(1, 1, time.Now()), txn))
	require.NoError(t, store.SetCommitTimestamp(12345, txn))
	require.NoError(t, txn.Rollback())

	tmpTx, err := store.GetMempoolTx(ctx, testHash(1), nil)
	require.NoError(t, err)
	assert.Nil(t, tmpTx)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	txn = store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(12345, txn))
	require.NoError(t, txn.Commit())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(12345), ts)
}

type otherTxn struct{}

func (otherTxn) Commit() error   { return nil }
func (otherTxn) Rollback() error { return nil }

func TestWrongTxnType(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetMempoolTx(context.Background(), testHash(1), otherTxn{})
	require.ErrorIs(t, err, types.ErrTxnWrongType)
}

func TestCanceledContext(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.GetMempoolTx(ctx, testHash(1), nil)
	require.Error(t, err)
	assert.False(t, types.IsTransient(err))
}

func TestMempoolTxsByRecipient(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	base := time.Now().UTC().Add(-time.Hour)
	outgoing := testMempoolTx(1, 1, base)
	incoming := testMempoolTx(2, 2, base.Add(time.Minute))
	incoming.RecipientAddress = testAccount(1)
	unrelated := testMempoolTx(3, 2, base.Add(2*time.Minute))
	unrelated.RecipientAddress = testAccount(3)
	for _, tx := range []*models.MempoolTx{outgoing, incoming, unrelated} {
		require.NoError(t, store.AddMempoolTx(ctx, tx, nil))
	}

	ret, err := store.GetMempoolTxsByAccount(ctx, testAccount(1), 10, types.SortOldestFirst, nil)
	require.NoError(t, err)
	require.Len(t, ret, 2)
	assert.Equal(t, testHash(1), ret[0].Hash)
	assert.Equal(t, testHash(2), ret[1].Hash)
	assert.Equal(t, testAccount(1), ret[1].RecipientAddress)
}
