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

package reconcile_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/internal/test/testutil"
	"github.com/blinklabs-io/rollupdb/reconcile"
	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func jsonPtr(t *testing.T, data []byte) *datatypes.JSON {
	t.Helper()
	ret := datatypes.JSON(data)
	return &ret
}

func int32Ptr(v int32) *int32 {
	return &v
}

func stringPtr(v string) *string {
	return &v
}

func encodeOp(t *testing.T, op rollup.Op) *datatypes.JSON {
	t.Helper()
	data, err := rollup.EncodeOp(op)
	require.NoError(t, err)
	return jsonPtr(t, data)
}

// A failed transaction recovers its body from the submission
func TestReconcileFailure(t *testing.T) {
	transfer := rollup.Transfer{
		From:   testutil.Address(0x0a),
		To:     testutil.Address(0x0b),
		Amount: decimal.RequireFromString("10.0"),
		Nonce:  5,
	}
	record := &models.ExecutedTransaction{
		TxHash:      testutil.TxHash(0xaa).Bytes(),
		BlockNumber: 9,
		FailReason:  stringPtr("InsufficientBalance"),
	}
	fallback := testutil.Submission(t, testutil.TxHash(0xaa).Bytes(), transfer)

	exec, err := reconcile.Reconcile(record, fallback)
	require.NoError(t, err)
	assert.False(t, exec.Success)
	assert.Nil(t, exec.Operation)
	assert.Nil(t, exec.BlockIndex)
	require.NotNil(t, exec.FailReason)
	assert.Equal(t, "InsufficientBalance", *exec.FailReason)
	decoded, ok := exec.Transaction.(rollup.Transfer)
	require.True(t, ok)
	assert.Equal(t, transfer.From, decoded.From)
	assert.Equal(t, transfer.To, decoded.To)
	assert.True(t, transfer.Amount.Equal(decoded.Amount))
	assert.Equal(t, rollup.Nonce(5), decoded.Nonce)

	// The result does not alias the record
	*record.FailReason = "changed"
	assert.Equal(t, "InsufficientBalance", *exec.FailReason)
}

// A successful transaction needs no submission
func TestReconcileSuccessWithoutSubmission(t *testing.T) {
	transfer := rollup.Transfer{
		From:   testutil.Address(0x0a),
		To:     testutil.Address(0x0b),
		Amount: decimal.RequireFromString("3.5"),
	}
	op := rollup.TransferOp{Tx: &transfer, FromID: 1, ToID: 2}
	record := &models.ExecutedTransaction{
		TxHash:     testutil.TxHash(0xbb).Bytes(),
		Operation:  encodeOp(t, op),
		BlockIndex: int32Ptr(2),
		Success:    true,
	}

	exec, err := reconcile.Reconcile(record, nil)
	require.NoError(t, err)
	assert.True(t, exec.Success)
	assert.Nil(t, exec.FailReason)
	require.NotNil(t, exec.BlockIndex)
	assert.Equal(t, uint32(2), *exec.BlockIndex)
	require.NotNil(t, exec.Operation)
	assert.Equal(t, rollup.OpTypeTransfer, exec.Operation.Type())
	decoded, ok := exec.Transaction.(rollup.Transfer)
	require.True(t, ok)
	assert.True(t, decoded.Amount.Equal(decimal.RequireFromString("3.5")))
}

// Operation presence wins over the stored success flag
func TestReconcileOperationIsAuthoritative(t *testing.T) {
	transfer := rollup.Transfer{From: testutil.Address(0x01), To: testutil.Address(0x02)}
	record := &models.ExecutedTransaction{
		TxHash:     testutil.TxHash(0xcc).Bytes(),
		Operation:  encodeOp(t, rollup.TransferOp{Tx: &transfer}),
		BlockIndex: int32Ptr(0),
		FailReason: stringPtr("ignored"),
		Success:    false,
	}
	exec, err := reconcile.Reconcile(record, testutil.Submission(t, testutil.TxHash(0xcc).Bytes(), rollup.Close{}))
	require.NoError(t, err)
	assert.True(t, exec.Success)
	assert.Nil(t, exec.FailReason)
	assert.Equal(t, rollup.TxTypeTransfer, exec.Transaction.Type())

	// A null operation means failure even when the flag says success
	record = &models.ExecutedTransaction{
		TxHash:     testutil.TxHash(0xcc).Bytes(),
		FailReason: stringPtr("nonce mismatch"),
		Success:    true,
	}
	exec, err = reconcile.Reconcile(record, testutil.Submission(t, testutil.TxHash(0xcc).Bytes(), transfer))
	require.NoError(t, err)
	assert.False(t, exec.Success)
}

func TestReconcileFaults(t *testing.T) {
	transfer := rollup.Transfer{From: testutil.Address(0x01), To: testutil.Address(0x02)}
	emptyOp := datatypes.JSON{}
	testDefs := []struct {
		name     string
		record   *models.ExecutedTransaction
		fallback func(t *testing.T) *models.MempoolTx
		kind     error
	}{
		{
			name:   "nil record",
			record: nil,
			kind:   reconcile.ErrInvariantViolation,
		},
		{
			name: "lost transaction",
			record: &models.ExecutedTransaction{
				TxHash:     testutil.TxHash(0x01).Bytes(),
				FailReason: stringPtr("InsufficientBalance"),
			},
			kind: reconcile.ErrLostTransaction,
		},
		{
			name: "empty operation is absent",
			record: &models.ExecutedTransaction{
				TxHash:    testutil.TxHash(0x01).Bytes(),
				Operation: &emptyOp,
			},
			kind: reconcile.ErrLostTransaction,
		},
		{
			name: "corrupt operation",
			record: &models.ExecutedTransaction{
				TxHash:     testutil.TxHash(0x01).Bytes(),
				Operation:  jsonPtr(t, []byte(`{"type":"Mint"}`)),
				BlockIndex: int32Ptr(0),
			},
			kind: reconcile.ErrCorruptData,
		},
		{
			name: "operation without transaction",
			record: &models.ExecutedTransaction{
				TxHash:     testutil.TxHash(0x01).Bytes(),
				Operation:  encodeOp(t, rollup.NoopOp{}),
				BlockIndex: int32Ptr(0),
			},
			kind: reconcile.ErrInvariantViolation,
		},
		{
			name: "missing block index",
			record: &models.ExecutedTransaction{
				TxHash:    testutil.TxHash(0x01).Bytes(),
				Operation: encodeOp(t, rollup.TransferOp{Tx: &transfer}),
			},
			kind: reconcile.ErrInvariantViolation,
		},
		{
			name: "negative block index",
			record: &models.ExecutedTransaction{
				TxHash:     testutil.TxHash(0x01).Bytes(),
				Operation:  encodeOp(t, rollup.TransferOp{Tx: &transfer}),
				BlockIndex: int32Ptr(-1),
			},
			kind: reconcile.ErrInvariantViolation,
		},
		{
			name: "corrupt submission",
			record: &models.ExecutedTransaction{
				TxHash:     testutil.TxHash(0x01).Bytes(),
				FailReason: stringPtr("InsufficientBalance"),
			},
			fallback: func(t *testing.T) *models.MempoolTx {
				return &models.MempoolTx{Hash: testutil.TxHash(0x01).Bytes(), Tx: datatypes.JSON(`not json`)}
			},
			kind: reconcile.ErrCorruptData,
		},
		{
			name: "submission missing fields",
			record: &models.ExecutedTransaction{
				TxHash:     testutil.TxHash(0x01).Bytes(),
				FailReason: stringPtr("InsufficientBalance"),
			},
			fallback: func(t *testing.T) *models.MempoolTx {
				return &models.MempoolTx{Hash: testutil.TxHash(0x01).Bytes(), Tx: datatypes.JSON(`{"type":"Transfer"}`)}
			},
			kind: reconcile.ErrCorruptData,
		},
		{
			name: "operation with empty transaction",
			record: &models.ExecutedTransaction{
				TxHash:     testutil.TxHash(0x01).Bytes(),
				Operation:  jsonPtr(t, []byte(`{"type":"Transfer","tx":{},"from":1,"to":2}`)),
				BlockIndex: int32Ptr(0),
			},
			kind: reconcile.ErrCorruptData,
		},
		{
			name: "submission for another hash",
			record: &models.ExecutedTransaction{
				TxHash:     testutil.TxHash(0x01).Bytes(),
				FailReason: stringPtr("InsufficientBalance"),
			},
			fallback: func(t *testing.T) *models.MempoolTx {
				return testutil.Submission(t, testutil.TxHash(0x02).Bytes(), transfer)
			},
			kind: reconcile.ErrInvariantViolation,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			var fallback *models.MempoolTx
			if testDef.fallback != nil {
				fallback = testDef.fallback(t)
			}
			exec, err := reconcile.Reconcile(testDef.record, fallback)
			require.ErrorIs(t, err, testDef.kind)
			assert.Nil(t, exec)
			var reconcileErr *reconcile.Error
			require.True(t, errors.As(err, &reconcileErr))
			if testDef.record != nil {
				assert.Equal(t, testDef.record.TxHash, reconcileErr.TxHash)
			}
		})
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	err := &reconcile.Error{Kind: reconcile.ErrLostTransaction, TxHash: testutil.TxHash(0x01).Bytes(), BlockNumber: 3}
	assert.ErrorIs(t, err, reconcile.ErrLostTransaction)
	assert.NotErrorIs(t, err, reconcile.ErrCorruptData)
	assert.NotErrorIs(t, err, reconcile.ErrInvariantViolation)
	assert.Contains(t, err.Error(), "block 3")
	// Decode failures match both names for corrupt data
	assert.ErrorIs(t, &reconcile.Error{Kind: reconcile.ErrCorruptData}, rollup.ErrCorruptData)
}
