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

package view_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/internal/test/testutil"
	"github.com/blinklabs-io/rollupdb/reconcile"
	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/blinklabs-io/rollupdb/view"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func testTransfer() rollup.Transfer {
	return rollup.Transfer{
		From:   testutil.Address(0x0a),
		To:     testutil.Address(0x0b),
		Token:  2,
		Amount: decimal.RequireFromString("10.5"),
		Fee:    decimal.RequireFromString("0.25"),
		Nonce:  5,
	}
}

func TestProjectHistoryItemFailure(t *testing.T) {
	p := view.NewProjector()
	reason := "NonceMismatch"
	record := &models.ExecutedTransaction{
		TxHash:      testutil.TxHash(0xaa).Bytes(),
		BlockNumber: 7,
		FailReason:  &reason,
	}
	item, err := p.ProjectHistoryItem(
		record,
		testutil.Submission(t, testutil.TxHash(0xaa).Bytes(), testTransfer()),
		true,
		false,
	)
	require.NoError(t, err)
	require.NotNil(t, item.Hash)
	assert.Equal(t, testutil.TxHash(0xaa).String(), *item.Hash)
	assert.Nil(t, item.PqID)
	require.NotNil(t, item.Success)
	assert.False(t, *item.Success)
	require.NotNil(t, item.FailReason)
	assert.Equal(t, reason, *item.FailReason)
	assert.True(t, item.Committed)
	assert.False(t, item.Verified)
	require.NotNil(t, item.CreatedAt)
	decoded, err := rollup.DecodeTx(item.Tx)
	require.NoError(t, err)
	assert.Equal(t, rollup.TxTypeTransfer, decoded.Type())
}

func TestProjectHistoryItemLost(t *testing.T) {
	p := view.NewProjector()
	_, err := p.ProjectHistoryItem(
		&models.ExecutedTransaction{TxHash: testutil.TxHash(0xbb).Bytes(), BlockNumber: 1},
		nil,
		false,
		false,
	)
	require.ErrorIs(t, err, reconcile.ErrLostTransaction)
}

func TestProjectPendingHistoryItem(t *testing.T) {
	p := view.NewProjector()
	item, err := p.ProjectPendingHistoryItem(testutil.Submission(t, testutil.TxHash(0x01).Bytes(), testTransfer()))
	require.NoError(t, err)
	assert.Nil(t, item.Success)
	assert.Nil(t, item.FailReason)
	assert.False(t, item.Committed)
	assert.False(t, item.Verified)
	data, err := json.Marshal(item)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.JSONEq(t, `null`, string(fields["success"]))
	assert.JSONEq(t, `false`, string(fields["commited"]))
	assert.Contains(t, fields, "pq_id")
}

func TestProjectPriorityHistoryItem(t *testing.T) {
	p := view.NewProjector()
	op := rollup.DepositOp{
		Priority: rollup.Deposit{
			From:   testutil.Address(0x66),
			To:     testutil.Address(0x0a),
			Token:  1,
			Amount: decimal.RequireFromString("100"),
		},
		AccountID: 4,
	}
	data, err := rollup.EncodeOp(op)
	require.NoError(t, err)
	record := &models.ExecutedPriorityOperation{
		Operation:          datatypes.JSON(data),
		EthHash:            testutil.TxHash(0xee).Bytes(),
		BlockNumber:        3,
		PriorityOpSerialID: 42,
		CreatedAt:          time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	item, err := p.ProjectPriorityHistoryItem(record, true, true)
	require.NoError(t, err)
	require.NotNil(t, item.PqID)
	assert.Equal(t, int64(42), *item.PqID)
	require.NotNil(t, item.Hash)
	require.NotNil(t, item.Success)
	assert.True(t, *item.Success)
	assert.True(t, item.Verified)

	// A non-priority operation in the priority table is corrupt
	transfer := testTransfer()
	data, err = rollup.EncodeOp(rollup.TransferOp{Tx: &transfer})
	require.NoError(t, err)
	record.Operation = datatypes.JSON(data)
	_, err = p.ProjectPriorityHistoryItem(record, true, true)
	require.ErrorIs(t, err, rollup.ErrCorruptData)
}

func TestHistoryItemKeepsStoredPayload(t *testing.T) {
	p := view.NewProjector()
	hash := testutil.TxHash(0x21).Bytes()
	stored := `{"type":"Transfer","from":"` + testutil.Address(0x0a).String() +
		`","to":"` + testutil.Address(0x0b).String() +
		`","token":1,"amount":"10.0","fee":"0.50","nonce":4}`
	submission := &models.MempoolTx{
		Hash:      hash,
		Tx:        datatypes.JSON(stored),
		CreatedAt: testutil.SubmittedAt,
	}

	item, err := p.ProjectPendingHistoryItem(submission)
	require.NoError(t, err)
	assert.JSONEq(t, stored, string(item.Tx))

	item, err = p.ProjectHistoryItem(
		testutil.FailureRecord(hash, 3, "NonceMismatch"),
		submission,
		false,
		false,
	)
	require.NoError(t, err)
	assert.JSONEq(t, stored, string(item.Tx))

	// The by-hash view keeps the stored scale as well
	op := `{"type":"Transfer","from":1,"to":2,"tx":` + stored + `}`
	opJSON := datatypes.JSON(op)
	blockIndex := int32(0)
	exec, err := reconcile.Reconcile(&models.ExecutedTransaction{
		TxHash:      hash,
		BlockNumber: 3,
		Operation:   &opJSON,
		BlockIndex:  &blockIndex,
		Success:     true,
	}, nil)
	require.NoError(t, err)
	ret, err := p.ProjectByHash(exec, 3)
	require.NoError(t, err)
	assert.Equal(t, "10.0", ret.Amount)
	require.NotNil(t, ret.Fee)
	assert.Equal(t, "0.50", *ret.Fee)
}

func TestProjectReceipt(t *testing.T) {
	p := view.NewProjector()
	transfer := testTransfer()
	record := testutil.SuccessRecord(t, testutil.TxHash(0xcc).Bytes(), 12, rollup.TransferOp{Tx: &transfer, FromID: 1, ToID: 2})
	// The stored flag is ignored in favor of the operation
	record.Success = false
	run := &rollup.ProverRun{ID: 8, BlockNumber: 12, Worker: "prover-1"}
	receipt, err := p.ProjectReceipt(record, nil, true, run)
	require.NoError(t, err)
	assert.True(t, receipt.Success)
	assert.True(t, receipt.Verified)
	assert.Nil(t, receipt.FailReason)
	assert.Equal(t, int64(12), receipt.BlockNumber)
	assert.Equal(t, testutil.TxHash(0xcc).String(), receipt.TxHash)
	assert.Equal(t, run, receipt.ProverRun)

	priority := p.ProjectPriorityReceipt(true, false, nil)
	assert.True(t, priority.Committed)
	assert.False(t, priority.Verified)
	assert.Nil(t, priority.ProverRun)
}

func TestProjectByHashTransfer(t *testing.T) {
	p := view.NewProjector()
	transfer := testTransfer()
	exec, err := reconcile.Reconcile(
		testutil.SuccessRecord(t, testutil.TxHash(0x10).Bytes(), 12, rollup.TransferToNewOp{Tx: &transfer, FromID: 1, ToID: 9}),
		nil,
	)
	require.NoError(t, err)
	ret, err := p.ProjectByHash(exec, 12)
	require.NoError(t, err)
	assert.Equal(t, "Transfer", ret.TxType)
	assert.Equal(t, transfer.From.String(), ret.From)
	assert.Equal(t, transfer.To.String(), ret.To)
	assert.Equal(t, rollup.TokenID(2), ret.Token)
	assert.Equal(t, "10.5", ret.Amount)
	require.NotNil(t, ret.Fee)
	assert.Equal(t, "0.25", *ret.Fee)
	assert.Equal(t, int64(12), ret.BlockNumber)
}

func TestProjectByHashWithdraw(t *testing.T) {
	p := view.NewProjector(view.WithWithdrawTarget("0xexit"))
	withdraw := rollup.Withdraw{
		From:       testutil.Address(0x0a),
		EthAddress: testutil.Address(0x33),
		Amount:     decimal.RequireFromString("2"),
		Fee:        decimal.RequireFromString("0.1"),
	}
	ret, err := p.ProjectByHash(&reconcile.Execution{Transaction: withdraw}, 4)
	require.NoError(t, err)
	assert.Equal(t, "Withdraw", ret.TxType)
	assert.Equal(t, withdraw.From.String(), ret.From)
	assert.Equal(t, "0xexit", ret.To)
	require.NotNil(t, ret.Fee)
	assert.Equal(t, "0.1", *ret.Fee)
}

func TestProjectByHashAccountOnly(t *testing.T) {
	p := view.NewProjector()
	testDefs := []struct {
		tx       rollup.Tx
		expected string
	}{
		{tx: rollup.Close{AccountAddress: testutil.Address(0x44)}, expected: "Close"},
		{tx: rollup.ChangePubKey{AccountAddress: testutil.Address(0x44)}, expected: "ChangePubKey"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.expected, func(t *testing.T) {
			ret, err := p.ProjectByHash(&reconcile.Execution{Transaction: testDef.tx}, 1)
			require.NoError(t, err)
			assert.Equal(t, testDef.expected, ret.TxType)
			assert.Equal(t, testutil.Address(0x44).String(), ret.From)
			assert.Equal(t, ret.From, ret.To)
			assert.Equal(t, "0", ret.Amount)
			assert.Nil(t, ret.Fee)
		})
	}
}

// Deposits come from the configured source and pay no fee
func TestProjectByHashDeposit(t *testing.T) {
	recipient := testutil.Address(0x0a)
	op := rollup.DepositOp{
		Priority: rollup.Deposit{
			From:   testutil.Address(0x66),
			To:     recipient,
			Token:  1,
			Amount: decimal.RequireFromString("100"),
		},
	}
	ret, err := view.NewProjector().ProjectByHash(
		&reconcile.Execution{Operation: op, Success: true},
		5,
	)
	require.NoError(t, err)
	assert.Equal(t, "Deposit", ret.TxType)
	assert.Equal(t, view.DefaultDepositSource, ret.From)
	assert.Equal(t, recipient.String(), ret.To)
	assert.Equal(t, "100", ret.Amount)
	assert.Nil(t, ret.Fee)

	custom := view.NewProjector(view.WithDepositSource("0xbridge"))
	ret, err = custom.ProjectPriorityOpByHash(op, 5)
	require.NoError(t, err)
	assert.Equal(t, "0xbridge", ret.From)
}

func TestProjectPriorityOpByHashFullExit(t *testing.T) {
	p := view.NewProjector()
	op := rollup.FullExitOp{
		Priority: rollup.FullExit{EthAddress: testutil.Address(0x77), Token: 3},
	}
	ret, err := p.ProjectPriorityOpByHash(op, 6)
	require.NoError(t, err)
	assert.Equal(t, "FullExit", ret.TxType)
	assert.Equal(t, testutil.Address(0x77).String(), ret.From)
	assert.Equal(t, view.DefaultWithdrawTarget, ret.To)
	assert.Equal(t, "0", ret.Amount)
	assert.Nil(t, ret.Fee)

	amount := decimal.RequireFromString("7.5")
	op.WithdrawAmount = &amount
	ret, err = p.ProjectPriorityOpByHash(op, 6)
	require.NoError(t, err)
	assert.Equal(t, "7.5", ret.Amount)
}

func TestProjectByHashUnsupported(t *testing.T) {
	p := view.NewProjector()
	_, err := p.ProjectByHash(&reconcile.Execution{Operation: rollup.NoopOp{}}, 1)
	require.ErrorIs(t, err, view.ErrUnsupportedOp)
	_, err = p.ProjectByHash(&reconcile.Execution{}, 1)
	require.ErrorIs(t, err, view.ErrUnsupportedOp)
	_, err = p.ProjectByHash(nil, 1)
	require.ErrorIs(t, err, view.ErrUnsupportedOp)
	_, err = p.ProjectPriorityOpByHash(nil, 1)
	require.ErrorIs(t, err, view.ErrUnsupportedOp)
}
