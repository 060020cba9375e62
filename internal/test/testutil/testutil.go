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

// Package testutil provides fixtures shared by the rollupdb tests.
package testutil

import (
	"testing"
	"time"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// SubmittedAt is the creation time given to fixture submissions
var SubmittedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Address returns an address with every byte set to b
func Address(b byte) rollup.Address {
	var ret rollup.Address
	for i := range ret {
		ret[i] = b
	}
	return ret
}

// TxHash returns a hash with every byte set to b
func TxHash(b byte) rollup.TxHash {
	var ret rollup.TxHash
	for i := range ret {
		ret[i] = b
	}
	return ret
}

// Transfer returns a transfer of 10 units of token 1 with a 0.5 fee
func Transfer(from, to rollup.Address, nonce rollup.Nonce) rollup.Transfer {
	return rollup.Transfer{
		From:   from,
		To:     to,
		Token:  1,
		Amount: decimal.RequireFromString("10"),
		Fee:    decimal.RequireFromString("0.5"),
		Nonce:  nonce,
	}
}

// Submission encodes tx into a stored submission under hash
func Submission(t *testing.T, hash []byte, tx rollup.Tx) *models.MempoolTx {
	t.Helper()
	data, err := rollup.EncodeTx(tx)
	require.NoError(t, err)
	ret := &models.MempoolTx{
		Hash:                  hash,
		PrimaryAccountAddress: tx.Account().Bytes(),
		Nonce:                 int64(tx.TxNonce()),
		Tx:                    datatypes.JSON(data),
		CreatedAt:             SubmittedAt,
	}
	if to, ok := rollup.Recipient(tx); ok {
		ret.RecipientAddress = to.Bytes()
	}
	return ret
}

// SuccessRecord returns an execution record for op at the start of a block
func SuccessRecord(
	t *testing.T,
	hash []byte,
	blockNumber int64,
	op rollup.Op,
) *models.ExecutedTransaction {
	t.Helper()
	data, err := rollup.EncodeOp(op)
	require.NoError(t, err)
	opJSON := datatypes.JSON(data)
	blockIndex := int32(0)
	return &models.ExecutedTransaction{
		TxHash:      hash,
		BlockNumber: blockNumber,
		Operation:   &opJSON,
		BlockIndex:  &blockIndex,
		Success:     true,
	}
}

// FailureRecord returns an execution record of a rejected transaction
func FailureRecord(
	hash []byte,
	blockNumber int64,
	reason string,
) *models.ExecutedTransaction {
	return &models.ExecutedTransaction{
		TxHash:      hash,
		BlockNumber: blockNumber,
		FailReason:  &reason,
	}
}
