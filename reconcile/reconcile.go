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

// Package reconcile joins an execution record with the submission it came
// from into a single execution result.
package reconcile

import (
	"bytes"
	"errors"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/rollup"
)

// Execution is the canonical outcome of a transaction in a block
type Execution struct {
	Transaction rollup.Tx
	// Operation is set only for successful executions
	Operation  rollup.Op
	FailReason *string
	BlockIndex *uint32
	Success    bool
}

// Reconcile produces the execution result for record. Operation presence
// decides success: a successful record carries everything needed, while a
// failed record recovers the transaction body from fallback, the submission
// with the same hash. The stored success flag is not consulted
func Reconcile(
	record *models.ExecutedTransaction,
	fallback *models.MempoolTx,
) (*Execution, error) {
	if record == nil {
		return nil, &Error{
			Kind: ErrInvariantViolation,
			Err:  errors.New("nil execution record"),
		}
	}
	if record.HasOperation() {
		return reconcileSuccess(record)
	}
	if fallback == nil {
		return nil, newError(ErrLostTransaction, record, nil)
	}
	return reconcileFailure(record, fallback)
}

func reconcileSuccess(record *models.ExecutedTransaction) (*Execution, error) {
	op, err := rollup.DecodeOp(*record.Operation)
	if err != nil {
		return nil, newError(ErrCorruptData, record, err)
	}
	tx, ok := op.EmbeddedTx()
	if !ok {
		return nil, newError(
			ErrInvariantViolation,
			record,
			errors.New("operation "+string(op.Type())+" carries no transaction"),
		)
	}
	if record.BlockIndex == nil {
		return nil, newError(
			ErrInvariantViolation,
			record,
			errors.New("executed operation has no block index"),
		)
	}
	if *record.BlockIndex < 0 {
		return nil, newError(
			ErrInvariantViolation,
			record,
			errors.New("negative block index"),
		)
	}
	blockIndex := uint32(*record.BlockIndex)
	return &Execution{
		Transaction: tx,
		Operation:   op,
		BlockIndex:  &blockIndex,
		Success:     true,
	}, nil
}

func reconcileFailure(
	record *models.ExecutedTransaction,
	fallback *models.MempoolTx,
) (*Execution, error) {
	if !bytes.Equal(record.TxHash, fallback.Hash) {
		return nil, newError(
			ErrInvariantViolation,
			record,
			errors.New("submission hash does not match execution record"),
		)
	}
	tx, err := rollup.DecodeTx(fallback.Tx)
	if err != nil {
		return nil, newError(ErrCorruptData, record, err)
	}
	ret := &Execution{
		Transaction: tx,
	}
	if record.FailReason != nil {
		failReason := *record.FailReason
		ret.FailReason = &failReason
	}
	return ret, nil
}

func newError(
	kind error,
	record *models.ExecutedTransaction,
	err error,
) *Error {
	return &Error{
		Kind:        kind,
		Err:         err,
		TxHash:      bytes.Clone(record.TxHash),
		BlockNumber: record.BlockNumber,
	}
}
