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

package explorer

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/reconcile"
	"github.com/blinklabs-io/rollupdb/rollup"
)

// Result is a reconciled execution together with where it happened
type Result struct {
	*reconcile.Execution
	TxHash      rollup.TxHash
	BlockNumber rollup.BlockNumber
}

func newResult(
	record *models.ExecutedTransaction,
	exec *reconcile.Execution,
) (*Result, error) {
	hash, err := rollup.NewTxHashFromBytes(record.TxHash)
	if err != nil {
		return nil, &reconcile.Error{
			Kind:        reconcile.ErrCorruptData,
			Err:         err,
			TxHash:      record.TxHash,
			BlockNumber: record.BlockNumber,
		}
	}
	return &Result{
		Execution:   exec,
		TxHash:      hash,
		BlockNumber: rollup.BlockNumber(record.BlockNumber),
	}, nil
}

// reconcile runs the reconciler and accounts for its outcome
func (e *Explorer) reconcile(
	record *models.ExecutedTransaction,
	fallback *models.MempoolTx,
) (*reconcile.Execution, error) {
	exec, err := reconcile.Reconcile(record, fallback)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrLostTransaction):
			e.metrics.outcome(outcomeLost)
		case errors.Is(err, reconcile.ErrCorruptData):
			e.metrics.outcome(outcomeCorrupt)
		default:
			e.metrics.outcome(outcomeInvariant)
		}
		e.config.Logger.Error(
			"failed to reconcile execution record",
			"component", "explorer",
			"error", err,
		)
		return nil, err
	}
	if exec.Success {
		e.metrics.outcome(outcomeSuccess)
	} else {
		e.metrics.outcome(outcomeFailure)
	}
	if record.Success != exec.Success {
		e.metrics.mismatch()
		e.config.Logger.Warn(
			"stored success flag disagrees with operation",
			"component", "explorer",
			"tx_hash", hex.EncodeToString(record.TxHash),
			"block_number", record.BlockNumber,
			"stored_success", record.Success,
			"success", exec.Success,
		)
	}
	return exec, nil
}

// fallbackFor loads the submission needed to reconcile a failed record
func (e *Explorer) fallbackFor(
	ctx context.Context,
	record *models.ExecutedTransaction,
) (*models.MempoolTx, error) {
	if record.HasOperation() {
		return nil, nil
	}
	return e.config.Store.GetSubmission(ctx, record.TxHash, nil)
}

// TxByHash returns the latest execution of a transaction
func (e *Explorer) TxByHash(
	ctx context.Context,
	hash rollup.TxHash,
) (ret *Result, err error) {
	ctx, span := e.startSpan(ctx, "TxByHash", hashAttr(hash))
	defer func() { endSpan(span, err) }()
	record, err := e.config.Store.ExecutedTxByHash(ctx, hash.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	fallback, err := e.fallbackFor(ctx, record)
	if err != nil {
		return nil, err
	}
	exec, err := e.reconcile(record, fallback)
	if err != nil {
		return nil, err
	}
	return newResult(record, exec)
}

// ExecutionsByBlock returns every execution in a block. Submissions for the
// failed records are loaded in a single query
func (e *Explorer) ExecutionsByBlock(
	ctx context.Context,
	blockNumber rollup.BlockNumber,
) (ret []Result, err error) {
	ctx, span := e.startSpan(ctx, "ExecutionsByBlock", blockAttr(int64(blockNumber)))
	defer func() { endSpan(span, err) }()
	records, err := e.config.Store.ExecutedTxsByBlock(ctx, blockNumber, nil)
	if err != nil {
		return nil, err
	}
	var hashes [][]byte
	for i := range records {
		if !records[i].HasOperation() {
			hashes = append(hashes, records[i].TxHash)
		}
	}
	submissions := make(map[string]*models.MempoolTx, len(hashes))
	if len(hashes) > 0 {
		tmpSubmissions, err := e.config.Store.GetSubmissions(ctx, hashes, nil)
		if err != nil {
			return nil, err
		}
		for i := range tmpSubmissions {
			submissions[string(tmpSubmissions[i].Hash)] = &tmpSubmissions[i]
		}
	}
	ret = make([]Result, 0, len(records))
	for i := range records {
		record := &records[i]
		exec, err := e.reconcile(record, submissions[string(record.TxHash)])
		if err != nil {
			return nil, err
		}
		result, err := newResult(record, exec)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *result)
	}
	return ret, nil
}
