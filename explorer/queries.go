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
	"errors"

	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/blinklabs-io/rollupdb/view"
	"go.opentelemetry.io/otel/attribute"
)

func hashAttr(hash rollup.TxHash) attribute.KeyValue {
	return attribute.String("tx_hash", hash.String())
}

func blockAttr(blockNumber int64) attribute.KeyValue {
	return attribute.Int64("block_number", blockNumber)
}

// History returns a page of an account history, newest or oldest first
func (e *Explorer) History(
	ctx context.Context,
	address rollup.Address,
	offset int,
	limit int,
	direction types.SortDirection,
) (ret []view.TransactionHistoryItem, err error) {
	ctx, span := e.startSpan(
		ctx,
		"History",
		attribute.String("address", address.String()),
		attribute.Int("offset", offset),
		attribute.Int("limit", limit),
		attribute.String("direction", direction.String()),
	)
	defer func() { endSpan(span, err) }()
	entries, err := e.config.Store.AccountHistory(ctx, address, offset, limit, direction)
	if err != nil {
		return nil, err
	}
	statuses := newBlockStatuses(e.config.BlockStatus)
	projector := e.config.Projector
	ret = make([]view.TransactionHistoryItem, 0, len(entries))
	for _, entry := range entries {
		var item *view.TransactionHistoryItem
		switch {
		case entry.PriorityOp != nil:
			status, err := statuses.get(ctx, entry.PriorityOp.BlockNumber)
			if err != nil {
				return nil, err
			}
			item, err = projector.ProjectPriorityHistoryItem(
				entry.PriorityOp,
				status.Committed,
				status.Verified,
			)
			if err != nil {
				return nil, err
			}
		case entry.Executed != nil:
			status, err := statuses.get(ctx, entry.Executed.BlockNumber)
			if err != nil {
				return nil, err
			}
			exec, err := e.reconcile(entry.Executed, entry.Submission)
			if err != nil {
				return nil, err
			}
			item, err = projector.HistoryItemFromExecution(
				entry.Executed.TxHash,
				exec,
				entry.Submission,
				status.Committed,
				status.Verified,
			)
			if err != nil {
				return nil, err
			}
		case entry.Submission != nil:
			item, err = projector.ProjectPendingHistoryItem(entry.Submission)
			if err != nil {
				return nil, err
			}
		default:
			return nil, errors.New("empty history entry")
		}
		ret = append(ret, *item)
	}
	return ret, nil
}

// TxReceipt returns the receipt of an executed transaction
func (e *Explorer) TxReceipt(
	ctx context.Context,
	hash rollup.TxHash,
) (ret *view.TxReceipt, err error) {
	ctx, span := e.startSpan(ctx, "TxReceipt", hashAttr(hash))
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
	blockNumber := rollup.BlockNumber(record.BlockNumber)
	status, err := e.config.BlockStatus.GetBlockStatus(ctx, blockNumber)
	if err != nil {
		return nil, err
	}
	proverRun, err := e.config.ProverRuns.GetProverRun(ctx, blockNumber)
	if err != nil {
		return nil, err
	}
	return e.config.Projector.ReceiptFromExecution(
		record,
		exec,
		status.Verified,
		proverRun,
	), nil
}

// PriorityOpReceipt returns the receipt of a priority operation. An operation
// that has not been applied yet is neither committed nor verified
func (e *Explorer) PriorityOpReceipt(
	ctx context.Context,
	serialID rollup.PriorityOpID,
) (ret view.PriorityOpReceipt, err error) {
	ctx, span := e.startSpan(
		ctx,
		"PriorityOpReceipt",
		attribute.Int64("serial_id", int64(serialID)), //nolint:gosec
	)
	defer func() { endSpan(span, err) }()
	record, err := e.config.Store.PriorityOpBySerialID(ctx, serialID, nil)
	if err != nil {
		return ret, err
	}
	if record == nil {
		return e.config.Projector.ProjectPriorityReceipt(false, false, nil), nil
	}
	blockNumber := rollup.BlockNumber(record.BlockNumber)
	status, err := e.config.BlockStatus.GetBlockStatus(ctx, blockNumber)
	if err != nil {
		return ret, err
	}
	proverRun, err := e.config.ProverRuns.GetProverRun(ctx, blockNumber)
	if err != nil {
		return ret, err
	}
	return e.config.Projector.ProjectPriorityReceipt(
		status.Committed,
		status.Verified,
		proverRun,
	), nil
}

// TxView summarizes a transaction by hash. The hash of the layer 1
// transaction that created a priority operation is accepted as well
func (e *Explorer) TxView(
	ctx context.Context,
	hash rollup.TxHash,
) (ret *view.TxByHashView, err error) {
	ctx, span := e.startSpan(ctx, "TxView", hashAttr(hash))
	defer func() { endSpan(span, err) }()
	record, err := e.config.Store.ExecutedTxByHash(ctx, hash.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	if record != nil {
		fallback, err := e.fallbackFor(ctx, record)
		if err != nil {
			return nil, err
		}
		exec, err := e.reconcile(record, fallback)
		if err != nil {
			return nil, err
		}
		return e.config.Projector.ProjectByHash(exec, record.BlockNumber)
	}
	opRecord, err := e.config.Store.PriorityOpByEthHash(ctx, hash.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	if opRecord == nil {
		return nil, ErrNotFound
	}
	op, err := view.DecodePriorityOp(opRecord)
	if err != nil {
		return nil, err
	}
	return e.config.Projector.ProjectPriorityOpByHash(op, opRecord.BlockNumber)
}

// PriorityOpView summarizes a priority operation by serial id
func (e *Explorer) PriorityOpView(
	ctx context.Context,
	serialID rollup.PriorityOpID,
) (ret *view.TxByHashView, err error) {
	ctx, span := e.startSpan(
		ctx,
		"PriorityOpView",
		attribute.Int64("serial_id", int64(serialID)), //nolint:gosec
	)
	defer func() { endSpan(span, err) }()
	record, err := e.config.Store.PriorityOpBySerialID(ctx, serialID, nil)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	op, err := view.DecodePriorityOp(record)
	if err != nil {
		return nil, err
	}
	return e.config.Projector.ProjectPriorityOpByHash(op, record.BlockNumber)
}
