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
	"context"
	"fmt"
	"math"
	"time"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/blinklabs-io/rollupdb/rollup"
	"gorm.io/datatypes"
)

func invalidExecutedTx(format string, args ...any) error {
	return fmt.Errorf(
		"%w: %s",
		types.ErrInvalidExecutedTx,
		fmt.Sprintf(format, args...),
	)
}

// newExecutedTransaction builds the stored form of an execution outcome. A
// success keeps the encoded operation and block index, while a failure keeps
// only the fail reason
func newExecutedTransaction(
	blockNumber rollup.BlockNumber,
	outcome rollup.ExecutedTx,
) (*models.ExecutedTransaction, error) {
	if outcome.Tx == nil {
		return nil, invalidExecutedTx("missing transaction")
	}
	hash, err := rollup.HashTx(outcome.Tx)
	if err != nil {
		return nil, err
	}
	ret := &models.ExecutedTransaction{
		BlockNumber: int64(blockNumber),
		TxHash:      hash.Bytes(),
		Success:     outcome.Success,
	}
	if !outcome.Success {
		if outcome.Op != nil {
			return nil, invalidExecutedTx("failed transaction %s has an operation", hash)
		}
		if outcome.FailReason == "" {
			return nil, invalidExecutedTx("failed transaction %s has no fail reason", hash)
		}
		failReason := outcome.FailReason
		ret.FailReason = &failReason
		return ret, nil
	}
	if outcome.Op == nil {
		return nil, invalidExecutedTx("successful transaction %s has no operation", hash)
	}
	if outcome.BlockIndex == nil {
		return nil, invalidExecutedTx("successful transaction %s has no block index", hash)
	}
	if *outcome.BlockIndex > math.MaxInt32 {
		return nil, invalidExecutedTx("block index %d out of range", *outcome.BlockIndex)
	}
	embedded, ok := outcome.Op.EmbeddedTx()
	if !ok {
		return nil, invalidExecutedTx(
			"operation %s of transaction %s carries no transaction",
			outcome.Op.Type(),
			hash,
		)
	}
	embeddedHash, err := rollup.HashTx(embedded)
	if err != nil {
		return nil, err
	}
	if embeddedHash != hash {
		return nil, invalidExecutedTx(
			"operation carries transaction %s, expected %s",
			embeddedHash,
			hash,
		)
	}
	opData, err := rollup.EncodeOp(outcome.Op)
	if err != nil {
		return nil, err
	}
	operation := datatypes.JSON(opData)
	blockIndex := int32(*outcome.BlockIndex) //nolint:gosec // range checked above
	ret.Operation = &operation
	ret.BlockIndex = &blockIndex
	return ret, nil
}

func newExecutedPriorityOperation(
	blockNumber rollup.BlockNumber,
	op rollup.ExecutedPriorityOp,
) (*models.ExecutedPriorityOperation, error) {
	if op.Op == nil {
		return nil, fmt.Errorf("priority operation %d has no operation", op.SerialID)
	}
	if op.SerialID > math.MaxInt64 {
		return nil, fmt.Errorf("priority operation serial id %d out of range", op.SerialID)
	}
	if op.BlockIndex > math.MaxInt32 {
		return nil, fmt.Errorf("priority operation block index %d out of range", op.BlockIndex)
	}
	opData, err := rollup.EncodeOp(op.Op)
	if err != nil {
		return nil, err
	}
	createdAt := op.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	from, to := op.Op.Accounts()
	return &models.ExecutedPriorityOperation{
		CreatedAt:          createdAt.UTC(),
		Operation:          datatypes.JSON(opData),
		EthHash:            op.EthHash,
		FromAccount:        from.Bytes(),
		ToAccount:          to.Bytes(),
		BlockNumber:        int64(blockNumber),
		PriorityOpSerialID: int64(op.SerialID),   //nolint:gosec // range checked above
		BlockIndex:         int32(op.BlockIndex), //nolint:gosec // range checked above
	}, nil
}

// RecordExecutedTx stores one execution outcome of the given block. The
// record is written by a single INSERT, so readers never observe it partially
func (d *Database) RecordExecutedTx(
	ctx context.Context,
	blockNumber rollup.BlockNumber,
	outcome rollup.ExecutedTx,
	txn *Txn,
) error {
	record, err := newExecutedTransaction(blockNumber, outcome)
	if err != nil {
		return err
	}
	owned := false
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, true)
		owned = true
		defer txn.Release()
	}
	queryCtx, cancel := d.queryContext(ctx)
	defer cancel()
	if err := d.metadata.AddExecutedTransaction(queryCtx, record, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// RecordPriorityOp stores a priority operation applied in the given block
func (d *Database) RecordPriorityOp(
	ctx context.Context,
	blockNumber rollup.BlockNumber,
	op rollup.ExecutedPriorityOp,
	txn *Txn,
) error {
	record, err := newExecutedPriorityOperation(blockNumber, op)
	if err != nil {
		return err
	}
	owned := false
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, true)
		owned = true
		defer txn.Release()
	}
	queryCtx, cancel := d.queryContext(ctx)
	defer cancel()
	if err := d.metadata.AddExecutedPriorityOperation(queryCtx, record, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// RecordBlock stores every outcome and priority operation of a sealed block
// in one transaction. Either the whole block is recorded or nothing is
func (d *Database) RecordBlock(
	ctx context.Context,
	blockNumber rollup.BlockNumber,
	outcomes []rollup.ExecutedTx,
	priorityOps []rollup.ExecutedPriorityOp,
) error {
	// Validate everything before touching the stores
	records := make([]*models.ExecutedTransaction, 0, len(outcomes))
	for _, outcome := range outcomes {
		record, err := newExecutedTransaction(blockNumber, outcome)
		if err != nil {
			return fmt.Errorf("block %d: %w", blockNumber, err)
		}
		records = append(records, record)
	}
	priorityRecords := make([]*models.ExecutedPriorityOperation, 0, len(priorityOps))
	for _, op := range priorityOps {
		record, err := newExecutedPriorityOperation(blockNumber, op)
		if err != nil {
			return fmt.Errorf("block %d: %w", blockNumber, err)
		}
		priorityRecords = append(priorityRecords, record)
	}
	txn := d.Transaction(true)
	err := txn.Do(func(txn *Txn) error {
		for _, record := range records {
			queryCtx, cancel := d.queryContext(ctx)
			err := d.metadata.AddExecutedTransaction(queryCtx, record, txn.Metadata())
			cancel()
			if err != nil {
				return err
			}
		}
		for _, record := range priorityRecords {
			queryCtx, cancel := d.queryContext(ctx)
			err := d.metadata.AddExecutedPriorityOperation(queryCtx, record, txn.Metadata())
			cancel()
			if err != nil {
				return err
			}
		}
		return d.initBlockStatus(blockNumber, txn)
	})
	if err != nil {
		return fmt.Errorf("record block %d: %w", blockNumber, err)
	}
	d.logger.Info(
		fmt.Sprintf(
			"recorded block %d with %d transactions and %d priority operations",
			blockNumber,
			len(records),
			len(priorityRecords),
		),
		"component", "database",
	)
	return nil
}

// ExecutedTxByHash returns the latest execution record for the given hash,
// or nil if the transaction never executed
func (d *Database) ExecutedTxByHash(
	ctx context.Context,
	hash []byte,
	txn *Txn,
) (*models.ExecutedTransaction, error) {
	return readQuery(
		ctx,
		d,
		"executed_tx_by_hash",
		txn,
		func(ctx context.Context, metadataTxn types.Txn) (*models.ExecutedTransaction, error) {
			return d.metadata.GetExecutedTransaction(ctx, hash, metadataTxn)
		},
	)
}

// ExecutedTxsByBlock returns the execution records of a block, successes in
// block order followed by failures
func (d *Database) ExecutedTxsByBlock(
	ctx context.Context,
	blockNumber rollup.BlockNumber,
	txn *Txn,
) ([]models.ExecutedTransaction, error) {
	return readQuery(
		ctx,
		d,
		"executed_txs_by_block",
		txn,
		func(ctx context.Context, metadataTxn types.Txn) ([]models.ExecutedTransaction, error) {
			return d.metadata.GetExecutedTransactionsByBlock(ctx, int64(blockNumber), metadataTxn)
		},
	)
}

// PriorityOpBySerialID returns the priority operation with the given layer 1
// serial id, or nil if it has not been applied
func (d *Database) PriorityOpBySerialID(
	ctx context.Context,
	serialID rollup.PriorityOpID,
	txn *Txn,
) (*models.ExecutedPriorityOperation, error) {
	if serialID > math.MaxInt64 {
		return nil, nil
	}
	return readQuery(
		ctx,
		d,
		"priority_op_by_serial_id",
		txn,
		func(ctx context.Context, metadataTxn types.Txn) (*models.ExecutedPriorityOperation, error) {
			return d.metadata.GetExecutedPriorityOperationBySerialID(ctx, int64(serialID), metadataTxn)
		},
	)
}

// PriorityOpByEthHash returns the priority operation created by the given
// layer 1 transaction, or nil if it has not been applied
func (d *Database) PriorityOpByEthHash(
	ctx context.Context,
	ethHash []byte,
	txn *Txn,
) (*models.ExecutedPriorityOperation, error) {
	return readQuery(
		ctx,
		d,
		"priority_op_by_eth_hash",
		txn,
		func(ctx context.Context, metadataTxn types.Txn) (*models.ExecutedPriorityOperation, error) {
			return d.metadata.GetExecutedPriorityOperationByEthHash(ctx, ethHash, metadataTxn)
		},
	)
}

func (d *Database) PriorityOpsByBlock(
	ctx context.Context,
	blockNumber rollup.BlockNumber,
	txn *Txn,
) ([]models.ExecutedPriorityOperation, error) {
	return readQuery(
		ctx,
		d,
		"priority_ops_by_block",
		txn,
		func(ctx context.Context, metadataTxn types.Txn) ([]models.ExecutedPriorityOperation, error) {
			return d.metadata.GetExecutedPriorityOperationsByBlock(ctx, int64(blockNumber), metadataTxn)
		},
	)
}
