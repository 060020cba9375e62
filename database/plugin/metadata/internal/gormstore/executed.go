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

package gormstore

import (
	"context"
	"errors"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/database/types"
	"gorm.io/gorm"
)

// Successful records first in block order, then failures in insertion order
const executedTxBlockOrder = "CASE WHEN block_index IS NULL THEN 1 ELSE 0 END, block_index ASC, id ASC"

// AddExecutedTransaction writes an execution record in a single INSERT
func (s *Store) AddExecutedTransaction(
	ctx context.Context,
	record *models.ExecutedTransaction,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.WithContext(ctx).Create(record); result.Error != nil {
		return s.wrapErr("add executed transaction", result.Error)
	}
	return nil
}

// GetExecutedTransaction returns the most recent execution record for the
// given hash, or nil if the transaction was never executed
func (s *Store) GetExecutedTransaction(
	ctx context.Context,
	hash []byte,
	txn types.Txn,
) (*models.ExecutedTransaction, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.ExecutedTransaction{}
	result := db.WithContext(ctx).
		Where("tx_hash = ?", hash).
		Order("block_number DESC, id DESC").
		First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, s.wrapErr("get executed transaction", result.Error)
	}
	return ret, nil
}

// GetExecutedTransactionsByBlock returns every execution record of a block
func (s *Store) GetExecutedTransactionsByBlock(
	ctx context.Context,
	blockNumber int64,
	txn types.Txn,
) ([]models.ExecutedTransaction, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := []models.ExecutedTransaction{}
	result := db.WithContext(ctx).
		Where("block_number = ?", blockNumber).
		Order(executedTxBlockOrder).
		Find(&ret)
	if result.Error != nil {
		return nil, s.wrapErr("get executed transactions by block", result.Error)
	}
	return ret, nil
}

// GetExecutedTransactionsByHashes returns the execution records matching any
// of the given hashes, newest block first
func (s *Store) GetExecutedTransactionsByHashes(
	ctx context.Context,
	hashes [][]byte,
	txn types.Txn,
) ([]models.ExecutedTransaction, error) {
	ret := []models.ExecutedTransaction{}
	if len(hashes) == 0 {
		return ret, nil
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.WithContext(ctx).
		Where("tx_hash IN ?", hashes).
		Order("block_number DESC, id DESC").
		Find(&ret)
	if result.Error != nil {
		return nil, s.wrapErr("get executed transactions by hashes", result.Error)
	}
	return ret, nil
}
