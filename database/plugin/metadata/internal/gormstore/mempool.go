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
	"time"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/blinklabs-io/rollupdb/rollup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddMempoolTx stores a submission. Inserting the same hash again with the
// same payload is a no-op, while a different payload is a ConflictingSubmissionError.
func (s *Store) AddMempoolTx(
	ctx context.Context,
	tx *models.MempoolTx,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	db = db.WithContext(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoNothing: true,
	}).Create(tx)
	if result.Error != nil {
		return s.wrapErr("add mempool tx", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var existing models.MempoolTx
	if result := db.First(&existing, "hash = ?", tx.Hash); result.Error != nil {
		return s.wrapErr("get existing mempool tx", result.Error)
	}
	if !rollup.SemanticEqual(existing.Tx, tx.Tx) {
		return types.ConflictingSubmissionError{Hash: tx.Hash}
	}
	return nil
}

// GetMempoolTx returns the submission with the given hash, or nil if there is none
func (s *Store) GetMempoolTx(
	ctx context.Context,
	hash []byte,
	txn types.Txn,
) (*models.MempoolTx, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.MempoolTx{}
	result := db.WithContext(ctx).First(ret, "hash = ?", hash)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, s.wrapErr("get mempool tx", result.Error)
	}
	return ret, nil
}

// GetMempoolTxs returns the submissions matching any of the given hashes
func (s *Store) GetMempoolTxs(
	ctx context.Context,
	hashes [][]byte,
	txn types.Txn,
) ([]models.MempoolTx, error) {
	ret := []models.MempoolTx{}
	if len(hashes) == 0 {
		return ret, nil
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.WithContext(ctx).Where("hash IN ?", hashes).Find(&ret)
	if result.Error != nil {
		return nil, s.wrapErr("get mempool txs", result.Error)
	}
	return ret, nil
}

// GetMempoolTxsByAccount returns up to limit submissions signed by the given
// account or transferring to it, ordered by creation time. Incoming transfers
// match on RecipientAddress, so submissions stored without one only show up
// for their signer
func (s *Store) GetMempoolTxsByAccount(
	ctx context.Context,
	address []byte,
	limit int,
	direction types.SortDirection,
	txn types.Txn,
) ([]models.MempoolTx, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := []models.MempoolTx{}
	result := db.WithContext(ctx).
		Where("primary_account_address = ? OR recipient_address = ?", address, address).
		Order(createdAtOrder(direction, "hash")).
		Limit(limit).
		Find(&ret)
	if result.Error != nil {
		return nil, s.wrapErr("get mempool txs by account", result.Error)
	}
	return ret, nil
}

// DeleteStaleMempoolTxs removes submissions created before the cutoff that
// no execution record refers to, and returns the number removed
func (s *Store) DeleteStaleMempoolTxs(
	ctx context.Context,
	before time.Time,
	txn types.Txn,
) (int64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	db = db.WithContext(ctx)
	executed := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.ExecutedTransaction{}).
		Select("1").
		Where("executed_transactions.tx_hash = mempool.hash")
	result := db.
		Where("created_at < ?", before).
		Where("NOT EXISTS (?)", executed).
		Delete(&models.MempoolTx{})
	if result.Error != nil {
		return 0, s.wrapErr("delete stale mempool txs", result.Error)
	}
	return result.RowsAffected, nil
}

func createdAtOrder(direction types.SortDirection, tieBreaker string) string {
	if direction == types.SortOldestFirst {
		return "created_at ASC, " + tieBreaker + " ASC"
	}
	return "created_at DESC, " + tieBreaker + " DESC"
}
