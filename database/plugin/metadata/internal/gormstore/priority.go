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

// AddExecutedPriorityOperation writes an executed priority operation
func (s *Store) AddExecutedPriorityOperation(
	ctx context.Context,
	op *models.ExecutedPriorityOperation,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.WithContext(ctx).Create(op); result.Error != nil {
		return s.wrapErr("add executed priority operation", result.Error)
	}
	return nil
}

func (s *Store) GetExecutedPriorityOperationBySerialID(
	ctx context.Context,
	serialID int64,
	txn types.Txn,
) (*models.ExecutedPriorityOperation, error) {
	return s.getExecutedPriorityOperation(
		ctx,
		"get executed priority operation by serial id",
		txn,
		"priority_op_serial_id = ?",
		serialID,
	)
}

func (s *Store) GetExecutedPriorityOperationByEthHash(
	ctx context.Context,
	ethHash []byte,
	txn types.Txn,
) (*models.ExecutedPriorityOperation, error) {
	return s.getExecutedPriorityOperation(
		ctx,
		"get executed priority operation by eth hash",
		txn,
		"eth_hash = ?",
		ethHash,
	)
}

func (s *Store) getExecutedPriorityOperation(
	ctx context.Context,
	op string,
	txn types.Txn,
	query string,
	arg any,
) (*models.ExecutedPriorityOperation, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.ExecutedPriorityOperation{}
	result := db.WithContext(ctx).
		Where(query, arg).
		Order("block_number DESC, id DESC").
		First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, s.wrapErr(op, result.Error)
	}
	return ret, nil
}

func (s *Store) GetExecutedPriorityOperationsByBlock(
	ctx context.Context,
	blockNumber int64,
	txn types.Txn,
) ([]models.ExecutedPriorityOperation, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := []models.ExecutedPriorityOperation{}
	result := db.WithContext(ctx).
		Where("block_number = ?", blockNumber).
		Order("block_index ASC, id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, s.wrapErr("get executed priority operations by block", result.Error)
	}
	return ret, nil
}

// GetExecutedPriorityOperationsByAccount returns up to limit priority
// operations sent from or to the given address, ordered by creation time
func (s *Store) GetExecutedPriorityOperationsByAccount(
	ctx context.Context,
	address []byte,
	limit int,
	direction types.SortDirection,
	txn types.Txn,
) ([]models.ExecutedPriorityOperation, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := []models.ExecutedPriorityOperation{}
	result := db.WithContext(ctx).
		Where("from_account = ? OR to_account = ?", address, address).
		Order(createdAtOrder(direction, "id")).
		Limit(limit).
		Find(&ret)
	if result.Error != nil {
		return nil, s.wrapErr("get executed priority operations by account", result.Error)
	}
	return ret, nil
}
