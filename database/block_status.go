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
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/fxamacker/cbor/v2"
)

var blobEncMode = sync.OnceValues(func() (cbor.EncMode, error) {
	return cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
})

func encodeBlobValue(v any) ([]byte, error) {
	encMode, err := blobEncMode()
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(v)
}

// SetBlockStatus stores the commit and verification status of a sealed block
func (d *Database) SetBlockStatus(
	ctx context.Context,
	blockNumber rollup.BlockNumber,
	status rollup.BlockStatus,
	txn *Txn,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeBlobValue(status)
	if err != nil {
		return fmt.Errorf("encode block status: %w", err)
	}
	return d.setBlobValue(types.BlockStatusKey(uint64(blockNumber)), data, txn)
}

// GetBlockStatus returns the status of a block. A block with no stored
// status is neither committed nor verified
func (d *Database) GetBlockStatus(
	ctx context.Context,
	blockNumber rollup.BlockNumber,
) (rollup.BlockStatus, error) {
	var ret rollup.BlockStatus
	if err := ctx.Err(); err != nil {
		return ret, err
	}
	data, err := d.getBlobValue(types.BlockStatusKey(uint64(blockNumber)))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return ret, nil
		}
		return ret, err
	}
	if err := cbor.Unmarshal(data, &ret); err != nil {
		return ret, fmt.Errorf("decode block status: %w", err)
	}
	return ret, nil
}

// initBlockStatus stores an empty status for a newly recorded block unless
// one is already present
func (d *Database) initBlockStatus(
	blockNumber rollup.BlockNumber,
	txn *Txn,
) error {
	key := types.BlockStatusKey(uint64(blockNumber))
	if _, err := d.blob.Get(txn.Blob(), key); err == nil {
		return nil
	} else if !errors.Is(err, types.ErrBlobKeyNotFound) {
		return err
	}
	data, err := encodeBlobValue(rollup.BlockStatus{})
	if err != nil {
		return fmt.Errorf("encode block status: %w", err)
	}
	return d.blob.Set(txn.Blob(), key, data)
}

// SetProverRun stores the prover run for the block named in run
func (d *Database) SetProverRun(
	ctx context.Context,
	run rollup.ProverRun,
	txn *Txn,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	run.CreatedAt = run.CreatedAt.UTC()
	run.UpdatedAt = run.UpdatedAt.UTC()
	data, err := encodeBlobValue(run)
	if err != nil {
		return fmt.Errorf("encode prover run: %w", err)
	}
	return d.setBlobValue(types.ProverRunKey(uint64(run.BlockNumber)), data, txn)
}

// GetProverRun returns the prover run of a block, or nil if proving has not started
func (d *Database) GetProverRun(
	ctx context.Context,
	blockNumber rollup.BlockNumber,
) (*rollup.ProverRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := d.getBlobValue(types.ProverRunKey(uint64(blockNumber)))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ret := &rollup.ProverRun{}
	if err := cbor.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("decode prover run: %w", err)
	}
	return ret, nil
}

func (d *Database) setBlobValue(key []byte, data []byte, txn *Txn) error {
	owned := false
	if txn == nil {
		txn = NewBlobOnlyTxn(d, true)
		owned = true
		defer txn.Release()
	}
	if txn.Blob() == nil {
		return types.ErrNoStoreAvailable
	}
	if err := d.blob.Set(txn.Blob(), key, data); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) getBlobValue(key []byte) ([]byte, error) {
	txn := NewBlobOnlyTxn(d, false)
	defer txn.Release()
	if txn.Blob() == nil {
		return nil, types.ErrNoStoreAvailable
	}
	return d.blob.Get(txn.Blob(), key)
}
