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
	"time"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/blinklabs-io/rollupdb/rollup"
	"gorm.io/datatypes"
)

// InsertSubmission stores a submitted transaction. Inserting the same hash
// again with an identical payload is a no-op, and a different payload fails
// with types.ConflictingSubmissionError. The caller's record is not modified
func (d *Database) InsertSubmission(
	ctx context.Context,
	submission *models.MempoolTx,
	txn *Txn,
) error {
	if submission == nil {
		return errors.New("nil submission")
	}
	if len(submission.Hash) != rollup.TxHashLength {
		return fmt.Errorf("invalid submission hash length: %d", len(submission.Hash))
	}
	if len(submission.Tx) == 0 {
		return errors.New("empty submission payload")
	}
	tx := *submission
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	// Timestamps compare as strings in some dialects
	tx.CreatedAt = tx.CreatedAt.UTC()
	owned := false
	if txn == nil {
		txn = NewMetadataOnlyTxn(d, true)
		owned = true
		defer txn.Release()
	}
	queryCtx, cancel := d.queryContext(ctx)
	defer cancel()
	if err := d.metadata.AddMempoolTx(queryCtx, &tx, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// SubmitTx encodes, hashes and stores a transaction, returning its hash
func (d *Database) SubmitTx(
	ctx context.Context,
	tx rollup.Tx,
) (rollup.TxHash, error) {
	data, err := rollup.EncodeTx(tx)
	if err != nil {
		return rollup.TxHash{}, err
	}
	hash, err := rollup.HashTx(tx)
	if err != nil {
		return rollup.TxHash{}, err
	}
	submission := &models.MempoolTx{
		Hash:                  hash.Bytes(),
		PrimaryAccountAddress: tx.Account().Bytes(),
		Nonce:                 int64(tx.TxNonce()),
		Tx:                    datatypes.JSON(data),
		CreatedAt:             time.Now(),
	}
	if to, ok := rollup.Recipient(tx); ok {
		submission.RecipientAddress = to.Bytes()
	}
	if err := d.InsertSubmission(ctx, submission, nil); err != nil {
		return rollup.TxHash{}, err
	}
	d.logger.Debug(
		"stored submission",
		"component", "database",
		"tx_hash", hash.String(),
		"tx_type", string(tx.Type()),
	)
	return hash, nil
}

// GetSubmission returns the submission with the given hash, or nil if there is none
func (d *Database) GetSubmission(
	ctx context.Context,
	hash []byte,
	txn *Txn,
) (*models.MempoolTx, error) {
	return readQuery(
		ctx,
		d,
		"get_submission",
		txn,
		func(ctx context.Context, metadataTxn types.Txn) (*models.MempoolTx, error) {
			return d.metadata.GetMempoolTx(ctx, hash, metadataTxn)
		},
	)
}

// GetSubmissions returns the submissions matching any of the given hashes
func (d *Database) GetSubmissions(
	ctx context.Context,
	hashes [][]byte,
	txn *Txn,
) ([]models.MempoolTx, error) {
	return readQuery(
		ctx,
		d,
		"get_submissions",
		txn,
		func(ctx context.Context, metadataTxn types.Txn) ([]models.MempoolTx, error) {
			return d.metadata.GetMempoolTxs(ctx, hashes, metadataTxn)
		},
	)
}

// MinPruneRetention is the youngest cutoff PruneSubmissions accepts
const MinPruneRetention = time.Hour

// PruneSubmissions removes submissions created before the cutoff that no
// execution record refers to. The check and the delete do not lock out a block
// being recorded at the same time, so a failed record written for a
// submission just pruned can no longer be reconciled. The retention must
// therefore exceed the longest delay between submitting a transaction and
// sealing the block that includes it. Cutoffs younger than MinPruneRetention
// are rejected
func (d *Database) PruneSubmissions(
	ctx context.Context,
	before time.Time,
) (int64, error) {
	if time.Since(before) < MinPruneRetention {
		return 0, fmt.Errorf(
			"prune cutoff %s is within the minimum retention of %s",
			before.UTC().Format(time.RFC3339),
			MinPruneRetention,
		)
	}
	queryCtx, cancel := d.queryContext(ctx)
	defer cancel()
	count, err := d.metadata.DeleteStaleMempoolTxs(queryCtx, before.UTC(), nil)
	if err != nil {
		return 0, err
	}
	d.logger.Info(
		fmt.Sprintf("pruned %d stale submissions", count),
		"component", "database",
		"before", before.UTC(),
	)
	return count, nil
}
