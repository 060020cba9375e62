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
	"time"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/blinklabs-io/rollupdb/rollup"
)

// HistoryEntry is one item of an account history. Exactly one of Submission
// and PriorityOp is set. Executed is nil while a submission is pending
type HistoryEntry struct {
	Submission *models.MempoolTx
	Executed   *models.ExecutedTransaction
	PriorityOp *models.ExecutedPriorityOperation
}

func (e HistoryEntry) CreatedAt() time.Time {
	if e.PriorityOp != nil {
		return e.PriorityOp.CreatedAt
	}
	if e.Submission != nil {
		return e.Submission.CreatedAt
	}
	return time.Time{}
}

// AccountHistory returns a page of the transactions signed by an account and
// the priority operations touching it, ordered by creation time
func (d *Database) AccountHistory(
	ctx context.Context,
	address rollup.Address,
	offset int,
	limit int,
	direction types.SortDirection,
) ([]HistoryEntry, error) {
	if limit <= 0 {
		return []HistoryEntry{}, nil
	}
	offset = max(offset, 0)
	// Each source can contribute at most offset+limit entries to the page
	fetch := offset + limit
	submissions, err := retryQuery(
		ctx,
		d,
		"mempool_txs_by_account",
		func(ctx context.Context) ([]models.MempoolTx, error) {
			return d.metadata.GetMempoolTxsByAccount(ctx, address.Bytes(), fetch, direction, nil)
		},
	)
	if err != nil {
		return nil, err
	}
	priorityOps, err := retryQuery(
		ctx,
		d,
		"priority_ops_by_account",
		func(ctx context.Context) ([]models.ExecutedPriorityOperation, error) {
			return d.metadata.GetExecutedPriorityOperationsByAccount(ctx, address.Bytes(), fetch, direction, nil)
		},
	)
	if err != nil {
		return nil, err
	}
	entries := mergeHistory(submissions, priorityOps, direction)
	if offset >= len(entries) {
		return []HistoryEntry{}, nil
	}
	entries = entries[offset:min(offset+limit, len(entries))]
	// Join execution records for the submissions on the page
	hashes := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		if entry.Submission != nil {
			hashes = append(hashes, entry.Submission.Hash)
		}
	}
	records, err := retryQuery(
		ctx,
		d,
		"executed_txs_by_hashes",
		func(ctx context.Context) ([]models.ExecutedTransaction, error) {
			return d.metadata.GetExecutedTransactionsByHashes(ctx, hashes, nil)
		},
	)
	if err != nil {
		return nil, err
	}
	// Records come newest block first, so keep the first one per hash
	latest := make(map[string]*models.ExecutedTransaction, len(records))
	for i := range records {
		key := string(records[i].TxHash)
		if _, ok := latest[key]; !ok {
			latest[key] = &records[i]
		}
	}
	for i := range entries {
		if entries[i].Submission != nil {
			entries[i].Executed = latest[string(entries[i].Submission.Hash)]
		}
	}
	return entries, nil
}

// mergeHistory merges two lists already sorted in the given direction.
// Submissions win ties
func mergeHistory(
	submissions []models.MempoolTx,
	priorityOps []models.ExecutedPriorityOperation,
	direction types.SortDirection,
) []HistoryEntry {
	before := func(a, b time.Time) bool {
		if direction == types.SortOldestFirst {
			return a.Before(b)
		}
		return a.After(b)
	}
	ret := make([]HistoryEntry, 0, len(submissions)+len(priorityOps))
	i, j := 0, 0
	for i < len(submissions) || j < len(priorityOps) {
		if j >= len(priorityOps) ||
			(i < len(submissions) && !before(priorityOps[j].CreatedAt, submissions[i].CreatedAt)) {
			ret = append(ret, HistoryEntry{Submission: &submissions[i]})
			i++
			continue
		}
		ret = append(ret, HistoryEntry{PriorityOp: &priorityOps[j]})
		j++
	}
	return ret
}
