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

package view

import (
	"encoding/json"
	"time"

	"github.com/blinklabs-io/rollupdb/rollup"
)

// TransactionHistoryItem is one row of an account history. Pending
// submissions have no success value, and priority operations carry a pq_id
type TransactionHistoryItem struct {
	Hash       *string         `json:"hash"`
	PqID       *int64          `json:"pq_id"`
	Tx         json.RawMessage `json:"tx"`
	Success    *bool           `json:"success"`
	FailReason *string         `json:"fail_reason"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
	// The misspelled key is part of the public API
	Committed bool `json:"commited"`
	Verified  bool `json:"verified"`
}

type TxReceipt struct {
	FailReason  *string           `json:"fail_reason"`
	ProverRun   *rollup.ProverRun `json:"prover_run"`
	TxHash      string            `json:"tx_hash"`
	BlockNumber int64             `json:"block_number"`
	Success     bool              `json:"success"`
	Verified    bool              `json:"verified"`
}

type PriorityOpReceipt struct {
	ProverRun *rollup.ProverRun `json:"prover_run"`
	Committed bool              `json:"committed"`
	Verified  bool              `json:"verified"`
}

// TxByHashView summarizes a transaction or priority operation by the funds it moves
type TxByHashView struct {
	// Fee is the rollup fee and is unset for kinds that pay none
	Fee         *string        `json:"fee"`
	TxType      string         `json:"tx_type"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Amount      string         `json:"amount"`
	BlockNumber int64          `json:"block_number"`
	Token       rollup.TokenID `json:"token"`
}
