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

package rollup

import (
	"time"
)

// ExecutedTx is the outcome of running a user transaction inside a block, as
// reported by the block producer
type ExecutedTx struct {
	Tx Tx
	// Op is set only when the transaction succeeded
	Op         Op
	FailReason string
	BlockIndex *uint32
	Success    bool
}

// ExecutedPriorityOp is a layer 1 request that was applied inside a block
type ExecutedPriorityOp struct {
	Op         PriorityOp
	CreatedAt  time.Time
	EthHash    []byte
	SerialID   PriorityOpID
	BlockIndex uint32
}

// BlockStatus reports how far a sealed block has progressed towards finality
type BlockStatus struct {
	_         struct{} `cbor:",toarray"`
	Committed bool     `json:"committed"`
	Verified  bool     `json:"verified"`
}

// ProverRun describes the proof generation attempt for a block
type ProverRun struct {
	_           struct{}    `cbor:",toarray"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Worker      string      `json:"worker,omitempty"`
	ID          int32       `json:"id"`
	BlockNumber BlockNumber `json:"block_number"`
}
