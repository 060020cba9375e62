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

package models

import (
	"gorm.io/datatypes"
)

// ExecutedTransaction is the post-execution outcome of a transaction inside a
// sealed block. A successful outcome carries the executed operation and its
// position in the block. A failed outcome carries only the fail reason, and the
// transaction body must be recovered from the matching MempoolTx.
type ExecutedTransaction struct {
	Operation   *datatypes.JSON
	FailReason  *string
	BlockIndex  *int32
	TxHash      []byte `gorm:"index;size:32;not null;uniqueIndex:idx_executed_tx_block_hash,priority:2"`
	BlockNumber int64  `gorm:"index;not null;uniqueIndex:idx_executed_tx_block_hash,priority:1"`
	ID          int32  `gorm:"primaryKey"`
	Success     bool
}

func (ExecutedTransaction) TableName() string {
	return "executed_transactions"
}

// HasOperation reports whether an executed operation was stored for the record
func (e *ExecutedTransaction) HasOperation() bool {
	return e.Operation != nil && len(*e.Operation) > 0
}
