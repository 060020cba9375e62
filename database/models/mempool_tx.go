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
	"time"

	"gorm.io/datatypes"
)

// MempoolTx is a transaction as originally submitted, before execution
type MempoolTx struct {
	CreatedAt             time.Time `gorm:"index;not null"`
	Hash                  []byte    `gorm:"primaryKey;size:32"`
	PrimaryAccountAddress []byte    `gorm:"index;size:20;not null"`
	// Set for transfers to another rollup account
	RecipientAddress []byte         `gorm:"index;size:20"`
	Tx               datatypes.JSON `gorm:"not null"`
	Nonce            int64
}

func (MempoolTx) TableName() string {
	return "mempool"
}
