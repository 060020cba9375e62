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

// ExecutedPriorityOperation is a layer 1 request (deposit, full exit) applied inside a sealed block
type ExecutedPriorityOperation struct {
	CreatedAt          time.Time      `gorm:"index;not null"`
	Operation          datatypes.JSON `gorm:"not null"`
	EthHash            []byte         `gorm:"index;size:32"`
	FromAccount        []byte         `gorm:"index;size:20"`
	ToAccount          []byte         `gorm:"index;size:20"`
	BlockNumber        int64          `gorm:"index;not null"`
	PriorityOpSerialID int64          `gorm:"uniqueIndex;not null"`
	ID                 int32          `gorm:"primaryKey"`
	BlockIndex         int32
}

func (ExecutedPriorityOperation) TableName() string {
	return "executed_priority_operations"
}
