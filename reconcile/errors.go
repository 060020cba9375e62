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

package reconcile

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/rollupdb/rollup"
)

var (
	// ErrCorruptData matches stored bytes that cannot be decoded
	ErrCorruptData = rollup.ErrCorruptData
	// ErrInvariantViolation matches a record that breaks a rule every
	// execution record must satisfy
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrLostTransaction matches a failed record whose submission is gone,
	// so the transaction body cannot be recovered
	ErrLostTransaction = errors.New("lost transaction")
)

// Error identifies the record that could not be reconciled. It matches its
// Kind with errors.Is
type Error struct {
	Kind        error
	Err         error
	TxHash      []byte
	BlockNumber int64
}

func (e *Error) Error() string {
	msg := fmt.Sprintf(
		"reconcile tx %x in block %d: %s",
		e.TxHash,
		e.BlockNumber,
		e.Kind,
	)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}
