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

package types

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidExecutedTx is returned when an execution outcome does not satisfy
// the success/operation/fail reason rules and cannot be recorded
var ErrInvalidExecutedTx = errors.New("invalid executed transaction")

// ConflictingSubmissionError is returned when a submission is inserted under a
// hash that is already stored with a different payload
type ConflictingSubmissionError struct {
	Hash []byte
}

func (e ConflictingSubmissionError) Error() string {
	return fmt.Sprintf(
		"conflicting submission: hash %x already stored with a different payload",
		e.Hash,
	)
}

// TransientStorageError wraps a storage fault that may succeed when retried
type TransientStorageError struct {
	Err error
	Op  string
}

func NewTransientStorageError(op string, err error) *TransientStorageError {
	return &TransientStorageError{
		Op:  op,
		Err: err,
	}
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage error: %s: %s", e.Op, e.Err)
}

func (e *TransientStorageError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is, or wraps, a TransientStorageError
func IsTransient(err error) bool {
	var tmpErr *TransientStorageError
	return errors.As(err, &tmpErr)
}

var transientMessages = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"connection refused",
	"connection reset",
	"broken pipe",
	"too many connections",
	"bad connection",
}

// ClassifyStorageError wraps err in a TransientStorageError when it looks like
// a temporary fault. The extra predicate lets a store add driver specific checks.
func ClassifyStorageError(
	op string,
	err error,
	extra func(error) bool,
) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isTransientError(err) || (extra != nil && extra(err)) {
		return NewTransientStorageError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, tmpMsg := range transientMessages {
		if strings.Contains(msg, tmpMsg) {
			return true
		}
	}
	return false
}
