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

package types_test

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStorageError(t *testing.T) {
	errCustom := errors.New("custom driver fault")
	testDefs := []struct {
		name      string
		err       error
		extra     func(error) bool
		transient bool
	}{
		{
			name:      "deadline",
			err:       fmt.Errorf("query: %w", context.DeadlineExceeded),
			transient: true,
		},
		{
			name:      "bad conn",
			err:       driver.ErrBadConn,
			transient: true,
		},
		{
			name:      "sqlite busy",
			err:       errors.New("database is locked (5) (SQLITE_BUSY)"),
			transient: true,
		},
		{
			name:      "canceled",
			err:       context.Canceled,
			transient: false,
		},
		{
			name:      "constraint",
			err:       errors.New("UNIQUE constraint failed: mempool.hash"),
			transient: false,
		},
		{
			name:      "driver specific",
			err:       errCustom,
			extra:     func(err error) bool { return errors.Is(err, errCustom) },
			transient: true,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := types.ClassifyStorageError("get", testDef.err, testDef.extra)
			require.Error(t, err)
			assert.Equal(t, testDef.transient, types.IsTransient(err))
			assert.ErrorIs(t, err, testDef.err)
		})
	}
	assert.NoError(t, types.ClassifyStorageError("get", nil, nil))
}

func TestConflictingSubmissionError(t *testing.T) {
	err := fmt.Errorf(
		"insert: %w",
		types.ConflictingSubmissionError{Hash: []byte{0xab, 0xcd}},
	)
	var conflictErr types.ConflictingSubmissionError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, []byte{0xab, 0xcd}, conflictErr.Hash)
	assert.Contains(t, err.Error(), "abcd")
}

func TestBlobKeys(t *testing.T) {
	key := types.BlockStatusKey(258)
	assert.Equal(t, []byte("bs"), key[:2])
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, key[2:])
	assert.False(t, bytes.Equal(key, types.ProverRunKey(258)))
}
