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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/explorer"
	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/blinklabs-io/rollupdb/view"
)

// blockFile is the input of the record command
type blockFile struct {
	Executed    []executedTxFile   `json:"executed"`
	PriorityOps []priorityOpFile   `json:"priority_ops"`
	BlockNumber rollup.BlockNumber `json:"block_number"`
}

type executedTxFile struct {
	Tx         json.RawMessage `json:"tx"`
	Op         json.RawMessage `json:"op,omitempty"`
	BlockIndex *uint32         `json:"block_index,omitempty"`
	FailReason string          `json:"fail_reason,omitempty"`
	Success    bool            `json:"success"`
}

type priorityOpFile struct {
	CreatedAt  time.Time           `json:"created_at"`
	Op         json.RawMessage     `json:"op"`
	EthHash    string              `json:"eth_hash,omitempty"`
	SerialID   rollup.PriorityOpID `json:"serial_id"`
	BlockIndex uint32              `json:"block_index"`
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func decodeBlockFile(data []byte) (
	rollup.BlockNumber,
	[]rollup.ExecutedTx,
	[]rollup.ExecutedPriorityOp,
	error,
) {
	var tmpBlock blockFile
	if err := json.Unmarshal(data, &tmpBlock); err != nil {
		return 0, nil, nil, fmt.Errorf("parse block file: %w", err)
	}
	outcomes := make([]rollup.ExecutedTx, 0, len(tmpBlock.Executed))
	for i, tmpExec := range tmpBlock.Executed {
		tx, err := rollup.DecodeTx(tmpExec.Tx)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("executed[%d]: %w", i, err)
		}
		outcome := rollup.ExecutedTx{
			Tx:         tx,
			FailReason: tmpExec.FailReason,
			BlockIndex: tmpExec.BlockIndex,
			Success:    tmpExec.Success,
		}
		if len(tmpExec.Op) > 0 && string(tmpExec.Op) != "null" {
			outcome.Op, err = rollup.DecodeOp(tmpExec.Op)
			if err != nil {
				return 0, nil, nil, fmt.Errorf("executed[%d]: %w", i, err)
			}
		}
		outcomes = append(outcomes, outcome)
	}
	priorityOps := make([]rollup.ExecutedPriorityOp, 0, len(tmpBlock.PriorityOps))
	for i, tmpOp := range tmpBlock.PriorityOps {
		op, err := rollup.DecodeOp(tmpOp.Op)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("priority_ops[%d]: %w", i, err)
		}
		priorityOp, ok := op.(rollup.PriorityOp)
		if !ok {
			return 0, nil, nil, fmt.Errorf(
				"priority_ops[%d]: %s is not a priority operation",
				i,
				op.Type(),
			)
		}
		executed := rollup.ExecutedPriorityOp{
			Op:         priorityOp,
			CreatedAt:  tmpOp.CreatedAt,
			SerialID:   tmpOp.SerialID,
			BlockIndex: tmpOp.BlockIndex,
		}
		if tmpOp.EthHash != "" {
			ethHash, err := rollup.NewTxHashFromHex(tmpOp.EthHash)
			if err != nil {
				return 0, nil, nil, fmt.Errorf("priority_ops[%d]: %w", i, err)
			}
			executed.EthHash = ethHash.Bytes()
		}
		if executed.CreatedAt.IsZero() {
			executed.CreatedAt = time.Now()
		}
		priorityOps = append(priorityOps, executed)
	}
	return tmpBlock.BlockNumber, outcomes, priorityOps, nil
}

// executionOutput is the printed form of a reconciled execution
type executionOutput struct {
	Tx          json.RawMessage    `json:"tx"`
	Op          json.RawMessage    `json:"op,omitempty"`
	FailReason  *string            `json:"fail_reason"`
	BlockIndex  *uint32            `json:"block_index"`
	TxHash      string             `json:"tx_hash"`
	BlockNumber rollup.BlockNumber `json:"block_number"`
	Success     bool               `json:"success"`
}

func newExecutionOutput(result *explorer.Result) (*executionOutput, error) {
	if result == nil || result.Execution == nil {
		return nil, errors.New("empty result")
	}
	txData, err := rollup.EncodeTx(result.Transaction)
	if err != nil {
		return nil, err
	}
	ret := &executionOutput{
		Tx:          txData,
		FailReason:  result.FailReason,
		BlockIndex:  result.BlockIndex,
		TxHash:      result.TxHash.String(),
		BlockNumber: result.BlockNumber,
		Success:     result.Success,
	}
	if result.Operation != nil {
		ret.Op, err = rollup.EncodeOp(result.Operation)
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// blockOutput is the printed form of a sealed block
type blockOutput struct {
	Executions  []*executionOutput  `json:"executions"`
	PriorityOps []*priorityOpOutput `json:"priority_ops"`
}

type priorityOpOutput struct {
	CreatedAt  time.Time           `json:"created_at"`
	Op         json.RawMessage     `json:"op"`
	EthHash    string              `json:"eth_hash,omitempty"`
	SerialID   rollup.PriorityOpID `json:"serial_id"`
	BlockIndex uint32              `json:"block_index"`
}

func newPriorityOpOutput(
	record *models.ExecutedPriorityOperation,
) (*priorityOpOutput, error) {
	op, err := view.DecodePriorityOp(record)
	if err != nil {
		return nil, fmt.Errorf("priority op %d: %w", record.PriorityOpSerialID, err)
	}
	opData, err := rollup.EncodeOp(op)
	if err != nil {
		return nil, err
	}
	ret := &priorityOpOutput{
		CreatedAt:  record.CreatedAt,
		Op:         opData,
		SerialID:   rollup.PriorityOpID(record.PriorityOpSerialID),
		BlockIndex: uint32(record.BlockIndex), // #nosec G115
	}
	if len(record.EthHash) > 0 {
		ethHash, err := rollup.NewTxHashFromBytes(record.EthHash)
		if err != nil {
			return nil, err
		}
		ret.EthHash = ethHash.String()
	}
	return ret, nil
}
