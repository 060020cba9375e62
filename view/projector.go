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

// Package view shapes reconciled executions into the read models served to
// clients.
package view

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/reconcile"
	"github.com/blinklabs-io/rollupdb/rollup"
)

const (
	DefaultDepositSource  = "deposit_contract"
	DefaultWithdrawTarget = "withdraw_contract"
)

// ErrUnsupportedOp is returned for operations that have no by-hash view
var ErrUnsupportedOp = errors.New("unsupported operation")

// Projector builds read models. The sentinels name the layer 1 contracts
// that funds enter from and leave to
type Projector struct {
	depositSource  string
	withdrawTarget string
}

type ProjectorOptionFunc func(*Projector)

// WithDepositSource sets the "from" shown for deposits
func WithDepositSource(depositSource string) ProjectorOptionFunc {
	return func(p *Projector) {
		p.depositSource = depositSource
	}
}

// WithWithdrawTarget sets the "to" shown for withdrawals and full exits
func WithWithdrawTarget(withdrawTarget string) ProjectorOptionFunc {
	return func(p *Projector) {
		p.withdrawTarget = withdrawTarget
	}
}

func NewProjector(opts ...ProjectorOptionFunc) *Projector {
	p := &Projector{
		depositSource:  DefaultDepositSource,
		withdrawTarget: DefaultWithdrawTarget,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func hashString(hash []byte) string {
	return "0x" + hex.EncodeToString(hash)
}

// ProjectHistoryItem reconciles an execution record and packages it as a
// history row. committed and verified come from the block status
func (p *Projector) ProjectHistoryItem(
	record *models.ExecutedTransaction,
	fallback *models.MempoolTx,
	committed bool,
	verified bool,
) (*TransactionHistoryItem, error) {
	exec, err := reconcile.Reconcile(record, fallback)
	if err != nil {
		return nil, err
	}
	return p.HistoryItemFromExecution(
		record.TxHash,
		exec,
		fallback,
		committed,
		verified,
	)
}

// HistoryItemFromExecution packages an already reconciled execution. The
// submission, when known, supplies the creation time and the payload exactly
// as it was stored. Without one the decoded transaction is encoded again.
func (p *Projector) HistoryItemFromExecution(
	txHash []byte,
	exec *reconcile.Execution,
	submission *models.MempoolTx,
	committed bool,
	verified bool,
) (*TransactionHistoryItem, error) {
	if exec == nil {
		return nil, errors.New("nil execution")
	}
	var txData []byte
	if submission != nil && len(submission.Tx) > 0 {
		txData = submission.Tx
	} else {
		var err error
		txData, err = rollup.EncodeTx(exec.Transaction)
		if err != nil {
			return nil, err
		}
	}
	hash := hashString(txHash)
	success := exec.Success
	ret := &TransactionHistoryItem{
		Hash:       &hash,
		Tx:         json.RawMessage(txData),
		Success:    &success,
		FailReason: exec.FailReason,
		Committed:  committed,
		Verified:   verified,
	}
	if submission != nil {
		createdAt := submission.CreatedAt
		ret.CreatedAt = &createdAt
	}
	return ret, nil
}

// ProjectPendingHistoryItem packages a submission that has not executed yet
func (p *Projector) ProjectPendingHistoryItem(
	submission *models.MempoolTx,
) (*TransactionHistoryItem, error) {
	if submission == nil {
		return nil, errors.New("nil submission")
	}
	// Undecodable payloads are reported rather than passed through
	if _, err := rollup.DecodeTx(submission.Tx); err != nil {
		return nil, err
	}
	hash := hashString(submission.Hash)
	createdAt := submission.CreatedAt
	return &TransactionHistoryItem{
		Hash:      &hash,
		Tx:        json.RawMessage(submission.Tx),
		CreatedAt: &createdAt,
	}, nil
}

// DecodePriorityOp decodes the operation stored for a priority operation
func DecodePriorityOp(
	record *models.ExecutedPriorityOperation,
) (rollup.PriorityOp, error) {
	if record == nil {
		return nil, errors.New("nil priority operation")
	}
	op, err := rollup.DecodeOp(record.Operation)
	if err != nil {
		return nil, err
	}
	priorityOp, ok := op.(rollup.PriorityOp)
	if !ok {
		return nil, fmt.Errorf(
			"%w: %s stored as priority operation %d",
			rollup.ErrCorruptData,
			op.Type(),
			record.PriorityOpSerialID,
		)
	}
	return priorityOp, nil
}

// ProjectPriorityHistoryItem packages an executed priority operation as a
// history row. Priority operations never fail
func (p *Projector) ProjectPriorityHistoryItem(
	record *models.ExecutedPriorityOperation,
	committed bool,
	verified bool,
) (*TransactionHistoryItem, error) {
	op, err := DecodePriorityOp(record)
	if err != nil {
		return nil, err
	}
	opData, err := rollup.EncodeOp(op)
	if err != nil {
		return nil, err
	}
	pqID := record.PriorityOpSerialID
	success := true
	createdAt := record.CreatedAt
	ret := &TransactionHistoryItem{
		PqID:      &pqID,
		Tx:        json.RawMessage(opData),
		Success:   &success,
		CreatedAt: &createdAt,
		Committed: committed,
		Verified:  verified,
	}
	if len(record.EthHash) > 0 {
		hash := hashString(record.EthHash)
		ret.Hash = &hash
	}
	return ret, nil
}

// ProjectReceipt reconciles an execution record into a receipt
func (p *Projector) ProjectReceipt(
	record *models.ExecutedTransaction,
	fallback *models.MempoolTx,
	verified bool,
	proverRun *rollup.ProverRun,
) (*TxReceipt, error) {
	exec, err := reconcile.Reconcile(record, fallback)
	if err != nil {
		return nil, err
	}
	return p.ReceiptFromExecution(record, exec, verified, proverRun), nil
}

func (p *Projector) ReceiptFromExecution(
	record *models.ExecutedTransaction,
	exec *reconcile.Execution,
	verified bool,
	proverRun *rollup.ProverRun,
) *TxReceipt {
	return &TxReceipt{
		TxHash:      hashString(record.TxHash),
		BlockNumber: record.BlockNumber,
		Success:     exec.Success,
		Verified:    verified,
		FailReason:  exec.FailReason,
		ProverRun:   proverRun,
	}
}

func (p *Projector) ProjectPriorityReceipt(
	committed bool,
	verified bool,
	proverRun *rollup.ProverRun,
) PriorityOpReceipt {
	return PriorityOpReceipt{
		Committed: committed,
		Verified:  verified,
		ProverRun: proverRun,
	}
}
