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
	"github.com/shopspring/decimal"
)

type OpType string

const (
	OpTypeNoop          OpType = "Noop"
	OpTypeDeposit       OpType = "Deposit"
	OpTypeTransferToNew OpType = "TransferToNew"
	OpTypeWithdraw      OpType = "Withdraw"
	OpTypeClose         OpType = "Close"
	OpTypeTransfer      OpType = "Transfer"
	OpTypeFullExit      OpType = "FullExit"
	OpTypeChangePubKey  OpType = "ChangePubKey"
)

// Op is a validated state transition included in a sealed block. Operations
// produced from user transactions carry the originating transaction; priority
// operations (deposit, full exit) originate on layer 1 and carry none.
type Op interface {
	Type() OpType
	// EmbeddedTx returns the transaction this operation executed, if any
	EmbeddedTx() (Tx, bool)
}

type TransferOp struct {
	Tx     *Transfer `json:"tx"`
	FromID AccountID `json:"from"`
	ToID   AccountID `json:"to"`
}

func (TransferOp) Type() OpType { return OpTypeTransfer }

func (o TransferOp) EmbeddedTx() (Tx, bool) {
	if o.Tx == nil {
		return nil, false
	}
	return *o.Tx, true
}

// TransferToNewOp is a transfer whose recipient account did not exist before the block
type TransferToNewOp struct {
	Tx     *Transfer `json:"tx"`
	FromID AccountID `json:"from"`
	ToID   AccountID `json:"to"`
}

func (TransferToNewOp) Type() OpType { return OpTypeTransferToNew }

func (o TransferToNewOp) EmbeddedTx() (Tx, bool) {
	if o.Tx == nil {
		return nil, false
	}
	return *o.Tx, true
}

type WithdrawOp struct {
	Tx        *Withdraw `json:"tx"`
	AccountID AccountID `json:"account_id"`
}

func (WithdrawOp) Type() OpType { return OpTypeWithdraw }

func (o WithdrawOp) EmbeddedTx() (Tx, bool) {
	if o.Tx == nil {
		return nil, false
	}
	return *o.Tx, true
}

type CloseOp struct {
	Tx        *Close    `json:"tx"`
	AccountID AccountID `json:"account_id"`
}

func (CloseOp) Type() OpType { return OpTypeClose }

func (o CloseOp) EmbeddedTx() (Tx, bool) {
	if o.Tx == nil {
		return nil, false
	}
	return *o.Tx, true
}

type ChangePubKeyOp struct {
	Tx        *ChangePubKey `json:"tx"`
	AccountID AccountID     `json:"account_id"`
}

func (ChangePubKeyOp) Type() OpType { return OpTypeChangePubKey }

func (o ChangePubKeyOp) EmbeddedTx() (Tx, bool) {
	if o.Tx == nil {
		return nil, false
	}
	return *o.Tx, true
}

// Deposit is the layer 1 request behind a DepositOp
type Deposit struct {
	Amount decimal.Decimal `json:"amount"`
	From   Address         `json:"from"`
	To     Address         `json:"to"`
	Token  TokenID         `json:"token"`
}

type DepositOp struct {
	Priority  Deposit   `json:"priority_op"`
	AccountID AccountID `json:"account_id"`
}

func (DepositOp) Type() OpType           { return OpTypeDeposit }
func (DepositOp) EmbeddedTx() (Tx, bool) { return nil, false }

func (o DepositOp) Accounts() (from, to Address) {
	return o.Priority.From, o.Priority.To
}

// FullExit is the layer 1 request behind a FullExitOp
type FullExit struct {
	EthAddress Address   `json:"eth_address"`
	AccountID  AccountID `json:"account_id"`
	Token      TokenID   `json:"token"`
}

type FullExitOp struct {
	// WithdrawAmount is unset when the exit could not be executed
	WithdrawAmount *decimal.Decimal `json:"withdraw_amount,omitempty"`
	Priority       FullExit         `json:"priority_op"`
}

func (FullExitOp) Type() OpType           { return OpTypeFullExit }
func (FullExitOp) EmbeddedTx() (Tx, bool) { return nil, false }

func (o FullExitOp) Accounts() (from, to Address) {
	return o.Priority.EthAddress, o.Priority.EthAddress
}

type NoopOp struct{}

func (NoopOp) Type() OpType           { return OpTypeNoop }
func (NoopOp) EmbeddedTx() (Tx, bool) { return nil, false }

// PriorityOp is implemented by operations that originate on layer 1
type PriorityOp interface {
	Op
	Accounts() (from, to Address)
}
