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

package view

import (
	"fmt"

	"github.com/blinklabs-io/rollupdb/reconcile"
	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/shopspring/decimal"
)

const (
	kindTransfer     = "Transfer"
	kindDeposit      = "Deposit"
	kindWithdraw     = "Withdraw"
	kindFullExit     = "FullExit"
	kindChangePubKey = "ChangePubKey"
	kindClose        = "Close"
)

// decimalString keeps the scale an amount was stored with, so "10.0" is not
// shortened to "10"
func decimalString(d decimal.Decimal) string {
	if d.Exponent() < 0 {
		return d.StringFixed(-d.Exponent())
	}
	return d.String()
}

func feeString(fee decimal.Decimal) *string {
	ret := decimalString(fee)
	return &ret
}

// ProjectByHash summarizes a reconciled execution. A priority operation in
// exec.Operation takes precedence over exec.Transaction
func (p *Projector) ProjectByHash(
	exec *reconcile.Execution,
	blockNumber int64,
) (*TxByHashView, error) {
	if exec == nil {
		return nil, fmt.Errorf("%w: nil execution", ErrUnsupportedOp)
	}
	if priorityOp, ok := exec.Operation.(rollup.PriorityOp); ok {
		return p.ProjectPriorityOpByHash(priorityOp, blockNumber)
	}
	if exec.Operation != nil {
		if _, ok := exec.Operation.EmbeddedTx(); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedOp, exec.Operation.Type())
		}
	}
	ret := &TxByHashView{
		BlockNumber: blockNumber,
	}
	switch tx := exec.Transaction.(type) {
	case rollup.Transfer:
		ret.TxType = kindTransfer
		ret.From = tx.From.String()
		ret.To = tx.To.String()
		ret.Token = tx.Token
		ret.Amount = decimalString(tx.Amount)
		ret.Fee = feeString(tx.Fee)
	case rollup.Withdraw:
		ret.TxType = kindWithdraw
		ret.From = tx.From.String()
		ret.To = p.withdrawTarget
		ret.Token = tx.Token
		ret.Amount = decimalString(tx.Amount)
		ret.Fee = feeString(tx.Fee)
	case rollup.ChangePubKey:
		ret.TxType = kindChangePubKey
		ret.From = tx.AccountAddress.String()
		ret.To = tx.AccountAddress.String()
		ret.Amount = decimal.Zero.String()
	case rollup.Close:
		ret.TxType = kindClose
		ret.From = tx.AccountAddress.String()
		ret.To = tx.AccountAddress.String()
		ret.Amount = decimal.Zero.String()
	case nil:
		return nil, fmt.Errorf("%w: execution has no transaction", ErrUnsupportedOp)
	default:
		return nil, fmt.Errorf("%w: transaction %s", ErrUnsupportedOp, tx.Type())
	}
	return ret, nil
}

// ProjectPriorityOpByHash summarizes a deposit or full exit
func (p *Projector) ProjectPriorityOpByHash(
	op rollup.PriorityOp,
	blockNumber int64,
) (*TxByHashView, error) {
	ret := &TxByHashView{
		BlockNumber: blockNumber,
	}
	switch op := op.(type) {
	case rollup.DepositOp:
		ret.TxType = kindDeposit
		ret.From = p.depositSource
		ret.To = op.Priority.To.String()
		ret.Token = op.Priority.Token
		ret.Amount = decimalString(op.Priority.Amount)
	case rollup.FullExitOp:
		ret.TxType = kindFullExit
		ret.From = op.Priority.EthAddress.String()
		ret.To = p.withdrawTarget
		ret.Token = op.Priority.Token
		amount := decimal.Zero
		if op.WithdrawAmount != nil {
			amount = *op.WithdrawAmount
		}
		ret.Amount = decimalString(amount)
	case nil:
		return nil, fmt.Errorf("%w: nil operation", ErrUnsupportedOp)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOp, op.Type())
	}
	return ret, nil
}
