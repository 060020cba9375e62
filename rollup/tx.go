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

type TxType string

const (
	TxTypeTransfer     TxType = "Transfer"
	TxTypeWithdraw     TxType = "Withdraw"
	TxTypeClose        TxType = "Close"
	TxTypeChangePubKey TxType = "ChangePubKey"
)

// Tx is a user-submitted rollup transaction
type Tx interface {
	Type() TxType
	// Account returns the address of the account that signed the transaction
	Account() Address
	TxNonce() Nonce
}

type Transfer struct {
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
	From   Address         `json:"from"`
	To     Address         `json:"to"`
	Nonce  Nonce           `json:"nonce"`
	Token  TokenID         `json:"token"`
}

func (Transfer) Type() TxType       { return TxTypeTransfer }
func (t Transfer) Account() Address { return t.From }
func (t Transfer) TxNonce() Nonce   { return t.Nonce }

// Withdraw moves funds from a rollup account to an address on layer 1
type Withdraw struct {
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	From       Address         `json:"from"`
	EthAddress Address         `json:"to"`
	Nonce      Nonce           `json:"nonce"`
	Token      TokenID         `json:"token"`
}

func (Withdraw) Type() TxType       { return TxTypeWithdraw }
func (w Withdraw) Account() Address { return w.From }
func (w Withdraw) TxNonce() Nonce   { return w.Nonce }

// Recipient returns the rollup account credited by a transfer. A withdrawal
// credits a layer 1 address, and other transactions credit nobody
func Recipient(tx Tx) (Address, bool) {
	var t Transfer
	switch v := tx.(type) {
	case Transfer:
		t = v
	case *Transfer:
		if v == nil {
			return Address{}, false
		}
		t = *v
	default:
		return Address{}, false
	}
	if t.To == t.From {
		return Address{}, false
	}
	return t.To, true
}

type Close struct {
	AccountAddress Address `json:"account"`
	Nonce          Nonce   `json:"nonce"`
}

func (Close) Type() TxType       { return TxTypeClose }
func (c Close) Account() Address { return c.AccountAddress }
func (c Close) TxNonce() Nonce   { return c.Nonce }

type ChangePubKey struct {
	AccountAddress Address    `json:"account"`
	NewPkHash      PubKeyHash `json:"new_pk_hash"`
	Nonce          Nonce      `json:"nonce"`
}

func (ChangePubKey) Type() TxType       { return TxTypeChangePubKey }
func (c ChangePubKey) Account() Address { return c.AccountAddress }
func (c ChangePubKey) TxNonce() Nonce   { return c.Nonce }
