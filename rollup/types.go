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
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	AddressLength    = 20
	TxHashLength     = 32
	PubKeyHashLength = 20
)

type (
	BlockNumber  uint32
	AccountID    uint32
	TokenID      uint16
	Nonce        uint32
	PriorityOpID uint64
)

// Address is a 20-byte account address, rendered as 0x-prefixed hex
type Address [AddressLength]byte

func NewAddressFromHex(s string) (Address, error) {
	var ret Address
	if err := decodeFixedHex(s, ret[:]); err != nil {
		return ret, fmt.Errorf("invalid address: %w", err)
	}
	return ret, nil
}

func NewAddressFromBytes(b []byte) (Address, error) {
	var ret Address
	if len(b) != AddressLength {
		return ret, fmt.Errorf(
			"invalid address length: expected %d, got %d",
			AddressLength,
			len(b),
		)
	}
	copy(ret[:], b)
	return ret, nil
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(data []byte) error {
	tmp, err := NewAddressFromHex(string(data))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

// TxHash identifies a transaction. It is the SHA-256 of the transaction's canonical encoding
type TxHash [TxHashLength]byte

func NewTxHashFromHex(s string) (TxHash, error) {
	var ret TxHash
	if err := decodeFixedHex(s, ret[:]); err != nil {
		return ret, fmt.Errorf("invalid tx hash: %w", err)
	}
	return ret, nil
}

func NewTxHashFromBytes(b []byte) (TxHash, error) {
	var ret TxHash
	if len(b) != TxHashLength {
		return ret, fmt.Errorf(
			"invalid tx hash length: expected %d, got %d",
			TxHashLength,
			len(b),
		)
	}
	copy(ret[:], b)
	return ret, nil
}

func (h TxHash) Bytes() []byte {
	return h[:]
}

func (h TxHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h TxHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *TxHash) UnmarshalText(data []byte) error {
	tmp, err := NewTxHashFromHex(string(data))
	if err != nil {
		return err
	}
	*h = tmp
	return nil
}

// PubKeyHash is the hash of an account's rollup signing key
type PubKeyHash [PubKeyHashLength]byte

func (p PubKeyHash) String() string {
	return "0x" + hex.EncodeToString(p[:])
}

func (p PubKeyHash) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PubKeyHash) UnmarshalText(data []byte) error {
	var tmp PubKeyHash
	if err := decodeFixedHex(string(data), tmp[:]); err != nil {
		return fmt.Errorf("invalid pubkey hash: %w", err)
	}
	*p = tmp
	return nil
}

func decodeFixedHex(s string, dst []byte) error {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != hex.EncodedLen(len(dst)) {
		return fmt.Errorf(
			"expected %d hex characters, got %d",
			hex.EncodedLen(len(dst)),
			len(s),
		)
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return err
	}
	return nil
}
