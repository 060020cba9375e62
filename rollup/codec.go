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
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptData is returned when stored bytes cannot be decoded into a
// transaction or operation
var ErrCorruptData = errors.New("corrupt data")

const typeTagKey = "type"

// docSchema lists the fields a stored document must carry. Nested documents
// are checked when present and not null.
type docSchema struct {
	required []string
	nested   []nestedDoc
}

type nestedDoc struct {
	schema docSchema
	key    string
}

var (
	transferSchema = docSchema{
		required: []string{"from", "to", "token", "amount", "fee", "nonce"},
	}
	withdrawSchema = docSchema{
		required: []string{"from", "to", "token", "amount", "fee", "nonce"},
	}
	closeSchema = docSchema{
		required: []string{"account", "nonce"},
	}
	changePubKeySchema = docSchema{
		required: []string{"account", "new_pk_hash", "nonce"},
	}

	txSchemas = map[TxType]docSchema{
		TxTypeTransfer:     transferSchema,
		TxTypeWithdraw:     withdrawSchema,
		TxTypeClose:        closeSchema,
		TxTypeChangePubKey: changePubKeySchema,
	}

	// A missing embedded tx is left to the caller, which treats it as an
	// invariant violation rather than corrupt data
	opSchemas = map[OpType]docSchema{
		OpTypeNoop: {},
		OpTypeTransfer: {
			required: []string{"from", "to"},
			nested:   []nestedDoc{{key: "tx", schema: transferSchema}},
		},
		OpTypeTransferToNew: {
			required: []string{"from", "to"},
			nested:   []nestedDoc{{key: "tx", schema: transferSchema}},
		},
		OpTypeWithdraw: {
			required: []string{"account_id"},
			nested:   []nestedDoc{{key: "tx", schema: withdrawSchema}},
		},
		OpTypeClose: {
			required: []string{"account_id"},
			nested:   []nestedDoc{{key: "tx", schema: closeSchema}},
		},
		OpTypeChangePubKey: {
			required: []string{"account_id"},
			nested:   []nestedDoc{{key: "tx", schema: changePubKeySchema}},
		},
		OpTypeDeposit: {
			required: []string{"priority_op", "account_id"},
			nested: []nestedDoc{{
				key: "priority_op",
				schema: docSchema{
					required: []string{"from", "to", "token", "amount"},
				},
			}},
		},
		OpTypeFullExit: {
			required: []string{"priority_op"},
			nested: []nestedDoc{{
				key: "priority_op",
				schema: docSchema{
					required: []string{"eth_address", "account_id", "token"},
				},
			}},
		},
	}
)

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (s docSchema) check(data []byte, path string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if fields == nil {
		return fmt.Errorf("%s: not an object", path)
	}
	for _, key := range s.required {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			return fmt.Errorf("%s: missing field %q", path, key)
		}
	}
	for _, tmpNested := range s.nested {
		raw, ok := fields[tmpNested.key]
		if !ok || isNull(raw) {
			continue
		}
		if err := tmpNested.schema.check(raw, path+"."+tmpNested.key); err != nil {
			return err
		}
	}
	return nil
}

type typeTag struct {
	Type string `json:"type"`
}

// EncodeTx returns the canonical JSON encoding of tx, tagged with its type
func EncodeTx(tx Tx) ([]byte, error) {
	if tx == nil {
		return nil, errors.New("encode tx: nil transaction")
	}
	return encodeTagged(string(tx.Type()), tx)
}

// DecodeTx decodes a transaction produced by EncodeTx
func DecodeTx(data []byte) (Tx, error) {
	tag, err := decodeTag(data)
	if err != nil {
		return nil, err
	}
	var ret Tx
	switch TxType(tag) {
	case TxTypeTransfer:
		ret, err = decodeBody[Transfer](data, tag, txSchemas[TxTypeTransfer])
	case TxTypeWithdraw:
		ret, err = decodeBody[Withdraw](data, tag, txSchemas[TxTypeWithdraw])
	case TxTypeClose:
		ret, err = decodeBody[Close](data, tag, txSchemas[TxTypeClose])
	case TxTypeChangePubKey:
		ret, err = decodeBody[ChangePubKey](data, tag, txSchemas[TxTypeChangePubKey])
	default:
		return nil, fmt.Errorf(
			"%w: unknown transaction type %q",
			ErrCorruptData,
			tag,
		)
	}
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// EncodeOp returns the canonical JSON encoding of op, tagged with its type
func EncodeOp(op Op) ([]byte, error) {
	if op == nil {
		return nil, errors.New("encode op: nil operation")
	}
	return encodeTagged(string(op.Type()), op)
}

// DecodeOp decodes an operation produced by EncodeOp
func DecodeOp(data []byte) (Op, error) {
	tag, err := decodeTag(data)
	if err != nil {
		return nil, err
	}
	var ret Op
	switch OpType(tag) {
	case OpTypeNoop:
		ret, err = decodeBody[NoopOp](data, tag, opSchemas[OpTypeNoop])
	case OpTypeDeposit:
		ret, err = decodeBody[DepositOp](data, tag, opSchemas[OpTypeDeposit])
	case OpTypeTransferToNew:
		ret, err = decodeBody[TransferToNewOp](data, tag, opSchemas[OpTypeTransferToNew])
	case OpTypeWithdraw:
		ret, err = decodeBody[WithdrawOp](data, tag, opSchemas[OpTypeWithdraw])
	case OpTypeClose:
		ret, err = decodeBody[CloseOp](data, tag, opSchemas[OpTypeClose])
	case OpTypeTransfer:
		ret, err = decodeBody[TransferOp](data, tag, opSchemas[OpTypeTransfer])
	case OpTypeFullExit:
		ret, err = decodeBody[FullExitOp](data, tag, opSchemas[OpTypeFullExit])
	case OpTypeChangePubKey:
		ret, err = decodeBody[ChangePubKeyOp](data, tag, opSchemas[OpTypeChangePubKey])
	default:
		return nil, fmt.Errorf(
			"%w: unknown operation type %q",
			ErrCorruptData,
			tag,
		)
	}
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// HashTx returns the SHA-256 of the canonical encoding of tx
func HashTx(tx Tx) (TxHash, error) {
	data, err := EncodeTx(tx)
	if err != nil {
		return TxHash{}, err
	}
	return TxHash(sha256.Sum256(data)), nil
}

// SemanticEqual reports whether two JSON documents hold the same value,
// ignoring key order and whitespace
func SemanticEqual(a, b []byte) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	ca, err := json.Marshal(va)
	if err != nil {
		return false
	}
	cb, err := json.Marshal(vb)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

func encodeTagged(tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	tagValue, err := json.Marshal(tag)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	fields[typeTagKey] = tagValue
	// Map keys are marshaled in sorted order, which keeps the encoding canonical
	return json.Marshal(fields)
}

func decodeTag(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrCorruptData)
	}
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	if tag.Type == "" {
		return "", fmt.Errorf("%w: missing type tag", ErrCorruptData)
	}
	return tag.Type, nil
}

func decodeBody[T any](data []byte, tag string, schema docSchema) (T, error) {
	var ret T
	if err := schema.check(data, tag); err != nil {
		return ret, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	if err := json.Unmarshal(data, &ret); err != nil {
		return ret, fmt.Errorf("%w: decode %s: %w", ErrCorruptData, tag, err)
	}
	return ret, nil
}
