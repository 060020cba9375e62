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
	"encoding/binary"
)

const (
	BlockStatusKeyPrefix = "bs"
	ProverRunKeyPrefix   = "pr"
)

func BlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

func BlockStatusKey(blockNumber uint64) []byte {
	key := []byte(BlockStatusKeyPrefix)
	key = append(key, BlobKeyUint64ToBytes(blockNumber)...)
	return key
}

func ProverRunKey(blockNumber uint64) []byte {
	key := []byte(ProverRunKeyPrefix)
	key = append(key, BlobKeyUint64ToBytes(blockNumber)...)
	return key
}
