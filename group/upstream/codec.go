// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package upstream

import (
	"crypto/sha256"

	"github.com/represtati3/bitcoin-net/group"
)

func hashOf(payload []byte) [32]byte {
	if len(payload) >= 32 {
		var h [32]byte
		copy(h[:], payload[:32])
		return h
	}
	return sha256.Sum256(payload)
}

func decodeTx(payload []byte) group.Tx {
	return group.Tx{Hash: hashOf(payload), Payload: payload}
}

func decodeBlock(payload []byte) group.Block {
	return group.Block{HeaderHash: hashOf(payload), Payload: payload}
}

func decodeMerkleBlock(payload []byte) group.MerkleBlock {
	return group.MerkleBlock{HeaderHash: hashOf(payload), Payload: payload}
}
