// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "crypto/sha256"

// payloadHash derives the content-addressing hash for a block/tx
// payload: the wire protocol proper is out of scope here, so the
// payload's own leading 32 bytes are treated as its self-reported
// hash when present (the common header-hash convention), falling back
// to hashing the whole payload for anything shorter.
func payloadHash(payload []byte) [32]byte {
	if len(payload) >= 32 {
		var h [32]byte
		copy(h[:], payload[:32])
		return h
	}
	return sha256.Sum256(payload)
}

func decodeBlock(payload []byte) (Block, bool) {
	return Block{HeaderHash: payloadHash(payload), Payload: payload}, true
}

func decodeMerkleBlock(payload []byte) (MerkleBlock, bool) {
	return MerkleBlock{HeaderHash: payloadHash(payload), Payload: payload}, true
}

func decodeTx(payload []byte) (Tx, bool) {
	return Tx{Hash: payloadHash(payload), Payload: payload}, true
}

// aggregate re-emits one wire message a peer received on every topic
// a listener might care about: the generic "message" topic, a topic
// named after the command itself, and - for the three content-carrying
// commands - a further topic addressed by the base64 of the payload's
// hash, so a caller waiting on one specific block or transaction can
// subscribe without filtering every message that passes through.
func (g *Group) aggregate(peer Peer, msg Message) {
	g.emit("message", msg, peer)
	g.emit(msg.Command, msg, peer)

	switch msg.Command {
	case "block":
		if b, ok := decodeBlock(msg.Payload); ok {
			g.emit("block:"+txKey(b.HeaderHash[:]), b, peer)
		}
	case "merkleblock":
		if b, ok := decodeMerkleBlock(msg.Payload); ok {
			g.emit("merkleblock:"+txKey(b.HeaderHash[:]), b, peer)
		}
	case "tx":
		if t, ok := decodeTx(msg.Payload); ok {
			g.emit("tx:"+txKey(t.Hash[:]), t, peer)
		}
	}
}
