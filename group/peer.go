// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "time"

// Peer represents one established, handshaken session with a remote
// node. Its wire-format encoding, handshake, and message framing are
// out of scope for this module — Peer is the external
// collaborator contract the Group drives.
type Peer interface {
	// Send transmits one application message; delivery is
	// best-effort, matching the Group-level Send semantics.
	Send(command string, payload []byte) error

	// Disconnect tears the session down. err, when non-nil, is the
	// reason recorded in the subsequent Disconnect event.
	Disconnect(err error)

	// Subscribe registers a handler for one of the fixed peer event
	// kinds: "ready", "message", "tx", "block", "merkleblock",
	// "disconnect", "error". Returns an unsubscribe func.
	Subscribe(event string, handler func(args ...interface{})) (unsubscribe func())

	// GetBlocks, GetTransactions, GetHeaders are the three request
	// methods the dispatcher knows how to invoke by name.
	GetBlocks(hashes [][]byte, opts RequestOptions, cb func(err error, result interface{}))
	GetTransactions(blockHash []byte, txids [][]byte, cb func(err error, result interface{}))
	GetHeaders(locator [][]byte, opts RequestOptions, cb func(err error, result interface{}))

	// String is a short label for logging.
	String() string
}

// RequestOptions is an opaque bundle forwarded verbatim to a Peer's
// request methods; its shape belongs to the (out of scope) wire
// protocol.
type RequestOptions map[string]interface{}

// Message is the payload of a generic "message" event re-emitted by
// the event aggregator: the command name plus its raw
// argument, before any command-specific decoding.
type Message struct {
	Command string
	Payload []byte
}

// Tx is the minimal shape the tx-pool needs: a content hash
// used for deduplication. Its full transaction structure is out of
// scope.
type Tx struct {
	Hash    [32]byte
	Payload []byte
}

// Block carries just enough header information for the event
// aggregator's content-addressed "block:<hash>" topic.
type Block struct {
	HeaderHash [32]byte
	Payload    []byte
}

// MerkleBlock mirrors Block for the "merkleblock" event family.
type MerkleBlock struct {
	HeaderHash [32]byte
	Payload    []byte
}

// peerEntry is the bookkeeping the lifecycle manager attaches to
// each admitted peer: the peer itself, its admission time (recorded
// only; the hard-limit evictor finds the oldest entry by its position
// at the front of Group.peers), and the unsubscribe funcs installed on
// it so they can be torn down exactly once on removal.
type peerEntry struct {
	peer        Peer
	admittedAt  time.Time
	unsubscribe []func()
}
