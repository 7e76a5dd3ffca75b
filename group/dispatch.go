// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"math/rand"

	"github.com/represtati3/bitcoin-net/fault"
)

// requestMethods maps a method name to a uniform wrapper over one of
// Peer's typed request calls, so Request can dispatch by name without
// a big switch at every call site. getTransactions doesn't naturally
// share GetBlocks/GetHeaders' (hashes, opts) shape - it also needs a
// blockHash - so it is folded into the same shape by treating hashes
// as the txids and opts["blockHash"] as the block hash, keeping
// Request's public signature identical across all three methods.
var requestMethods = map[string]func(peer Peer, hashes [][]byte, opts RequestOptions, cb func(err error, result interface{})){
	"getBlocks": func(peer Peer, hashes [][]byte, opts RequestOptions, cb func(err error, result interface{})) {
		peer.GetBlocks(hashes, opts, cb)
	},
	"getHeaders": func(peer Peer, hashes [][]byte, opts RequestOptions, cb func(err error, result interface{})) {
		peer.GetHeaders(hashes, opts, cb)
	},
	"getTransactions": func(peer Peer, hashes [][]byte, opts RequestOptions, cb func(err error, result interface{})) {
		blockHash, _ := opts["blockHash"].([]byte)
		peer.GetTransactions(blockHash, hashes, cb)
	},
}

// Request sends method to a uniformly random admitted peer and
// delivers (err, result, peer) to completion. A timeout error
// disconnects that peer and retries against a fresh random peer
// without limit - the pool's normal replenishment keeps the candidate
// set alive, and no retry budget is invented here. completion is
// dropped, not called, if the Group closes while a request is
// outstanding.
func (g *Group) Request(method string, hashes [][]byte, opts RequestOptions, completion func(err error, result interface{}, peer Peer)) {
	fn, ok := requestMethods[method]
	if !ok {
		g.post(func() {
			completion(fault.InvalidError("unknown request method: "+method), nil, nil)
		})
		return
	}
	g.post(func() { g.dispatch(fn, hashes, opts, completion) })
}

func (g *Group) dispatch(fn func(peer Peer, hashes [][]byte, opts RequestOptions, cb func(err error, result interface{})), hashes [][]byte, opts RequestOptions, completion func(err error, result interface{}, peer Peer)) {
	if 0 == len(g.peers) {
		completion(fault.ErrNotConnected, nil, nil)
		return
	}

	entry := g.peers[rand.Intn(len(g.peers))]
	peer := entry.peer

	fn(peer, hashes, opts, func(err error, result interface{}) {
		g.post(func() {
			if phaseClosed == g.ph {
				return
			}
			if nil != err {
				if fault.IsTimeout(err) {
					g.emit("requestError", err, peer)
					// peer is still admitted and still wired to
					// handleDisconnect via addPeer's subscription;
					// Disconnect fires that "disconnect" event
					// synchronously, which posts back onto this same
					// coordinator goroutine. Run it off-goroutine so
					// that re-entrant post doesn't deadlock against
					// the closure it's called from.
					go peer.Disconnect(err)
					g.dispatch(fn, hashes, opts, completion)
					return
				}
				completion(err, nil, peer)
				return
			}
			completion(nil, result, peer)
		})
	})
}

// RandomPeer returns a uniformly random admitted peer, asserting -
// like Send's assert=true case - that at least one is currently
// admitted rather than silently returning a nil Peer.
func (g *Group) RandomPeer() (Peer, error) {
	type result struct {
		peer Peer
		err  error
	}
	resCh := make(chan result, 1)
	g.post(func() {
		if 0 == len(g.peers) {
			resCh <- result{nil, fault.ErrNotConnected}
			return
		}
		resCh <- result{g.peers[rand.Intn(len(g.peers))].peer, nil}
	})
	r := <-resCh
	return r.peer, r.err
}

// Send broadcasts command/payload to every admitted peer with no
// per-peer delivery guarantee. When assert is true and the pool is
// currently empty, Send fails synchronously with ErrNotConnected
// instead of silently doing nothing.
func (g *Group) Send(command string, payload []byte, assert bool) error {
	errCh := make(chan error, 1)
	g.post(func() {
		if assert && 0 == len(g.peers) {
			errCh <- fault.ErrNotConnected
			return
		}
		for _, e := range g.peers {
			e.peer.Send(command, payload)
		}
		errCh <- nil
	})
	return <-errCh
}
