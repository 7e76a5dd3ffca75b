// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group_test

import (
	"sync"

	"github.com/represtati3/bitcoin-net/group"
)

// fakePeer is a hand-rolled stand-in for a handshaken session: it
// records every Send and lets a test fire its subscribed events
// directly, with no wire protocol underneath.
type fakePeer struct {
	name string

	mu       sync.Mutex
	sent     []string
	handlers map[string][]func(args ...interface{})

	getBlocksFn func(hashes [][]byte, opts group.RequestOptions, cb func(err error, result interface{}))
}

// newFakePeer fires "ready" on its own goroutine right after
// construction, mirroring upstream.Peer's readLoop: ready is the
// first thing a real connection announces, asynchronously, never in
// the constructor's own stack.
func newFakePeer(name string) *fakePeer {
	p := &fakePeer{name: name, handlers: make(map[string][]func(args ...interface{}))}
	go p.fire("ready")
	return p
}

func (p *fakePeer) Send(command string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, command)
	return nil
}

func (p *fakePeer) Disconnect(err error) {
	p.fire("disconnect", err)
}

func (p *fakePeer) Subscribe(event string, handler func(args ...interface{})) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[event] = append(p.handlers[event], handler)
	idx := len(p.handlers[event]) - 1
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.handlers[event][idx] = nil
	}
}

func (p *fakePeer) fire(event string, args ...interface{}) {
	p.mu.Lock()
	handlers := append([]func(args ...interface{}){}, p.handlers[event]...)
	p.mu.Unlock()
	for _, h := range handlers {
		if nil != h {
			h(args...)
		}
	}
}

// GetBlocks, like a real Peer's request methods, always completes on
// a separate goroutine - never synchronously in the caller's stack -
// matching that a real reply only ever arrives off the wire.
func (p *fakePeer) GetBlocks(hashes [][]byte, opts group.RequestOptions, cb func(err error, result interface{})) {
	if nil != p.getBlocksFn {
		go p.getBlocksFn(hashes, opts, cb)
		return
	}
	go cb(nil, "blocks")
}

func (p *fakePeer) GetTransactions(blockHash []byte, txids [][]byte, cb func(err error, result interface{})) {
	go cb(nil, "transactions")
}

func (p *fakePeer) GetHeaders(locator [][]byte, opts group.RequestOptions, cb func(err error, result interface{})) {
	go cb(nil, "headers")
}

func (p *fakePeer) String() string { return p.name }

// fakeExchange is a hand-rolled stand-in for the websocket/WebRTC
// peer-exchange collaborator: Connect hands back whatever the test
// has queued via queueConnect, with no actual network I/O.
type fakeExchange struct {
	mu       sync.Mutex
	queued   []func() (group.Transport, error)
	peerSub  func(peer group.ExchangePeer)
	errSub   func(err error)
	webCount int
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{}
}

func (x *fakeExchange) Connect(transport string, address string, opts map[string]interface{}, cb func(t group.Transport, err error)) {
	x.mu.Lock()
	var next func() (group.Transport, error)
	if len(x.queued) > 0 {
		next = x.queued[0]
		x.queued = x.queued[1:]
	}
	x.mu.Unlock()

	if nil == next {
		go cb(nil, nil)
		return
	}
	go func() {
		t, err := next()
		cb(t, err)
	}()
}

func (x *fakeExchange) Accept(transport string, opts map[string]interface{}, cb func(err error)) {
	go cb(nil)
}

func (x *fakeExchange) Unaccept(transport string, cb func(err error)) {
	go cb(nil)
}

func (x *fakeExchange) GetNewPeer(cb func(t group.Transport, err error)) {
	go cb(nil, nil)
}

func (x *fakeExchange) ConnectedWebPeerCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.webCount
}

func (x *fakeExchange) Subscribe(handler func(peer group.ExchangePeer)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.peerSub = handler
}

func (x *fakeExchange) SubscribeError(handler func(err error)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.errSub = handler
}

func (x *fakeExchange) queueConnect(result func() (group.Transport, error)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.queued = append(x.queued, result)
}

func (x *fakeExchange) deliverPeer(p group.ExchangePeer) {
	x.mu.Lock()
	sub := x.peerSub
	x.mu.Unlock()
	if nil != sub {
		sub(p)
	}
}
