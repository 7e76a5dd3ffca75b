// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/represtati3/bitcoin-net/fault"
)

// flakyDispatchPeer times out its first N GetBlocks calls, then
// succeeds. Its request methods complete on their own goroutine,
// matching a real Peer's off-wire reply.
type flakyDispatchPeer struct {
	name       string
	failures   int32
	calls      int32
	disconnect int32
}

func (p *flakyDispatchPeer) Send(command string, payload []byte) error { return nil }

func (p *flakyDispatchPeer) Disconnect(err error) { atomic.AddInt32(&p.disconnect, 1) }

func (p *flakyDispatchPeer) Subscribe(event string, handler func(args ...interface{})) (unsubscribe func()) {
	return func() {}
}

func (p *flakyDispatchPeer) GetBlocks(hashes [][]byte, opts RequestOptions, cb func(err error, result interface{})) {
	n := atomic.AddInt32(&p.calls, 1)
	if n <= p.failures {
		go cb(fault.ErrRequestTimeout(), nil)
		return
	}
	go cb(nil, "ok")
}

func (p *flakyDispatchPeer) GetTransactions(blockHash []byte, txids [][]byte, cb func(err error, result interface{})) {
	go cb(nil, nil)
}

func (p *flakyDispatchPeer) GetHeaders(locator [][]byte, opts RequestOptions, cb func(err error, result interface{})) {
	go cb(nil, nil)
}

func (p *flakyDispatchPeer) String() string { return p.name }

// TestDispatchRetriesOnTimeout checks that a timed-out request is
// surfaced as "requestError", disconnects the peer that timed out,
// and keeps retrying until a completion succeeds.
func TestDispatchRetriesOnTimeout(t *testing.T) {
	peer := &flakyDispatchPeer{name: "flaky", failures: 2}
	g := New(Params{}, Options{NumPeers: 1}, nil)
	defer g.Close()

	g.post(func() {
		g.peers = append(g.peers, &peerEntry{peer: peer})
	})

	var errCount int32
	g.On("requestError", func(args ...interface{}) {
		atomic.AddInt32(&errCount, 1)
	})

	result := make(chan struct {
		err error
		res interface{}
	}, 1)
	g.Request("getBlocks", nil, nil, func(err error, res interface{}, p Peer) {
		result <- struct {
			err error
			res interface{}
		}{err, res}
	})

	select {
	case r := <-result:
		if nil != r.err {
			t.Fatalf("expected eventual success, got error: %v", r.err)
		}
		if "ok" != r.res {
			t.Fatalf("expected result %q, got %v", "ok", r.res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request completion")
	}

	if 2 != atomic.LoadInt32(&errCount) {
		t.Fatalf("expected 2 requestError events, got %d", errCount)
	}
	if 3 != atomic.LoadInt32(&peer.calls) {
		t.Fatalf("expected 3 GetBlocks calls (2 failures + 1 success), got %d", atomic.LoadInt32(&peer.calls))
	}
	if atomic.LoadInt32(&peer.disconnect) < 2 {
		t.Fatalf("expected the flaky peer to be disconnected at least twice, got %d", peer.disconnect)
	}
}

// TestDispatchNoPeersFailsImmediately checks that dispatching against
// an empty pool fails synchronously with ErrNotConnected rather than
// hanging.
func TestDispatchNoPeersFailsImmediately(t *testing.T) {
	g := New(Params{}, Options{NumPeers: 1}, nil)
	defer g.Close()

	done := make(chan error, 1)
	g.Request("getBlocks", nil, nil, func(err error, res interface{}, p Peer) {
		done <- err
	})

	select {
	case err := <-done:
		if fault.ErrNotConnected != err {
			t.Fatalf("expected ErrNotConnected, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

// TestRequestUnknownMethod checks that Request rejects a method name
// outside requestMethods without ever consulting the peer pool.
func TestRequestUnknownMethod(t *testing.T) {
	g := New(Params{}, Options{NumPeers: 1}, nil)
	defer g.Close()

	done := make(chan error, 1)
	g.Request("getWidgets", nil, nil, func(err error, res interface{}, p Peer) {
		done <- err
	})

	select {
	case err := <-done:
		if !fault.IsErrInvalid(err) {
			t.Fatalf("expected InvalidError, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}
