// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"io"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/represtati3/bitcoin-net/fault"
)

// pairState is one inbound client's progress toward being spliced to
// an outbound peer.
type pairState int

const (
	pairPairing pairState = iota
	pairSpliced
	pairTearingDown
	pairGone
)

type pairing struct {
	mu       sync.Mutex
	client   Transport
	outbound Transport
	state    pairState
	teardown sync.Once
}

// Bridge pairs every inbound connection with a freshly discovered
// outbound peer and splices the two byte streams together, rather
// than admitting either side into a request/response pool. It wraps a
// *Group only to reuse its discovery dispatcher and inbound
// acceptor; Connect is disabled since a Bridge never maintains
// its own outbound pool independent of an inbound client asking for
// one.
type Bridge struct {
	*Group

	pairings *lru.Cache[Transport, *pairing]
}

const maxPendingPairings = 256

// NewBridge constructs a Bridge over params/exchange. opts.ConnectWeb
// is forced false: web-seed/peer-exchange discovery plays no role in
// pairing inbound clients with outbound peers.
func NewBridge(params Params, opts Options, exchange Exchange) *Bridge {
	opts.ConnectWeb = false
	cache, _ := lru.New[Transport, *pairing](maxPendingPairings)
	b := &Bridge{pairings: cache}
	b.Group = New(params, opts, &bridgeExchange{Exchange: exchange, bridge: b})
	return b
}

// Connect always fails: a Bridge has no independent outbound pool to
// fill, only per-client pairing triggered by inbound connections.
func (b *Bridge) Connect() {
	b.Group.post(func() {
		b.Group.emit("error", fault.ErrBridgeConnectForbidden)
	})
}

// bridgeExchange intercepts the inbound-peer notifications the
// underlying Group's exchange collaborator normally routes into
// handleExchangePeer, redirecting incoming sessions into the pairing
// state machine instead.
type bridgeExchange struct {
	Exchange
	bridge *Bridge
}

func (x *bridgeExchange) Subscribe(handler func(peer ExchangePeer)) {
	x.Exchange.Subscribe(func(p ExchangePeer) {
		if p.Incoming {
			// pair touches pool/discovery state and emits events, so
			// it must run on the coordinator goroutine like every
			// other state mutation - the raw exchange calls this
			// handler from its own goroutine, not the coordinator's.
			x.bridge.Group.post(func() { x.bridge.pair(p.Transport) })
			return
		}
		handler(p)
	})
}

// pair begins the {Pairing -> Spliced | Tearing Down -> Gone} sequence
// for one inbound client: it emits "connection", asks the discovery
// dispatcher for one outbound candidate, retries from the same client
// on failure, and splices bidirectionally on success.
func (b *Bridge) pair(client Transport) {
	p := &pairing{client: client, state: pairPairing}
	b.pairings.Add(client, p)
	b.Group.emit("connection", client)
	b.attempt(p)
}

func (b *Bridge) attempt(p *pairing) {
	b.Group.discoverOne(func(t Transport, err error) {
		b.Group.post(func() {
			p.mu.Lock()
			state := p.state
			p.mu.Unlock()
			if pairGone == state || pairTearingDown == state {
				if nil != t {
					t.Close()
				}
				return
			}
			if nil != err {
				b.Group.connectError(err, nil)
				b.attempt(p)
				return
			}
			b.splice(p, t)
		})
	})
}

func (b *Bridge) splice(p *pairing, outbound Transport) {
	p.mu.Lock()
	p.outbound = outbound
	p.state = pairSpliced
	p.mu.Unlock()

	b.Group.emit("bridge", p.client, outbound)

	// Either direction returning (EOF or error) means the pairing is
	// dead: teardown closes both sides immediately so the other
	// goroutine's blocked Read unblocks too, rather than waiting for
	// both to finish on their own. Whichever direction's io.Copy
	// actually carried a non-nil error is the one that drives the
	// shared error handler below.
	go func() {
		_, err := io.Copy(outbound, p.client)
		b.teardown(p, err)
	}()
	go func() {
		_, err := io.Copy(p.client, outbound)
		b.teardown(p, err)
	}()
}

// teardown closes both sides of a pairing exactly once, however it
// was reached (either stream returning an error is enough to end the
// splice from both directions once io.Copy unblocks on the other),
// and - when the direction that triggered it carried a real error,
// rather than a graceful close - emits the shared peerError the
// linked-teardown state machine calls for.
func (b *Bridge) teardown(p *pairing, err error) {
	p.teardown.Do(func() {
		p.mu.Lock()
		p.state = pairTearingDown
		client, outbound := p.client, p.outbound
		p.mu.Unlock()

		if nil != client {
			client.Close()
		}
		if nil != outbound {
			outbound.Close()
		}

		p.mu.Lock()
		p.state = pairGone
		p.mu.Unlock()
		b.pairings.Remove(p.client)

		if nil != err {
			b.Group.post(func() { b.Group.emit("peerError", err, client, outbound) })
		}
	})
}
