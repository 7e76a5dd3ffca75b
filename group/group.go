// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/represtati3/bitcoin-net/fault"
	"github.com/represtati3/bitcoin-net/messagebus"
	"golang.org/x/time/rate"
)

// phase tracks the pool's connection lifecycle: a Group starts idle,
// Connect moves it to connecting, and Close moves it to closed. Only
// idle accepts a Connect call.
type phase int

const (
	phaseIdle phase = iota
	phaseConnecting
	phaseClosed
)

const commandQueueSize = 64

// Group coordinates a pool of admitted Peers toward a target size,
// drawing candidates from whichever discovery methods the caller has
// configured. All mutable state below is owned by a single goroutine
// (run); every other method only ever posts a closure onto cmds and
// waits, so there is never a lock protecting group fields directly -
// the same discipline the connector's own control loop uses for its
// static/dynamic client lists.
type Group struct {
	log      *logger.L
	params   Params
	opts     Options
	exchange Exchange
	bus      *messagebus.Bus

	cmds     chan func()
	shutdown chan struct{}
	stopped  chan struct{}

	closeOnce sync.Once

	ph         phase
	connecting bool // true while fillPeers has outstanding connectOne calls
	accepting  map[string]bool // transport name -> currently accepting
	peers      []*peerEntry
	txPool     *txPool

	// redialLimiter throttles connectOne's immediate self-retry on
	// discovery failure, so a discovery method that fails instantly
	// (a DNS resolver returning NXDOMAIN, a web seed refusing every
	// connection) cannot spin the coordinator in a busy retry loop.
	redialLimiter *rate.Limiter
}

// redialRate and redialBurst bound how fast finishConnect may re-fire
// connectOne after a failed attempt; a genuinely healthy discovery
// method never approaches this ceiling; a dead one is throttled
// instead of hammered.
const (
	redialRate  = 10 // attempts per second, steady state
	redialBurst = 5
)

// New constructs a Group in the idle phase and starts its coordinator
// goroutine; no discovery or network activity happens until Connect
// is called.
func New(params Params, opts Options, exchange Exchange) *Group {
	g := &Group{
		log:           logger.New("group"),
		params:        params,
		opts:          opts.withDefaults(),
		exchange:      exchange,
		bus:           messagebus.New(),
		cmds:          make(chan func(), commandQueueSize),
		shutdown:      make(chan struct{}),
		stopped:       make(chan struct{}),
		accepting:     make(map[string]bool),
		txPool:        newTxPool(),
		redialLimiter: rate.NewLimiter(rate.Limit(redialRate), redialBurst),
	}
	go g.run()

	if nil != exchange {
		exchange.Subscribe(func(p ExchangePeer) {
			g.post(func() { g.handleExchangePeer(p) })
		})
		exchange.SubscribeError(func(err error) {
			g.post(func() { g.emit("error", err) })
		})
	}
	return g
}

// run is the coordinator loop: every field access outside of this
// goroutine happens through a posted closure, so nothing here needs a
// mutex. The tx-pool decay ticker runs only while the tx pool tracks
// at least one hash (txPool.wantTicker): admitting a peer does not
// start it by itself, and it stops again once decay empties the pool.
func (g *Group) run() {
	g.log.Info("starting…")
	defer close(g.stopped)

	var tick <-chan time.Time
	var ticker *time.Ticker

	for {
		select {
		case <-g.shutdown:
			if nil != ticker {
				ticker.Stop()
			}
			g.teardown()
			g.log.Info("stopped")
			return

		case fn := <-g.cmds:
			fn()

			// tx-pool ticker state can change as a side effect of the
			// closure just run (admission/eviction of the last peer).
			switch {
			case g.txPool.wantTicker() && nil == ticker:
				ticker = time.NewTicker(txPoolTickInterval)
				tick = ticker.C
			case !g.txPool.wantTicker() && nil != ticker:
				ticker.Stop()
				ticker = nil
				tick = nil
			}

		case <-tick:
			g.txPool.decay()
		}
	}
}

// post enqueues fn on the coordinator's command channel and blocks
// until it has run, giving callers synchronous request/reply semantics
// on top of the single-goroutine model. post is a no-op once the Group
// has begun shutting down.
func (g *Group) post(fn func()) {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case g.cmds <- wrapped:
	case <-g.shutdown:
		return
	}
	select {
	case <-done:
	case <-g.shutdown:
	}
}

// Close shuts down the coordinator, disconnecting every admitted peer.
// Safe to call more than once and from any goroutine.
func (g *Group) Close() {
	g.closeOnce.Do(func() {
		close(g.shutdown)
		<-g.stopped
	})
}

// teardown runs on the coordinator goroutine as the last step before
// run returns, disconnecting every currently admitted peer.
func (g *Group) teardown() {
	g.ph = phaseClosed
	for _, e := range g.peers {
		for _, unsub := range e.unsubscribe {
			unsub()
		}
		e.peer.Disconnect(fault.ErrNotConnected)
	}
	g.peers = nil
}

// UpdateDiscoveryInputs replaces the DNS-seed and static-peer lists a
// running Group consults; in-flight discovery attempts are unaffected,
// the new lists take effect on the next discoverOne call. Used by
// cmd/peergroupd's config-file watcher to pick up edits without a
// restart.
func (g *Group) UpdateDiscoveryInputs(dnsSeeds, staticPeers []string) {
	g.post(func() {
		g.params.DNSSeeds = dnsSeeds
		g.params.StaticPeers = staticPeers
	})
}

// On subscribes handler to every event Group emits on name (e.g.
// "peer", "disconnect", "block", or a content-addressed
// "tx:<hash>"/"block:<hash>" topic from the event aggregator).
// handler runs synchronously on the coordinator goroutine, so it must
// not call back into Group.
func (g *Group) On(name string, handler func(args ...interface{})) (unsubscribe func()) {
	return g.bus.Subscribe(name, func(msg messagebus.Message) {
		handler(msg.Parameters...)
	})
}

// emit publishes one event; must only be called from the coordinator
// goroutine.
func (g *Group) emit(name string, args ...interface{}) {
	g.bus.Send(name, name, args...)
}

