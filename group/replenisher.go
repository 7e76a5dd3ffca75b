// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "time"

// Connect moves the pool from idle to connecting and starts filling
// toward the target size. Calling it more than once, or after Close,
// is a no-op.
func (g *Group) Connect() {
	g.post(func() {
		if phaseIdle != g.ph {
			return
		}
		g.ph = phaseConnecting
		g.startFill()
	})
}

// startFill kicks off the initial fill. When web seeds are configured
// it first bootstraps up to half the target pool size (never fewer
// than one, never more than the seed list itself) directly through
// the exchange, and only once that many peers have actually been
// admitted does it top up the remainder through the normal discovery
// dispatcher; with no web seeds it goes straight to the normal path.
func (g *Group) startFill() {
	target := g.opts.NumPeers
	if len(g.params.WebSeeds) > 0 && g.opts.ConnectWeb {
		g.bootstrapWebSeeds(target)
		return
	}
	g.fillPeers()
}

// bootstrapWebSeeds opens nSeeds web-seed sessions and waits - via
// the ordinary "peer" admission event, on the coordinator goroutine -
// for nSeeds peers to land before calling fillPeers. Without this
// gate fillPeers would run immediately against an empty pool and fire
// a full target-sized burst of ordinary discovery concurrently with
// the web-seed burst, overshooting target and defeating the point of
// bootstrapping through web seeds first.
func (g *Group) bootstrapWebSeeds(target int) {
	nSeeds := clamp(1, target/2, len(g.params.WebSeeds))

	admitted := 0
	var unsub func()
	unsub = g.On("peer", func(args ...interface{}) {
		admitted++
		if admitted >= nSeeds {
			unsub()
			g.fillPeers()
		}
	})

	for i := 0; i < nSeeds; i++ {
		g.connectOneVia(g.params.WebSeeds[i%len(g.params.WebSeeds)])
	}
}

func clamp(min, v, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// fillPeers computes how many peers are still needed to reach target
// and fires that many concurrent connectOne attempts. This is the
// burst path, used only at startup (directly from startFill, or from
// bootstrapWebSeeds once the web-seed peers are admitted); it is
// distinct from handleDisconnect's single-attempt steady-state
// replacement.
func (g *Group) fillPeers() {
	n := g.opts.NumPeers - len(g.peers)
	if n <= 0 {
		g.connecting = false
		return
	}
	g.connecting = true
	for i := 0; i < n; i++ {
		g.connectOne()
	}
}

// connectOne runs one discovery attempt on its own goroutine and
// reports the outcome back to the coordinator: a Transport becomes a
// wrapped Peer and is admitted, an error is surfaced as connectError.
func (g *Group) connectOne() {
	go g.discoverOne(func(t Transport, err error) {
		g.post(func() { g.finishConnect(t, err) })
	})
}

// redialAfterDelay re-fires connectOne, deferred by whatever delay
// redialLimiter's token bucket currently demands. A healthy discovery
// method drains its reservation instantly and this behaves exactly
// like an immediate retry; a method that fails on every attempt is
// slowed to redialRate instead of spinning the coordinator.
func (g *Group) redialAfterDelay() {
	delay := g.redialLimiter.Reserve().Delay()
	if delay <= 0 {
		g.connectOne()
		return
	}
	time.AfterFunc(delay, func() { g.post(g.connectOne) })
}

// connectOneVia dials one specific web seed directly, used only for
// the startup bootstrap burst.
func (g *Group) connectOneVia(seed WebSeed) {
	go g.webSeedConnect(seed, func(t Transport, err error) {
		g.post(func() { g.finishConnect(t, err) })
	})
}

// finishConnect runs on the coordinator goroutine: it either admits
// the new peer or records the failure, then clears the "connecting"
// flag once every outstanding attempt from the current fillPeers call
// has reported back (approximated here by re-checking target size,
// matching fillPeers' own idle condition).
func (g *Group) finishConnect(t Transport, err error) {
	if phaseClosed == g.ph {
		if nil != t {
			t.Close()
		}
		return
	}
	if nil != err {
		g.connectError(err, nil)
		if g.connecting && len(g.peers) < g.opts.NumPeers {
			g.redialAfterDelay()
		} else {
			g.connecting = false
		}
		return
	}
	peer := g.opts.NewPeer(t, g.opts)
	g.awaitReady(peer)
}
