// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"time"

	"github.com/google/uuid"
	"github.com/represtati3/bitcoin-net/fault"
)

// connectError is delivered both when candidate selection/handshaking
// fails before a Peer ever exists (peer is nil) and when a peer was
// built but failed or disconnected before firing "ready" (peer is the
// Peer that never became ready). Neither case ever reaches addPeer.
func (g *Group) connectError(err error, peer Peer) {
	g.log.Debugf("connect error: %s", err)
	g.emit("connectError", err, peer)
}

// awaitReady builds no state of its own; it gates a freshly built
// peer behind its "ready" event before addPeer ever sees it, so the
// admitted-peers list only ever contains peers that actually became
// ready. Error or disconnect firing first means the peer never
// completed its handshake: that is surfaced through connectError
// (with the peer attached, unlike the no-peer-yet case) rather than
// through the ordinary post-admission peerError/disconnect path, and
// - while still connecting - triggers exactly one replacement
// attempt instead of admitting a peer that never finished handshaking.
func (g *Group) awaitReady(peer Peer) {
	handled := false
	var unsubReady, unsubErr, unsubDisc func()
	detach := func() {
		unsubReady()
		unsubErr()
		unsubDisc()
	}

	unsubReady = peer.Subscribe("ready", func(args ...interface{}) {
		g.post(func() {
			if handled {
				return
			}
			handled = true
			detach()
			if phaseClosed == g.ph {
				peer.Disconnect(fault.ErrNotConnected)
				return
			}
			g.addPeer(peer)
		})
	})

	preReadyFailure := func(args ...interface{}) {
		var err error
		if len(args) > 0 {
			err, _ = args[0].(error)
		}
		g.post(func() {
			if handled {
				return
			}
			handled = true
			detach()
			g.connectError(err, peer)
			if phaseConnecting == g.ph {
				g.redialAfterDelay()
			}
		})
	}
	unsubErr = peer.Subscribe("error", preReadyFailure)
	unsubDisc = peer.Subscribe("disconnect", preReadyFailure)
}

// addPeer admits peer into the pool: it appends the entry, wires the
// event subscriptions that keep the aggregator and the
// disconnect-triggered replenish path alive for this peer's
// lifetime, and emits "peer". When hardLimit is set and admission
// pushes the pool over target, the oldest entry is evicted immediately
// afterwards so the invariant |peers| <= target holds on return.
func (g *Group) addPeer(peer Peer) {
	if phaseClosed == g.ph {
		peer.Disconnect(fault.ErrNotConnected)
		return
	}

	id := uuid.NewString()
	entry := &peerEntry{peer: peer, admittedAt: time.Now()}

	unsubMsg := peer.Subscribe("message", func(args ...interface{}) {
		g.post(func() { g.handlePeerMessage(peer, args) })
	})
	unsubTx := peer.Subscribe("tx", func(args ...interface{}) {
		g.post(func() { g.handlePeerTx(peer, args) })
	})
	unsubErr := peer.Subscribe("error", func(args ...interface{}) {
		var err error
		if len(args) > 0 {
			err, _ = args[0].(error)
		}
		g.post(func() { g.emit("peerError", err, peer) })
	})
	unsubDisc := peer.Subscribe("disconnect", func(args ...interface{}) {
		var err error
		if len(args) > 0 {
			err, _ = args[0].(error)
		}
		g.post(func() { g.handleDisconnect(peer, err) })
	})
	entry.unsubscribe = []func(){unsubMsg, unsubTx, unsubErr, unsubDisc}

	g.peers = append(g.peers, entry)
	g.log.Infof("admitted peer %s (%s), pool size %d", id, peer, len(g.peers))

	if len(g.peers) >= g.opts.NumPeers {
		g.connecting = false
	}

	if g.opts.HardLimit && len(g.peers) > g.opts.NumPeers {
		oldest := g.peers[0]
		g.peers = g.peers[1:]
		for _, unsub := range oldest.unsubscribe {
			unsub()
		}
		g.log.Infof("PeerGroup over limit, evicting %s", oldest.peer)
		oldest.peer.Disconnect(fault.InvalidError("PeerGroup over limit"))
	}

	g.emit("peer", peer)
}

// handleDisconnect removes peer from the pool and starts exactly one
// replacement connection attempt if the pool is not already mid a
// fill (fillPeers in replenisher.go handles the initial/burst case;
// this is the steady-state one-for-one replacement path, kept
// distinct per the pool's re-entry design).
func (g *Group) handleDisconnect(peer Peer, err error) {
	for i, e := range g.peers {
		if e.peer == peer {
			for _, unsub := range e.unsubscribe {
				unsub()
			}
			g.peers = append(g.peers[:i], g.peers[i+1:]...)
			break
		}
	}
	g.emit("disconnect", peer, err)

	if phaseClosed == g.ph {
		return
	}
	if !g.connecting && len(g.peers) < g.opts.NumPeers {
		g.connectOne()
	}
}

// handlePeerMessage forwards a peer's raw "message" event through the
// aggregator: generic topic, per-command topic, and any
// content-addressed topic the command implies.
func (g *Group) handlePeerMessage(peer Peer, args []interface{}) {
	if 0 == len(args) {
		return
	}
	msg, ok := args[0].(Message)
	if !ok {
		return
	}
	g.aggregate(peer, msg)
}

// handlePeerTx dedupes an incoming transaction announcement against
// the tx pool before re-emitting it, so listeners only ever see
// a given hash once per rolling window.
func (g *Group) handlePeerTx(peer Peer, args []interface{}) {
	if 0 == len(args) {
		return
	}
	tx, ok := args[0].(Tx)
	if !ok {
		return
	}
	if !g.txPool.Add(tx.Hash[:]) {
		return
	}
	g.emit("tx", tx, peer)
	g.emit("tx:"+txKey(tx.Hash[:]), tx, peer)
}

// handleExchangePeer admits an inbound web session (websocket/WebRTC)
// surfaced by the exchange collaborator directly into the pool,
// bypassing the discovery dispatcher entirely - these arrive
// unsolicited, not as the result of a connectOne attempt.
func (g *Group) handleExchangePeer(p ExchangePeer) {
	if !p.Incoming {
		return
	}
	if phaseClosed == g.ph {
		return
	}
	peer := g.opts.NewPeer(p.Transport, g.opts)
	g.awaitReady(peer)
}
