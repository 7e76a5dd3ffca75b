// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "time"

// WebSeed is one entry of the params.webSeeds list: either a bare
// URL string (normalised by the web-seed driver) or an
// already-structured record.
type WebSeed struct {
	Transport string
	Address   string
	Opts      map[string]interface{}
}

// Params are the network-identifying, mostly-static inputs a Group is
// constructed from, passed directly by the caller rather than loaded
// from a config file - this package is a library, not a daemon.
type Params struct {
	// Magic identifies the network family. Group does not read it;
	// in particular it is not passed to the exchange collaborator,
	// which the caller constructs.
	Magic uint32

	// DNSSeeds are hostnames resolved by the DNS seed resolver.
	DNSSeeds []string

	// StaticPeers are "host[:port]" strings parsed by the static
	// peer resolver.
	StaticPeers []string

	// DefaultPort is used whenever a discovered address carries no
	// explicit port.
	DefaultPort int

	// DefaultWebPort is used by the web-seed driver when a
	// parsed URL carries no port; defaults to 8192 if zero.
	DefaultWebPort int

	// WebSeeds bootstrap the exchange-based discovery producer at
	// startup; used once, not re-consulted afterwards.
	WebSeeds []WebSeed

	// GetNewPeer is an optional caller-supplied discovery method,
	// always included in the enabled set when non-nil.
	GetNewPeer Discoverer
}

// Options configure pool sizing, timeouts, and per-peer construction.
type Options struct {
	// NumPeers is the pool's target admitted-peer count (default 8).
	NumPeers int

	// HardLimit, when true, guarantees |peers| <= NumPeers after
	// every admission.
	HardLimit bool

	// ConnectTimeout defaults to 8000ms when zero and reaches new
	// Peers only as part of the Options handed to NewPeer. The
	// built-in DNS-seed and static-peer dialers do not read it: they
	// always dial with the 8000ms default.
	ConnectTimeout time.Duration

	// PeerOpts is an opaque bundle forwarded verbatim to upstream.New
	// for each wrapped Peer.
	PeerOpts interface{}

	// ConnectWeb enables the exchange-based discovery producer
	// (websocket/WebRTC web seeds and peer exchange). Bridge forces
	// this to false.
	ConnectWeb bool

	// WRTC is carried in Options but not read by Group; WebRTC is
	// configured on the Exchange when the caller constructs it (for
	// group/exchange, exchange.New, where nil disables WebRTC).
	WRTC interface{}

	// NewPeer wraps a raw Transport (from any discovery method or an
	// inbound exchange session) into a Peer. Required: Group has no
	// built-in wire protocol of its own, matching that the wrapped
	// Peer's handshake/protocol logic is out of scope here.
	NewPeer func(t Transport, opts Options) Peer
}

const (
	defaultNumPeers       = 8
	defaultConnectTimeout = 8000 * time.Millisecond
	defaultWebPort        = 8192
	defaultAcceptPort     = 8192
)

// withDefaults returns a copy of opts with zero-valued fields filled
// in from the documented defaults.
func (o Options) withDefaults() Options {
	if 0 == o.NumPeers {
		o.NumPeers = defaultNumPeers
	}
	if 0 == o.ConnectTimeout {
		o.ConnectTimeout = defaultConnectTimeout
	}
	return o
}

func (p Params) webPort() int {
	if 0 == p.DefaultWebPort {
		return defaultWebPort
	}
	return p.DefaultWebPort
}
