// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

// ExchangePeer is one session the exchange has surfaced, discriminated
// by whether it originated from a remote dial-in (Incoming) or was
// established by Connect.
type ExchangePeer struct {
	Transport Transport
	Incoming  bool
}

// Exchange is the peer-exchange collaborator: constructed by the
// caller (the reference group/exchange.New takes only an optional
// WebRTC configuration, no network magic), it provides
// websocket/WebRTC-based peer introduction. Its own wire
// subprotocol is out of scope for this module; Group only
// drives this contract.
type Exchange interface {
	// Connect establishes one outbound websocket/WebRTC session
	// toward address using transport ("websocket" or "webrtc").
	Connect(transport string, address string, opts map[string]interface{}, cb func(t Transport, err error))

	// Accept enables inbound sessions of transport on port.
	Accept(transport string, opts map[string]interface{}, cb func(err error))

	// Unaccept disables inbound sessions of transport.
	Unaccept(transport string, cb func(err error))

	// GetNewPeer asks the exchange's own peer list for one
	// already-connected web peer to use as a discovery candidate.
	GetNewPeer(cb func(t Transport, err error))

	// ConnectedWebPeerCount reports how many web peers (from prior
	// Connect/Accept calls) are currently connected; the discovery
	// dispatcher uses this to decide whether exchange.GetNewPeer is
	// eligible this attempt.
	ConnectedWebPeerCount() int

	// Subscribe delivers every inbound session the exchange accepts,
	// discriminated via ExchangePeer.Incoming = true.
	Subscribe(handler func(peer ExchangePeer))

	// SubscribeError surfaces the exchange's own unrecoverable errors, which
	// propagate through the Group's "error" channel.
	SubscribeError(handler func(err error))
}
