// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package exchange is the reference group.Exchange: websocket peer
// introduction always available, WebRTC available only when a
// pion/webrtc configuration was supplied at construction. Both
// transports report through the same fixed Subscribe/SubscribeError
// event pair group.Group drives.
package exchange

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/gorilla/websocket"
	"github.com/represtati3/bitcoin-net/fault"
	"github.com/represtati3/bitcoin-net/group"
)

// Exchange implements group.Exchange over websocket and (optionally)
// WebRTC sessions.
type Exchange struct {
	log *logger.L

	mu        sync.Mutex
	listeners map[string]*websocketListener
	webPeers  map[net.Conn]struct{}

	peerHandlers  []func(peer group.ExchangePeer)
	errorHandlers []func(err error)

	webrtc *webrtcTransport // nil when no WRTC config was given
}

// New constructs an Exchange. wrtcConfig, when non-nil, must be a
// *webrtc.Configuration (github.com/pion/webrtc/v4); nil disables the
// WebRTC transport entirely, causing Connect/Accept("webrtc", ...) to
// fail with fault.ErrWebrtcTransportNotFound.
func New(wrtcConfig interface{}) *Exchange {
	x := &Exchange{
		log:       logger.New("exchange"),
		listeners: make(map[string]*websocketListener),
		webPeers:  make(map[net.Conn]struct{}),
	}
	if nil != wrtcConfig {
		x.webrtc = newWebrtcTransport(x.log, wrtcConfig, x.emitPeer, x.emitError)
	}
	return x
}

func (x *Exchange) Subscribe(handler func(peer group.ExchangePeer)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.peerHandlers = append(x.peerHandlers, handler)
}

func (x *Exchange) SubscribeError(handler func(err error)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.errorHandlers = append(x.errorHandlers, handler)
}

func (x *Exchange) emitPeer(p group.ExchangePeer) {
	x.mu.Lock()
	handlers := append([]func(group.ExchangePeer){}, x.peerHandlers...)
	x.mu.Unlock()
	for _, h := range handlers {
		h(p)
	}
}

func (x *Exchange) emitError(err error) {
	x.mu.Lock()
	handlers := append([]func(error){}, x.errorHandlers...)
	x.mu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

func (x *Exchange) trackWeb(conn net.Conn) {
	x.mu.Lock()
	x.webPeers[conn] = struct{}{}
	x.mu.Unlock()
}

func (x *Exchange) untrackWeb(conn net.Conn) {
	x.mu.Lock()
	delete(x.webPeers, conn)
	x.mu.Unlock()
}

// ConnectedWebPeerCount reports how many websocket/WebRTC sessions
// are currently tracked, gating whether GetNewPeer is worth trying.
func (x *Exchange) ConnectedWebPeerCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.webPeers)
}

// GetNewPeer never produces a candidate: it always reports a
// DiscoveryError, on its own goroutine as the group.Discoverer
// contract requires. The already-connected web peers are in use, and
// asking one of them for an address it does not yet have would need a
// peer-exchange subprotocol, which is out of scope here.
func (x *Exchange) GetNewPeer(cb func(t group.Transport, err error)) {
	go cb(nil, fault.DiscoveryError("exchange has no address book to draw from"))
}

// Connect dials one outbound session using transport ("websocket" or
// "webrtc").
func (x *Exchange) Connect(transport string, address string, opts map[string]interface{}, cb func(t group.Transport, err error)) {
	switch transport {
	case "websocket":
		go x.dialWebsocket(address, opts, cb)
	case "webrtc":
		if nil == x.webrtc {
			cb(nil, fault.ErrWebrtcTransportNotFound)
			return
		}
		go x.webrtc.dial(address, opts, cb)
	default:
		cb(nil, fault.InvalidError(fmt.Sprintf("unknown transport: %s", transport)))
	}
}

func (x *Exchange) dialWebsocket(address string, opts map[string]interface{}, cb func(t group.Transport, err error)) {
	port := 8192
	if p, ok := opts["port"].(int); ok && p > 0 {
		port = p
	}
	url := fmt.Sprintf("ws://%s:%d/", address, port)

	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if nil != err {
		cb(nil, fault.DiscoveryError(fmt.Sprintf("websocket dial: %s", err)))
		return
	}

	conn := newWSConn(c)
	x.trackWeb(conn)
	cb(conn, nil)
}

// Accept enables inbound sessions of transport on the given port.
func (x *Exchange) Accept(transport string, opts map[string]interface{}, cb func(err error)) {
	switch transport {
	case "websocket":
		go x.acceptWebsocket(opts, cb)
	case "webrtc":
		if nil == x.webrtc {
			cb(fault.ErrWebrtcTransportNotFound)
			return
		}
		go x.webrtc.accept(opts, cb)
	default:
		cb(fault.InvalidError(fmt.Sprintf("unknown transport: %s", transport)))
	}
}

func (x *Exchange) acceptWebsocket(opts map[string]interface{}, cb func(err error)) {
	port := 8192
	if p, ok := opts["port"].(int); ok && p > 0 {
		port = p
	}
	addr := fmt.Sprintf(":%d", port)

	x.mu.Lock()
	if _, exists := x.listeners[addr]; exists {
		x.mu.Unlock()
		cb(nil)
		return
	}
	x.mu.Unlock()

	upgrader := websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if nil != err {
			x.emitError(fault.DiscoveryError(fmt.Sprintf("websocket upgrade: %s", err)))
			return
		}
		conn := newWSConn(c)
		x.trackWeb(conn)
		x.emitPeer(group.ExchangePeer{Transport: conn, Incoming: true})
	})

	ln, err := net.Listen("tcp", addr)
	if nil != err {
		cb(fault.DiscoveryError(fmt.Sprintf("listen: %s", err)))
		return
	}

	server := &http.Server{Handler: mux}
	l := &websocketListener{server: server, listener: ln}

	x.mu.Lock()
	x.listeners[addr] = l
	x.mu.Unlock()

	go func() {
		if err := server.Serve(ln); nil != err && http.ErrServerClosed != err {
			x.emitError(fault.DiscoveryError(fmt.Sprintf("websocket serve: %s", err)))
		}
	}()

	cb(nil)
}

// Unaccept disables inbound sessions of transport.
func (x *Exchange) Unaccept(transport string, cb func(err error)) {
	switch transport {
	case "websocket":
		x.mu.Lock()
		listeners := x.listeners
		x.listeners = make(map[string]*websocketListener)
		x.mu.Unlock()
		for _, l := range listeners {
			l.server.Close()
		}
		cb(nil)
	case "webrtc":
		if nil == x.webrtc {
			cb(nil)
			return
		}
		x.webrtc.unaccept(cb)
	default:
		cb(fault.InvalidError(fmt.Sprintf("unknown transport: %s", transport)))
	}
}

type websocketListener struct {
	server   *http.Server
	listener net.Listener
}
