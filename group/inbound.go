// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "github.com/represtati3/bitcoin-net/fault"

// Accept enables inbound sessions on port (default 8192 when zero),
// bringing up websocket first and then WebRTC. A WebRTC implementation
// is optional: when the exchange reports it isn't available, that one
// failure is swallowed rather than unwinding the websocket listener
// that already succeeded. Any other post-websocket error unwinds by
// disabling websocket again before surfacing.
func (g *Group) Accept(port int, completion func(err error)) {
	if 0 == port {
		port = defaultAcceptPort
	}
	g.post(func() { g.startAccept(port, completion) })
}

func (g *Group) startAccept(port int, completion func(err error)) {
	if nil == g.exchange {
		completion(fault.ErrNoConnectionsAvailable)
		return
	}

	opts := map[string]interface{}{"port": port}
	g.exchange.Accept("websocket", opts, func(err error) {
		g.post(func() {
			if nil != err {
				completion(err)
				return
			}
			g.accepting["websocket"] = true
			g.exchange.Accept("webrtc", opts, func(err error) {
				g.post(func() { g.finishAcceptWebrtc(port, err, completion) })
			})
		})
	})
}

func (g *Group) finishAcceptWebrtc(port int, err error, completion func(err error)) {
	if nil == err {
		g.accepting["webrtc"] = true
		completion(nil)
		return
	}
	if _, ok := err.(fault.NotFoundError); ok {
		g.log.Debugf("webrtc accept unavailable on port %d: %s", port, err)
		completion(nil)
		return
	}

	g.exchange.Unaccept("websocket", func(unacceptErr error) {
		g.post(func() {
			delete(g.accepting, "websocket")
			if nil != unacceptErr {
				g.log.Warnf("unaccept websocket during unwind: %s", unacceptErr)
			}
			completion(err)
		})
	})
}

// Unaccept disables inbound sessions of every transport currently
// accepting.
func (g *Group) Unaccept(completion func(err error)) {
	g.post(func() { g.doUnaccept(completion) })
}

func (g *Group) doUnaccept(completion func(err error)) {
	if nil == g.exchange || 0 == len(g.accepting) {
		completion(nil)
		return
	}

	transports := make([]string, 0, len(g.accepting))
	for t := range g.accepting {
		transports = append(transports, t)
	}

	var firstErr error
	remaining := len(transports)
	for _, t := range transports {
		t := t
		g.exchange.Unaccept(t, func(err error) {
			g.post(func() {
				delete(g.accepting, t)
				if nil != err && nil == firstErr {
					firstErr = err
				}
				remaining--
				if 0 == remaining {
					completion(firstErr)
				}
			})
		})
	}
}
