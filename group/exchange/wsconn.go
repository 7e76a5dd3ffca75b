// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package exchange

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a *websocket.Conn (message-framed) to net.Conn
// (byte-stream), so the rest of the module - dial/Transport/upstream
// framing - never has to know which transport it is talking over.
// Each websocket binary message becomes available to Read as a
// contiguous byte run; a message that outlives a single Read call is
// buffered until drained.
type wsConn struct {
	c *websocket.Conn

	readMu sync.Mutex
	buf    []byte

	writeMu sync.Mutex
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{c: c}
}

func (w *wsConn) Read(p []byte) (int, error) {
	w.readMu.Lock()
	defer w.readMu.Unlock()

	for 0 == len(w.buf) {
		_, msg, err := w.c.ReadMessage()
		if nil != err {
			return 0, err
		}
		w.buf = msg
	}

	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

func (w *wsConn) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.c.WriteMessage(websocket.BinaryMessage, p); nil != err {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error                       { return w.c.Close() }
func (w *wsConn) LocalAddr() net.Addr                 { return w.c.LocalAddr() }
func (w *wsConn) RemoteAddr() net.Addr                { return w.c.RemoteAddr() }
func (w *wsConn) SetDeadline(t time.Time) error       { _ = w.c.SetReadDeadline(t); return w.c.SetWriteDeadline(t) }
func (w *wsConn) SetReadDeadline(t time.Time) error   { return w.c.SetReadDeadline(t) }
func (w *wsConn) SetWriteDeadline(t time.Time) error  { return w.c.SetWriteDeadline(t) }
