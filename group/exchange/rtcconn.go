// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package exchange

import (
	"errors"
	"net"
	"sync"
	"time"

	webrtc "github.com/pion/webrtc/v4"
)

// rtcConn adapts a pion/webrtc data channel to net.Conn. Incoming
// messages are queued on a channel since OnMessage delivers from its
// own goroutine with no backpressure of its own; Read drains that
// queue, buffering any partial message the way wsConn does.
type rtcConn struct {
	dc *webrtc.DataChannel
	pc *webrtc.PeerConnection

	incoming chan []byte
	readMu   sync.Mutex
	buf      []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newRTCConn(dc *webrtc.DataChannel, pc *webrtc.PeerConnection) *rtcConn {
	c := &rtcConn{
		dc:       dc,
		pc:       pc,
		incoming: make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case c.incoming <- msg.Data:
		case <-c.closed:
		}
	})
	dc.OnClose(func() { c.Close() })
	return c
}

func (c *rtcConn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for 0 == len(c.buf) {
		select {
		case msg, ok := <-c.incoming:
			if !ok {
				return 0, errors.New("exchange: webrtc data channel closed")
			}
			c.buf = msg
		case <-c.closed:
			return 0, errors.New("exchange: webrtc data channel closed")
		}
	}

	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

func (c *rtcConn) Write(p []byte) (int, error) {
	if err := c.dc.Send(p); nil != err {
		return 0, err
	}
	return len(p), nil
}

func (c *rtcConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.dc.Close()
		c.pc.Close()
	})
	return nil
}

func (c *rtcConn) LocalAddr() net.Addr                { return rtcAddr{} }
func (c *rtcConn) RemoteAddr() net.Addr               { return rtcAddr{} }
func (c *rtcConn) SetDeadline(t time.Time) error      { return nil }
func (c *rtcConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *rtcConn) SetWriteDeadline(t time.Time) error { return nil }

// rtcAddr is a placeholder net.Addr: data channels have no socket
// address of their own, only the underlying ICE candidate pair does,
// which pion does not expose at this layer.
type rtcAddr struct{}

func (rtcAddr) Network() string { return "webrtc" }
func (rtcAddr) String() string  { return "webrtc" }
