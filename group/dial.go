// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/represtati3/bitcoin-net/fault"
)

// dialTCP connects to host:port with a bounded timeout. Exactly one
// of {success, timeout, error} fires.
//
// Go's net package has no equivalent of a libuv-style "unreferenced"
// socket that lets the process exit while a connect is pending — that
// is a single-threaded-runtime idiom. The Go-native substitute, used
// here, is that the dial runs on its own goroutine under a cancelable
// context: nothing it holds prevents the process (or the Group) from
// shutting down around it, and the caller is never blocked waiting on
// it (see DESIGN.md).
func dialTCP(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error) {
	if port < 1 || port > 65535 {
		return nil, fault.InvalidError(fmt.Sprintf("invalid port number: %d", port))
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if nil != err {
		if dialErr, ok := err.(*net.OpError); ok && dialErr.Timeout() {
			return nil, fault.ErrConnectTimeout()
		}
		if context.DeadlineExceeded == err || context.Canceled == err {
			return nil, fault.ErrConnectTimeout()
		}
		return nil, err
	}
	return conn, nil
}

// dial is the Discoverer-shaped wrapper the discovery dispatcher
// invokes for a plain TCP candidate: it hands the completion a
// Transport on success, a single error otherwise.
func dial(host string, port int, timeout time.Duration) Discoverer {
	return func(cb func(t Transport, err error)) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			conn, err := dialTCP(ctx, host, port, timeout)
			cb(conn, err)
		}()
	}
}
