// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "net"

// Transport is a bidirectional byte stream, transient and owned by
// the Peer once wrapped. A plain TCP connection, and a
// websocket/WebRTC session adapted by the exchange collaborator, both
// satisfy it.
type Transport = net.Conn

// Discoverer produces one candidate Transport or error via a
// completion callback. Registry order is never observed because the
// discovery dispatcher always picks uniformly at random. A Discoverer
// must always invoke cb asynchronously - after it has returned, never
// from within the call that received cb - since callers run it from
// the coordinator goroutine and rely on that to avoid re-entering it.
type Discoverer func(cb func(t Transport, err error))
