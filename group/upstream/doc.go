// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package upstream is the reference group.Peer implementation: one
// TCP connection framed with internal/wire.Envelope messages, a
// reader goroutine that turns frames into the fixed event set
// group.Peer.Subscribe understands, and request methods that
// correlate a request frame to its response by command name. It
// exists so group.Group has something concrete to admit in tests and
// in cmd/peergroupd; a production wire protocol would replace it
// without changing anything in package group.
package upstream
