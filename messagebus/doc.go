// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messagebus - a queuing system for all message packets
// whether internally generated or received from peers.
//
// Unlike the package-level global this module once exposed, Bus is
// an instantiable type: each Group owns exactly one Bus, and every
// topic on it (the generic "message" topic, per-command topics, and
// the content-addressed "block:<hash>"/"tx:<hash>" topics of the
// event aggregator) is created lazily by name.
package messagebus
