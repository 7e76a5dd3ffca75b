// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package group implements a peer-group coordinator for a
// Bitcoin-style peer-to-peer network: it maintains a pool of
// outbound connections to remote peers discovered via several
// independent discovery methods, optionally accepts incoming
// peer-exchange connections, multiplexes application-level requests
// across the pool with automatic retry on timeout, and aggregates
// streaming events from all members.
//
// All mutable state belongs to exactly one Group and is mutated only
// by that Group's single coordinator goroutine; every exported method
// communicates with the coordinator by posting a closure onto its
// control queue and waiting for that closure to run (one goroutine
// draining a select over a timer, a control queue, and a shutdown
// channel).
package group
