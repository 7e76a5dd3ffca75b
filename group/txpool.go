// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"encoding/base64"
	"time"
)

// txPoolTickInterval is how often the inventory pool ages out its
// oldest generation of hashes.
const txPoolTickInterval = 20 * time.Second

// txPool deduplicates transaction hashes seen from any peer over a
// rolling two-tick window: every tick, entries older than the
// previous tick's boundary are dropped, so a hash is remembered for
// between one and two ticks depending on when within the window it
// arrived. Ordering is preserved with a plain slice; the map only
// exists to make Has O(1).
type txPool struct {
	order      [][]byte
	index      map[string]int
	prevLength int
}

func newTxPool() *txPool {
	return &txPool{index: make(map[string]int)}
}

func txKey(hash []byte) string {
	return base64.StdEncoding.EncodeToString(hash)
}

// Add records hash if not already present, returning true when it was
// new. Callers use this to decide whether to relay/fetch the
// transaction or ignore it as a duplicate.
func (p *txPool) Add(hash []byte) bool {
	key := txKey(hash)
	if _, ok := p.index[key]; ok {
		return false
	}
	p.index[key] = len(p.order)
	p.order = append(p.order, hash)
	return true
}

// Has reports whether hash is currently tracked.
func (p *txPool) Has(hash []byte) bool {
	_, ok := p.index[txKey(hash)]
	return ok
}

// Snapshot returns every currently tracked hash, oldest first. The
// returned slice is a copy; callers may retain it freely.
func (p *txPool) Snapshot() [][]byte {
	out := make([][]byte, len(p.order))
	for i, h := range p.order {
		out[i] = append([]byte{}, h...)
	}
	return out
}

// wantTicker reports whether the coordinator should be running the
// decay ticker: only while at least one hash is tracked.
func (p *txPool) wantTicker() bool {
	return len(p.order) > 0
}

// decay drops every entry present before the previous tick, then
// remembers the current length as next tick's boundary.
func (p *txPool) decay() {
	if 0 == p.prevLength {
		p.prevLength = len(p.order)
		return
	}

	survivors := p.order[p.prevLength:]
	p.order = append([][]byte{}, survivors...)
	p.index = make(map[string]int, len(p.order))
	for i, h := range p.order {
		p.index[txKey(h)] = i
	}
	p.prevLength = len(p.order)
}
