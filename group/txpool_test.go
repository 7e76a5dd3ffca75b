// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "testing"

func TestTxPoolAddDedups(t *testing.T) {
	p := newTxPool()
	h := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	if !p.Add(h) {
		t.Fatal("expected first Add to report new")
	}
	if p.Add(h) {
		t.Fatal("expected second Add of the same hash to report duplicate")
	}
	if !p.Has(h) {
		t.Fatal("expected Has true after Add")
	}
}

func TestTxPoolWantTicker(t *testing.T) {
	p := newTxPool()
	if p.wantTicker() {
		t.Fatal("expected no ticker wanted on an empty pool")
	}
	p.Add([]byte("h1"))
	if !p.wantTicker() {
		t.Fatal("expected ticker wanted once a hash is tracked")
	}
}

// TestTxPoolTwoTickDecay checks the documented window: a hash added
// before the first decay tick survives exactly one more tick before
// being dropped, while a hash added between the first and second tick
// survives to the third.
func TestTxPoolTwoTickDecay(t *testing.T) {
	p := newTxPool()
	early := []byte("early-hash")
	p.Add(early)

	p.decay() // establishes the first boundary; nothing dropped yet
	if !p.Has(early) {
		t.Fatal("expected early hash to survive the first decay tick")
	}

	late := []byte("late-hash")
	p.Add(late)

	p.decay() // early predates the boundary and is dropped; late survives
	if p.Has(early) {
		t.Fatal("expected early hash to be gone after the second decay tick")
	}
	if !p.Has(late) {
		t.Fatal("expected late hash to survive its first decay tick")
	}

	p.decay()
	if p.Has(late) {
		t.Fatal("expected late hash to be gone after its second decay tick")
	}
	if p.wantTicker() {
		t.Fatal("expected an empty pool to no longer want the ticker")
	}
}

func TestTxPoolSnapshotIsACopy(t *testing.T) {
	p := newTxPool()
	p.Add([]byte("one"))
	snap := p.Snapshot()
	snap[0][0] = 'X'

	if string(p.order[0]) == string(snap[0]) {
		t.Fatal("expected Snapshot to return a copy, not aliased storage")
	}
}
