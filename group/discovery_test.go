// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "testing"

// TestEnabledDiscoverersEmpty checks that with no discovery methods
// configured, the producer set is empty and discoverOne synthesizes
// errNoMethods without calling anything.
func TestEnabledDiscoverersEmpty(t *testing.T) {
	g := &Group{}
	if 0 != len(g.enabledDiscoverers()) {
		t.Fatalf("expected no producers, got %d", len(g.enabledDiscoverers()))
	}

	var gotErr error
	g.discoverOne(func(t Transport, err error) { gotErr = err })
	if errNoMethods != gotErr {
		t.Fatalf("expected errNoMethods, got %v", gotErr)
	}
}

// TestEnabledDiscoverersComposition checks that each configured input
// contributes exactly one producer, and that the exchange-backed
// producer only appears once a web peer is actually connected.
func TestEnabledDiscoverersComposition(t *testing.T) {
	g := &Group{
		params: Params{
			DNSSeeds:    []string{"seed.example.com"},
			StaticPeers: []string{"10.0.0.1:8333"},
			GetNewPeer:  func(cb func(t Transport, err error)) {},
		},
		opts: Options{ConnectWeb: true},
	}
	if 3 != len(g.enabledDiscoverers()) {
		t.Fatalf("expected 3 producers with no exchange, got %d", len(g.enabledDiscoverers()))
	}

	x := &discoveryOnlyExchange{}
	g.exchange = x
	if 3 != len(g.enabledDiscoverers()) {
		t.Fatalf("expected exchange producer withheld while ConnectedWebPeerCount is 0, got %d", len(g.enabledDiscoverers()))
	}

	x.webCount = 1
	if 4 != len(g.enabledDiscoverers()) {
		t.Fatalf("expected exchange producer once a web peer is connected, got %d", len(g.enabledDiscoverers()))
	}
}

// discoveryOnlyExchange implements just enough of Exchange for
// enabledDiscoverers' eligibility check.
type discoveryOnlyExchange struct {
	webCount int
}

func (x *discoveryOnlyExchange) Connect(transport, address string, opts map[string]interface{}, cb func(t Transport, err error)) {
}
func (x *discoveryOnlyExchange) Accept(transport string, opts map[string]interface{}, cb func(err error)) {
}
func (x *discoveryOnlyExchange) Unaccept(transport string, cb func(err error))    {}
func (x *discoveryOnlyExchange) GetNewPeer(cb func(t Transport, err error))       {}
func (x *discoveryOnlyExchange) ConnectedWebPeerCount() int                      { return x.webCount }
func (x *discoveryOnlyExchange) Subscribe(handler func(peer ExchangePeer))       {}
func (x *discoveryOnlyExchange) SubscribeError(handler func(err error))          {}
