// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "math/rand"

// isBrowserEnvironment is always false for this module: the original
// DNS-seed/static-peer eligibility gate exists to exclude those
// methods from an in-browser build. A Go binary is never that build,
// so the gate always passes here; it is kept as an explicit check
// rather than deleted, since a future build target might need it.
const isBrowserEnvironment = false

// enabledDiscoverers rebuilds the per-attempt candidate-producer set:
// the exchange-based producer only becomes eligible once web peers
// exist, so eligibility must track dynamic state on every call rather
// than being computed once.
func (g *Group) enabledDiscoverers() []Discoverer {
	var producers []Discoverer

	if len(g.params.DNSSeeds) > 0 && !isBrowserEnvironment {
		producers = append(producers, dnsSeedDiscoverer(g.params.DNSSeeds, g.params.DefaultPort, 0))
	}
	if len(g.params.StaticPeers) > 0 && !isBrowserEnvironment {
		producers = append(producers, staticPeerDiscoverer(g.params.StaticPeers, g.params.DefaultPort, 0))
	}
	if g.opts.ConnectWeb && nil != g.exchange && g.exchange.ConnectedWebPeerCount() > 0 {
		producers = append(producers, g.exchange.GetNewPeer)
	}
	if nil != g.params.GetNewPeer {
		producers = append(producers, g.params.GetNewPeer)
	}
	return producers
}

// discoverOne picks one enabled discovery method uniformly at random
// and invokes it with cb. If the enabled set is empty, cb
// receives a synthesized DiscoveryError directly without ever calling
// a producer.
func (g *Group) discoverOne(cb func(t Transport, err error)) {
	producers := g.enabledDiscoverers()
	if 0 == len(producers) {
		cb(nil, errNoMethods)
		return
	}
	producers[rand.Intn(len(producers))](cb)
}
