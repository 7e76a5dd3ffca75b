// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"net/url"
	"strconv"
)

// normalizeWebSeed turns a bare URL string into the structured
// {transport: "websocket", address, opts: {port}} shape the exchange
// expects. Already-structured entries pass through.
func normalizeWebSeed(seed WebSeed, defaultWebPort int) (WebSeed, error) {
	if "" != seed.Transport {
		return seed, nil
	}

	u, err := url.Parse(seed.Address)
	if nil != err {
		return WebSeed{}, err
	}

	port := defaultWebPort
	if "" != u.Port() {
		if p, err := strconv.Atoi(u.Port()); nil == err {
			port = p
		}
	}

	return WebSeed{
		Transport: "websocket",
		Address:   u.Hostname(),
		Opts:      map[string]interface{}{"port": port},
	}, nil
}

// webSeedConnect dials one web seed via the exchange collaborator.
// webSeeds are only used once, at startup, to bootstrap the
// exchange-based discovery producer - once enough peers are admitted
// the replenisher stops consulting this path directly and falls
// back to the discovery dispatcher's normal rebuild-per-attempt
// candidate selection.
func (g *Group) webSeedConnect(seed WebSeed, cb func(t Transport, err error)) {
	normalized, err := normalizeWebSeed(seed, g.params.webPort())
	if nil != err {
		cb(nil, err)
		return
	}
	g.exchange.Connect(normalized.Transport, normalized.Address, normalized.Opts, cb)
}
