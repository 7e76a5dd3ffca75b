// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"math/rand"
	"net"

	"github.com/miekg/dns"
)

// dnsConfigFile mirrors announce/domain/domain.go's resolv.conf read.
const dnsConfigFile = "/etc/resolv.conf"

// dnsSeedDiscoverer resolves a uniformly-random seed from dnsSeeds to
// its A records via a manual miekg/dns query (grounded on
// announce/domain/domain.go and announce/nodeslookup.go, both of
// which issue their own dns.Client queries rather than use the
// standard resolver), picks one address uniformly at random, and
// hands it to the TCP dialer with defaultPort.
func dnsSeedDiscoverer(seeds []string, defaultPort int, timeout_ms int) Discoverer {
	return func(cb func(t Transport, err error)) {
		go func() {
			if 0 == len(seeds) {
				cb(nil, errNoSeeds)
				return
			}
			seed := seeds[rand.Intn(len(seeds))]

			addrs, err := resolveA(seed)
			if nil != err {
				cb(nil, err)
				return
			}
			if 0 == len(addrs) {
				cb(nil, errNoAddresses)
				return
			}

			address := addrs[rand.Intn(len(addrs))]
			dial(address, defaultPort, defaultConnectTimeout)(cb)
		}()
	}
}

// resolveA issues an A-record query for name against the servers in
// /etc/resolv.conf, the same configuration source
// announce/domain/domain.go reads.
func resolveA(name string) ([]string, error) {
	conf, err := dns.ClientConfigFromFile(dnsConfigFile)
	if nil != err || 0 == len(conf.Servers) {
		return nil, errNoNameservers
	}

	servers := conf.Servers
	if len(servers) > 3 {
		servers = servers[:3]
	}

	client := dns.Client{}
	msg := dns.Msg{}
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)

	var lastErr error
	for _, server := range servers {
		s := net.JoinHostPort(server, conf.Port)
		reply, _, err := client.Exchange(&msg, s)
		if nil != err {
			lastErr = err
			continue
		}

		addrs := make([]string, 0, len(reply.Answer))
		for _, rr := range reply.Answer {
			if a, ok := rr.(*dns.A); ok {
				addrs = append(addrs, a.A.String())
			}
		}
		if len(addrs) > 0 {
			return addrs, nil
		}
	}
	if nil != lastErr {
		return nil, lastErr
	}
	return nil, errNoAddresses
}
