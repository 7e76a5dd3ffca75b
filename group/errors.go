// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import "github.com/represtati3/bitcoin-net/fault"

// discovery-method-local errors; each surfaces through the normal
// connectError path rather than being
// distinguished by the caller.
var (
	errNoSeeds       = fault.DiscoveryError("no DNS seeds configured")
	errNoAddresses   = fault.DiscoveryError("DNS seed resolved no addresses")
	errNoNameservers = fault.DiscoveryError("cannot get DNS name server")
	errNoStaticPeers = fault.DiscoveryError("no static peers configured")
	errNoMethods     = fault.ErrNoConnectionsAvailable
	errBridgeConnect = fault.ErrBridgeConnectForbidden
	errNotConnected  = fault.ErrNotConnected
)
