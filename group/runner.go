// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

// Runner adapts a *Group to background.Process, so it can be started
// and stopped alongside a daemon's other background processes
// (background.Start/ (*background.T).Stop).
type Runner struct {
	g          *Group
	acceptPort int
}

// NewRunner wraps g for background.Process composition; acceptPort is
// passed to Accept once Run starts (0 selects the package default).
func NewRunner(g *Group, acceptPort int) *Runner {
	return &Runner{g: g, acceptPort: acceptPort}
}

// Run implements background.Process: it starts the pool connecting,
// enables inbound acceptance, and blocks until shutdown is closed.
func (r *Runner) Run(args interface{}, shutdown <-chan struct{}) {
	r.g.Connect()
	r.g.Accept(r.acceptPort, func(err error) {
		if nil != err {
			r.g.log.Warnf("accept failed: %s", err)
		}
	})

	<-shutdown
	r.g.Close()
}
