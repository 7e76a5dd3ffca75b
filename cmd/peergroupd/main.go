// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"
	"github.com/represtati3/bitcoin-net/background"
	"github.com/represtati3/bitcoin-net/fault"
	"github.com/represtati3/bitcoin-net/group"
	"github.com/represtati3/bitcoin-net/group/exchange"
	"github.com/represtati3/bitcoin-net/group/upstream"
)

const version = "1.0.0"

func main() {
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, _, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %v", program, err)
	}

	if len(options["version"]) > 0 {
		exitwithstatus.Message("%s: version: %s", program, version)
	}
	if len(options["help"]) > 0 {
		exitwithstatus.Message("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE", program)
	}
	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: exactly one config-file option is required, %d were given", program, len(options["config-file"]))
	}

	configurationFile := options["config-file"][0]
	cfg, err := getConfiguration(configurationFile)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %v", program, configurationFile, err)
	}

	if err := logger.Initialise(cfg.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed: %v", program, err)
	}
	defer logger.Finalise()

	log := logger.New("main")
	defer log.Info("shutting down…")
	log.Info("starting…")
	log.Debugf("configuration: %#v", cfg)

	fault.Initialise()
	defer fault.Finalise()

	if "" != cfg.PidFile {
		lockFile, err := os.OpenFile(cfg.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if nil != err {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: pid file: %q creation failed: %v", program, cfg.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(cfg.PidFile)
	}

	var webSeeds []group.WebSeed
	for _, s := range cfg.Pool.WebSeeds {
		webSeeds = append(webSeeds, group.WebSeed{Transport: s.Transport, Address: s.Address, Opts: s.Opts})
	}

	params := group.Params{
		Magic:          cfg.Pool.Magic,
		DNSSeeds:       cfg.Pool.DNSSeeds,
		StaticPeers:    cfg.Pool.StaticPeers,
		DefaultPort:    cfg.Pool.DefaultPort,
		DefaultWebPort: cfg.Pool.DefaultWebPort,
		WebSeeds:       webSeeds,
	}
	opts := group.Options{
		NumPeers:   cfg.Pool.NumPeers,
		HardLimit:  cfg.Pool.HardLimit,
		ConnectWeb: cfg.Pool.ConnectWeb,
		NewPeer:    upstream.New,
	}

	x := exchange.New(nil) // no WebRTC configuration supplied: WebRTC is disabled
	g := group.New(params, opts, x)

	g.On("peer", func(args ...interface{}) {
		if len(args) > 0 {
			log.Infof("peer admitted: %s", args[0])
		}
	})
	g.On("connectError", func(args ...interface{}) {
		if len(args) > 0 {
			log.Debugf("connect attempt failed: %v", args[0])
		}
	})
	g.On("disconnect", func(args ...interface{}) {
		log.Infof("peer disconnected: %v", args)
	})

	watcher, err := newConfigWatcher(configurationFile, logger.New("config-watcher"), g)
	if nil != err {
		log.Warnf("config watcher unavailable: %s", err)
	} else if err := watcher.start(); nil != err {
		log.Warnf("config watcher failed to start: %s", err)
	}

	processes := background.Processes{
		group.NewRunner(g, cfg.Pool.AcceptPort),
	}
	runner := background.Start(processes, nil)

	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\nshutting down...\n", sig)
	}

	runner.Stop()
}
