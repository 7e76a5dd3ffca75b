// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"path"
	"path/filepath"

	"github.com/bitmark-inc/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/represtati3/bitcoin-net/group"
)

// configWatcher reloads dns_seeds/static_peers from the config file
// into a running Group whenever the file changes, without touching
// anything else a full restart would otherwise require.
type configWatcher struct {
	log      *logger.L
	filePath string
	watcher  *fsnotify.Watcher
	g        *group.Group
}

func newConfigWatcher(configFile string, log *logger.L, g *group.Group) (*configWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, err
	}
	filePath, err := filepath.Abs(filepath.Clean(configFile))
	if nil != err {
		return nil, err
	}
	return &configWatcher{log: log, filePath: filePath, watcher: w, g: g}, nil
}

func (w *configWatcher) start() error {
	if err := w.watcher.Add(filepath.Dir(w.filePath)); nil != err {
		return err
	}

	go func() {
		for event := range w.watcher.Events {
			if path.Base(event.Name) != path.Base(w.filePath) {
				continue
			}
			if 0 == event.Op&(fsnotify.Write|fsnotify.Create) {
				continue
			}

			w.log.Info("configuration file changed, reloading discovery inputs")
			cfg, err := getConfiguration(w.filePath)
			if nil != err {
				w.log.Warnf("reload failed: %s", err)
				continue
			}
			w.g.UpdateDiscoveryInputs(cfg.Pool.DNSSeeds, cfg.Pool.StaticPeers)
		}
	}()

	return nil
}
