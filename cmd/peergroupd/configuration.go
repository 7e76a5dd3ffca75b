// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"
)

const (
	defaultLogDirectory = "log"
	defaultLogFile      = "peergroupd.log"
	defaultLogCount     = 10
	defaultLogSize      = 1024 * 1024
)

var defaultLogLevels = map[string]string{logger.DefaultTag: "info"}

// WebSeedConfig mirrors group.WebSeed for JSON loading.
type WebSeedConfig struct {
	Transport string                 `json:"transport,omitempty"`
	Address   string                 `json:"address"`
	Opts      map[string]interface{} `json:"opts,omitempty"`
}

// PoolConfig configures the Group this daemon runs.
type PoolConfig struct {
	Magic          uint32          `json:"magic"`
	DNSSeeds       []string        `json:"dns_seeds,omitempty"`
	StaticPeers    []string        `json:"static_peers,omitempty"`
	DefaultPort    int             `json:"default_port"`
	DefaultWebPort int             `json:"default_web_port,omitempty"`
	WebSeeds       []WebSeedConfig `json:"web_seeds,omitempty"`
	NumPeers       int             `json:"num_peers,omitempty"`
	HardLimit      bool            `json:"hard_limit,omitempty"`
	ConnectWeb     bool            `json:"connect_web,omitempty"`
	AcceptPort     int             `json:"accept_port,omitempty"`
}

// Configuration is peergroupd's config-file shape: plain JSON rather
// than the libucl format the rest of the original project's daemons
// use, since libucl is a C binding this module has no reason to carry.
type Configuration struct {
	PidFile string               `json:"pidfile,omitempty"`
	Pool    PoolConfig           `json:"pool"`
	Logging logger.Configuration `json:"logging"`
}

func getConfiguration(configurationFileName string) (*Configuration, error) {
	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	options := &Configuration{
		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	data, err := os.ReadFile(configurationFileName)
	if nil != err {
		return nil, err
	}
	if err := json.Unmarshal(data, options); nil != err {
		return nil, fmt.Errorf("configuration: %q: %w", configurationFileName, err)
	}

	if 0 == options.Pool.DefaultPort {
		return nil, fmt.Errorf("configuration: pool.default_port must be set")
	}
	if 0 == options.Pool.NumPeers {
		options.Pool.NumPeers = 8
	}

	return options, nil
}
