// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package group

import (
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "group-test-log")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	if err := logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "test.log",
		Size:      1048576,
		Count:     10,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}); err != nil {
		panic(err)
	}
	defer logger.Finalise()

	os.Exit(m.Run())
}

// bridgeFakeExchange is a hand-rolled Exchange stand-in whose only
// interesting behaviour is remembering the handler NewBridge
// registers, so a test can simulate an inbound session arriving.
type bridgeFakeExchange struct {
	peerHandler func(p ExchangePeer)
}

func (x *bridgeFakeExchange) Connect(transport, address string, opts map[string]interface{}, cb func(t Transport, err error)) {
	go cb(nil, errNoMethods)
}
func (x *bridgeFakeExchange) Accept(transport string, opts map[string]interface{}, cb func(err error)) {
	go cb(nil)
}
func (x *bridgeFakeExchange) Unaccept(transport string, cb func(err error)) { go cb(nil) }
func (x *bridgeFakeExchange) GetNewPeer(cb func(t Transport, err error))    { go cb(nil, errNoMethods) }
func (x *bridgeFakeExchange) ConnectedWebPeerCount() int                   { return 0 }
func (x *bridgeFakeExchange) Subscribe(handler func(peer ExchangePeer))    { x.peerHandler = handler }
func (x *bridgeFakeExchange) SubscribeError(handler func(err error))       {}

func (x *bridgeFakeExchange) deliverInbound(t Transport) {
	go x.peerHandler(ExchangePeer{Transport: t, Incoming: true})
}

// pipePairDiscoverer hands back one end of a fresh net.Pipe every
// time it is invoked, keeping the other end reachable through outEnds
// so a test can act as the far side of each outbound leg.
func pipePairDiscoverer(outEnds chan<- net.Conn) Discoverer {
	return func(cb func(t Transport, err error)) {
		go func() {
			local, remote := net.Pipe()
			outEnds <- remote
			cb(local, nil)
		}()
	}
}

// TestBridgeSplicesInboundToOutbound drives one inbound session
// through {Pairing -> Spliced}: bytes written on the simulated
// client's remote end must arrive on the simulated outbound peer's
// remote end, and vice versa.
func TestBridgeSplicesInboundToOutbound(t *testing.T) {
	outEnds := make(chan net.Conn, 1)
	rawExchange := &bridgeFakeExchange{}
	b := NewBridge(Params{GetNewPeer: pipePairDiscoverer(outEnds)}, Options{}, rawExchange)
	defer b.Close()

	spliced := make(chan struct{})
	b.On("bridge", func(args ...interface{}) { close(spliced) })

	client, clientRemote := net.Pipe()
	rawExchange.deliverInbound(client)

	var outboundRemote net.Conn
	select {
	case outboundRemote = <-outEnds:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound leg to be dialed")
	}

	select {
	case <-spliced:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for splice")
	}

	writeAndExpect(t, clientRemote, outboundRemote, "client->outbound")
	writeAndExpect(t, outboundRemote, clientRemote, "outbound->client")

	clientRemote.Close()

	buf := make([]byte, 1)
	outboundRemote.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := outboundRemote.Read(buf); io.EOF != err {
		t.Fatalf("expected outbound leg to see EOF once the client closes, got %v", err)
	}
}

func writeAndExpect(t *testing.T, from, to net.Conn, label string) {
	t.Helper()
	payload := []byte(label)
	go from.Write(payload)

	buf := make([]byte, len(payload))
	to.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(to, buf); nil != err {
		t.Fatalf("%s: read failed: %v", label, err)
	}
	if label != string(buf) {
		t.Fatalf("%s: expected %q, got %q", label, label, buf)
	}
}

// TestBridgeConnectIsForbidden checks that Connect on a Bridge always
// fails rather than starting an independent outbound pool.
func TestBridgeConnectIsForbidden(t *testing.T) {
	b := NewBridge(Params{}, Options{}, &bridgeFakeExchange{})
	defer b.Close()

	errs := make(chan error, 1)
	b.On("error", func(args ...interface{}) {
		if len(args) > 0 {
			err, _ := args[0].(error)
			errs <- err
		}
	})

	b.Connect()

	select {
	case err := <-errs:
		if nil == err {
			t.Fatal("expected a non-nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the forbidden-connect error")
	}
}
