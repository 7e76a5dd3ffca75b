// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package exchange

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/gorilla/websocket"
	webrtc "github.com/pion/webrtc/v4"
	"github.com/represtati3/bitcoin-net/fault"
	"github.com/represtati3/bitcoin-net/group"
)

// webrtcTransport brokers SDP offer/answer exchange over a plain
// websocket signaling connection (one level below the group-facing
// Exchange), then hands back the resulting data channel wrapped as a
// net.Conn. ICE/SDP bodies are the only thing carried over the
// signaling socket; once the channel opens, the signaling connection
// is no longer used.
type webrtcTransport struct {
	log     *logger.L
	config  webrtc.Configuration
	onPeer  func(p group.ExchangePeer)
	onError func(err error)

	mu        sync.Mutex
	listeners map[string]*websocketListener
}

func newWebrtcTransport(log *logger.L, config interface{}, onPeer func(group.ExchangePeer), onError func(error)) *webrtcTransport {
	cfg, _ := config.(*webrtc.Configuration)
	if nil == cfg {
		cfg = &webrtc.Configuration{}
	}
	return &webrtcTransport{
		log:       log,
		config:    *cfg,
		onPeer:    onPeer,
		onError:   onError,
		listeners: make(map[string]*websocketListener),
	}
}

type sdpMessage struct {
	SDP webrtc.SessionDescription `json:"sdp"`
}

const dataChannelLabel = "peer"

func (t *webrtcTransport) dial(address string, opts map[string]interface{}, cb func(t group.Transport, err error)) {
	port := 8193
	if p, ok := opts["port"].(int); ok && p > 0 {
		port = p
	}
	url := fmt.Sprintf("ws://%s:%d/webrtc", address, port)

	signal, _, err := websocket.DefaultDialer.Dial(url, nil)
	if nil != err {
		cb(nil, fault.DiscoveryError(fmt.Sprintf("webrtc signaling dial: %s", err)))
		return
	}
	defer signal.Close()

	pc, err := webrtc.NewPeerConnection(t.config)
	if nil != err {
		cb(nil, fault.DiscoveryError(fmt.Sprintf("webrtc peer connection: %s", err)))
		return
	}

	dc, err := pc.CreateDataChannel(dataChannelLabel, nil)
	if nil != err {
		pc.Close()
		cb(nil, fault.DiscoveryError(fmt.Sprintf("webrtc data channel: %s", err)))
		return
	}

	offer, err := pc.CreateOffer(nil)
	if nil != err {
		pc.Close()
		cb(nil, err)
		return
	}
	if err := pc.SetLocalDescription(offer); nil != err {
		pc.Close()
		cb(nil, err)
		return
	}
	if err := signal.WriteJSON(sdpMessage{SDP: offer}); nil != err {
		pc.Close()
		cb(nil, err)
		return
	}

	var answer sdpMessage
	if err := signal.ReadJSON(&answer); nil != err {
		pc.Close()
		cb(nil, err)
		return
	}
	if err := pc.SetRemoteDescription(answer.SDP); nil != err {
		pc.Close()
		cb(nil, err)
		return
	}

	bindDataChannel(dc, pc, cb)
}

func (t *webrtcTransport) accept(opts map[string]interface{}, cb func(err error)) {
	port := 8193
	if p, ok := opts["port"].(int); ok && p > 0 {
		port = p
	}
	addr := fmt.Sprintf(":%d", port)

	t.mu.Lock()
	if _, exists := t.listeners[addr]; exists {
		t.mu.Unlock()
		cb(nil)
		return
	}
	t.mu.Unlock()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/webrtc", func(w http.ResponseWriter, r *http.Request) {
		signal, err := upgrader.Upgrade(w, r, nil)
		if nil != err {
			return
		}
		go t.answerOffer(signal)
	})

	ln, err := net.Listen("tcp", addr)
	if nil != err {
		cb(fault.DiscoveryError(fmt.Sprintf("listen: %s", err)))
		return
	}

	server := &http.Server{Handler: mux}
	t.mu.Lock()
	t.listeners[addr] = &websocketListener{server: server, listener: ln}
	t.mu.Unlock()

	go server.Serve(ln)
	cb(nil)
}

// answerOffer runs for one inbound signaling connection: it reads the
// remote's offer, answers it, and on data-channel-open emits the
// resulting session as an incoming ExchangePeer.
func (t *webrtcTransport) answerOffer(signal *websocket.Conn) {
	defer signal.Close()

	var offer sdpMessage
	if err := signal.ReadJSON(&offer); nil != err {
		t.onError(fault.DiscoveryError(fmt.Sprintf("webrtc read offer: %s", err)))
		return
	}

	pc, err := webrtc.NewPeerConnection(t.config)
	if nil != err {
		t.onError(err)
		return
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		bindDataChannel(dc, pc, func(tr group.Transport, err error) {
			if nil != err {
				t.onError(err)
				return
			}
			t.onPeer(group.ExchangePeer{Transport: tr, Incoming: true})
		})
	})

	if err := pc.SetRemoteDescription(offer.SDP); nil != err {
		pc.Close()
		t.onError(err)
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if nil != err {
		pc.Close()
		t.onError(err)
		return
	}
	if err := pc.SetLocalDescription(answer); nil != err {
		pc.Close()
		t.onError(err)
		return
	}
	if err := signal.WriteJSON(sdpMessage{SDP: answer}); nil != err {
		pc.Close()
		t.onError(err)
	}
}

// bindDataChannel waits for dc to open (or fail) and delivers the
// result through cb exactly once, wrapping the open channel as a
// group.Transport.
func bindDataChannel(dc *webrtc.DataChannel, pc *webrtc.PeerConnection, cb func(t group.Transport, err error)) {
	var once sync.Once
	dc.OnOpen(func() {
		once.Do(func() { cb(newRTCConn(dc, pc), nil) })
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if webrtc.PeerConnectionStateFailed == s || webrtc.PeerConnectionStateClosed == s {
			once.Do(func() {
				pc.Close()
				cb(nil, fault.DiscoveryError("webrtc connection "+s.String()))
			})
		}
	})
}

func (t *webrtcTransport) unaccept(cb func(err error)) {
	t.mu.Lock()
	listeners := t.listeners
	t.listeners = make(map[string]*websocketListener)
	t.mu.Unlock()
	for _, l := range listeners {
		l.server.Close()
	}
	cb(nil)
}
