// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package upstream

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/represtati3/bitcoin-net/fault"
	"github.com/represtati3/bitcoin-net/group"
	"github.com/represtati3/bitcoin-net/internal/wire"
)

// requestTimeout bounds every GetBlocks/GetTransactions/GetHeaders
// call; a peer that never answers is indistinguishable from a dead
// one as far as the dispatcher (which retries on timeout) is
// concerned.
const requestTimeout = 30 * time.Second

const (
	cmdGetBlocks       = "getblocks"
	cmdGetTransactions = "gettransactions"
	cmdGetHeaders      = "getheaders"
	replySuffix        = ".reply"
)

type pendingRequest struct {
	cb func(err error, result interface{})
	t  *time.Timer
}

// Peer is the reference group.Peer: one net.Conn framed with
// wire.Envelope, a background reader, and a fixed set of subscribable
// event kinds.
type Peer struct {
	mu   sync.Mutex
	log  *logger.L
	conn net.Conn
	name string

	handlers map[string][]func(args ...interface{})
	pending  map[string]*pendingRequest

	writeMu sync.Mutex // serialises whole envelopes from concurrent senders

	closeOnce sync.Once
	closed    chan struct{}
}

// New wraps conn as a group.Peer, starting the background reader
// immediately. opts is accepted to satisfy group.Options.NewPeer's
// signature; this reference implementation does not use it.
func New(conn net.Conn, opts group.Options) group.Peer {
	p := &Peer{
		log:      logger.New("upstream"),
		conn:     conn,
		name:     conn.RemoteAddr().String(),
		handlers: make(map[string][]func(args ...interface{})),
		pending:  make(map[string]*pendingRequest),
		closed:   make(chan struct{}),
	}
	go p.readLoop()
	return p
}

func (p *Peer) String() string { return p.name }

// Subscribe registers handler for event, returning a func that
// removes it. Matches group.Peer's fixed event vocabulary: "ready",
// "message", "tx", "block", "merkleblock", "disconnect", "error".
func (p *Peer) Subscribe(event string, handler func(args ...interface{})) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[event] = append(p.handlers[event], handler)
	idx := len(p.handlers[event]) - 1

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		list := p.handlers[event]
		if idx < len(list) {
			list[idx] = nil
		}
	}
}

func (p *Peer) fire(event string, args ...interface{}) {
	p.mu.Lock()
	handlers := append([]func(args ...interface{}){}, p.handlers[event]...)
	p.mu.Unlock()
	for _, h := range handlers {
		if nil != h {
			h(args...)
		}
	}
}

// Send transmits one envelope; delivery is best-effort. Once the Peer
// has been disconnected it returns ErrNotConnected without writing.
func (p *Peer) Send(command string, payload []byte) error {
	select {
	case <-p.closed:
		return fault.ErrNotConnected
	default:
	}
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if nil == conn {
		return fault.ErrNotConnected
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return wire.WriteEnvelope(conn, &wire.Envelope{Command: command, Payload: payload})
}

// Disconnect closes the underlying connection and fires "disconnect"
// exactly once, however it is triggered.
func (p *Peer) Disconnect(err error) {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.mu.Lock()
		conn := p.conn
		p.mu.Unlock()
		if nil != conn {
			conn.Close()
		}
		p.failPending(err)
		p.fire("disconnect", err)
	})
}

func (p *Peer) failPending(err error) {
	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[string]*pendingRequest)
	p.mu.Unlock()
	for _, req := range pending {
		req.t.Stop()
		req.cb(err, nil)
	}
}

// readLoop is the peer's only reader: it turns each frame into a
// group.Message and routes it either to a pending request's callback
// (for command+".reply" frames) or into the general "message" event,
// with typed shortcuts for "tx"/"block"/"merkleblock".
func (p *Peer) readLoop() {
	p.fire("ready")
	for {
		env, err := wire.ReadEnvelope(p.conn)
		if nil != err {
			p.Disconnect(fault.RuntimeError(fmt.Sprintf("read error: %s", err)))
			return
		}

		if len(env.Command) > len(replySuffix) && env.Command[len(env.Command)-len(replySuffix):] == replySuffix {
			p.deliverReply(env)
			continue
		}

		switch env.Command {
		case "tx":
			p.fire("tx", decodeTx(env.Payload))
		case "block":
			p.fire("block", decodeBlock(env.Payload))
		case "merkleblock":
			p.fire("merkleblock", decodeMerkleBlock(env.Payload))
		default:
			p.fire("message", group.Message{Command: env.Command, Payload: env.Payload})
		}
	}
}

func (p *Peer) deliverReply(env *wire.Envelope) {
	p.mu.Lock()
	req, ok := p.pending[env.Command]
	if ok {
		delete(p.pending, env.Command)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	req.t.Stop()

	var reply replyPayload
	if err := json.Unmarshal(env.Payload, &reply); nil != err {
		req.cb(err, nil)
		return
	}
	if "" != reply.Error {
		req.cb(fault.RuntimeError(reply.Error), nil)
		return
	}
	req.cb(nil, reply.Result)
}

type replyPayload struct {
	Error  string      `json:"error,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

// request sends command with args JSON-encoded and delivers its
// correlated reply (or a Timeout()-satisfying error after
// requestTimeout) to cb.
// request returns without waiting for the write: the request frame is
// sent from its own goroutine. cb is always invoked off the calling
// goroutine - whether from readLoop, the timeout timer, the sending
// goroutine on a Send failure, or a goroutine started for a marshal
// failure - since callers run GetBlocks/GetTransactions/GetHeaders
// from their own coordinator goroutine and rely on the reply never
// arriving back on it re-entrantly.
func (p *Peer) request(command string, args interface{}, cb func(err error, result interface{})) {
	body, err := json.Marshal(args)
	if nil != err {
		go cb(err, nil)
		return
	}

	replyCmd := command + replySuffix
	timer := time.AfterFunc(requestTimeout, func() {
		p.mu.Lock()
		req, ok := p.pending[replyCmd]
		if ok {
			delete(p.pending, replyCmd)
		}
		p.mu.Unlock()
		if ok {
			req.cb(fault.ErrRequestTimeout(), nil)
		}
	})

	p.mu.Lock()
	p.pending[replyCmd] = &pendingRequest{cb: cb, t: timer}
	p.mu.Unlock()

	go func() {
		if err := p.Send(command, body); nil != err {
			p.mu.Lock()
			_, ok := p.pending[replyCmd]
			delete(p.pending, replyCmd)
			p.mu.Unlock()
			timer.Stop()
			if ok {
				cb(err, nil)
			}
		}
	}()
}

func (p *Peer) GetBlocks(hashes [][]byte, opts group.RequestOptions, cb func(err error, result interface{})) {
	p.request(cmdGetBlocks, struct {
		Hashes [][]byte              `json:"hashes"`
		Opts   group.RequestOptions  `json:"opts,omitempty"`
	}{hashes, opts}, cb)
}

func (p *Peer) GetTransactions(blockHash []byte, txids [][]byte, cb func(err error, result interface{})) {
	p.request(cmdGetTransactions, struct {
		BlockHash []byte   `json:"blockHash"`
		TxIDs     [][]byte `json:"txids"`
	}{blockHash, txids}, cb)
}

func (p *Peer) GetHeaders(locator [][]byte, opts group.RequestOptions, cb func(err error, result interface{})) {
	p.request(cmdGetHeaders, struct {
		Locator [][]byte             `json:"locator"`
		Opts    group.RequestOptions `json:"opts,omitempty"`
	}{locator, opts}, cb)
}
