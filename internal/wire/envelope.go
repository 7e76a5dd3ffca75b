// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire defines the length-prefixed envelope the reference
// upstream.Peer implementation frames its messages with. The
// envelope itself is intentionally thin - a command name plus an
// opaque payload - since the actual block/transaction/header formats
// it carries are a separate protocol this module does not define.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	proto "github.com/gogo/protobuf/proto"
)

// maxEnvelopeSize bounds a single frame so a corrupt or hostile peer
// cannot make ReadEnvelope allocate without limit.
const maxEnvelopeSize = 32 * 1024 * 1024

// Envelope is the wire record for one peer message: a command name
// selecting how Payload should be interpreted by the caller, exactly
// as the event aggregator re-emits it.
type Envelope struct {
	Command string `protobuf:"bytes,1,opt,name=command,proto3" json:"command,omitempty"`
	Payload []byte `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
}

func (e *Envelope) Reset()         { *e = Envelope{} }
func (e *Envelope) String() string { return fmt.Sprintf("Envelope{%s, %d bytes}", e.Command, len(e.Payload)) }
func (e *Envelope) ProtoMessage()  {}

// WriteEnvelope marshals e and writes it to w as a 4-byte big-endian
// length prefix followed by the protobuf body.
func WriteEnvelope(w io.Writer, e *Envelope) error {
	body, err := proto.Marshal(e)
	if nil != err {
		return err
	}
	if len(body) > maxEnvelopeSize {
		return fmt.Errorf("wire: envelope too large: %d bytes", len(body))
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))
	if _, err := w.Write(header); nil != err {
		return err
	}
	_, err = w.Write(body)
	return err
}

// ReadEnvelope reads one length-prefixed protobuf envelope from r.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); nil != err {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header)
	if length > maxEnvelopeSize {
		return nil, fmt.Errorf("wire: envelope too large: %d bytes", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); nil != err {
		return nil, err
	}

	e := &Envelope{}
	if err := proto.Unmarshal(body, e); nil != err {
		return nil, err
	}
	return e, nil
}
