// Copyright 2026 The ofcontrol authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

// Conn is a JSON-framed control channel to one switch. Sends and receives
// each hold their own mutex around a shared encoder/decoder pair, the same
// split used by ovsdb's JSON-RPC Conn -- a receive loop blocked in
// dec.Decode must never stall a concurrent Send.
type Conn struct {
	c io.Closer

	encMu sync.Mutex
	enc   *json.Encoder

	decMu sync.Mutex
	dec   *json.Decoder

	dpid uint64
	mac  addr.MAC
}

// NewConn wraps rwc in a Conn and performs the hello handshake: it expects
// the switch to send a hello frame first, identifying its dpid and MAC. If
// trace is non-nil, every frame read or written is logged at debug level
// through it.
func NewConn(rwc io.ReadWriteCloser, trace *logrus.Entry) (*Conn, error) {
	if trace != nil {
		rwc = &tracingReadWriteCloser{rwc: rwc, log: trace}
	}

	c := &Conn{
		c:   rwc,
		enc: json.NewEncoder(rwc),
		dec: json.NewDecoder(rwc),
	}

	var f frame
	if err := c.decode(&f); err != nil {
		return nil, fmt.Errorf("transport: reading hello: %w", err)
	}
	if f.Kind != kindHello || f.Hello == nil {
		return nil, fmt.Errorf("transport: expected hello frame, got %q", f.Kind)
	}

	c.dpid = f.Hello.DPID
	c.mac = f.Hello.MAC
	return c, nil
}

// DPID implements ofp.Connection.
func (c *Conn) DPID() uint64 { return c.dpid }

// LocalMAC implements ofp.Connection.
func (c *Conn) LocalMAC() addr.MAC { return c.mac }

// Send implements ofp.Connection by encoding msg as a frame.
func (c *Conn) Send(msg ofp.Message) error {
	return c.encode(encodeMessage(msg))
}

// ReceivePacketIn blocks until the next packet-in frame arrives, decoding it
// against this connection's dpid and port. Non-packet-in frames are
// skipped; a real switch only ever sends packet-ins after its hello.
func (c *Conn) ReceivePacketIn() (ofp.PacketInEvent, error) {
	for {
		var f frame
		if err := c.decode(&f); err != nil {
			return ofp.PacketInEvent{}, err
		}
		if f.Kind != kindPacketIn || f.PacketIn == nil {
			continue
		}
		return decodePacketIn(f.PacketIn, c.dpid, f.PacketIn.Port), nil
	}
}

// Close closes the underlying transport.
func (c *Conn) Close() error {
	return c.c.Close()
}

func (c *Conn) encode(f frame) error {
	c.encMu.Lock()
	defer c.encMu.Unlock()

	if err := c.enc.Encode(f); err != nil {
		return fmt.Errorf("transport: failed to encode frame: %w", err)
	}
	return nil
}

func (c *Conn) decode(f *frame) error {
	c.decMu.Lock()
	defer c.decMu.Unlock()

	if err := c.dec.Decode(f); err != nil {
		if err == io.EOF {
			return err
		}
		return fmt.Errorf("transport: failed to decode frame: %w", err)
	}
	return nil
}

// tracingReadWriteCloser logs each read/write's byte count and a truncated
// preview as structured fields, rather than printing the raw frame the way
// a line-oriented logger would -- frames here are JSON, not the free-form
// wire chatter a generic tracer expects, so the preview is capped to avoid
// flooding the log with a large packet-in payload.
type tracingReadWriteCloser struct {
	rwc io.ReadWriteCloser
	log *logrus.Entry
}

const tracePreviewLen = 200

func preview(b []byte) string {
	if len(b) > tracePreviewLen {
		return string(b[:tracePreviewLen]) + "..."
	}
	return string(b)
}

func (t *tracingReadWriteCloser) Read(b []byte) (int, error) {
	n, err := t.rwc.Read(b)
	if err != nil {
		return n, err
	}
	t.log.WithField("bytes", n).Debugf("read: %s", preview(b[:n]))
	return n, nil
}

func (t *tracingReadWriteCloser) Write(b []byte) (int, error) {
	n, err := t.rwc.Write(b)
	if err != nil {
		return n, err
	}
	t.log.WithField("bytes", n).Debugf("write: %s", preview(b[:n]))
	return n, nil
}

func (t *tracingReadWriteCloser) Close() error {
	err := t.rwc.Close()
	t.log.WithError(err).Debug("closed")
	return err
}
