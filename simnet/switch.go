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

// Package simnet is an in-process fake of the switch side of an OpenFlow
// connection: it is not part of the controller core (the real transport is
// an external collaborator per SPEC_FULL.md §5.2), but a small enough
// stand-in that the core can be driven and observed end to end without
// Mininet or a real switch. It backs the cmd/* --demo mode and tests that
// want a packet-in -> flow-mod round trip; messages sent to a Switch are
// recorded, not forwarded to attached hosts.
package simnet

import (
	"sync"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

// Host is a simulated end host attached to one port of a Switch.
type Host struct {
	MAC addr.MAC
	IP  addr.IP
}

// Switch is a fake ofp.Connection. Sent messages are recorded for
// inspection only; their actions are not applied and nothing is delivered
// to attached hosts.
type Switch struct {
	dpid uint64
	mac  addr.MAC

	deliver func(ev ofp.PacketInEvent)

	mu    sync.Mutex
	ports map[uint16]Host
	sent  []ofp.Message
}

// NewSwitch creates a simulated switch identified by dpid with hardware
// address mac. deliver is called for every packet-in this Switch injects
// (normally switchreg.Registry.HandlePacketIn).
func NewSwitch(dpid uint64, mac addr.MAC, deliver func(ofp.PacketInEvent)) *Switch {
	return &Switch{
		dpid:    dpid,
		mac:     mac,
		deliver: deliver,
		ports:   make(map[uint16]Host),
	}
}

// DPID implements ofp.Connection.
func (s *Switch) DPID() uint64 { return s.dpid }

// LocalMAC implements ofp.Connection.
func (s *Switch) LocalMAC() addr.MAC { return s.mac }

// Send implements ofp.Connection, recording msg for later inspection by
// Sent.
func (s *Switch) Send(msg ofp.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns every message sent through this Switch so far, for test and
// demo-mode logging.
func (s *Switch) Sent() []ofp.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ofp.Message, len(s.sent))
	copy(out, s.sent)
	return out
}

// AttachHost records host as attached to port, for lookup by HostAt.
// PacketIn does not consult it; callers pass the frame in ready-made.
func (s *Switch) AttachHost(port uint16, host Host) {
	s.mu.Lock()
	s.ports[port] = host
	s.mu.Unlock()
}

// HostAt returns the host attached to port, if any.
func (s *Switch) HostAt(port uint16) (Host, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.ports[port]
	return h, ok
}

// PacketIn injects a packet-in as if it arrived on port, calling the
// Switch's deliver callback synchronously.
func (s *Switch) PacketIn(port uint16, parsed ofp.ParsedPacket, bufferID *uint32) {
	if s.deliver == nil {
		return
	}
	s.deliver(ofp.PacketInEvent{
		DPID:     s.dpid,
		Port:     port,
		BufferID: bufferID,
		Parsed:   parsed,
	})
}
