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

// Package learning implements a plain L2 learning switch: source-address
// learning, flood-on-unknown-destination, and flow installation once a
// destination's port is known. One Switch handles one switch connection.
package learning

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

// DropFlowTimeout is the idle/hard timeout installed on the drop-flow used
// to suppress a same-port echo for a while, per spec.md §4.6 step 5.
const DropFlowTimeout uint16 = 10

// Learned flow idle/hard timeouts, per spec.md §4.6 step 6.
const (
	FlowIdleTimeout uint16 = 10
	FlowHardTimeout uint16 = 30
)

// Config configures a Switch.
type Config struct {
	// Transparent disables link-local filtering (step 2 of the algorithm):
	// LLDP and bridge-filtered destinations are forwarded like anything
	// else. Most deployments want this false.
	Transparent bool

	// HoldDown delays flooding for newly connected switches by this
	// duration, to avoid a storm of floods while the rest of the topology
	// is still connecting. Zero disables the hold-down.
	HoldDown time.Duration

	// Recorder, if set, is notified of every learn/forget so an external
	// cross-switch component (see package reachability) can keep its own
	// per-switch snapshot without Switch needing to know that component
	// exists.
	Recorder Recorder
}

// A Recorder observes a Switch's learning decisions. reachability.HostTable
// implements this to maintain a per-MAC, per-switch last-learned-port
// snapshot, ahead of a later prune -- see package reachability.
type Recorder interface {
	RecordLearn(mac addr.MAC, sw *Switch, port uint16)
	RecordForget(mac addr.MAC, sw *Switch)
}

// Switch is the learning-switch "brain" bound to a single connection. It
// maintains a MAC-to-port table built by observing traffic, per spec.md
// §4.6.
type Switch struct {
	cfg  Config
	log  *logrus.Entry
	dpid uint64

	macToPort map[addr.MAC]uint16

	connectTime     time.Time
	now             func() time.Time
	holdDownExpired bool
}

// New creates a Switch for dpid, with now used to evaluate the hold-down
// window (normally time.Now, overridden in tests).
func New(dpid uint64, cfg Config, now func() time.Time, log *logrus.Entry) *Switch {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Switch{
		cfg:             cfg,
		log:             log.WithField("component", "learning").WithField("dpid", dpid),
		dpid:            dpid,
		macToPort:       make(map[addr.MAC]uint16),
		connectTime:     now(),
		now:             now,
		holdDownExpired: cfg.HoldDown == 0,
	}
}

// PortFor reports the last-learned port for mac, if any. The reachability
// reconciler uses this to check whether a switch currently has mac and to
// read its port before a prune; the per-switch snapshot itself is kept by
// the Recorder (spec.md §9's fix for the reference's single global
// PORT_PORT/EVNT_MAC variables).
func (s *Switch) PortFor(mac addr.MAC) (uint16, bool) {
	port, ok := s.macToPort[mac]
	return port, ok
}

// Forget removes mac from the table, e.g. when the reachability reconciler
// determines the host is no longer alive.
func (s *Switch) Forget(mac addr.MAC) {
	delete(s.macToPort, mac)
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.RecordForget(mac, s)
	}
}

// Learn records mac as reachable via port without waiting for a packet-in,
// e.g. when the reachability reconciler determines a host is alive and no
// switch has yet observed traffic from it.
func (s *Switch) Learn(mac addr.MAC, port uint16) {
	s.macToPort[mac] = port
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.RecordLearn(mac, s, port)
	}
}

// DPID returns the datapath identifier this Switch is bound to.
func (s *Switch) DPID() uint64 { return s.dpid }

// HandlePacketIn implements switchreg.PacketInHandler and spec.md §4.6's
// learning-switch algorithm.
func (s *Switch) HandlePacketIn(ev ofp.PacketInEvent) []ofp.Message {
	p := ev.Parsed
	eth := p.Ethernet

	s.Learn(eth.Src, ev.Port) // step 1

	if !s.cfg.Transparent { // step 2
		if eth.Type == ofp.EthTypeLLDP || eth.Dst.IsBridgeFiltered() {
			return s.drop(ev, nil) // step 2a
		}
	}

	if eth.Dst.IsMulticast() { // step 3
		return s.flood(ev, "") // step 3a
	}

	port, known := s.macToPort[eth.Dst]
	if !known { // step 4
		return s.flood(ev, "port for destination unknown") // step 4a
	}

	if port == ev.Port { // step 5
		s.log.WithField("src", eth.Src).WithField("dst", eth.Dst).
			WithField("port", port).Warn("same port for packet, dropping")
		return s.drop(ev, durationPair(DropFlowTimeout)) // step 5a
	}

	// step 6
	s.log.WithField("src", eth.Src).WithField("in_port", ev.Port).
		WithField("dst", eth.Dst).WithField("out_port", port).Debug("installing flow")
	match := ofp.MatchFromPacket(p, ev.Port)
	actions := []ofp.Action{ofp.Output(port)}
	fm := ofp.FlowMod{
		Match:       match,
		Actions:     actions,
		IdleTimeout: FlowIdleTimeout,
		HardTimeout: FlowHardTimeout,
		BufferID:    ev.BufferID,
	}
	return []ofp.Message{fm}
}

// flood emits a flood packet-out, honoring the hold-down window on newly
// connected switches per spec.md §4.6's flood() helper.
func (s *Switch) flood(ev ofp.PacketInEvent, reason string) []ofp.Message {
	if s.now().Sub(s.connectTime) < s.cfg.HoldDown {
		return nil
	}
	if !s.holdDownExpired {
		s.holdDownExpired = true
		s.log.Info("flood hold-down expired -- flooding")
	}
	if reason != "" {
		s.log.WithField("reason", reason).Debug("flooding")
	}

	actions := []ofp.Action{ofp.Output(ofp.PortFlood)}
	if ev.BufferID != nil {
		return []ofp.Message{ofp.PacketOut{InPort: ev.Port, Actions: actions, BufferID: ev.BufferID}}
	}
	return []ofp.Message{ofp.PacketOut{InPort: ev.Port, Actions: actions, Data: ev.Raw}}
}

// drop releases the buffered packet, optionally installing a flow that
// keeps dropping similar packets for (idle, hard) timeouts.
func (s *Switch) drop(ev ofp.PacketInEvent, timeouts *[2]uint16) []ofp.Message {
	if timeouts != nil {
		match := ofp.MatchFromPacket(ev.Parsed, ev.Port)
		fm := ofp.FlowMod{
			Match:       match,
			IdleTimeout: timeouts[0],
			HardTimeout: timeouts[1],
			BufferID:    ev.BufferID,
		}
		return []ofp.Message{fm}
	}
	if ev.BufferID == nil {
		return nil
	}
	return []ofp.Message{ofp.NewDropPacketOut(*ev.BufferID)}
}

func durationPair(v uint16) *[2]uint16 {
	return &[2]uint16{v, v}
}
