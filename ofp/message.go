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

package ofp

// HardTimeoutPermanent is the hard-timeout value meaning "never expire by
// hard timeout", analogous to OFP_FLOW_PERMANENT.
const HardTimeoutPermanent uint16 = 0

// A Message is anything a Connection can Send: a FlowMod or a PacketOut.
type Message interface {
	isMessage()
}

// A FlowMod installs or modifies a flow table entry on a switch.
//
// Per spec.md §8's testable properties, every FlowMod the lb package
// builds carries at least one Output action, with any address-rewrite
// actions preceding it; NewForwardActions/NewReverseActions enforce the
// ordering, and the lb tests assert HasOutput/RewritesPrecedeOutput on its
// FlowMods. The learning package's same-port drop flow carries no actions.
type FlowMod struct {
	Match       Match
	Actions     []Action
	IdleTimeout uint16
	HardTimeout uint16
	// BufferID carries the triggering packet through to the switch, which
	// replays it through the newly installed pipeline. A nil BufferID
	// means no buffered packet is attached.
	BufferID *uint32
}

func (FlowMod) isMessage() {}

// A PacketOut tells a switch to emit a packet, either a buffered one
// referenced by BufferID or a freshly built one carried in Data.
type PacketOut struct {
	InPort   uint16
	Actions  []Action
	BufferID *uint32
	Data     []byte
}

func (PacketOut) isMessage() {}

// NewFloodPacketOut builds a packet-out that floods Data (e.g. a
// from-scratch ARP request) out every port, per spec.md §4.2's "packet-out
// with flood" message kind.
func NewFloodPacketOut(data []byte) PacketOut {
	return PacketOut{
		InPort:  PortNone,
		Actions: []Action{Output(PortFlood)},
		Data:    data,
	}
}

// NewDropPacketOut releases a buffered packet with no forwarding action,
// freeing the switch's buffer without emitting the packet anywhere --
// spec.md §4.2's "packet-out with empty actions" message kind.
func NewDropPacketOut(bufferID uint32) PacketOut {
	return PacketOut{BufferID: &bufferID}
}

// NewFlowMod builds a FlowMod with the given idle timeout (the lb package
// passes FlowIdleTimeout, 10s) and a permanent hard timeout, carrying the
// triggering event's buffer so the switch replays the
// pending packet through the newly installed pipeline.
func NewFlowMod(match Match, actions []Action, idleTimeout uint16, bufferID *uint32) FlowMod {
	return FlowMod{
		Match:       match,
		Actions:     actions,
		IdleTimeout: idleTimeout,
		HardTimeout: HardTimeoutPermanent,
		BufferID:    bufferID,
	}
}
