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

import "github.com/patchpanel/ofcontrol/addr"

// A Connection is a single switch's control channel, as consumed by the
// controller core. Per SPEC_FULL.md §5.2, the wire transport that
// implements Connection is an external collaborator; the core only ever
// sends Messages and receives PacketInEvents through this interface.
type Connection interface {
	// Send transmits msg to the switch. Implementations should not block
	// the caller on anything beyond the local write -- the core relies on
	// flow-mods for a given packet being emitted before its handler
	// returns (spec.md §5).
	Send(msg Message) error

	// DPID returns the switch's datapath identifier.
	DPID() uint64

	// LocalMAC returns the switch's own Ethernet address, used as the
	// source address for controller-originated ARP probes and as the
	// rewritten source address for LB return traffic.
	LocalMAC() addr.MAC
}

// A PacketInEvent is a single packet-in notification delivered by a
// Connection's transport.
type PacketInEvent struct {
	DPID     uint64
	Port     uint16
	BufferID *uint32
	Raw      []byte
	Parsed   ParsedPacket
}
