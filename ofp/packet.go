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

// Package ofp provides the OpenFlow 1.0 vocabulary the controller core
// builds on: parsed-packet views, match/action/flow-mod construction, and
// the Connection interface a transport must implement. It defines no wire
// codec of its own -- framing and transport are external collaborators per
// the design's scope (see SPEC_FULL.md).
package ofp

import "github.com/patchpanel/ofcontrol/addr"

// ARP opcodes, per RFC 826.
const (
	ARPRequest uint16 = 1
	ARPReply   uint16 = 2
)

// Ethertypes relevant to the controller core.
const (
	EthTypeIPv4 uint16 = 0x0800
	EthTypeARP  uint16 = 0x0806
	EthTypeLLDP uint16 = 0x88cc
)

// IP protocol numbers relevant to the controller core.
const (
	IPProtoTCP uint8 = 6
)

// Ethernet is the decoded Ethernet header of a received frame.
type Ethernet struct {
	Src  addr.MAC
	Dst  addr.MAC
	Type uint16
}

// ARP is the decoded payload of an ARP frame.
type ARP struct {
	Opcode uint16
	SHA    addr.MAC
	SPA    addr.IP
	THA    addr.MAC
	TPA    addr.IP
}

// IPv4 is the decoded IPv4 header of a received frame.
type IPv4 struct {
	Src      addr.IP
	Dst      addr.IP
	Protocol uint8
}

// TCP is the decoded TCP header of a received frame.
type TCP struct {
	SrcPort uint16
	DstPort uint16
}

// ParsedPacket is the decoded view of a frame delivered with a PacketInEvent.
// A transport is responsible for populating it; the controller core only
// ever reads from it. Fields are nil/zero when the corresponding protocol
// layer is absent, mirroring the reference's packet.find("proto") idiom.
type ParsedPacket struct {
	Ethernet Ethernet
	ARP      *ARP
	IPv4     *IPv4
	TCP      *TCP
}

// IsARP reports whether the parsed packet carries an ARP payload.
func (p ParsedPacket) IsARP() bool { return p.ARP != nil }

// IsTCP reports whether the parsed packet carries a TCP segment.
func (p ParsedPacket) IsTCP() bool { return p.IPv4 != nil && p.TCP != nil }

// FourTuple is the (srcIP, dstIP, srcPort, dstPort) key used to correlate a
// TCP flow's two directions, per spec.md's key1/key2 definitions.
type FourTuple struct {
	SrcIP   addr.IP
	DstIP   addr.IP
	SrcPort uint16
	DstPort uint16
}

// FourTuple extracts the four-tuple from a TCP packet. The caller must
// ensure p.IsTCP() first.
func (p ParsedPacket) FourTuple() FourTuple {
	return FourTuple{
		SrcIP:   p.IPv4.Src,
		DstIP:   p.IPv4.Dst,
		SrcPort: p.TCP.SrcPort,
		DstPort: p.TCP.DstPort,
	}
}
