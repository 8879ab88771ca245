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

// Match is the set of header fields and the ingress port an installed
// FlowMod matches against. It is built from an observed packet plus the
// port it arrived on, mirroring ofp_match.from_packet in the reference
// controller.
type Match struct {
	InPort  uint16
	DLSrc   addr.MAC
	DLDst   addr.MAC
	DLType  uint16
	NWSrc   addr.IP
	NWDst   addr.IP
	NWProto uint8
	TPSrc   uint16
	TPDst   uint16
	hasIPv4 bool
	hasTCP  bool
}

// MatchFromPacket builds a Match from a parsed packet and the port it was
// received on.
func MatchFromPacket(p ParsedPacket, inPort uint16) Match {
	m := Match{
		InPort: inPort,
		DLSrc:  p.Ethernet.Src,
		DLDst:  p.Ethernet.Dst,
		DLType: p.Ethernet.Type,
	}

	if p.IPv4 != nil {
		m.hasIPv4 = true
		m.NWSrc = p.IPv4.Src
		m.NWDst = p.IPv4.Dst
		m.NWProto = p.IPv4.Protocol
	}
	if p.TCP != nil {
		m.hasTCP = true
		m.TPSrc = p.TCP.SrcPort
		m.TPDst = p.TCP.DstPort
	}

	return m
}

// HasIPv4 reports whether the match carries IPv4 header fields.
func (m Match) HasIPv4() bool { return m.hasIPv4 }

// HasTCP reports whether the match carries TCP header fields.
func (m Match) HasTCP() bool { return m.hasTCP }
