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

package simnet

import (
	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

// ARPReply builds the ParsedPacket a real transport would hand the core
// for an ARP reply from (senderMAC, senderIP) to (targetMAC, targetIP).
func ARPReply(senderMAC addr.MAC, senderIP addr.IP, targetMAC addr.MAC, targetIP addr.IP) ofp.ParsedPacket {
	return ofp.ParsedPacket{
		Ethernet: ofp.Ethernet{Src: senderMAC, Dst: targetMAC, Type: ofp.EthTypeARP},
		ARP: &ofp.ARP{
			Opcode: ofp.ARPReply,
			SHA:    senderMAC,
			SPA:    senderIP,
			THA:    targetMAC,
			TPA:    targetIP,
		},
	}
}

// ARPRequest builds the ParsedPacket for an ARP request asking who has
// targetIP, from (senderMAC, senderIP).
func ARPRequest(senderMAC addr.MAC, senderIP addr.IP, targetIP addr.IP) ofp.ParsedPacket {
	return ofp.ParsedPacket{
		Ethernet: ofp.Ethernet{Src: senderMAC, Dst: addr.Broadcast, Type: ofp.EthTypeARP},
		ARP: &ofp.ARP{
			Opcode: ofp.ARPRequest,
			SHA:    senderMAC,
			SPA:    senderIP,
			TPA:    targetIP,
		},
	}
}

// TCP builds the ParsedPacket for a TCP segment between two (MAC, IP, port)
// endpoints.
func TCP(srcMAC addr.MAC, srcIP addr.IP, srcPort uint16, dstMAC addr.MAC, dstIP addr.IP, dstPort uint16) ofp.ParsedPacket {
	return ofp.ParsedPacket{
		Ethernet: ofp.Ethernet{Src: srcMAC, Dst: dstMAC, Type: ofp.EthTypeIPv4},
		IPv4: &ofp.IPv4{
			Src:      srcIP,
			Dst:      dstIP,
			Protocol: ofp.IPProtoTCP,
		},
		TCP: &ofp.TCP{SrcPort: srcPort, DstPort: dstPort},
	}
}
