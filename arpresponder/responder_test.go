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

package arpresponder

import (
	"testing"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

func TestRespondsToRequestForServiceIP(t *testing.T) {
	switchMAC := addr.MustParseMAC("00:00:00:00:00:ff")
	serviceIP := addr.MustParseIP("10.0.1.1")
	r := New(switchMAC, serviceIP, false, nil)

	requesterMAC := addr.MustParseMAC("00:00:00:00:00:02")
	requesterIP := addr.MustParseIP("10.0.2.5")

	ev := ofp.PacketInEvent{
		Port: 3,
		Parsed: ofp.ParsedPacket{
			Ethernet: ofp.Ethernet{Type: ofp.EthTypeARP},
			ARP: &ofp.ARP{
				Opcode: ofp.ARPRequest,
				SHA:    requesterMAC,
				SPA:    requesterIP,
				TPA:    serviceIP,
			},
		},
	}

	msgs := r.HandlePacketIn(ev)
	if len(msgs) != 1 {
		t.Fatalf("expected one reply message, got %d", len(msgs))
	}
	po, ok := msgs[0].(ofp.PacketOut)
	if !ok {
		t.Fatalf("expected a PacketOut, got %T", msgs[0])
	}

	sender, senderIP, target, targetIP, ok := DecodeReply(po.Data)
	if !ok {
		t.Fatal("expected reply payload to decode")
	}
	if sender != switchMAC {
		t.Fatalf("expected sender MAC %v, got %v", switchMAC, sender)
	}
	if senderIP != serviceIP {
		t.Fatalf("expected sender IP %v, got %v", serviceIP, senderIP)
	}
	if target != requesterMAC {
		t.Fatalf("expected target MAC %v, got %v", requesterMAC, target)
	}
	if targetIP != requesterIP {
		t.Fatalf("expected target IP %v, got %v", requesterIP, targetIP)
	}

	var outPort uint16
	for _, a := range po.Actions {
		if o, ok := a.(ofp.Output); ok {
			outPort = uint16(o)
		}
	}
	if outPort != ev.Port {
		t.Fatalf("expected reply to output on the requesting port %d, got %d", ev.Port, outPort)
	}
}

func TestIgnoresRequestForOtherIP(t *testing.T) {
	r := New(addr.MustParseMAC("00:00:00:00:00:ff"), addr.MustParseIP("10.0.1.1"), false, nil)

	ev := ofp.PacketInEvent{
		Parsed: ofp.ParsedPacket{
			Ethernet: ofp.Ethernet{Type: ofp.EthTypeARP},
			ARP: &ofp.ARP{
				Opcode: ofp.ARPRequest,
				TPA:    addr.MustParseIP("10.0.1.2"),
			},
		},
	}

	if msgs := r.HandlePacketIn(ev); msgs != nil {
		t.Fatalf("expected no reply for an unrelated IP, got %v", msgs)
	}
}

func TestIgnoresARPReplies(t *testing.T) {
	r := New(addr.MustParseMAC("00:00:00:00:00:ff"), addr.MustParseIP("10.0.1.1"), false, nil)

	ev := ofp.PacketInEvent{
		Parsed: ofp.ParsedPacket{
			Ethernet: ofp.Ethernet{Type: ofp.EthTypeARP},
			ARP: &ofp.ARP{
				Opcode: ofp.ARPReply,
				TPA:    addr.MustParseIP("10.0.1.1"),
			},
		},
	}

	if msgs := r.HandlePacketIn(ev); msgs != nil {
		t.Fatalf("expected no reply to an ARP reply, got %v", msgs)
	}
}

func TestIgnoresNonARPTraffic(t *testing.T) {
	r := New(addr.MustParseMAC("00:00:00:00:00:ff"), addr.MustParseIP("10.0.1.1"), false, nil)

	ev := ofp.PacketInEvent{
		Parsed: ofp.ParsedPacket{Ethernet: ofp.Ethernet{Type: ofp.EthTypeIPv4}},
	}

	if msgs := r.HandlePacketIn(ev); msgs != nil {
		t.Fatalf("expected no reply to non-ARP traffic, got %v", msgs)
	}
}
