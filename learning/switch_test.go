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

package learning

import (
	"testing"
	"time"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ethPacketIn(src, dst addr.MAC, inPort uint16) ofp.PacketInEvent {
	bufID := uint32(1)
	return ofp.PacketInEvent{
		DPID:     1,
		Port:     inPort,
		BufferID: &bufID,
		Parsed: ofp.ParsedPacket{
			Ethernet: ofp.Ethernet{Src: src, Dst: dst, Type: 0x0800},
		},
	}
}

// Unknown destination floods, then a reply from that destination learns
// its port and the next packet to it installs a flow instead of flooding.
func TestLearnsThenInstallsFlow(t *testing.T) {
	sw := New(1, Config{}, fixedClock(time.Unix(0, 0)), nil)

	macA := addr.MustParseMAC("00:00:00:00:00:01")
	macB := addr.MustParseMAC("00:00:00:00:00:02")

	// First packet: B is unknown, so this floods.
	msgs := sw.HandlePacketIn(ethPacketIn(macA, macB, 1))
	if len(msgs) != 1 {
		t.Fatalf("expected one flood message, got %d", len(msgs))
	}
	po, ok := msgs[0].(ofp.PacketOut)
	if !ok {
		t.Fatalf("expected a PacketOut, got %T", msgs[0])
	}
	if !ofp.HasOutput(po.Actions) {
		t.Fatal("expected flood to carry an output action")
	}

	// B replies, arriving on port 2; this should be learned on top of A
	// already being learned on port 1.
	sw.HandlePacketIn(ethPacketIn(macB, macA, 2))

	if port, ok := sw.PortFor(macA); !ok || port != 1 {
		t.Fatalf("expected macA learned on port 1, got %v, %v", port, ok)
	}
	if port, ok := sw.PortFor(macB); !ok || port != 2 {
		t.Fatalf("expected macB learned on port 2, got %v, %v", port, ok)
	}

	// Now a new packet from A to B should install a flow out port 2.
	msgs = sw.HandlePacketIn(ethPacketIn(macA, macB, 1))
	if len(msgs) != 1 {
		t.Fatalf("expected one flow-mod message, got %d", len(msgs))
	}
	fm, ok := msgs[0].(ofp.FlowMod)
	if !ok {
		t.Fatalf("expected a FlowMod, got %T", msgs[0])
	}
	if !ofp.HasOutput(fm.Actions) {
		t.Fatal("expected installed flow to carry an output action")
	}
	var outPort uint16
	for _, a := range fm.Actions {
		if o, ok := a.(ofp.Output); ok {
			outPort = uint16(o)
		}
	}
	if outPort != 2 {
		t.Fatalf("expected flow to output on port 2, got %d", outPort)
	}
}

func TestMulticastDestinationFloods(t *testing.T) {
	sw := New(1, Config{}, fixedClock(time.Unix(0, 0)), nil)

	macA := addr.MustParseMAC("00:00:00:00:00:01")
	multicast := addr.MustParseMAC("01:00:5e:00:00:01")

	msgs := sw.HandlePacketIn(ethPacketIn(macA, multicast, 1))
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	po, ok := msgs[0].(ofp.PacketOut)
	if !ok {
		t.Fatalf("expected a PacketOut, got %T", msgs[0])
	}
	if !ofp.HasOutput(po.Actions) {
		t.Fatal("expected multicast flood to carry an output action")
	}
}

func TestBridgeFilteredDestinationIsDroppedWhenNotTransparent(t *testing.T) {
	sw := New(1, Config{Transparent: false}, fixedClock(time.Unix(0, 0)), nil)

	macA := addr.MustParseMAC("00:00:00:00:00:01")
	stp := addr.MustParseMAC("01:80:c2:00:00:00")

	msgs := sw.HandlePacketIn(ethPacketIn(macA, stp, 1))
	if len(msgs) != 1 {
		t.Fatalf("expected one drop message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(ofp.PacketOut); !ok {
		t.Fatalf("expected a PacketOut (drop), got %T", msgs[0])
	}
}

func TestBridgeFilteredDestinationIsForwardedWhenTransparent(t *testing.T) {
	sw := New(1, Config{Transparent: true}, fixedClock(time.Unix(0, 0)), nil)

	macA := addr.MustParseMAC("00:00:00:00:00:01")
	stp := addr.MustParseMAC("01:80:c2:00:00:00")

	// Transparent mode skips link-local filtering, so the STP address is
	// handled like any other multicast destination and flooded rather than
	// dropped.
	msgs := sw.HandlePacketIn(ethPacketIn(macA, stp, 1))
	if len(msgs) != 1 {
		t.Fatalf("expected one flood message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(ofp.PacketOut); !ok {
		t.Fatalf("expected a PacketOut, got %T", msgs[0])
	}
}

// S6 -- destination learned on the ingress port installs a drop flow.
func TestSamePortEchoInstallsDropFlow(t *testing.T) {
	sw := New(1, Config{}, fixedClock(time.Unix(0, 0)), nil)

	macA := addr.MustParseMAC("00:00:00:00:00:01")
	macB := addr.MustParseMAC("00:00:00:00:00:02")

	// Learn both on the same port.
	sw.Learn(macA, 1)
	sw.Learn(macB, 1)

	msgs := sw.HandlePacketIn(ethPacketIn(macA, macB, 1))
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	fm, ok := msgs[0].(ofp.FlowMod)
	if !ok {
		t.Fatalf("expected a FlowMod (drop flow), got %T", msgs[0])
	}
	if len(fm.Actions) != 0 {
		t.Fatalf("expected a drop flow with no actions, got %v", fm.Actions)
	}
	if fm.IdleTimeout != DropFlowTimeout || fm.HardTimeout != DropFlowTimeout {
		t.Fatalf("expected drop flow timeouts of %d, got idle=%d hard=%d",
			DropFlowTimeout, fm.IdleTimeout, fm.HardTimeout)
	}
}

func TestHoldDownDelaysFlood(t *testing.T) {
	start := time.Unix(1000, 0)
	now := start
	sw := New(1, Config{HoldDown: 5 * time.Second}, func() time.Time { return now }, nil)

	macA := addr.MustParseMAC("00:00:00:00:00:01")
	macB := addr.MustParseMAC("00:00:00:00:00:02")

	msgs := sw.HandlePacketIn(ethPacketIn(macA, macB, 1))
	if msgs != nil {
		t.Fatalf("expected flood to be suppressed during hold-down, got %v", msgs)
	}

	now = start.Add(6 * time.Second)
	msgs = sw.HandlePacketIn(ethPacketIn(macA, macB, 1))
	if len(msgs) != 1 {
		t.Fatalf("expected flood to proceed after hold-down expired, got %d messages", len(msgs))
	}
}

func TestForgetRemovesLearnedPort(t *testing.T) {
	sw := New(1, Config{}, fixedClock(time.Unix(0, 0)), nil)
	mac := addr.MustParseMAC("00:00:00:00:00:01")

	sw.Learn(mac, 4)
	if _, ok := sw.PortFor(mac); !ok {
		t.Fatal("expected mac to be learned")
	}

	sw.Forget(mac)
	if _, ok := sw.PortFor(mac); ok {
		t.Fatal("expected mac to be forgotten")
	}
}
