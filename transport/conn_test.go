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
	"net"
	"testing"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

func pipeConn(t *testing.T) (client, server net.Conn) {
	t.Helper()
	client, server = net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func writeHello(t *testing.T, w net.Conn, dpid uint64, mac addr.MAC) {
	t.Helper()
	enc := json.NewEncoder(w)
	if err := enc.Encode(frame{Kind: kindHello, Hello: &helloFrame{DPID: dpid, MAC: mac}}); err != nil {
		t.Fatalf("failed to write hello: %v", err)
	}
}

func TestNewConnReadsHandshake(t *testing.T) {
	client, server := pipeConn(t)

	mac := addr.MustParseMAC("00:11:22:33:44:55")
	go writeHello(t, client, 7, mac)

	c, err := NewConn(server, nil)
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}
	if c.DPID() != 7 {
		t.Fatalf("DPID() = %d, want 7", c.DPID())
	}
	if c.LocalMAC() != mac {
		t.Fatalf("LocalMAC() = %v, want %v", c.LocalMAC(), mac)
	}
}

func TestNewConnRejectsNonHelloFirstFrame(t *testing.T) {
	client, server := pipeConn(t)

	go func() {
		enc := json.NewEncoder(client)
		enc.Encode(frame{Kind: kindPacketIn, PacketIn: &packetInFrame{Port: 1}})
	}()

	if _, err := NewConn(server, nil); err == nil {
		t.Fatal("expected an error for a non-hello first frame")
	}
}

func TestConnSendEncodesFlowMod(t *testing.T) {
	client, server := pipeConn(t)

	mac := addr.MustParseMAC("00:11:22:33:44:55")
	go writeHello(t, client, 1, mac)

	c, err := NewConn(server, nil)
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}

	fm := ofp.NewFlowMod(
		ofp.Match{InPort: 1},
		[]ofp.Action{ofp.Output(2)},
		10,
		nil,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var f frame
		if err := json.NewDecoder(client).Decode(&f); err != nil {
			t.Errorf("decode on client side: %v", err)
			return
		}
		if f.Kind != kindFlowMod || f.FlowMod == nil {
			t.Errorf("expected a flow_mod frame, got kind %q", f.Kind)
			return
		}
		if f.FlowMod.Match.InPort != 1 {
			t.Errorf("InPort = %d, want 1", f.FlowMod.Match.InPort)
		}
		if len(f.FlowMod.Actions) != 1 || f.FlowMod.Actions[0].Kind != actionOutput {
			t.Errorf("unexpected actions: %+v", f.FlowMod.Actions)
		}
	}()

	if err := c.Send(fm); err != nil {
		t.Fatalf("Send: %v", err)
	}
	<-done
}

func TestConnReceivePacketInSkipsNonPacketInFrames(t *testing.T) {
	client, server := pipeConn(t)

	mac := addr.MustParseMAC("00:11:22:33:44:55")
	go writeHello(t, client, 1, mac)

	c, err := NewConn(server, nil)
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}

	srcMAC := addr.MustParseMAC("aa:bb:cc:dd:ee:ff")
	dstMAC := addr.MustParseMAC("11:22:33:44:55:66")

	go func() {
		enc := json.NewEncoder(client)
		// Not a packet-in; Conn should skip it and keep reading.
		enc.Encode(frame{Kind: kindHello, Hello: &helloFrame{DPID: 1, MAC: mac}})
		enc.Encode(frame{Kind: kindPacketIn, PacketIn: &packetInFrame{
			Port:     3,
			Ethernet: ethernetFrame{Src: srcMAC, Dst: dstMAC, Type: ofp.EthTypeIPv4},
		}})
	}()

	ev, err := c.ReceivePacketIn()
	if err != nil {
		t.Fatalf("ReceivePacketIn: %v", err)
	}
	if ev.DPID != 1 || ev.Port != 3 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Parsed.Ethernet.Src != srcMAC || ev.Parsed.Ethernet.Dst != dstMAC {
		t.Fatalf("unexpected ethernet header: %+v", ev.Parsed.Ethernet)
	}
}
