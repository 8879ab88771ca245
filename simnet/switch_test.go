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
	"context"
	"testing"
	"time"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/lb"
	"github.com/patchpanel/ofcontrol/ofp"
	"github.com/patchpanel/ofcontrol/sched"
	"github.com/patchpanel/ofcontrol/switchreg"
)

func TestSimnetFullLBRoundTrip(t *testing.T) {
	reg := switchreg.New(nil)
	sc := sched.New(func() time.Time { return time.Unix(0, 0) })

	dpid := uint64(1)
	switchMAC := addr.MustParseMAC("00:00:00:00:00:ff")

	sw := NewSwitch(dpid, switchMAC, reg.HandlePacketIn)

	cfg := lb.Config{
		ServiceIP:  addr.MustParseIP("10.0.1.1"),
		Servers:    []addr.IP{addr.MustParseIP("10.0.0.1")},
		SwitchDPID: dpid,
		// One server and a 250ms cycle: the first ARP probe goes out 250ms
		// after connection-up.
		ProbeCycle: 250 * time.Millisecond,
	}
	inst := lb.NewInstance(cfg, sc, nil)

	reg.Bind(dpid, inst.OnConnectionUp, inst.OnConnectionDown)
	reg.BindPacketIn(dpid, inst)
	reg.HandleConnectionUp(sw)

	server := Host{MAC: addr.MustParseMAC("00:00:00:00:00:01"), IP: addr.MustParseIP("10.0.0.1")}
	client := Host{MAC: addr.MustParseMAC("00:00:00:00:00:02"), IP: addr.MustParseIP("10.0.2.5")}
	sw.AttachHost(1, server)
	sw.AttachHost(3, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sc.Run(ctx)

	// The LB only accepts an ARP reply to a probe it has sent, so wait for
	// the first probe to reach the switch.
	deadline := time.Now().Add(2 * time.Second)
	for len(sw.Sent()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the ARP probe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Inject the rest on the scheduler goroutine, after the probe's task.
	done := make(chan struct{})
	sc.Post(func() {
		defer close(done)
		// Bring the server up via an ARP reply.
		sw.PacketIn(1, ARPReply(server.MAC, server.IP, switchMAC, cfg.ServiceIP), nil)

		// Client opens a flow to the service IP.
		bufID := uint32(1)
		sw.PacketIn(3, TCP(client.MAC, client.IP, 40000, switchMAC, cfg.ServiceIP, 80), &bufID)
	})
	<-done

	sent := sw.Sent()[1:]
	if len(sent) != 1 {
		t.Fatalf("expected exactly one message sent to the switch after the probe, got %d", len(sent))
	}
	fm, ok := sent[0].(ofp.FlowMod)
	if !ok {
		t.Fatalf("expected a FlowMod, got %T", sent[0])
	}
	if !ofp.HasOutput(fm.Actions) {
		t.Fatal("expected the installed flow to carry an output action")
	}
}
