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

package reachability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/learning"
	"github.com/patchpanel/ofcontrol/sched"
)

type fakeOracle struct {
	mu sync.Mutex
	up map[addr.IP]bool
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{up: make(map[addr.IP]bool)}
}

func (f *fakeOracle) setUp(ip addr.IP, up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.up[ip] = up
}

func (f *fakeOracle) Reachable(ctx context.Context, ip addr.IP) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.up[ip]
}

// waitForCondition polls until fn returns true or the timeout elapses,
// needed here because WorkerPool results arrive asynchronously via the
// scheduler goroutine.
func waitForCondition(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestReconcilerBringsHostUpAtLastKnownPort(t *testing.T) {
	oracle := newFakeOracle()
	hostIP := addr.MustParseIP("10.0.0.5")
	hostMAC := addr.MustParseMAC("00:00:00:00:00:05")
	oracle.setUp(hostIP, true)

	hosts := NewHostTable(map[addr.IP]addr.MAC{hostIP: hostMAC})

	sc := sched.New(func() time.Time { return time.Unix(0, 0) })
	go sc.Run(context.Background())

	sw1 := learning.New(1, learning.Config{Recorder: hosts}, nil, nil)
	sw2 := learning.New(2, learning.Config{Recorder: hosts}, nil, nil)

	// sw1 has seen this host directly, at port 7; sw2 has never seen it.
	sw1.Learn(hostMAC, 7)

	r := NewReconciler(hosts, oracle, sc, 2, time.Second, nil)
	r.Watch(sw1)
	r.Watch(sw2)

	sc.Post(func() { r.Tick(sc.Now()) })

	waitForCondition(t, func() bool {
		port, ok := sw2.PortFor(hostMAC)
		return ok && port == 7
	})
}

func TestReconcilerBringsHostDownOnAllSwitches(t *testing.T) {
	oracle := newFakeOracle()
	hostIP := addr.MustParseIP("10.0.0.6")
	hostMAC := addr.MustParseMAC("00:00:00:00:00:06")
	oracle.setUp(hostIP, false)

	hosts := NewHostTable(map[addr.IP]addr.MAC{hostIP: hostMAC})

	sc := sched.New(func() time.Time { return time.Unix(0, 0) })
	go sc.Run(context.Background())

	sw1 := learning.New(1, learning.Config{Recorder: hosts}, nil, nil)
	sw2 := learning.New(2, learning.Config{Recorder: hosts}, nil, nil)
	sw1.Learn(hostMAC, 3)
	sw2.Learn(hostMAC, 9)

	r := NewReconciler(hosts, oracle, sc, 2, time.Second, nil)
	r.Watch(sw1)
	r.Watch(sw2)

	sc.Post(func() { r.Tick(sc.Now()) })

	waitForCondition(t, func() bool {
		_, ok1 := sw1.PortFor(hostMAC)
		_, ok2 := sw2.PortFor(hostMAC)
		return !ok1 && !ok2
	})
}

func TestReconcilerSkipsTickWithFewerThanTwoSwitches(t *testing.T) {
	oracle := newFakeOracle()
	hostIP := addr.MustParseIP("10.0.0.7")
	hostMAC := addr.MustParseMAC("00:00:00:00:00:07")
	oracle.setUp(hostIP, true)

	hosts := NewHostTable(map[addr.IP]addr.MAC{hostIP: hostMAC})
	sc := sched.New(func() time.Time { return time.Unix(0, 0) })
	go sc.Run(context.Background())

	sw1 := learning.New(1, learning.Config{Recorder: hosts}, nil, nil)

	r := NewReconciler(hosts, oracle, sc, 2, time.Second, nil)
	r.Watch(sw1)

	r.Tick(sc.Now())

	if len(r.inFlight) != 0 {
		t.Fatalf("expected no probes submitted with a single switch, got %d", len(r.inFlight))
	}
}

func TestHostTableLastPortTrackedPerSwitch(t *testing.T) {
	hosts := NewHostTable(nil)
	mac := addr.MustParseMAC("00:00:00:00:00:01")

	sw1 := learning.New(1, learning.Config{Recorder: hosts}, nil, nil)
	sw2 := learning.New(2, learning.Config{Recorder: hosts}, nil, nil)

	sw1.Learn(mac, 1)
	sw2.Learn(mac, 2)

	p1, ok := hosts.LastPortOn(mac, sw1)
	if !ok || p1 != 1 {
		t.Fatalf("expected sw1's last port to be 1, got %v, %v", p1, ok)
	}
	p2, ok := hosts.LastPortOn(mac, sw2)
	if !ok || p2 != 2 {
		t.Fatalf("expected sw2's last port to be 2, got %v, %v", p2, ok)
	}

	sw1.Forget(mac)
	if _, ok := hosts.LastPortOn(mac, sw1); ok {
		t.Fatal("expected sw1's snapshot to be cleared after Forget")
	}
	if _, ok := hosts.LastPortOn(mac, sw2); !ok {
		t.Fatal("expected sw2's snapshot to be unaffected by sw1's forget")
	}
}
