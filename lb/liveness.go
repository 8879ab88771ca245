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

package lb

import (
	"time"

	"github.com/patchpanel/ofcontrol/addr"
)

// liveServer is one entry of the insertion-ordered live-servers table.
// spec.md §9 requires server selection to index into the live servers in
// the stable order they came up, which a plain Go map cannot provide --
// this mirrors servers as a parallel slice (order) + map (lookup), the way
// the reference relies on Python's insertion-ordered dict.
type liveServer struct {
	ip   addr.IP
	mac  addr.MAC
	port uint16
}

// liveness tracks which configured servers are currently up and which have
// an outstanding ARP probe in flight. It is embedded in Instance rather
// than exported, since its invariants (outstanding-probe bookkeeping, the
// round-robin cursor) only make sense in the context of one Instance.
type liveness struct {
	servers []addr.IP // configured pool, rotated on every probe
	next    int       // index into servers of the next probe target

	order []addr.IP             // insertion order of live servers
	live  map[addr.IP]liveServer

	outstanding map[addr.IP]time.Time // server IP -> probe deadline

	probeCycle time.Duration
	arpTimeout time.Duration

	cursor int // this Instance's own round-robin cursor (spec.md §9)
}

func newLiveness(servers []addr.IP, probeCycle, arpTimeout time.Duration) *liveness {
	cp := make([]addr.IP, len(servers))
	copy(cp, servers)

	return &liveness{
		servers:     cp,
		live:        make(map[addr.IP]liveServer),
		outstanding: make(map[addr.IP]time.Time),
		probeCycle:  probeCycle,
		arpTimeout:  arpTimeout,
	}
}

// nextProbeTarget rotates the configured server list and returns the next
// target to probe, per spec.md §4.4 step 2.
func (l *liveness) nextProbeTarget() addr.IP {
	if len(l.servers) == 0 {
		return addr.IP{}
	}
	target := l.servers[l.next]
	l.next = (l.next + 1) % len(l.servers)
	return target
}

// probeWaitTime is the delay before the next probe fires, per spec.md §4.4
// step 5: no more than four probes per second, otherwise one full sweep
// every probeCycle.
func (l *liveness) probeWaitTime() time.Duration {
	n := len(l.servers)
	if n == 0 {
		return l.probeCycle
	}
	wait := l.probeCycle / time.Duration(n)
	if wait < 250*time.Millisecond {
		wait = 250 * time.Millisecond
	}
	return wait
}

// markOutstanding records that a probe to target was just sent, expiring
// at now+arpTimeout.
func (l *liveness) markOutstanding(target addr.IP, now time.Time) {
	l.outstanding[target] = now.Add(l.arpTimeout)
}

// expireProbes removes every outstanding probe whose deadline has passed,
// and declares the corresponding server down if it's currently live. It
// returns the servers that were declared down, per spec.md §4.4 step 1.
func (l *liveness) expireProbes(now time.Time) []addr.IP {
	var down []addr.IP
	for ip, deadline := range l.outstanding {
		if now.After(deadline) {
			delete(l.outstanding, ip)
			if l.removeLive(ip) {
				down = append(down, ip)
			}
		}
	}
	return down
}

// acceptReply handles an ARP reply from ip, clearing its outstanding probe
// and recording it as live at (mac, port). It returns true if this changed
// the server's recorded identity (i.e. a "server up" event should be
// logged), per spec.md §4.4's ARP-reply handling.
func (l *liveness) acceptReply(ip addr.IP, mac addr.MAC, port uint16) bool {
	_, wasOutstanding := l.outstanding[ip]
	delete(l.outstanding, ip)
	if !wasOutstanding {
		// Unsolicited reply; not ours to react to.
		return false
	}

	if existing, ok := l.live[ip]; ok && existing.mac == mac && existing.port == port {
		return false
	}

	l.setLive(ip, mac, port)
	return true
}

// isOutstanding reports whether ip currently has a probe in flight.
func (l *liveness) isOutstanding(ip addr.IP) bool {
	_, ok := l.outstanding[ip]
	return ok
}

func (l *liveness) setLive(ip addr.IP, mac addr.MAC, port uint16) {
	if _, ok := l.live[ip]; !ok {
		l.order = append(l.order, ip)
	}
	l.live[ip] = liveServer{ip: ip, mac: mac, port: port}
}

// removeLive removes ip from the live set, returning true if it was
// present.
func (l *liveness) removeLive(ip addr.IP) bool {
	if _, ok := l.live[ip]; !ok {
		return false
	}
	delete(l.live, ip)
	for i, o := range l.order {
		if o == ip {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// isLive reports whether ip is currently a live server.
func (l *liveness) isLive(ip addr.IP) bool {
	_, ok := l.live[ip]
	return ok
}

// lookup returns the (mac, port) of a live server.
func (l *liveness) lookup(ip addr.IP) (addr.MAC, uint16, bool) {
	s, ok := l.live[ip]
	return s.mac, s.port, ok
}

// liveCount returns the number of currently live servers.
func (l *liveness) liveCount() int {
	return len(l.order)
}

// pick selects the next live server by advancing this Instance's own
// round-robin cursor modulo the number of live servers, per spec.md §3's
// invariant and §9's mandated per-instance (not global) cursor.
func (l *liveness) pick() (addr.IP, bool) {
	n := len(l.order)
	if n == 0 {
		return addr.IP{}, false
	}
	ip := l.order[l.cursor%n]
	l.cursor++
	return ip, true
}
