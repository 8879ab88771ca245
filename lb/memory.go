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

// Package lb implements the per-switch IP load balancer: the flow-memory
// table (C5), the ARP-probe liveness engine (C6), and the packet-in state
// machine (C7) described in spec.md §4.3-4.5.
package lb

import (
	"time"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

// FlowMemoryTimeout is how long the controller remembers a flow's server
// selection after its most recent matching packet, per spec.md §3.
const FlowMemoryTimeout = 300 * time.Second

// FlowIdleTimeout is the idle timeout installed on switch-side flows. It is
// deliberately shorter than FlowMemoryTimeout so the switch forgets quickly
// while the controller remembers long enough to reuse the same backend for
// a reconnecting client.
const FlowIdleTimeout uint16 = 10

// A MemoryEntry records which server a flow has been directed to.
//
// Table entries in the switch "remember" flows for a short period (see
// FlowIdleTimeout), but rather than set their switch-side expiration to a
// long value -- which could accumulate rules for dead connections -- the
// controller lets the switch forget quickly and remembers here for longer.
type MemoryEntry struct {
	Server     addr.IP
	ClientPort uint16
	tuple      ofp.FourTuple
	expiresAt  time.Time
}

// Key1 is the client-to-service direction's four-tuple.
func (e *MemoryEntry) Key1() ofp.FourTuple {
	return e.tuple
}

// Key2 is the server-to-client direction's four-tuple.
func (e *MemoryEntry) Key2() ofp.FourTuple {
	return ofp.FourTuple{
		SrcIP:   e.Server,
		DstIP:   e.tuple.SrcIP,
		SrcPort: e.tuple.DstPort,
		DstPort: e.tuple.SrcPort,
	}
}

// refresh advances the entry's expiration by FlowMemoryTimeout from now.
func (e *MemoryEntry) refresh(now time.Time) {
	e.expiresAt = now.Add(FlowMemoryTimeout)
}

func (e *MemoryEntry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// A MemoryTable is the dual-keyed flow-memory table of spec.md §3: every
// live MemoryEntry is reachable under both its Key1 and Key2.
type MemoryTable struct {
	entries map[ofp.FourTuple]*MemoryEntry
}

// NewMemoryTable creates an empty MemoryTable.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{entries: make(map[ofp.FourTuple]*MemoryEntry)}
}

// NewEntry creates and inserts a fresh MemoryEntry for tuple, directing it
// to server, and refreshes its expiration against now. It stores the
// entry under both key1 and key2, per spec.md §3's reachability invariant.
func (t *MemoryTable) NewEntry(tuple ofp.FourTuple, server addr.IP, clientPort uint16, now time.Time) *MemoryEntry {
	e := &MemoryEntry{
		Server:     server,
		ClientPort: clientPort,
		tuple:      tuple,
	}
	e.refresh(now)

	t.entries[e.Key1()] = e
	t.entries[e.Key2()] = e
	return e
}

// Get returns the entry for key, if present and not expired.
func (t *MemoryTable) Get(key ofp.FourTuple, now time.Time) (*MemoryEntry, bool) {
	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	if e.isExpired(now) {
		return nil, false
	}
	return e, true
}

// Refresh extends e's expiration from now. It is called on every packet
// that matches either direction of a known flow.
func (t *MemoryTable) Refresh(e *MemoryEntry, now time.Time) {
	e.refresh(now)
}

// Expire removes every entry whose expiration has passed as of now,
// unlinking both of its keys. It returns the number of distinct entries
// removed.
func (t *MemoryTable) Expire(now time.Time) int {
	removed := make(map[*MemoryEntry]bool)
	for key, e := range t.entries {
		if e.isExpired(now) {
			delete(t.entries, key)
			removed[e] = true
		}
	}
	return len(removed)
}

// Len returns the number of keys currently stored (twice the number of
// live flows, barring key collisions).
func (t *MemoryTable) Len() int {
	return len(t.entries)
}
