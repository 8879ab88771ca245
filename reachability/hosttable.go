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
	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/learning"
)

// HostTable holds the canonical ip-to-MAC mapping of known hosts, plus a
// per-MAC, per-switch snapshot of the last port each MAC was learned at.
//
// The reference keeps this as two bare module-level globals, PORT_PORT and
// EVNT_MAC, overwritten by whichever switch last saw whichever packet --
// so a sweep that re-adds a host can easily attribute it to the wrong
// switch or the wrong port (spec.md §9). HostTable fixes this by keying the
// snapshot on (mac, switch) instead of keeping one shared pair of
// variables, and implements learning.Recorder so every Switch updates it
// directly as learning happens, rather than the reconciler trying to infer
// port placement after the fact.
type HostTable struct {
	known map[addr.IP]addr.MAC

	// lastPort[mac][sw] is the most recent port sw last learned mac on.
	lastPort map[addr.MAC]map[*learning.Switch]uint16
}

// NewHostTable creates a HostTable seeded with the given known hosts.
func NewHostTable(known map[addr.IP]addr.MAC) *HostTable {
	cp := make(map[addr.IP]addr.MAC, len(known))
	for ip, mac := range known {
		cp[ip] = mac
	}
	return &HostTable{
		known:    cp,
		lastPort: make(map[addr.MAC]map[*learning.Switch]uint16),
	}
}

// RecordLearn implements learning.Recorder.
func (h *HostTable) RecordLearn(mac addr.MAC, sw *learning.Switch, port uint16) {
	bySwitch, ok := h.lastPort[mac]
	if !ok {
		bySwitch = make(map[*learning.Switch]uint16)
		h.lastPort[mac] = bySwitch
	}
	bySwitch[sw] = port
}

// RecordForget implements learning.Recorder.
func (h *HostTable) RecordForget(mac addr.MAC, sw *learning.Switch) {
	if bySwitch, ok := h.lastPort[mac]; ok {
		delete(bySwitch, sw)
		if len(bySwitch) == 0 {
			delete(h.lastPort, mac)
		}
	}
}

// MACFor returns the configured MAC for a known host IP.
func (h *HostTable) MACFor(ip addr.IP) (addr.MAC, bool) {
	mac, ok := h.known[ip]
	return mac, ok
}

// Hosts returns every known host IP.
func (h *HostTable) Hosts() []addr.IP {
	ips := make([]addr.IP, 0, len(h.known))
	for ip := range h.known {
		ips = append(ips, ip)
	}
	return ips
}

// LastPortOn returns the most recent port sw learned mac on, if any.
func (h *HostTable) LastPortOn(mac addr.MAC, sw *learning.Switch) (uint16, bool) {
	bySwitch, ok := h.lastPort[mac]
	if !ok {
		return 0, false
	}
	port, ok := bySwitch[sw]
	return port, ok
}

// SwitchesKnowing returns every switch that currently has mac in its
// last-learned snapshot.
func (h *HostTable) SwitchesKnowing(mac addr.MAC) []*learning.Switch {
	bySwitch, ok := h.lastPort[mac]
	if !ok {
		return nil
	}
	out := make([]*learning.Switch, 0, len(bySwitch))
	for sw := range bySwitch {
		out = append(out, sw)
	}
	return out
}
