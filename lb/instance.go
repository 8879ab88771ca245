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
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
	"github.com/patchpanel/ofcontrol/sched"
)

// ErrNoLiveServers is returned (via logging, not a Go error return -- see
// spec.md §7) when a new flow targets the service IP but no server is
// currently live.
var ErrNoLiveServers = errors.New("lb: no live servers")

// DefaultProbeCycle and DefaultARPTimeout are the reference's probe_cycle_time
// and arp_timeout defaults, per spec.md §3.
const (
	DefaultProbeCycle = 5 * time.Second
	DefaultARPTimeout = 3 * time.Second
)

// Config configures one Instance.
type Config struct {
	ServiceIP  addr.IP
	Servers    []addr.IP
	SwitchDPID uint64

	ProbeCycle time.Duration
	ARPTimeout time.Duration
}

// Instance is one switch's IP load balancer: spec.md's LbInstance. It holds
// a service IP, its backend pool, the flow-memory table, and the ARP-probe
// liveness engine, and implements switchreg.PacketInHandler.
type Instance struct {
	cfg Config
	log *logrus.Entry

	memory   *MemoryTable
	liveness *liveness

	sched       *sched.Scheduler
	conn        ofp.Connection
	probeCancel func()
}

// NewInstance creates an Instance for cfg, bound to sc for scheduling its
// ARP probe loop and expiry sweeps.
func NewInstance(cfg Config, sc *sched.Scheduler, log *logrus.Entry) *Instance {
	if cfg.ProbeCycle == 0 {
		cfg.ProbeCycle = DefaultProbeCycle
	}
	if cfg.ARPTimeout == 0 {
		cfg.ARPTimeout = DefaultARPTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Instance{
		cfg:      cfg,
		log:      log.WithField("component", "lb").WithField("dpid", cfg.SwitchDPID).WithField("service_ip", cfg.ServiceIP),
		memory:   NewMemoryTable(),
		liveness: newLiveness(cfg.Servers, cfg.ProbeCycle, cfg.ARPTimeout),
		sched:    sc,
	}
}

// OnConnectionUp records conn as this Instance's switch connection and
// starts ARP probing: the first probe fires one probeWaitTime later, on
// the scheduler.
func (inst *Instance) OnConnectionUp(conn ofp.Connection) {
	inst.conn = conn
	inst.scheduleNextProbe(inst.liveness.probeWaitTime())
}

// OnConnectionDown forgets the switch connection and stops probing.
func (inst *Instance) OnConnectionDown(dpid uint64) {
	inst.conn = nil
	if inst.probeCancel != nil {
		inst.probeCancel()
		inst.probeCancel = nil
	}
}

func (inst *Instance) scheduleNextProbe(after time.Duration) {
	inst.sched.CallAfter(after, inst.doProbe)
}

// doProbe implements spec.md §4.4's probe loop: expire stale probes and
// flows, rotate to the next server, flood an ARP request for it, record
// the new outstanding probe, and reschedule itself.
func (inst *Instance) doProbe() {
	if inst.conn == nil {
		return
	}
	now := inst.sched.Now()

	for _, ip := range inst.liveness.expireProbes(now) {
		inst.log.WithField("server", ip).Warn("server down")
	}
	if n := inst.memory.Expire(now); n > 0 {
		inst.log.WithField("count", n).Debug("expired flow memory entries")
	}

	if len(inst.cfg.Servers) > 0 {
		target := inst.liveness.nextProbeTarget()
		req := buildARPRequest(inst.conn.LocalMAC(), inst.cfg.ServiceIP, target)
		if err := inst.conn.Send(ofp.NewFloodPacketOut(req)); err != nil {
			inst.log.WithError(err).Warn("failed to send ARP probe")
		} else {
			inst.liveness.markOutstanding(target, now)
		}
	}

	inst.scheduleNextProbe(inst.liveness.probeWaitTime())
}

// HandlePacketIn implements switchreg.PacketInHandler and spec.md §4.5's
// LB packet-in state machine.
func (inst *Instance) HandlePacketIn(ev ofp.PacketInEvent) []ofp.Message {
	p := ev.Parsed

	if p.IsARP() {
		inst.handleARP(p, ev.Port)
		return nil
	}

	if !p.IsTCP() {
		return dropMessages(ev)
	}

	ip := p.IPv4
	switch {
	case inst.isConfiguredServer(ip.Src):
		return inst.handleFromServer(ev)
	case ip.Dst == inst.cfg.ServiceIP:
		return inst.handleToService(ev)
	default:
		return nil
	}
}

func (inst *Instance) isConfiguredServer(ip addr.IP) bool {
	for _, s := range inst.cfg.Servers {
		if s == ip {
			return true
		}
	}
	return false
}

// handleARP processes ARP replies to this Instance's probes, per spec.md
// §4.4's ARP reply handling. Non-reply ARP traffic and replies for IPs with
// no outstanding probe are ignored by this engine -- they may still be of
// interest to a co-located learning.Switch, which sees the same packet-in
// independently via switchreg.
func (inst *Instance) handleARP(p ofp.ParsedPacket, inPort uint16) {
	a := p.ARP
	if a.Opcode != ofp.ARPReply {
		return
	}
	if inst.liveness.acceptReply(a.SPA, a.SHA, inPort) {
		inst.log.WithField("server", a.SPA).Info("server up")
	}
}

// handleFromServer implements spec.md §4.5 step 3: return traffic from a
// known server is rewritten back toward the client recorded in memory.
func (inst *Instance) handleFromServer(ev ofp.PacketInEvent) []ofp.Message {
	now := inst.sched.Now()
	tuple := ev.Parsed.FourTuple()

	entry, ok := inst.memory.Get(tuple, now)
	if !ok {
		inst.log.WithField("key", tuple).Debug("no client for key")
		return dropMessages(ev)
	}
	inst.memory.Refresh(entry, now)

	match := ofp.MatchFromPacket(ev.Parsed, ev.Port)
	actions := ofp.NewReverseActions(inst.conn.LocalMAC(), inst.cfg.ServiceIP, entry.ClientPort)
	return []ofp.Message{ofp.NewFlowMod(match, actions, FlowIdleTimeout, ev.BufferID)}
}

// handleToService implements spec.md §4.5 step 4: new or returning traffic
// to the service IP is directed to a live backend.
func (inst *Instance) handleToService(ev ofp.PacketInEvent) []ofp.Message {
	now := inst.sched.Now()
	tuple := ev.Parsed.FourTuple()

	entry, ok := inst.memory.Get(tuple, now)
	if !ok || !inst.liveness.isLive(entry.Server) {
		server, ok := inst.liveness.pick()
		if !ok {
			inst.log.WithError(ErrNoLiveServers).Warn("no servers!")
			return dropMessages(ev)
		}
		inst.log.WithField("server", server).Debug("directing traffic")
		entry = inst.memory.NewEntry(tuple, server, ev.Port, now)
	}
	inst.memory.Refresh(entry, now)

	mac, port, ok := inst.liveness.lookup(entry.Server)
	if !ok {
		// The server went down between selection and lookup (e.g. a
		// returning-client entry whose server just failed its probe);
		// drop this packet and let the next one re-pick.
		return dropMessages(ev)
	}

	match := ofp.MatchFromPacket(ev.Parsed, ev.Port)
	actions := ofp.NewForwardActions(mac, entry.Server, port)
	return []ofp.Message{ofp.NewFlowMod(match, actions, FlowIdleTimeout, ev.BufferID)}
}

// dropMessages releases a buffered packet with no forwarding action, per
// spec.md §4.2.
func dropMessages(ev ofp.PacketInEvent) []ofp.Message {
	if ev.BufferID == nil {
		return nil
	}
	return []ofp.Message{ofp.NewDropPacketOut(*ev.BufferID)}
}

// buildARPRequest builds the raw frame for an ARP request probing target,
// sourced from the switch's own MAC and the service IP -- spec.md §4.4
// step 3.
func buildARPRequest(switchMAC addr.MAC, serviceIP, target addr.IP) []byte {
	// The controller core only needs a stand-in payload: real encoding to
	// wire bytes is a transport concern (see ofp package docs). We encode
	// just enough structure for a transport or simnet to reconstruct the
	// ARP request.
	return encodeARPRequest(switchMAC, serviceIP, target)
}
