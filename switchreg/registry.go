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

// Package switchreg tracks switch connections by datapath id and dispatches
// connection-up/down and packet-in events to whichever controller
// components are bound to a given dpid. It is the controller's C4
// component: the only thing that knows about every switch at once.
package switchreg

import (
	"github.com/sirupsen/logrus"

	"github.com/patchpanel/ofcontrol/ofp"
)

// A PacketInHandler processes a packet-in for one switch and returns the
// messages to send back to it. Both lb.Instance and learning.Switch
// implement this signature.
type PacketInHandler interface {
	HandlePacketIn(ev ofp.PacketInEvent) []ofp.Message
}

// A binding pairs a dpid with everything that wants to hear about it.
type binding struct {
	onUp     func(ofp.Connection)
	onDown   func(dpid uint64)
	handlers []PacketInHandler
}

// A Registry dispatches connection and packet-in events to handlers bound
// to specific dpids, and keeps track of each dpid's live Connection so
// other components (e.g. the LB's ARP prober) can look it up.
type Registry struct {
	log      *logrus.Entry
	bindings map[uint64]*binding
	conns    map[uint64]ofp.Connection
}

// New creates an empty Registry.
func New(log *logrus.Entry) *Registry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		log:      log.WithField("component", "switchreg"),
		bindings: make(map[uint64]*binding),
		conns:    make(map[uint64]ofp.Connection),
	}
}

// Bind registers interest in dpid. onUp is called when a connection for
// dpid comes up (and immediately, if one is already up); onDown is called
// when it goes down. Either may be nil. Bind may be called more than once
// for the same dpid -- e.g. both an lb.Instance and a learning.Switch can
// be bound to the same switch, per spec.md §2.
func (r *Registry) Bind(dpid uint64, onUp func(ofp.Connection), onDown func(uint64)) {
	b := r.bindings[dpid]
	if b == nil {
		b = &binding{}
		r.bindings[dpid] = b
	}
	if onUp != nil {
		b.onUp = chainUp(b.onUp, onUp)
	}
	if onDown != nil {
		b.onDown = chainDown(b.onDown, onDown)
	}

	if conn, ok := r.conns[dpid]; ok && onUp != nil {
		onUp(conn)
	}
}

// BindPacketIn registers h to receive every packet-in observed on dpid.
func (r *Registry) BindPacketIn(dpid uint64, h PacketInHandler) {
	b := r.bindings[dpid]
	if b == nil {
		b = &binding{}
		r.bindings[dpid] = b
	}
	b.handlers = append(b.handlers, h)
}

// HandleConnectionUp records conn as the live connection for its dpid and
// notifies bound handlers. An unbound dpid is a Configuration-binding-
// failure per spec.md §7: logged, with no handler notified, so other
// switches keep being serviced. Its connection is still recorded, so a
// later Bind or BindPacketIn for that dpid sees it.
func (r *Registry) HandleConnectionUp(conn ofp.Connection) {
	dpid := conn.DPID()
	r.conns[dpid] = conn

	b, ok := r.bindings[dpid]
	if !ok {
		r.log.WithField("dpid", dpid).Warn("connection up for unbound dpid")
		return
	}
	if b.onUp != nil {
		b.onUp(conn)
	}
}

// HandleConnectionDown forgets the dpid's live connection and notifies
// bound handlers. Per spec.md §9, the reference's _handle_ConnectionDown
// emits the dpid with no other payload and nothing in the core actually
// consumes it; this mirrors that -- callers get only the dpid.
func (r *Registry) HandleConnectionDown(dpid uint64) {
	delete(r.conns, dpid)

	b, ok := r.bindings[dpid]
	if !ok {
		return
	}
	if b.onDown != nil {
		b.onDown(dpid)
	}
}

// HandlePacketIn fans ev out to every PacketInHandler bound to its dpid,
// sending back whatever messages each handler returns.
func (r *Registry) HandlePacketIn(ev ofp.PacketInEvent) {
	b, ok := r.bindings[ev.DPID]
	if !ok || len(b.handlers) == 0 {
		return
	}

	conn, ok := r.conns[ev.DPID]
	if !ok {
		r.log.WithField("dpid", ev.DPID).Warn("packet-in for dpid with no live connection")
		return
	}

	for _, h := range b.handlers {
		for _, msg := range h.HandlePacketIn(ev) {
			if err := conn.Send(msg); err != nil {
				r.log.WithField("dpid", ev.DPID).WithError(err).Warn("failed to send message")
			}
		}
	}
}

// Connection returns the live connection for dpid, if any.
func (r *Registry) Connection(dpid uint64) (ofp.Connection, bool) {
	c, ok := r.conns[dpid]
	return c, ok
}

func chainUp(existing, next func(ofp.Connection)) func(ofp.Connection) {
	if existing == nil {
		return next
	}
	return func(c ofp.Connection) {
		existing(c)
		next(c)
	}
}

func chainDown(existing, next func(uint64)) func(uint64) {
	if existing == nil {
		return next
	}
	return func(dpid uint64) {
		existing(dpid)
		next(dpid)
	}
}
