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

// Package arpresponder answers ARP requests for a configured IP with a
// synthetic reply, standing in for one IP address that has no real host
// behind it -- the service IP of an lb.Instance. It is the Go counterpart
// of POX's proto.arp_responder collaborator, which the reference launches
// with eat_packets=False and one IP bound per load-balanced service.
package arpresponder

import (
	"github.com/sirupsen/logrus"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

// Responder answers ARP requests asking "who has ServiceIP?" with a reply
// claiming SwitchMAC, and otherwise stays out of the way.
type Responder struct {
	// SwitchMAC is the hardware address returned in replies.
	SwitchMAC addr.MAC
	// ServiceIP is the only address this Responder answers for.
	ServiceIP addr.IP

	// EatPackets mirrors arp_responder's eat_packets flag. The reference
	// runs with this false, since the LB wants ARP traffic for other
	// addresses (in particular, replies from the real backends) to keep
	// flowing to the rest of the dispatch chain. The field is recorded
	// only: HandlePacketIn does not consult it, and switchreg.Registry
	// delivers every packet-in to every bound handler whatever its value.
	EatPackets bool

	log *logrus.Entry
}

// New creates a Responder for (switchMAC, serviceIP).
func New(switchMAC addr.MAC, serviceIP addr.IP, eatPackets bool, log *logrus.Entry) *Responder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Responder{
		SwitchMAC:  switchMAC,
		ServiceIP:  serviceIP,
		EatPackets: eatPackets,
		log:        log.WithField("component", "arpresponder").WithField("service_ip", serviceIP),
	}
}

// HandlePacketIn implements switchreg.PacketInHandler. It only reacts to
// ARP requests addressed to ServiceIP; everything else passes through
// untouched.
func (r *Responder) HandlePacketIn(ev ofp.PacketInEvent) []ofp.Message {
	p := ev.Parsed
	if !p.IsARP() {
		return nil
	}
	a := p.ARP
	if a.Opcode != ofp.ARPRequest || a.TPA != r.ServiceIP {
		return nil
	}

	r.log.WithField("requester", a.SPA).Debug("answering ARP request")

	reply := []byte{}
	reply = append(reply, r.SwitchMAC[:]...)
	reply = append(reply, r.ServiceIP[:]...)
	reply = append(reply, a.SHA[:]...)
	reply = append(reply, a.SPA[:]...)

	return []ofp.Message{ofp.PacketOut{
		InPort:  ofp.PortNone,
		Actions: []ofp.Action{ofp.Output(ev.Port)},
		Data:    reply,
	}}
}

// DecodeReply unpacks a frame built by HandlePacketIn's reply, giving back
// (senderMAC, senderIP, targetMAC, targetIP) -- the fields a transport or
// simnet needs to build the real ARP reply wire frame.
func DecodeReply(b []byte) (senderMAC addr.MAC, senderIP addr.IP, targetMAC addr.MAC, targetIP addr.IP, ok bool) {
	const frameLen = 6 + 4 + 6 + 4
	if len(b) != frameLen {
		return addr.MAC{}, addr.IP{}, addr.MAC{}, addr.IP{}, false
	}
	copy(senderMAC[:], b[0:6])
	copy(senderIP[:], b[6:10])
	copy(targetMAC[:], b[10:16])
	copy(targetIP[:], b[16:20])
	return senderMAC, senderIP, targetMAC, targetIP, true
}
