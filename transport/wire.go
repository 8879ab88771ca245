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

// Package transport is one concrete implementation of ofp.Connection: a
// line-delimited JSON control channel, rather than the OpenFlow 1.0 binary
// wire format a real switch speaks. SPEC_FULL.md §5.2 treats the transport
// as an external collaborator the controller core never depends on
// directly; this package exists so the cmd/* binaries have something real
// to --listen on, without the core needing to know it exists.
package transport

import (
	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/ofp"
)

// frame is the envelope every message on the wire is wrapped in. kind
// selects which of the pointer fields is populated.
type frame struct {
	Kind string `json:"kind"`

	Hello    *helloFrame    `json:"hello,omitempty"`
	PacketIn *packetInFrame `json:"packet_in,omitempty"`
	FlowMod  *flowModFrame  `json:"flow_mod,omitempty"`
	PacketOut *packetOutFrame `json:"packet_out,omitempty"`
}

const (
	kindHello     = "hello"
	kindPacketIn  = "packet_in"
	kindFlowMod   = "flow_mod"
	kindPacketOut = "packet_out"
)

// helloFrame is the first frame a switch sends after connecting, announcing
// its identity.
type helloFrame struct {
	DPID uint64   `json:"dpid"`
	MAC  addr.MAC `json:"mac"`
}

type ethernetFrame struct {
	Src  addr.MAC `json:"src"`
	Dst  addr.MAC `json:"dst"`
	Type uint16   `json:"type"`
}

type arpFrame struct {
	Opcode uint16   `json:"opcode"`
	SHA    addr.MAC `json:"sha"`
	SPA    addr.IP  `json:"spa"`
	THA    addr.MAC `json:"tha"`
	TPA    addr.IP  `json:"tpa"`
}

type ipv4Frame struct {
	Src      addr.IP `json:"src"`
	Dst      addr.IP `json:"dst"`
	Protocol uint8   `json:"protocol"`
}

type tcpFrame struct {
	SrcPort uint16 `json:"src_port"`
	DstPort uint16 `json:"dst_port"`
}

// packetInFrame mirrors ofp.PacketInEvent's wire-relevant fields. DPID is
// omitted: a connection belongs to exactly one switch, so the server fills
// it in from the handshake rather than trusting the switch to repeat it.
type packetInFrame struct {
	Port     uint16         `json:"port"`
	BufferID *uint32        `json:"buffer_id,omitempty"`
	Ethernet ethernetFrame  `json:"ethernet"`
	ARP      *arpFrame      `json:"arp,omitempty"`
	IPv4     *ipv4Frame     `json:"ipv4,omitempty"`
	TCP      *tcpFrame      `json:"tcp,omitempty"`
}

type matchFrame struct {
	InPort  uint16   `json:"in_port"`
	DLSrc   addr.MAC `json:"dl_src"`
	DLDst   addr.MAC `json:"dl_dst"`
	DLType  uint16   `json:"dl_type"`
	NWSrc   addr.IP  `json:"nw_src"`
	NWDst   addr.IP  `json:"nw_dst"`
	NWProto uint8    `json:"nw_proto"`
	TPSrc   uint16   `json:"tp_src"`
	TPDst   uint16   `json:"tp_dst"`
}

type actionFrame struct {
	Kind  string   `json:"kind"`
	MAC   addr.MAC `json:"mac,omitempty"`
	IP    addr.IP  `json:"ip,omitempty"`
	Port  uint16   `json:"port,omitempty"`
}

const (
	actionSetDLSrc = "set_dl_src"
	actionSetDLDst = "set_dl_dst"
	actionSetNWSrc = "set_nw_src"
	actionSetNWDst = "set_nw_dst"
	actionOutput   = "output"
)

type flowModFrame struct {
	Match       matchFrame    `json:"match"`
	Actions     []actionFrame `json:"actions"`
	IdleTimeout uint16        `json:"idle_timeout"`
	HardTimeout uint16        `json:"hard_timeout"`
	BufferID    *uint32       `json:"buffer_id,omitempty"`
}

type packetOutFrame struct {
	InPort   uint16        `json:"in_port"`
	Actions  []actionFrame `json:"actions"`
	BufferID *uint32       `json:"buffer_id,omitempty"`
	Data     []byte        `json:"data,omitempty"`
}

func encodeActions(actions []ofp.Action) []actionFrame {
	out := make([]actionFrame, 0, len(actions))
	for _, a := range actions {
		switch act := a.(type) {
		case ofp.SetDLSrc:
			out = append(out, actionFrame{Kind: actionSetDLSrc, MAC: addr.MAC(act)})
		case ofp.SetDLDst:
			out = append(out, actionFrame{Kind: actionSetDLDst, MAC: addr.MAC(act)})
		case ofp.SetNWSrc:
			out = append(out, actionFrame{Kind: actionSetNWSrc, IP: addr.IP(act)})
		case ofp.SetNWDst:
			out = append(out, actionFrame{Kind: actionSetNWDst, IP: addr.IP(act)})
		case ofp.Output:
			out = append(out, actionFrame{Kind: actionOutput, Port: uint16(act)})
		}
	}
	return out
}

func decodeActions(frames []actionFrame) []ofp.Action {
	out := make([]ofp.Action, 0, len(frames))
	for _, f := range frames {
		switch f.Kind {
		case actionSetDLSrc:
			out = append(out, ofp.SetDLSrc(f.MAC))
		case actionSetDLDst:
			out = append(out, ofp.SetDLDst(f.MAC))
		case actionSetNWSrc:
			out = append(out, ofp.SetNWSrc(f.IP))
		case actionSetNWDst:
			out = append(out, ofp.SetNWDst(f.IP))
		case actionOutput:
			out = append(out, ofp.Output(f.Port))
		}
	}
	return out
}

func encodeMatch(m ofp.Match) matchFrame {
	return matchFrame{
		InPort:  m.InPort,
		DLSrc:   m.DLSrc,
		DLDst:   m.DLDst,
		DLType:  m.DLType,
		NWSrc:   m.NWSrc,
		NWDst:   m.NWDst,
		NWProto: m.NWProto,
		TPSrc:   m.TPSrc,
		TPDst:   m.TPDst,
	}
}

func encodeMessage(msg ofp.Message) frame {
	switch m := msg.(type) {
	case ofp.FlowMod:
		return frame{Kind: kindFlowMod, FlowMod: &flowModFrame{
			Match:       encodeMatch(m.Match),
			Actions:     encodeActions(m.Actions),
			IdleTimeout: m.IdleTimeout,
			HardTimeout: m.HardTimeout,
			BufferID:    m.BufferID,
		}}
	case ofp.PacketOut:
		return frame{Kind: kindPacketOut, PacketOut: &packetOutFrame{
			InPort:   m.InPort,
			Actions:  encodeActions(m.Actions),
			BufferID: m.BufferID,
			Data:     m.Data,
		}}
	default:
		return frame{}
	}
}

func decodePacketIn(f *packetInFrame, dpid uint64, port uint16) ofp.PacketInEvent {
	ev := ofp.PacketInEvent{
		DPID:     dpid,
		Port:     port,
		BufferID: f.BufferID,
		Parsed: ofp.ParsedPacket{
			Ethernet: ofp.Ethernet{Src: f.Ethernet.Src, Dst: f.Ethernet.Dst, Type: f.Ethernet.Type},
		},
	}
	if f.ARP != nil {
		ev.Parsed.ARP = &ofp.ARP{
			Opcode: f.ARP.Opcode,
			SHA:    f.ARP.SHA,
			SPA:    f.ARP.SPA,
			THA:    f.ARP.THA,
			TPA:    f.ARP.TPA,
		}
	}
	if f.IPv4 != nil {
		ev.Parsed.IPv4 = &ofp.IPv4{Src: f.IPv4.Src, Dst: f.IPv4.Dst, Protocol: f.IPv4.Protocol}
	}
	if f.TCP != nil {
		ev.Parsed.TCP = &ofp.TCP{SrcPort: f.TCP.SrcPort, DstPort: f.TCP.DstPort}
	}
	return ev
}
