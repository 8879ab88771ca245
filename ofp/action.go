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

package ofp

import (
	"fmt"

	"github.com/patchpanel/ofcontrol/addr"
)

// Port sentinels, analogous to OFPP_FLOOD and OFPP_NONE in OpenFlow 1.0.
const (
	PortFlood uint16 = 0xfffb
	PortNone  uint16 = 0xffff
)

// An Action is a single OpenFlow 1.0 flow-mod or packet-out action. Actions
// are applied by the switch in list order, which is why address rewrites
// must be constructed ahead of the terminal Output action -- see
// NewForwardActions and NewReverseActions.
type Action interface {
	String() string
	isAction()
}

// SetDLSrc rewrites the Ethernet source address.
type SetDLSrc addr.MAC

func (a SetDLSrc) String() string { return fmt.Sprintf("set_dl_src:%s", addr.MAC(a)) }
func (SetDLSrc) isAction()        {}

// SetDLDst rewrites the Ethernet destination address.
type SetDLDst addr.MAC

func (a SetDLDst) String() string { return fmt.Sprintf("set_dl_dst:%s", addr.MAC(a)) }
func (SetDLDst) isAction()        {}

// SetNWSrc rewrites the IPv4 source address.
type SetNWSrc addr.IP

func (a SetNWSrc) String() string { return fmt.Sprintf("set_nw_src:%s", addr.IP(a)) }
func (SetNWSrc) isAction()        {}

// SetNWDst rewrites the IPv4 destination address.
type SetNWDst addr.IP

func (a SetNWDst) String() string { return fmt.Sprintf("set_nw_dst:%s", addr.IP(a)) }
func (SetNWDst) isAction()        {}

// Output emits the packet out the given switch port.
type Output uint16

func (a Output) String() string { return fmt.Sprintf("output:%d", uint16(a)) }
func (Output) isAction()        {}

// HasOutput reports whether actions contains at least one Output action,
// which spec.md's testable properties (§8) require of every FlowMod the
// load balancer emits.
func HasOutput(actions []Action) bool {
	for _, a := range actions {
		if _, ok := a.(Output); ok {
			return true
		}
	}
	return false
}

// RewritesPrecedeOutput reports whether every address-rewrite action in
// actions appears before the first Output action -- OpenFlow 1.0 applies
// actions in list order, so a rewrite after the output would have no
// effect on the emitted packet.
func RewritesPrecedeOutput(actions []Action) bool {
	sawOutput := false
	for _, a := range actions {
		switch a.(type) {
		case Output:
			sawOutput = true
		case SetDLSrc, SetDLDst, SetNWSrc, SetNWDst:
			if sawOutput {
				return false
			}
		}
	}
	return true
}

// NewForwardActions builds the rewrite-then-output action list the LB
// installs on the client-to-server half of a flow (spec.md §4.5 step 4):
// rewrite the Ethernet and IPv4 destination to the chosen server, then
// output on the server's switch port.
func NewForwardActions(serverMAC addr.MAC, serverIP addr.IP, outPort uint16) []Action {
	return []Action{
		SetDLDst(serverMAC),
		SetNWDst(serverIP),
		Output(outPort),
	}
}

// NewReverseActions builds the rewrite-then-output action list the LB
// installs on the server-to-client half of a flow (spec.md §4.5 step 3):
// rewrite the Ethernet and IPv4 source back to the switch/service identity,
// then output on the client's original ingress port.
func NewReverseActions(switchMAC addr.MAC, serviceIP addr.IP, clientPort uint16) []Action {
	return []Action{
		SetDLSrc(switchMAC),
		SetNWSrc(serviceIP),
		Output(clientPort),
	}
}
