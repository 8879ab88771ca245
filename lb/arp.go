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
	"github.com/patchpanel/ofcontrol/addr"
)

// arpRequestFrameLen is the length of the minimal ARP-request byte
// encoding produced by encodeARPRequest. Real Ethernet/ARP framing is a
// transport concern (see ofp package docs); the controller core only needs
// enough structure for a transport (or simnet, in tests/demos) to
// reconstruct hwsrc/protosrc/protodst and build the actual wire frame.
const arpRequestFrameLen = 6 + 4 + 4

// encodeARPRequest packs (switchMAC, serviceIP, targetIP) into the bytes
// carried by the flooded packet-out that probes a server's liveness.
func encodeARPRequest(switchMAC addr.MAC, serviceIP, targetIP addr.IP) []byte {
	b := make([]byte, arpRequestFrameLen)
	copy(b[0:6], switchMAC[:])
	copy(b[6:10], serviceIP[:])
	copy(b[10:14], targetIP[:])
	return b
}

// DecodeARPRequest unpacks a frame built by encodeARPRequest. It is
// exported so a transport or simnet can turn an outbound probe packet-out
// back into (hwsrc, protosrc, protodst) without depending on lb's
// internals.
func DecodeARPRequest(b []byte) (switchMAC addr.MAC, serviceIP, targetIP addr.IP, ok bool) {
	if len(b) != arpRequestFrameLen {
		return addr.MAC{}, addr.IP{}, addr.IP{}, false
	}
	copy(switchMAC[:], b[0:6])
	copy(serviceIP[:], b[6:10])
	copy(targetIP[:], b[10:14])
	return switchMAC, serviceIP, targetIP, true
}
