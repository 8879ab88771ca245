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

package addr

import (
	"errors"
	"fmt"
	"net"
)

// ErrInvalidMAC is returned when a string cannot be parsed as a 6-byte MAC
// address.
var ErrInvalidMAC = errors.New("addr: invalid MAC address")

// A MAC is a 48-bit Ethernet hardware address. Unlike net.HardwareAddr, it
// is a comparable value type, so it can be used directly as a map key.
type MAC [6]byte

// Broadcast is the reserved Ethernet broadcast address.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseMAC parses s as a colon- or dash-separated MAC address.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, fmt.Errorf("%w: %q: %v", ErrInvalidMAC, s, err)
	}
	if len(hw) != 6 {
		return MAC{}, fmt.Errorf("%w: %q is not a 6-byte EUI-48 address", ErrInvalidMAC, s)
	}

	var out MAC
	copy(out[:], hw)
	return out, nil
}

// MustParseMAC is like ParseMAC but panics on error. It is intended for use
// with constant strings, such as in tests and compiled-in host tables.
func MustParseMAC(s string) MAC {
	mac, err := ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return mac
}

// String returns the colon-separated representation of mac.
func (mac MAC) String() string {
	return net.HardwareAddr(mac[:]).String()
}

// Net returns mac as a net.HardwareAddr, for interop with stdlib networking
// code.
func (mac MAC) Net() net.HardwareAddr {
	out := make(net.HardwareAddr, 6)
	copy(out, mac[:])
	return out
}

// IsMulticast reports whether mac is a multicast (group) address -- the
// least-significant bit of the first octet is set.
func (mac MAC) IsMulticast() bool {
	return mac[0]&0x01 != 0
}

// IsBridgeFiltered reports whether mac falls within the IEEE 802.1D
// reserved range of addresses (01:80:C2:00:00:00 - 01:80:C2:00:00:0F) used
// by link-local protocols such as STP and 802.1X, which a transparent
// bridge must never forward.
func (mac MAC) IsBridgeFiltered() bool {
	return mac[0] == 0x01 && mac[1] == 0x80 && mac[2] == 0xc2 && mac[3] == 0x00 && mac[4] == 0x00 && mac[5] <= 0x0f
}

// IsZero reports whether mac is the zero value.
func (mac MAC) IsZero() bool {
	return mac == MAC{}
}
