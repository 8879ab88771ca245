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

// Package addr provides comparable IPv4 and MAC address value types for use
// as map keys in the controller's flow-memory and MAC-learning tables.
package addr

import (
	"errors"
	"fmt"
	"net"
)

// ErrInvalidIP is returned when a string cannot be parsed as a dotted-quad
// IPv4 address.
var ErrInvalidIP = errors.New("addr: invalid IPv4 address")

// An IP is a 32-bit IPv4 address. Unlike net.IP, it is a comparable value
// type, so it can be used directly as a map key.
type IP [4]byte

// ParseIP parses s as a dotted-quad IPv4 address.
func ParseIP(s string) (IP, error) {
	pip := net.ParseIP(s)
	if pip == nil {
		return IP{}, fmt.Errorf("%w: %q", ErrInvalidIP, s)
	}

	ip4 := pip.To4()
	if ip4 == nil {
		return IP{}, fmt.Errorf("%w: %q is not IPv4", ErrInvalidIP, s)
	}

	var out IP
	copy(out[:], ip4)
	return out, nil
}

// MustParseIP is like ParseIP but panics on error. It is intended for use
// with constant strings, such as in tests and compiled-in configuration
// tables.
func MustParseIP(s string) IP {
	ip, err := ParseIP(s)
	if err != nil {
		panic(err)
	}
	return ip
}

// String returns the dotted-quad representation of ip.
func (ip IP) String() string {
	return net.IP(ip[:]).String()
}

// Net returns ip as a net.IP, for interop with stdlib networking code.
func (ip IP) Net() net.IP {
	out := make(net.IP, 4)
	copy(out, ip[:])
	return out
}

// IsZero reports whether ip is the zero value.
func (ip IP) IsZero() bool {
	return ip == IP{}
}
