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

package addr_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/patchpanel/ofcontrol/addr"
)

func TestParseIP(t *testing.T) {
	var tests = []struct {
		desc    string
		s       string
		out     addr.IP
		invalid bool
	}{
		{
			desc:    "empty",
			invalid: true,
		},
		{
			desc:    "not an IP",
			s:       "not an ip",
			invalid: true,
		},
		{
			desc:    "IPv6",
			s:       "::1",
			invalid: true,
		},
		{
			desc: "service IP",
			s:    "10.0.1.1",
			out:  addr.IP{10, 0, 1, 1},
		},
		{
			desc: "server IP",
			s:    "10.0.0.2",
			out:  addr.IP{10, 0, 0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			out, err := addr.ParseIP(tt.s)

			if tt.invalid {
				if err == nil {
					t.Fatal("expected an error, but none occurred")
				}
				if !errors.Is(err, addr.ErrInvalidIP) {
					t.Fatalf("expected ErrInvalidIP, got: %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.out, out); diff != "" {
				t.Fatalf("unexpected IP (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIPString(t *testing.T) {
	ip := addr.MustParseIP("10.0.1.1")
	if want, got := "10.0.1.1", ip.String(); want != got {
		t.Fatalf("unexpected string:\n- want: %s\n-  got: %s", want, got)
	}
}

func TestIPIsZero(t *testing.T) {
	var zero addr.IP
	if !zero.IsZero() {
		t.Fatal("expected zero value IP to report IsZero")
	}

	if addr.MustParseIP("10.0.0.1").IsZero() {
		t.Fatal("expected non-zero IP to not report IsZero")
	}
}
