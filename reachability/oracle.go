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

// Package reachability cross-checks the host space known to the controller
// against live ICMP reachability, and reconciles every learning.Switch's
// MAC table against the result. It replaces the reference's synchronous
// ping-sweep, which blocked the whole event loop for the duration of up to
// fifteen sequential pings, with a worker pool that probes concurrently and
// posts results back onto the single-writer scheduler goroutine.
package reachability

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/patchpanel/ofcontrol/addr"
)

// An Oracle reports whether ip is currently reachable. ICMPProber is the
// production implementation; tests use a fake.
type Oracle interface {
	Reachable(ctx context.Context, ip addr.IP) bool
}

// ICMPProber probes reachability with a single unprivileged ICMP echo
// request (SOCK_DGRAM, per the "ping without CAP_NET_RAW" idiom), one per
// call. It has no retry logic of its own -- retries are a WorkerPool/
// Reconciler policy decision.
type ICMPProber struct {
	// Timeout bounds how long a single probe waits for its echo reply.
	Timeout time.Duration
}

// id is the ICMP echo identifier used for every probe this process sends.
// It does not need to be unique across hosts since each probe opens its own
// socket.
var id = unix.Getpid() & 0xffff

var seq atomic.Int32

// Reachable sends one ICMP echo request to ip and reports whether a
// matching reply arrived before ctx is done or Timeout elapses, whichever
// is sooner.
func (p *ICMPProber) Reachable(ctx context.Context, ip addr.IP) bool {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return false
	}
	defer conn.Close()

	deadline := time.Now().Add(p.timeout())
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	setReadTimeout(conn, time.Until(deadline))
	_ = conn.SetReadDeadline(deadline)

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   id,
			Seq:  int(seq.Add(1)),
			Data: []byte("ofcontrol-reachability"),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return false
	}

	dst := &net.UDPAddr{IP: ip.Net()}
	if _, err := conn.WriteTo(wb, dst); err != nil {
		return false
	}

	rb := make([]byte, 512)
	for {
		if ctx.Err() != nil {
			return false
		}
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			return false
		}
		if peerAddr, ok := peer.(*net.UDPAddr); !ok || !peerAddr.IP.Equal(ip.Net()) {
			continue
		}
		reply, err := icmp.ParseMessage(1, rb[:n]) // 1 = ICMPv4 protocol number
		if err != nil {
			continue
		}
		if reply.Type == ipv4.ICMPTypeEchoReply {
			return true
		}
	}
}

func (p *ICMPProber) timeout() time.Duration {
	if p.Timeout == 0 {
		return DefaultProbeTimeout
	}
	return p.Timeout
}

// DefaultProbeTimeout bounds a single ICMP echo round trip.
const DefaultProbeTimeout = time.Second

// setReadTimeout tunes the socket's SO_RCVTIMEO directly via the raw file
// descriptor, the way ovsnl tunes generic-netlink socket options. Reads on
// conn go through Go's runtime poller, which does not consult SO_RCVTIMEO,
// so the read deadline that Reachable sets is what bounds ReadFrom.
func setReadTimeout(conn *icmp.PacketConn, d time.Duration) {
	if d <= 0 {
		d = time.Millisecond
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		return
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptTimeval(int(fd), unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	})
}
