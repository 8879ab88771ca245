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

package reachability

import (
	"context"
	"time"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/sched"
)

// ProbeResult carries the outcome of one reachability probe.
type ProbeResult struct {
	IP        addr.IP
	Reachable bool
}

// DefaultWorkers bounds how many probes run concurrently -- enough to cover
// a modest host space (the reference's ping sweep covers 15 addresses)
// without opening an unbounded number of sockets at once.
const DefaultWorkers = 4

// WorkerPool runs Oracle probes on background goroutines and posts each
// result back onto a scheduler's single-writer goroutine via Post, so
// callers never need their own synchronization around the result.
//
// This is the piece of the reachability subsystem spec.md calls out
// (§5, §9) as a required re-architecture: the reference blocks its entire
// event loop for the duration of a synchronous `ping` subprocess call per
// host: WorkerPool moves that blocking I/O off the controller's single
// goroutine while keeping every mutation of shared state on it.
type WorkerPool struct {
	oracle  Oracle
	sched   *sched.Scheduler
	timeout time.Duration

	requests chan addr.IP
	done     chan struct{}
}

// NewWorkerPool starts n goroutines dispatching probes through oracle.
// Every probe result is delivered to onResult by way of sc.Post, so
// onResult always runs on sc's goroutine.
func NewWorkerPool(n int, oracle Oracle, sc *sched.Scheduler, timeout time.Duration, onResult func(ProbeResult)) *WorkerPool {
	if n <= 0 {
		n = DefaultWorkers
	}

	wp := &WorkerPool{
		oracle:   oracle,
		sched:    sc,
		timeout:  timeout,
		requests: make(chan addr.IP, n*4),
		done:     make(chan struct{}),
	}

	for i := 0; i < n; i++ {
		go wp.worker(onResult)
	}
	return wp
}

func (wp *WorkerPool) worker(onResult func(ProbeResult)) {
	for {
		select {
		case <-wp.done:
			return
		case ip, ok := <-wp.requests:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), wp.timeout)
			reachable := wp.oracle.Reachable(ctx, ip)
			cancel()

			result := ProbeResult{IP: ip, Reachable: reachable}
			wp.sched.Post(func() { onResult(result) })
		}
	}
}

// Submit enqueues ip for probing. It does not block on the probe itself,
// only (briefly, if ever) on the internal request channel.
func (wp *WorkerPool) Submit(ip addr.IP) {
	select {
	case wp.requests <- ip:
	case <-wp.done:
	}
}

// Close stops accepting new work and signals every worker goroutine to
// exit once it finishes any probe already in flight.
func (wp *WorkerPool) Close() {
	close(wp.done)
}
