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

// Package sched provides the controller's single-threaded cooperative
// scheduler. Per spec.md §5, every packet-in handler and timer firing runs
// on this one goroutine, one at a time, to completion -- the LB and
// learning state machines rely on this to avoid locking their own state.
package sched

import (
	"context"
	"time"
)

// A Scheduler runs deferred and periodic callbacks on a single goroutine.
type Scheduler struct {
	now   func() time.Time
	tasks chan func()
}

// New creates a Scheduler. clock, if non-nil, is used in place of time.Now
// as the value Now returns; tests inject a fake clock to control the time
// the core's handlers see. CallAfter/Every delays always run on real
// timers and do not consult clock.
func New(clock func() time.Time) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		now:   clock,
		tasks: make(chan func(), 64),
	}
}

// Run drains the task channel on the calling goroutine until ctx is
// canceled. It is intended to be the only goroutine that ever calls into
// the controller core's handlers.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.tasks:
			fn()
		}
	}
}

// CallAfter schedules fn to run once, no earlier than d from now. fn runs
// on the Scheduler's own goroutine (whichever one called Run), never
// concurrently with another scheduled callback.
func (s *Scheduler) CallAfter(d time.Duration, fn func()) {
	t := time.NewTimer(d)
	go func() {
		<-t.C
		s.post(fn)
	}()
}

// Every schedules fn to run repeatedly, waiting at least d between the end
// of one invocation and the start of the next. It reschedules itself from
// inside fn's own call, so a slow fn delays the next firing rather than
// running concurrently with it. The returned cancel function stops future
// firings; a firing already queued on the task channel when cancel is
// called sees the stop and returns without calling fn.
func (s *Scheduler) Every(d time.Duration, fn func()) (cancel func()) {
	stop := make(chan struct{})
	var loop func()
	loop = func() {
		select {
		case <-stop:
			return
		default:
		}
		fn()
		s.CallAfter(d, loop)
	}
	s.CallAfter(d, loop)

	return func() { close(stop) }
}

// post enqueues fn to run on the Scheduler's goroutine.
func (s *Scheduler) post(fn func()) {
	s.tasks <- fn
}

// Post enqueues fn to run on the Scheduler's goroutine at the next
// opportunity, without any delay. It is the mechanism background workers
// (such as reachability.WorkerPool) use to hand results back to the
// single-writer event loop.
func (s *Scheduler) Post(fn func()) {
	s.post(fn)
}

// Now returns the scheduler's notion of the current time.
func (s *Scheduler) Now() time.Time {
	return s.now()
}
