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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/learning"
	"github.com/patchpanel/ofcontrol/sched"
)

// ReconcileInterval is the sweep cadence, matching the reference's
// threading.Timer(10.0, flush) cadence.
const ReconcileInterval = 10 * time.Second

// Reconciler runs a periodic reachability sweep (spec.md §4.7): probe every
// known host, and bring each learning.Switch's MAC table in line with the
// result -- learning a host back in at its last-known port if it's
// reachable and absent, forgetting it from every switch that has it if
// it's unreachable. A switch with no port on record for the host gets the
// port recorded for the first watched switch (in Watch order) that has one.
// A prune keeps the host's port on record, so a later sweep can restore it.
type Reconciler struct {
	log      *logrus.Entry
	hosts    *HostTable
	pool     *WorkerPool
	switches []*learning.Switch

	inFlight map[addr.IP]bool
}

// NewReconciler creates a Reconciler over hosts, starting a WorkerPool of
// workers goroutines that probe through oracle (bounded by timeout per
// probe) and post results back onto sc's goroutine.
func NewReconciler(hosts *HostTable, oracle Oracle, sc *sched.Scheduler, workers int, timeout time.Duration, log *logrus.Entry) *Reconciler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	r := &Reconciler{
		log:      log.WithField("component", "reachability"),
		hosts:    hosts,
		inFlight: make(map[addr.IP]bool),
	}
	r.pool = NewWorkerPool(workers, oracle, sc, timeout, r.OnProbeResult)
	return r
}

// Watch registers sw as a switch whose MAC table the reconciler keeps in
// sync with reachability results.
func (r *Reconciler) Watch(sw *learning.Switch) {
	r.switches = append(r.switches, sw)
}

// Schedule wires Tick to run every ReconcileInterval on sc, mirroring the
// reference's self-rescheduling threading.Timer(10.0, flush).
func (r *Reconciler) Schedule(sc *sched.Scheduler) (cancel func()) {
	return sc.Every(ReconcileInterval, func() { r.Tick(sc.Now()) })
}

// Tick submits a probe for every known host not already in flight. Results
// are consumed asynchronously via OnProbeResult as the worker pool posts
// them back onto the scheduler goroutine -- see NewWorkerPool.
func (r *Reconciler) Tick(now time.Time) {
	if len(r.switches) < 2 {
		// The reference only runs its sweep once more than one switch has
		// connected; a single switch has nothing to reconcile across.
		return
	}

	for _, ip := range r.hosts.Hosts() {
		if r.inFlight[ip] {
			continue
		}
		r.inFlight[ip] = true
		r.pool.Submit(ip)
	}
}

// OnProbeResult applies one probe's outcome to every watched switch. It
// must run on the scheduler goroutine -- NewWorkerPool's onResult callback
// guarantees this via sched.Scheduler.Post.
func (r *Reconciler) OnProbeResult(result ProbeResult) {
	delete(r.inFlight, result.IP)

	mac, ok := r.hosts.MACFor(result.IP)
	if !ok {
		return
	}

	if result.Reachable {
		r.bringUp(mac)
	} else {
		r.bringDown(mac)
	}
}

func (r *Reconciler) bringUp(mac addr.MAC) {
	for _, sw := range r.switches {
		if _, known := sw.PortFor(mac); known {
			continue
		}
		port, ok := r.hosts.LastPortOn(mac, sw)
		for _, other := range r.switches {
			if ok {
				break
			}
			port, ok = r.hosts.LastPortOn(mac, other)
		}
		if !ok {
			continue
		}
		r.log.WithField("mac", mac).WithField("dpid", sw.DPID()).
			WithField("port", port).Debug("host is up, adding to table")
		sw.Learn(mac, port)
	}
}

func (r *Reconciler) bringDown(mac addr.MAC) {
	for _, sw := range r.switches {
		port, known := sw.PortFor(mac)
		if !known {
			continue
		}
		r.log.WithField("mac", mac).WithField("dpid", sw.DPID()).
			Info("host is down, removing from table")
		sw.Forget(mac)
		// Forget drops the host's snapshot through the Recorder; put the
		// pre-prune port back so bringUp can restore it.
		r.hosts.RecordLearn(mac, sw, port)
	}
}
