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

// Command ofcontrol-switch runs a plain L2 learning switch on every
// connected datapath, plus a reachability reconciler that keeps their MAC
// tables in sync with a configured set of known hosts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/learning"
	"github.com/patchpanel/ofcontrol/ofp"
	"github.com/patchpanel/ofcontrol/reachability"
	"github.com/patchpanel/ofcontrol/sched"
	"github.com/patchpanel/ofcontrol/simnet"
	"github.com/patchpanel/ofcontrol/switchreg"
	"github.com/patchpanel/ofcontrol/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		transparent bool
		holdDown    int
		listen      string
		demo        bool
	)

	cmd := &cobra.Command{
		Use:   "ofcontrol-switch",
		Short: "Run an OpenFlow L2 learning switch with cross-switch reachability reconciliation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if holdDown < 0 {
				return fmt.Errorf("--hold-down must be >= 0, got %d", holdDown)
			}
			return run(cmd.Context(), transparent, time.Duration(holdDown)*time.Second, listen, demo)
		},
	}

	cmd.Flags().BoolVar(&transparent, "transparent", false, "forward link-local traffic instead of dropping it")
	cmd.Flags().IntVar(&holdDown, "hold-down", 0, "seconds to suppress flooding after a switch connects")
	cmd.Flags().StringVar(&listen, "listen", ":6633", "address the OpenFlow transport listens on")
	cmd.Flags().BoolVar(&demo, "demo", false, "run against an in-process simnet fabric instead of a real transport")

	return cmd
}

func run(ctx context.Context, transparent bool, holdDown time.Duration, listen string, demo bool) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc := sched.New(nil)
	reg := switchreg.New(log)

	knownHosts := map[addr.IP]addr.MAC{}
	for i := 1; i <= 16; i++ {
		ip := addr.IP{10, 0, 0, byte(i)}
		knownHosts[ip] = addr.MAC{0, 0, 0, 0, 0, byte(i)}
	}
	hosts := reachability.NewHostTable(knownHosts)

	prober := &reachability.ICMPProber{}
	reconciler := reachability.NewReconciler(hosts, prober, sc, reachability.DefaultWorkers, reachability.DefaultProbeTimeout, log)

	switches := make(map[uint64]*learning.Switch)

	onUp := func(conn ofp.Connection) {
		dpid := conn.DPID()
		if _, ok := switches[dpid]; ok {
			return
		}
		sw := learning.New(dpid, learning.Config{
			Transparent: transparent,
			HoldDown:    holdDown,
			Recorder:    hosts,
		}, sc.Now, log)
		switches[dpid] = sw
		reg.BindPacketIn(dpid, sw)
		reconciler.Watch(sw)

		log.WithField("dpid", dpid).Info("learning switch attached")
	}

	attach := func(dpid uint64) {
		reg.Bind(dpid, onUp, nil)
	}

	var srv *transport.Server
	if demo {
		for _, dpid := range []uint64{1, 2} {
			attach(dpid)
		}
	} else {
		var err error
		srv, err = transport.Listen(listen, reg, sc, log)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", listen, err)
		}
		defer srv.Close()
		srv.OnConnect = attach

		go func() {
			if err := srv.Serve(); err != nil {
				log.WithError(err).Warn("transport server stopped")
			}
		}()

		log.WithField("listen", srv.Addr()).Info("waiting for switch connections")
	}

	reconciler.Schedule(sc)

	if demo {
		runDemo(reg)
	}

	sc.Run(ctx)
	return nil
}

// runDemo brings up two fake switches, each with one attached host, and
// injects one packet-in on the first, so the learning switch has something
// to do without a real topology.
func runDemo(reg *switchreg.Registry) {
	switchAMAC := addr.MAC{0, 0, 0, 0, 0, 0xa1}
	switchBMAC := addr.MAC{0, 0, 0, 0, 0, 0xa2}

	swA := simnet.NewSwitch(1, switchAMAC, reg.HandlePacketIn)
	swB := simnet.NewSwitch(2, switchBMAC, reg.HandlePacketIn)
	reg.HandleConnectionUp(swA)
	reg.HandleConnectionUp(swB)

	host1 := simnet.Host{MAC: addr.MAC{0, 0, 0, 0, 0, 1}, IP: addr.IP{10, 0, 0, 1}}
	host2 := simnet.Host{MAC: addr.MAC{0, 0, 0, 0, 0, 2}, IP: addr.IP{10, 0, 0, 2}}
	swA.AttachHost(1, host1)
	swB.AttachHost(1, host2)

	swA.PacketIn(1, simnet.TCP(host1.MAC, host1.IP, 1234, host2.MAC, host2.IP, 80), nil)
}
