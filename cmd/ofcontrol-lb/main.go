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

// Command ofcontrol-lb runs one IP load balancer instance per configured
// switch, each fronting a pool of backend servers with a service IP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patchpanel/ofcontrol/addr"
	"github.com/patchpanel/ofcontrol/arpresponder"
	"github.com/patchpanel/ofcontrol/lb"
	"github.com/patchpanel/ofcontrol/ofp"
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
		ips     []string
		servers []string
		dpids   []uint64
		listen  string
		demo    bool
	)

	cmd := &cobra.Command{
		Use:   "ofcontrol-lb",
		Short: "Run OpenFlow IP load balancer instances",
		Long: "ofcontrol-lb binds one lb.Instance per (--ip, --servers, --dpid) " +
			"triple and dispatches packet-ins from bound switches to it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), ips, servers, dpids, listen, demo)
		},
	}

	cmd.Flags().StringArrayVar(&ips, "ip", nil, "service IP for one load-balanced instance (repeatable)")
	cmd.Flags().StringArrayVar(&servers, "servers", nil, "comma-separated backend IPs, paired positionally with --ip (repeatable)")
	cmd.Flags().Uint64SliceVar(&dpids, "dpid", nil, "switch datapath id, paired positionally with --ip (repeatable)")
	cmd.Flags().StringVar(&listen, "listen", ":6633", "address the OpenFlow transport listens on")
	cmd.Flags().BoolVar(&demo, "demo", false, "run against an in-process simnet fabric instead of a real transport")

	return cmd
}

type triple struct {
	dpid      uint64
	serviceIP addr.IP
	servers   []addr.IP
}

// defaultIPs, defaultServers, and defaultDPIDs mirror the reference
// launcher's hardcoded iplist/serverlist/dpidlist: the triples used when no
// --ip flags are given at all, per spec.md §6's launcher-with-fallback
// contract.
var (
	defaultIPs     = []string{"10.0.1.1", "10.0.1.2"}
	defaultServers = []string{"10.0.0.1,10.0.0.2", "10.0.0.4,10.0.0.5"}
	defaultDPIDs   = []uint64{3, 4}
)

func parseTriples(ips, serversRaw []string, dpids []uint64) ([]triple, error) {
	if len(ips) == 0 {
		ips, serversRaw, dpids = defaultIPs, defaultServers, defaultDPIDs
	}
	if len(ips) != len(serversRaw) || len(ips) != len(dpids) {
		return nil, fmt.Errorf("--ip, --servers, and --dpid must be given the same number of times (got %d, %d, %d)",
			len(ips), len(serversRaw), len(dpids))
	}

	out := make([]triple, 0, len(ips))
	for i, raw := range ips {
		serviceIP, err := addr.ParseIP(raw)
		if err != nil {
			return nil, fmt.Errorf("--ip[%d]: %w", i, err)
		}

		var servers []addr.IP
		for _, s := range strings.Split(serversRaw[i], ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			ip, err := addr.ParseIP(s)
			if err != nil {
				return nil, fmt.Errorf("--servers[%d]: %w", i, err)
			}
			servers = append(servers, ip)
		}

		out = append(out, triple{dpid: dpids[i], serviceIP: serviceIP, servers: servers})
	}
	return out, nil
}

func run(ctx context.Context, ips, serversRaw []string, dpids []uint64, listen string, demo bool) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	triples, err := parseTriples(ips, serversRaw, dpids)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc := sched.New(nil)
	reg := switchreg.New(log)

	// initialized guards against re-registering a dpid's ARP responder on
	// every reconnect -- the per-dpid analogue of spec.md §9's fix for the
	// reference's LBinited[i] closure-capture bug, which re-ran setup on
	// the wrong index entirely.
	initialized := make(map[uint64]bool)

	for _, tr := range triples {
		tr := tr
		inst := lb.NewInstance(lb.Config{
			ServiceIP:  tr.serviceIP,
			Servers:    tr.servers,
			SwitchDPID: tr.dpid,
		}, sc, log)

		reg.Bind(tr.dpid, func(conn ofp.Connection) {
			if initialized[tr.dpid] {
				return
			}
			initialized[tr.dpid] = true

			responder := arpresponder.New(conn.LocalMAC(), tr.serviceIP, false, log)
			reg.BindPacketIn(tr.dpid, responder)
			reg.BindPacketIn(tr.dpid, inst)
		}, nil)
		reg.Bind(tr.dpid, inst.OnConnectionUp, inst.OnConnectionDown)

		log.WithField("dpid", tr.dpid).WithField("service_ip", tr.serviceIP).
			WithField("servers", tr.servers).Info("configured load balancer instance")
	}

	if demo {
		runDemo(reg, triples)
	} else {
		srv, err := transport.Listen(listen, reg, sc, log)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", listen, err)
		}
		defer srv.Close()

		go func() {
			if err := srv.Serve(); err != nil {
				log.WithError(err).Warn("transport server stopped")
			}
		}()

		log.WithField("listen", srv.Addr()).Info("waiting for switch connections")
	}

	sc.Run(ctx)
	return nil
}

// runDemo wires a simnet.Switch per configured dpid with one fake backend
// and one fake client, and drives a single request through each, so the
// binary does something observable without Mininet.
func runDemo(reg *switchreg.Registry, triples []triple) {
	for _, tr := range triples {
		if len(tr.servers) == 0 {
			continue
		}
		switchMAC := addr.MAC{0x00, 0x00, 0x00, 0x00, 0x00, byte(tr.dpid)}
		sw := simnet.NewSwitch(tr.dpid, switchMAC, reg.HandlePacketIn)
		reg.HandleConnectionUp(sw)

		server := simnet.Host{MAC: addr.MAC{0, 0, 0, 0, 0, 1}, IP: tr.servers[0]}
		client := simnet.Host{MAC: addr.MAC{0, 0, 0, 0, 0, 2}, IP: addr.IP{10, 0, 2, 5}}
		sw.AttachHost(1, server)
		sw.AttachHost(2, client)

		sw.PacketIn(1, simnet.ARPReply(server.MAC, server.IP, switchMAC, tr.serviceIP), nil)
		sw.PacketIn(2, simnet.TCP(client.MAC, client.IP, 40000, switchMAC, tr.serviceIP, 80), nil)
	}
}
