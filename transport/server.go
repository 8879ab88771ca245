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

package transport

import (
	"net"

	"github.com/sirupsen/logrus"

	"github.com/patchpanel/ofcontrol/ofp"
	"github.com/patchpanel/ofcontrol/sched"
)

// Registry is the subset of switchreg.Registry a Server needs. Depending on
// the interface rather than the concrete type keeps this package free of an
// import on switchreg, the same way lb and learning depend only on what
// they use from their collaborators.
type Registry interface {
	HandleConnectionUp(conn ofp.Connection)
	HandleConnectionDown(dpid uint64)
	HandlePacketIn(ev ofp.PacketInEvent)
}

// Server accepts switch connections on a TCP listener and feeds them into a
// Registry, serializing every callback onto a Scheduler the same way
// switchreg's own handlers expect to run.
type Server struct {
	ln  net.Listener
	reg Registry
	sc  *sched.Scheduler
	log *logrus.Entry

	// OnConnect, if set, runs on the scheduler goroutine before a new
	// connection's HandleConnectionUp -- the hook a caller without a fixed,
	// pre-configured set of dpids (e.g. a plain learning switch accepting
	// any switch that dials in) uses to bind the dpid on first sight,
	// rather than requiring it in advance like ofcontrol-lb's --dpid flags
	// do.
	OnConnect func(dpid uint64)

	// TraceLog, if set, logs every frame read and written on every accepted
	// connection at debug level -- opt-in wire tracing, off by default.
	TraceLog *logrus.Entry
}

// Listen starts accepting connections on addr. Call Serve to run the accept
// loop; closing the returned Server's listener stops it.
func Listen(addr string, reg Registry, sc *sched.Scheduler, log *logrus.Entry) (*Server, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{ln: ln, reg: reg, sc: sc, log: log.WithField("component", "transport")}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.ln.Close() }

// Serve runs the accept loop until the listener is closed. Each accepted
// connection is handed to handleConn in its own goroutine; handleConn does
// the hello handshake synchronously before handing the connection to the
// scheduler, so a slow or malformed handshake can't stall other switches.
func (s *Server) Serve() error {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(nc)
	}
}

func (s *Server) handleConn(nc net.Conn) {
	c, err := NewConn(nc, s.TraceLog)
	if err != nil {
		s.log.WithError(err).Warn("rejecting connection: handshake failed")
		nc.Close()
		return
	}

	s.sc.Post(func() {
		if s.OnConnect != nil {
			s.OnConnect(c.DPID())
		}
		s.reg.HandleConnectionUp(c)
	})

	for {
		ev, err := c.ReceivePacketIn()
		if err != nil {
			break
		}
		s.sc.Post(func() {
			s.reg.HandlePacketIn(ev)
		})
	}

	s.sc.Post(func() {
		s.reg.HandleConnectionDown(c.DPID())
	})
}
