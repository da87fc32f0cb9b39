// SPDX-License-Identifier: AGPL-3.0-or-later
// xrd-ha-app - Cloud high-availability controller for redundant XRd routers
// Copyright (C) 2024-2026 the xrd-ha-app authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/ios-xr/xrd-ha-app>

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/ios-xr/xrd-ha-app/internal/metrics"
	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
	"github.com/puzpuzpuz/xsync/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// DisconnectReason says why a telemetry stream ended.
type DisconnectReason string

const (
	// ReasonClosedByPeer means the router half-closed the stream.
	ReasonClosedByPeer DisconnectReason = "closed-by-peer"
	// ReasonTransportLost means the connection died underneath the stream.
	ReasonTransportLost DisconnectReason = "transport-lost"
)

// Handler receives decoded observations and stream lifecycle events.
// Observations from one stream are delivered single-threaded in wire
// order; none are delivered after OnDisconnect returns.
type Handler interface {
	Observe(key vrrp.GroupKey, role vrrp.Role)
	OnConnect(peer string)
	OnDisconnect(peer string, reason DisconnectReason)
}

// The keepalive discipline is deliberately aggressive: the controller and
// router share a host, and a dead peer must be detected within seconds so
// the session table can be reset.
const (
	keepaliveInterval        = time.Second
	keepaliveTimeout         = time.Second
	keepaliveMinPeerInterval = 500 * time.Millisecond
)

// Server accepts the router's telemetry dial-out connection and feeds the
// handler. At most one stream is served at a time; later streams are
// refused until the active one ends.
type Server struct {
	handler Handler
	metrics *metrics.Metrics
	port    int

	grpc      *grpc.Server
	lis       net.Listener
	streaming atomic.Bool

	droppedEncodings *xsync.Map[string, struct{}]
	droppedPaths     *xsync.Map[string, struct{}]
}

// NewServer creates a telemetry server listening on port once started.
func NewServer(port int, handler Handler, m *metrics.Metrics) *Server {
	return &Server{
		handler:          handler,
		metrics:          m,
		port:             port,
		droppedEncodings: xsync.NewMap[string, struct{}](),
		droppedPaths:     xsync.NewMap[string, struct{}](),
	}
}

// dialoutService mirrors the router's dial-out service so the stream
// handler can be registered without generated stubs.
type dialoutService interface {
	MdtDialout(grpc.ServerStream) error
}

func dialoutStreamHandler(srv any, stream grpc.ServerStream) error {
	return srv.(dialoutService).MdtDialout(stream)
}

// dialoutServiceDesc matches the router's telemetry dial-out service and
// method identifiers.
var dialoutServiceDesc = grpc.ServiceDesc{
	ServiceName: "mdt_dialout.gRPCMdtDialout",
	HandlerType: (*dialoutService)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{{
		StreamName:    "MdtDialout",
		Handler:       dialoutStreamHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
	Metadata: "mdt_grpc_dialout.proto",
}

// Start binds the listener and begins serving in the background. The
// endpoint is plaintext; transport security is a deployment concern.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind telemetry listener on port %d: %w", s.port, err)
	}
	s.lis = lis

	s.grpc = grpc.NewServer(
		grpc.ForceServerCodec(wireCodec{}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    keepaliveInterval,
			Timeout: keepaliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             keepaliveMinPeerInterval,
			PermitWithoutStream: true,
		}),
	)
	s.grpc.RegisterService(&dialoutServiceDesc, s)

	go func() {
		if err := s.grpc.Serve(lis); err != nil {
			slog.Error("Telemetry server stopped serving", "component", "telemetry", "error", err)
		}
	}()

	slog.Info("Telemetry server listening", "component", "telemetry", "addr", lis.Addr().String())
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

// Stop tears the server down, ending any active stream.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.Stop()
	}
}

// MdtDialout serves one dial-out stream from the router partner.
func (s *Server) MdtDialout(stream grpc.ServerStream) error {
	defer exitOnPanic("telemetry stream")
	peerName := peerAddr(stream.Context())

	if !s.streaming.CompareAndSwap(false, true) {
		slog.Warn("Refusing second concurrent telemetry stream",
			"component", "telemetry", "peer", peerName)
		return status.Error(codes.ResourceExhausted, "another telemetry stream is already active")
	}
	defer s.streaming.Store(false)

	slog.Info("Telemetry stream established", "component", "telemetry", "peer", peerName)
	s.metrics.TelemetryStreamActive.Set(1)
	defer s.metrics.TelemetryStreamActive.Set(0)
	s.handler.OnConnect(peerName)

	for {
		args := new(DialoutArgs)
		if err := stream.RecvMsg(args); err != nil {
			reason := ReasonTransportLost
			if errors.Is(err, io.EOF) {
				reason = ReasonClosedByPeer
			}
			slog.Warn("Telemetry stream ended",
				"component", "telemetry", "peer", peerName, "reason", reason, "error", err)
			s.handler.OnDisconnect(peerName, reason)
			if reason == ReasonClosedByPeer {
				return nil
			}
			return err
		}
		s.handleMessage(peerName, args)
	}
}

func (s *Server) handleMessage(peerName string, args *DialoutArgs) {
	if args.Errors != "" {
		slog.Error("Telemetry peer reported an in-band error",
			"component", "telemetry", "peer", peerName, "req_id", args.ReqID, "errors", args.Errors)
		s.metrics.TelemetryMessagesTotal.WithLabelValues("peer-error").Inc()
		return
	}

	t, err := ParseTelemetry(args.Data)
	if err != nil {
		slog.Error("Failed to decode telemetry message",
			"component", "telemetry", "peer", peerName, "req_id", args.ReqID, "error", err)
		s.metrics.TelemetryMessagesTotal.WithLabelValues("malformed").Inc()
		return
	}

	if t.CompactGPB && len(t.GPBKV) == 0 {
		if _, seen := s.droppedEncodings.LoadOrStore(t.EncodingPath, struct{}{}); !seen {
			slog.Warn("Dropping telemetry with unsupported encoding; only self-describing key-value is consumed",
				"component", "telemetry", "path", t.EncodingPath)
		}
		s.metrics.TelemetryMessagesTotal.WithLabelValues("dropped").Inc()
		return
	}

	if t.EncodingPath != VRRPOperPath {
		if _, seen := s.droppedPaths.LoadOrStore(t.EncodingPath, struct{}{}); !seen {
			slog.Warn("Dropping telemetry on unexpected path",
				"component", "telemetry", "path", t.EncodingPath, "want", VRRPOperPath)
		}
		s.metrics.TelemetryMessagesTotal.WithLabelValues("dropped").Inc()
		return
	}

	obs := observations(t, func(err error) {
		slog.Error("Malformed VRRP report in telemetry message",
			"component", "telemetry", "peer", peerName, "path", t.EncodingPath, "error", err)
		s.metrics.TelemetryMessagesTotal.WithLabelValues("malformed").Inc()
	})
	for _, o := range obs {
		s.handler.Observe(o.Key, o.Role)
	}
	s.metrics.TelemetryMessagesTotal.WithLabelValues("consumed").Inc()
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok {
		return p.Addr.String()
	}
	return "unknown"
}

// exitOnPanic converts a programming error on the telemetry-serving
// goroutine into a logged process exit so the supervisor restarts with a
// clean slate.
func exitOnPanic(scope string) {
	if r := recover(); r != nil {
		slog.Error("Unhandled panic",
			"component", "telemetry", "scope", scope, "panic", r, "stack", string(debug.Stack()))
		os.Exit(1)
	}
}
