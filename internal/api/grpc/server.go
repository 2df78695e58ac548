// Package grpcapi runs the gRPC admin server: standard health checking and
// reflection for the support service components.
package grpcapi

import (
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"nexus-support-service/internal/observability"
	"nexus-support-service/internal/observability/metrics"
)

// ServiceName is the health service name covering the whole process.
const ServiceName = "nexus.support.v1.SupportService"

// Server wraps the grpc.Server and its health registry.
type Server struct {
	grpc       *grpc.Server
	health     *health.Server
	components []string
}

// New builds the server with logging and metrics interceptors. components are
// registered as additional health service names.
func New(components ...string) *Server {
	m := metrics.DefaultMetrics
	g := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)
	reflection.Register(g)

	s := &Server{grpc: g, health: hs, components: components}
	s.SetServing(true)
	return s
}

// SetServing flips every registered health service between SERVING and NOT_SERVING.
func (s *Server) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	for _, c := range s.components {
		s.health.SetServingStatus(c, st)
	}
}

// SetComponentServing sets the health of a single component.
func (s *Server) SetComponentServing(component string, serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(component, st)
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("gRPC admin server started")
	return s.grpc.Serve(lis)
}

// ListenAndServe listens on the TCP port and serves.
func (s *Server) ListenAndServe(port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.Serve(lis)
}

// Shutdown marks every service NOT_SERVING and stops gracefully.
func (s *Server) Shutdown() {
	log.Info().Msg("Shutting down gRPC admin server")
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
