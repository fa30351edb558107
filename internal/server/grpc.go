package server

import (
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rustpranker/callapp/internal/server/interceptors"
)

// probeMethods are logged at debug level only.
var probeMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
}

// Deps holds the services exposed over gRPC.
type Deps struct {
	// Health publishes readiness. If nil, a server that always reports SERVING is registered.
	Health *grpchealth.Server
	Log    *logrus.Entry
}

// NewGRPCServer returns a gRPC server with OTel stats and request logging, with all services registered.
func NewGRPCServer(deps Deps) *grpc.Server {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors.LoggingUnary(log, probeMethods)),
	)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the gRPC services with the given server.
//
//   - grpc.health.v1.Health → internal/health (readiness synced by health.Checker)
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	hs := deps.Health
	if hs == nil {
		hs = grpchealth.NewServer()
	}
	healthpb.RegisterHealthServer(s, hs)
}
