package interceptors

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingUnary returns a unary server interceptor that logs each RPC with its status code and duration.
// skipMethods is the set of full method names that are only logged at debug level (e.g. health probes).
func LoggingUnary(log *logrus.Entry, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":      info.FullMethod,
			"code":        status.Code(err).String(),
			"duration_ms": time.Since(start).Milliseconds(),
			"peer":        peerHost(ctx),
		})
		switch {
		case err != nil:
			entry.WithError(err).Warn("rpc failed")
		case skipMethods[info.FullMethod]:
			entry.Debug("rpc")
		default:
			entry.Info("rpc")
		}
		return resp, err
	}
}

// peerHost is the transport peer's host. Forwarding metadata is ignored since any caller can set it.
func peerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
