// Package health reports readiness of the call app's backing services.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the dial policy can be evaluated (e.g. the OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

const checkTimeout = 2 * time.Second

// Checker runs the configured readiness checks. Nil dependencies are skipped.
type Checker struct {
	db     Pinger
	policy PolicyChecker
}

// NewChecker returns a Checker. Either argument may be nil.
func NewChecker(db Pinger, policy PolicyChecker) *Checker {
	return &Checker{db: db, policy: policy}
}

// Check returns the first failing dependency.
func (c *Checker) Check(ctx context.Context) error {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			return fmt.Errorf("policy: %w", err)
		}
	}
	return nil
}

// Report runs Check once and publishes the result on srv for the overall ("") service.
func (c *Checker) Report(ctx context.Context, srv *grpchealth.Server, log *logrus.Entry) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		if log != nil {
			log.WithError(err).Warn("health check failed")
		}
	}
	srv.SetServingStatus("", status)
}

// Sync reports immediately and then every interval until ctx is done.
func (c *Checker) Sync(ctx context.Context, srv *grpchealth.Server, interval time.Duration, log *logrus.Entry) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	c.Report(ctx, srv, log)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Report(ctx, srv, log)
		}
	}
}
