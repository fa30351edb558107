package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweep calls DeleteExpired on repo every interval until ctx is done.
func Sweep(ctx context.Context, repo Repository, interval time.Duration, log *logrus.Entry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("session sweep failed")
				continue
			}
			if n > 0 {
				log.WithField("removed", n).Debug("expired sessions removed")
			}
		}
	}
}
