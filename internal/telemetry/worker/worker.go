// Package worker drains telemetry events from Kafka into Loki.
package worker

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const pushTimeout = 10 * time.Second

// MessageReader is the subset of *kafka.Reader the worker uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher forwards one serialized event.
type Pusher interface {
	PushEventJSON(ctx context.Context, raw []byte) error
}

// NewReader returns a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Run reads messages until ctx is done, pushing each one. Read and push failures are logged
// and the loop continues; Run returns the number of messages pushed successfully.
func Run(ctx context.Context, r MessageReader, p Pusher, log *logrus.Entry) int {
	pushed := 0
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return pushed
			}
			log.WithError(err).Warn("kafka read failed")
			continue
		}
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		err = p.PushEventJSON(pushCtx, msg.Value)
		cancel()
		if err != nil {
			log.WithError(err).WithField("offset", msg.Offset).Warn("loki push failed")
			continue
		}
		pushed++
	}
}
