// Worker consumes telemetry events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS and LOKI_URL; TELEMETRY_KAFKA_TOPIC and KAFKA_GROUP_ID have defaults.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustpranker/callapp/internal/config"
	"github.com/rustpranker/callapp/internal/logging"
	"github.com/rustpranker/callapp/internal/telemetry/loki"
	"github.com/rustpranker/callapp/internal/telemetry/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logs := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Format: cfg.LogFormat})
	defer logs.Close()
	log := logs.For("worker")

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("LOKI_URL is required")
	}

	reader := worker.NewReader(brokers, cfg.TelemetryKafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"topic": cfg.TelemetryKafkaTopic,
		"group": cfg.KafkaGroupID,
		"loki":  cfg.LokiURL,
	}).Info("consuming")

	pushed := worker.Run(ctx, reader, loki.NewClient(cfg.LokiURL, &http.Client{Timeout: 15 * time.Second}), log)
	log.WithField("pushed", pushed).Info("stopped")
}
