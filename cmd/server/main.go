package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"

	"github.com/rustpranker/callapp/internal/callstate"
	"github.com/rustpranker/callapp/internal/config"
	"github.com/rustpranker/callapp/internal/db"
	"github.com/rustpranker/callapp/internal/dialplan"
	"github.com/rustpranker/callapp/internal/health"
	"github.com/rustpranker/callapp/internal/httpapi"
	"github.com/rustpranker/callapp/internal/logging"
	"github.com/rustpranker/callapp/internal/policy/engine"
	"github.com/rustpranker/callapp/internal/server"
	"github.com/rustpranker/callapp/internal/session"
	"github.com/rustpranker/callapp/internal/session/repository"
	"github.com/rustpranker/callapp/internal/telemetry"
	telemetryotel "github.com/rustpranker/callapp/internal/telemetry/otel"
	"github.com/rustpranker/callapp/internal/telemetry/producer"
	"github.com/rustpranker/callapp/internal/telephony"
	"github.com/rustpranker/callapp/internal/web"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	logs := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Format: cfg.LogFormat})
	defer logs.Close()
	log := logs.For("core")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.WithError(err).Fatal("otel providers")
	}
	providers.SetGlobal()

	emitters := telemetry.Multi{}
	kafkaProducer := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		log.WithField("topic", cfg.TelemetryKafkaTopic).Info("telemetry events to kafka")
	}
	if cfg.OTLPEndpoint != "" {
		emitters = append(emitters, telemetryotel.NewEventEmitter(providers.LoggerProvider))
	}
	var events *telemetry.Async
	if len(emitters) > 0 {
		events = telemetry.NewAsync(emitters, logs.For("telemetry"))
	}

	repo, sqlDB := openSessionStore(ctx, cfg, log)
	if sqlDB != nil {
		defer sqlDB.Close()
	}
	go repository.Sweep(ctx, repo, sweepInterval, logs.For("sessions"))

	codec, err := session.NewCodec(cfg.SessionSecret)
	if err != nil {
		log.WithError(err).Fatal("session codec")
	}
	sessions := session.NewManager(repo, codec, session.Options{
		TTL:    cfg.SessionTTL(),
		Secure: cfg.IsProduction(),
		Logger: logs.For("sessions"),
	})

	gateway := telephony.NewTwilioGateway(telephony.TwilioConfig{
		AccountSID:       cfg.TwilioAccountSID,
		AuthToken:        cfg.TwilioAuthToken,
		VerifyServiceSID: cfg.TwilioVerifySID,
		FromNumber:       cfg.TwilioFromNumber,
		APIKeySID:        cfg.TwilioAPIKeySID,
		APIKeySecret:     cfg.TwilioAPIKeySecret,
		TwiMLAppSID:      cfg.TwilioTwiMLAppSID,
		TokenTTL:         cfg.TokenTTL(),
	}, logs.For("telephony"))
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		log.Warn("Twilio credentials not set; verification and calls will fail")
	}

	dialPolicy, err := engine.NewOPAEvaluator(ctx, cfg.DialDenyPrefixList(), logs.For("policy"))
	if err != nil {
		log.WithError(err).Fatal("dial policy")
	}
	if cfg.DialPolicyFile != "" {
		if err := dialPolicy.LoadFile(ctx, cfg.DialPolicyFile); err != nil {
			log.WithError(err).Fatal("dial policy file")
		}
		go func() {
			if err := dialPolicy.Watch(ctx, cfg.DialPolicyFile); err != nil {
				log.WithError(err).Error("dial policy watcher stopped")
			}
		}()
	}

	var pinger health.Pinger
	if sqlDB != nil {
		pinger = sqlDB
	}
	checker := health.NewChecker(pinger, dialPolicy)

	api := httpapi.New(httpapi.Deps{
		Sessions: sessions,
		Gateway:  gateway,
		Policy:   dialPolicy,
		Tracker:  callstate.NewTracker(0, 0),
		Dialplan: dialplan.Builder{
			CallerID: cfg.TwilioFromNumber,
			Timeout:  cfg.DialTimeoutSeconds,
			Fallback: cfg.VoiceFallbackMessage,
		},
		Events:           events,
		Health:           checker,
		Web:              web.FS(),
		PublicBaseURL:    cfg.PublicBaseURL,
		WebhookAuthToken: cfg.TwilioAuthToken,
		Log:              logs.For("http"),
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http serve")
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.WithError(err).Fatal("grpc listen")
		}
		hs := grpchealth.NewServer()
		go checker.Sync(ctx, hs, 0, logs.For("health"))
		grpcServer = server.NewGRPCServer(server.Deps{Health: hs, Log: logs.For("grpc")})
		go func() {
			log.WithField("addr", cfg.GRPCAddr).Info("gRPC server listening")
			if err := grpcServer.Serve(lis); err != nil {
				log.WithError(err).Fatal("grpc serve")
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := events.Drain(shutdownCtx); err != nil {
		log.WithError(err).Warn("telemetry drain")
	}
	if err := kafkaProducer.Close(); err != nil {
		log.WithError(err).Warn("kafka close")
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("otel shutdown")
	}
	log.Info("stopped")
}

// openSessionStore picks Postgres when DATABASE_URL is set, otherwise memory.
func openSessionStore(ctx context.Context, cfg *config.Config, log *logrus.Entry) (repository.Repository, *sql.DB) {
	if cfg.DatabaseURL == "" {
		log.Info("sessions in memory")
		return repository.NewMemoryRepository(), nil
	}
	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	log.Info("sessions in postgres")
	return repository.NewPostgresRepository(sqlDB), sqlDB
}
