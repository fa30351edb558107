// Package httpapi serves the call app's browser pages, JSON API and provider webhooks.
package httpapi

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	twclient "github.com/twilio/twilio-go/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rustpranker/callapp/internal/callstate"
	"github.com/rustpranker/callapp/internal/dialplan"
	"github.com/rustpranker/callapp/internal/health"
	"github.com/rustpranker/callapp/internal/policy"
	"github.com/rustpranker/callapp/internal/session"
	"github.com/rustpranker/callapp/internal/telemetry"
	"github.com/rustpranker/callapp/internal/telephony"
)

const instrumentationName = "callapp/httpapi"

// Deps holds the collaborators of the HTTP layer. Sessions, Gateway and Web are required.
type Deps struct {
	Sessions *session.Manager
	Gateway  telephony.Gateway
	// Policy defaults to policy.AllowAll.
	Policy   policy.DialChecker
	Tracker  *callstate.Tracker
	Dialplan dialplan.Builder
	// Events may be nil; events are then dropped.
	Events *telemetry.Async
	Health *health.Checker
	// Web holds index.html, dashboard.html, call.html and the static assets.
	Web fs.FS
	// PublicBaseURL overrides the request host when building provider callback URLs.
	PublicBaseURL string
	// WebhookAuthToken signs provider webhooks. When empty, X-Twilio-Signature is not checked.
	WebhookAuthToken string
	Log              *logrus.Entry
}

// Server implements the HTTP API.
type Server struct {
	sessions *session.Manager
	gateway  telephony.Gateway
	policy   policy.DialChecker
	tracker  *callstate.Tracker
	dialplan dialplan.Builder
	events   *telemetry.Async
	health   *health.Checker
	web      fs.FS
	baseURL  string
	webhooks *twclient.RequestValidator
	log      *logrus.Entry
	nowF     func() time.Time

	tracer   trace.Tracer
	requests metric.Int64Counter
}

// New returns a Server for deps.
func New(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	checker := deps.Policy
	if checker == nil {
		checker = policy.AllowAll{}
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = callstate.NewTracker(0, 0)
	}
	s := &Server{
		sessions: deps.Sessions,
		gateway:  deps.Gateway,
		policy:   checker,
		tracker:  tracker,
		dialplan: deps.Dialplan,
		events:   deps.Events,
		health:   deps.Health,
		web:      deps.Web,
		baseURL:  strings.TrimRight(deps.PublicBaseURL, "/"),
		log:      log,
		nowF:     time.Now,
		tracer:   otel.Tracer(instrumentationName),
	}
	requests, err := otel.Meter(instrumentationName).Int64Counter(
		"http.server.requests",
		metric.WithDescription("HTTP requests by route and status."),
	)
	if err != nil {
		log.WithError(err).Warn("request counter unavailable")
	}
	s.requests = requests
	if deps.WebhookAuthToken != "" {
		v := twclient.NewRequestValidator(deps.WebhookAuthToken)
		s.webhooks = &v
	} else {
		log.Warn("webhook auth token not set, provider signatures are not checked")
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)

	// Provider webhooks carry no browser session.
	r.Group(func(r chi.Router) {
		r.Use(s.requireProviderSignature)
		r.Get("/voice", s.handleVoice)
		r.Post("/voice", s.handleVoice)
		r.Post("/voice/status", s.handleVoiceStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.loadSession)

		r.Route("/api", func(r chi.Router) {
			r.Post("/send-code", s.handleSendCode)
			r.Post("/verify-code", s.handleVerifyCode)
			r.Get("/token", s.handleToken)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireVerifiedAPI)
				r.Post("/call", s.handleCall)
				r.Get("/call/status", s.handleCallStatus)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireVerifiedPage)
			r.Get("/dashboard", s.page("dashboard.html"))
			r.Get("/call", s.page("call.html"))
		})

		r.Get("/", s.page("index.html"))
		r.Handle("/*", s.assets())
	})
	return r
}
