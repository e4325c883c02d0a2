// Package chatapi serves the public chat endpoint: it validates the inbound
// message, short-circuits crisis and guardrail hits, and relays everything
// else through the dispatcher.
package chatapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/ethicamind/internal/classify"
	"github.com/linnemanlabs/ethicamind/internal/dispatch"
)

// ServiceName is reported by the root status route.
const ServiceName = "ethicamind"

// Classifier decides whether a message is crisis, guardrail or clear.
type Classifier interface {
	Classify(message string) classify.Verdict
}

// Dispatcher relays a clear message to the provider adapters.
type Dispatcher interface {
	Dispatch(ctx context.Context, message string) dispatch.Outcome
}

// Notifier is told about crisis-triaged requests. Implementations must not
// receive or forward message text.
type Notifier interface {
	NotifyCrisis(ctx context.Context, requestID string) error
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger     log.Logger
	classifier Classifier
	dispatcher Dispatcher
	notifier   Notifier
	metrics    *Metrics
	origins    []string
	chatMW     []func(http.Handler) http.Handler

	escalations sync.WaitGroup
}

// Option configures optional API collaborators.
type Option func(*API)

// WithNotifier enables crisis escalation notices.
func WithNotifier(n Notifier) Option {
	return func(a *API) { a.notifier = n }
}

// WithMetrics records response counts on m.
func WithMetrics(m *Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// WithAllowedOrigins sets the CORS allow-list. Empty allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(a *API) { a.origins = append([]string(nil), origins...) }
}

// WithChatMiddleware wraps POST /api/chat only (for example bearer auth).
func WithChatMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(a *API) { a.chatMW = append(a.chatMW, mw...) }
}

// New creates a new API handler.
func New(logger log.Logger, classifier Classifier, dispatcher Dispatcher, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if classifier == nil {
		panic(xerrors.New("classifier is required"))
	}
	if dispatcher == nil {
		panic(xerrors.New("dispatcher is required"))
	}

	a := &API{
		logger:     logger,
		classifier: classifier,
		dispatcher: dispatcher,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(a.corsHandler())

		r.Get("/", a.handleStatus)
		r.With(a.chatMW...).Post("/api/chat", a.handleChat)
		r.Options("/api/chat", a.handlePreflight)
	})
}

// Wait blocks until in-flight crisis escalations finish or ctx is done.
func (a *API) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.escalations.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *API) corsHandler() func(http.Handler) http.Handler {
	origins := a.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Trace-Id"},
		MaxAge:         300,
		// let preflights reach handlePreflight so they answer 204
		OptionsPassthrough: true,
	})
}
