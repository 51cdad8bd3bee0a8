// Package ontologychat wires every component (C1-C14) behind one
// request-scoped entry point: Chat(ctx, Request) -> Response. It is the
// root package the module map names as orchestration; cmd/server is a
// thin demo transport on top of it, not the core itself.
package ontologychat

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nuri428/ontology-chat/internal/config"
	"github.com/nuri428/ontology-chat/internal/coreerr"
	"github.com/nuri428/ontology-chat/internal/domain"
	"github.com/nuri428/ontology-chat/internal/observability"
)

// Router is the narrow contract Engine dispatches through. internal/router.Router
// satisfies it; tests supply a fake so Chat can be exercised without
// standing up the full backend/cache/LM stack.
type Router interface {
	Route(ctx context.Context, q domain.Query) (domain.Report, error)
}

// Request is the request-boundary shape validated before anything else
// runs, per §7's "reject malformed input before it reaches the router".
type Request struct {
	Text      string `validate:"required"`
	UserID    string
	SessionID string
	ForceDeep bool
}

// Response is the §6 primary response envelope, re-exported from
// domain.Report so callers outside internal/ never need to import it.
type Response struct {
	Type         domain.Intent
	Markdown     string
	Sources      []domain.Citation
	GraphSamples []domain.GraphRow
	Meta         map[string]interface{}
}

// Deps is everything Engine needs. Metrics, Tracer, Logger, and Close are
// all optional: a zero-value Deps (besides Router) still yields a working
// Engine with observability and shutdown silently disabled.
type Deps struct {
	Router  Router
	Metrics *observability.Metrics
	Tracer  observability.Tracer
	Logger  *zap.Logger
	// Close releases everything the caller handed Engine ownership of
	// (pooled backend clients, the cache, a redis connection). Typically
	// set to a *config.Runtime's Shutdown method.
	Close func(context.Context) error
}

// Engine is the constructed orchestration surface: one Router plus the
// observability/lifecycle plumbing around it.
type Engine struct {
	router   Router
	metrics  *observability.Metrics
	tracer   observability.Tracer
	log      *zap.Logger
	validate *validator.Validate
	close    func(context.Context) error
}

// New builds an Engine from deps, filling in no-op defaults for every
// optional collaborator that was left nil.
func New(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = observability.NewTracer(false, nil)
	}
	return &Engine{
		router:   deps.Router,
		metrics:  deps.Metrics,
		tracer:   tracer,
		log:      logger,
		validate: validator.New(),
		close:    deps.Close,
	}
}

// NewFromRuntime is the usual construction path: a *config.Runtime already
// built by config.Init carries a Router, Metrics, and Tracer, and its own
// Shutdown becomes Engine's Close.
func NewFromRuntime(rt *config.Runtime, logger *zap.Logger) *Engine {
	return New(Deps{
		Router:  rt.Router,
		Metrics: rt.Metrics,
		Tracer:  rt.Tracer,
		Logger:  logger,
		Close:   rt.Shutdown,
	})
}

// Chat is the engine's one operation: validate, route, observe, return.
func (e *Engine) Chat(ctx context.Context, req Request) (resp Response, err error) {
	if verr := e.validate.Struct(req); verr != nil {
		return Response{}, coreerr.New(coreerr.KindValidation, "ontologychat", verr.Error(), verr)
	}

	start := time.Now()
	if e.metrics != nil {
		e.metrics.IncActiveRequests()
		defer e.metrics.DecActiveRequests()
	}

	ctx, endSpan := e.tracer.StartSpan(ctx, "chat")
	defer func() { endSpan(err) }()

	timing := observability.NewTiming("chat")
	defer timing.Finish()

	q := domain.Query{
		Text:      req.Text,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		ForceDeep: req.ForceDeep,
	}

	doneRoute := timing.Start("route")
	report, routeErr := e.router.Route(ctx, q)
	doneRoute()

	if e.metrics != nil {
		e.metrics.ObserveResponse(time.Since(start))
		for stage, d := range timing.Flatten() {
			e.metrics.ObserveStage(stage, d)
		}
	}

	if routeErr != nil {
		err = routeErr
		if e.metrics != nil {
			e.metrics.RecordQuery(q.Intent, "error")
		}
		e.log.Error("chat request failed",
			zap.String("session_id", req.SessionID),
			zap.Error(routeErr),
		)
		return Response{}, routeErr
	}

	if e.metrics != nil {
		e.metrics.RecordQuery(report.Type, "ok")
	}
	e.log.Info("chat request completed",
		zap.String("session_id", req.SessionID),
		zap.String("intent", string(report.Type)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return Response{
		Type:         report.Type,
		Markdown:     report.Markdown,
		Sources:      report.Sources,
		GraphSamples: report.GraphSamples,
		Meta:         report.Meta,
	}, nil
}

// Close releases whatever Deps.Close was set to and flushes the logger.
// Safe to call on an Engine built without a Close (a no-op then).
func (e *Engine) Close(ctx context.Context) error {
	var err error
	if e.close != nil {
		err = e.close(ctx)
	}
	_ = e.log.Sync()
	return err
}
