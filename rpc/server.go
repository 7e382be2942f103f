package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dipindex/native/index"
	"dipindex/observability/metrics"
	dipotel "dipindex/observability/otel"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress     string
	ServiceName       string
	RateLimit         RateLimit
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server exposes the index engine over HTTP.
type Server struct {
	cfg     Config
	engine  *index.Engine
	logger  *slog.Logger
	metrics *metrics.IndexMetrics
	limiter *RateLimiter
	tracer  trace.Tracer
	handler http.Handler
}

// New constructs a server. A nil logger falls back to slog.Default and a nil
// metrics set disables HTTP metrics.
func New(cfg Config, engine *index.Engine, logger *slog.Logger, m *metrics.IndexMetrics) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("index engine required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "dipd"
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		engine:  engine,
		logger:  logger.With("component", "rpc"),
		metrics: m,
		limiter: NewRateLimiter(cfg.RateLimit),
		tracer:  dipotel.Tracer(),
	}
	s.handler = otelhttp.NewHandler(s.routes(), cfg.ServiceName)
	return s, nil
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.logger, s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(s.limiter.Middleware).Post("/rpc", s.handleJSONRPC)

	r.Route("/v1", func(v chi.Router) {
		v.With(s.limiter.Middleware).Post("/requests", s.handleSubmit)
		v.Get("/forests/{id}", s.handleQuery("forest"))
		v.Get("/trees/{id}", s.handleQuery("tree"))
		v.Get("/nodes/{id}", s.handleQuery("node"))
		v.Get("/nodes/{id}/children", s.handleQuery("children"))
		v.Get("/notes/{id}", s.handleQuery("note"))
		v.Get("/stakes/{id}", s.handleQuery("stake"))
		v.Get("/bribes/{id}", s.handleQuery("bribe"))
		v.Get("/accounts/{id}", s.handleQuery("account"))
		v.Get("/balances/{id}", s.handleQuery("account"))
		v.Get("/derive/{kind}", s.handleDerive)
	})
	return r
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc listening", "address", s.cfg.ListenAddress)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// submit verifies and dispatches a raw request payload.
func (s *Server) submit(ctx context.Context, payload []byte, signature string) (*index.Result, error) {
	if len(payload) == 0 {
		return nil, errBodyRequired
	}
	var req index.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrInvalidRequest, err)
	}
	if err := verifySignature(payload, signature, req.Signer); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, span := s.tracer.Start(ctx, "index."+req.Handler, trace.WithAttributes(
		attribute.String("index.handler", req.Handler),
		attribute.String("index.signer", req.Signer),
	))
	defer span.End()
	res, err := s.engine.Dispatch(req)
	span.SetAttributes(attribute.String("index.code", index.Code(err)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("index.request_id", res.RequestID))
	return res, nil
}

// query loads a record by kind for read endpoints.
func (s *Server) query(kind, rawID string) (any, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "forest":
		f, err := s.engine.Forest(id)
		if err != nil {
			return nil, err
		}
		return newForestView(f), nil
	case "tree":
		t, err := s.engine.Tree(id)
		if err != nil {
			return nil, err
		}
		return newTreeView(t), nil
	case "node":
		n, err := s.engine.Node(id)
		if err != nil {
			return nil, err
		}
		return newNodeView(n), nil
	case "children":
		children, err := s.engine.Children(id)
		if err != nil {
			return nil, err
		}
		out := make([]NodeView, len(children))
		for i, child := range children {
			out[i] = newNodeView(child)
		}
		return out, nil
	case "note":
		n, err := s.engine.Note(id)
		if err != nil {
			return nil, err
		}
		return newNoteView(n), nil
	case "stake":
		st, err := s.engine.Stake(id)
		if err != nil {
			return nil, err
		}
		return newStakeView(st), nil
	case "bribe":
		b, err := s.engine.Bribe(id)
		if err != nil {
			return nil, err
		}
		return newBribeView(b), nil
	case "account":
		a, err := s.engine.Account(id)
		if err != nil {
			return nil, err
		}
		return newAccountView(a), nil
	default:
		return nil, fmt.Errorf("%w: unknown record kind %q", index.ErrInvalidRequest, kind)
	}
}
