// Package server exposes an executor over GraphQL-over-HTTP.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"

	di "github.com/hanpama/mutagraph/internal/di"
	eventbus "github.com/hanpama/mutagraph/internal/eventbus"
	events "github.com/hanpama/mutagraph/internal/events"
	executor "github.com/hanpama/mutagraph/internal/executor"
	reqid "github.com/hanpama/mutagraph/internal/reqid"
	schema "github.com/hanpama/mutagraph/internal/schema"
)

// RootFunc returns the root value a request is executed against.
type RootFunc func(*http.Request) any

type Options struct {
	// Timeout applies when the request context has no deadline. Zero
	// disables it.
	Timeout time.Duration
	Pretty  bool
	// MaxBodyBytes caps POST bodies; zero is unlimited.
	MaxBodyBytes int64
	// AllowedOrigins enables CORS; "*" allows any origin.
	AllowedOrigins []string
	// MetadataHeaders are copied, lower-cased, into the metadata.MD handed
	// to resolvers as incoming gRPC metadata and as a request value.
	MetadataHeaders []string
	GraphiQL        bool
	Root            RootFunc
	Logger          *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithGraphiQL(enable bool) Option    { return func(o *Options) { o.GraphiQL = enable } }
func WithRoot(fn RootFunc) Option        { return func(o *Options) { o.Root = fn } }
func WithLogger(l *zap.Logger) Option    { return func(o *Options) { o.Logger = l } }

func WithCORS(origins ...string) Option {
	return func(o *Options) { o.AllowedOrigins = origins }
}

func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}

// Handler serves one schema over HTTP.
type Handler struct {
	exec *executor.Executor
	opt  Options
}

func New(runtime executor.Runtime, schema *schema.Schema, opts ...Option) (*Handler, error) {
	o := Options{Timeout: 10 * time.Second, GraphiQL: true, Logger: zap.NewNop()}
	for _, f := range opts {
		f(&o)
	}
	return &Handler{exec: executor.NewExecutor(runtime, schema), opt: o}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)

	rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{RequestID: rid, Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{RequestID: rid, Request: r, Status: rw.status, Duration: time.Since(start)})
	}()

	h.cors(rw, r)
	switch {
	case r.Method == http.MethodOptions:
		rw.WriteHeader(http.StatusNoContent)
		return
	case r.Method != http.MethodGet && r.Method != http.MethodPost:
		h.writeJSON(rw, http.StatusMethodNotAllowed, failure("method not allowed"))
		return
	case r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && !r.URL.Query().Has("query"):
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = rw.Write(graphiqlPage)
		return
	}

	md := h.metadata(r, rid)
	ctx = di.WithValues(metadata.NewIncomingContext(ctx, md), md)

	reqs, batched, err := parseRequest(r, h.opt.MaxBodyBytes)
	if err != nil {
		h.opt.Logger.Debug("invalid graphql request", zap.String("request_id", rid), zap.Error(err))
		h.writeJSON(rw, err.status, failure(err.message))
		return
	}

	var root any
	if h.opt.Root != nil {
		root = h.opt.Root(r)
	}
	readOnly := r.Method == http.MethodGet
	results := make([]response, len(reqs))
	for i, req := range reqs {
		results[i] = h.execute(ctx, req, root, readOnly)
	}
	if batched {
		h.writeJSON(rw, http.StatusOK, results)
		return
	}
	h.writeJSON(rw, http.StatusOK, results[0])
}

// metadata collects the forwarded headers and the request id.
func (h *Handler) metadata(r *http.Request, rid string) metadata.MD {
	md := metadata.MD{}
	for _, name := range h.opt.MetadataHeaders {
		if v := r.Header.Values(name); len(v) > 0 {
			md[strings.ToLower(name)] = v
		}
	}
	md["graphql-request-id"] = []string{rid}
	return md
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
