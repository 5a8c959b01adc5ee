// Package otel turns request lifecycle events into OpenTelemetry spans:
// http.request, nested graphql.operation, nested graphql.mutation.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	eventbus "github.com/hanpama/mutagraph/internal/eventbus"
	events "github.com/hanpama/mutagraph/internal/events"
	reqid "github.com/hanpama/mutagraph/internal/reqid"
)

const tracerName = "github.com/hanpama/mutagraph"

// Setup exports traces to the OTLP collector at endpoint and attaches the
// span subscribers. An empty endpoint configures nothing.
func Setup(endpoint, service string) (shutdown func(context.Context) error, err error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(service))),
	)
	otel.SetTracerProvider(tp)
	detach := Attach(tp)
	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

type level int

const (
	levelHTTP level = iota
	levelOperation
	levelMutation
)

type spanKey struct {
	rid   string
	level level
}

// tracker holds the open spans of in-flight requests. Mutations of one
// request run serially, so one span per level is enough.
type tracker struct {
	tracer trace.Tracer
	mu     sync.Mutex
	open   map[spanKey]trace.Span
}

func (t *tracker) start(ctx context.Context, l level, name string, attrs ...attribute.KeyValue) {
	rid, _ := reqid.FromContext(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	parent := ctx
	for p := l - 1; p >= levelHTTP; p-- {
		if span, ok := t.open[spanKey{rid, p}]; ok {
			parent = trace.ContextWithSpan(ctx, span)
			break
		}
	}
	_, span := t.tracer.Start(parent, name, trace.WithAttributes(attrs...))
	t.open[spanKey{rid, l}] = span
}

func (t *tracker) finish(ctx context.Context, l level, err error, attrs ...attribute.KeyValue) {
	rid, _ := reqid.FromContext(ctx)
	t.mu.Lock()
	span, ok := t.open[spanKey{rid, l}]
	delete(t.open, spanKey{rid, l})
	t.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Attach subscribes span recording on the process-wide event bus using tp.
func Attach(tp trace.TracerProvider) (detach func()) {
	t := &tracker{tracer: tp.Tracer(tracerName), open: make(map[spanKey]trace.Span)}
	offs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			t.start(ctx, levelHTTP, "http.request",
				attribute.String("request.id", e.RequestID),
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			t.finish(ctx, levelHTTP, nil, semconv.HTTPStatusCodeKey.Int(e.Status))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLStart) {
			t.start(ctx, levelOperation, "graphql.operation",
				attribute.String("request.id", e.RequestID),
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			t.finish(ctx, levelOperation, nil, attribute.Int("graphql.error_count", len(e.Errors)))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.MutationStart) {
			t.start(ctx, levelMutation, "graphql.mutation",
				attribute.String("graphql.mutation.name", e.Mutation),
				attribute.Bool("graphql.mutation.async", e.Async))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.MutationFinish) {
			t.finish(ctx, levelMutation, e.Err,
				attribute.String("graphql.mutation.state", e.State),
				attribute.Int("graphql.mutation.validation_errors", e.ValidationErrors))
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
