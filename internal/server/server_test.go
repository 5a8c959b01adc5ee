package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	di "github.com/hanpama/mutagraph/internal/di"
	eventbus "github.com/hanpama/mutagraph/internal/eventbus"
	events "github.com/hanpama/mutagraph/internal/events"
	executor "github.com/hanpama/mutagraph/internal/executor"
	reqid "github.com/hanpama/mutagraph/internal/reqid"
	schema "github.com/hanpama/mutagraph/internal/schema"
)

const testSDL = `type Query { hello: String } type Mutation { touch: String }`

func newTestHandler(t *testing.T, rt executor.Runtime, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	h, err := New(rt, sch, opts...)
	require.NoError(t, err)
	return h
}

// serve sends one request; headers alternate name and value.
func serve(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// helloRuntime answers Query.hello and hands the resolver context to seen.
func helloRuntime(seen func(ctx context.Context)) *executor.MockRuntime {
	rt := executor.NewMockRuntime(nil)
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		if seen != nil {
			seen(ctx)
		}
		return "world", nil
	})
	return rt
}

func decode(t *testing.T, w *httptest.ResponseRecorder) any {
	t.Helper()
	var out any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const helloBody = `{"query":"{ hello }"}`

func TestExecute(t *testing.T) {
	h := newTestHandler(t, helloRuntime(nil))

	w := serve(h, http.MethodPost, "/", helloBody, "Content-Type", "application/json; charset=utf-8")
	require.Equal(t, http.StatusOK, w.Code)
	want := map[string]any{"data": map[string]any{"hello": "world"}}
	if diff := cmp.Diff(want, decode(t, w)); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}

	w = serve(h, http.MethodGet, "/?query=%7Bhello%7D", "")
	require.Equal(t, http.StatusOK, w.Code)
	if diff := cmp.Diff(want, decode(t, w)); diff != "" {
		t.Errorf("GET response mismatch (-want +got):\n%s", diff)
	}
}

func TestBatch(t *testing.T) {
	h := newTestHandler(t, helloRuntime(nil))

	want := []any{
		map[string]any{"data": map[string]any{"hello": "world"}},
		map[string]any{"data": map[string]any{"a": "world"}},
	}
	for _, body := range []string{
		`[{"query":"{ hello }"},{"query":"{ a: hello }"}]`,
		"\n\t [{\"query\":\"{ hello }\"},{\"query\":\"{ a: hello }\"}]",
	} {
		w := serve(h, http.MethodPost, "/", body)
		require.Equal(t, http.StatusOK, w.Code)
		if diff := cmp.Diff(want, decode(t, w)); diff != "" {
			t.Errorf("batch mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRequestErrors(t *testing.T) {
	cases := []struct {
		name    string
		method  string
		target  string
		body    string
		headers []string
		opts    []Option
		status  int
		message string
	}{
		{name: "method", method: http.MethodPut, body: helloBody, status: http.StatusMethodNotAllowed, message: "method not allowed"},
		{name: "content type", method: http.MethodPost, body: helloBody, headers: []string{"Content-Type", "text/plain"}, status: http.StatusBadRequest, message: "unsupported Content-Type"},
		{name: "invalid json", method: http.MethodPost, body: `{"query":`, status: http.StatusBadRequest, message: "invalid JSON"},
		{name: "missing query", method: http.MethodPost, body: `{}`, status: http.StatusBadRequest, message: "missing 'query'"},
		{name: "empty batch", method: http.MethodPost, body: `[]`, status: http.StatusBadRequest, message: "empty batch"},
		{name: "GET variables", method: http.MethodGet, target: "/?query=%7Bhello%7D&variables=%7B", status: http.StatusBadRequest, message: "invalid 'variables' JSON"},
		{name: "body too large", method: http.MethodPost, body: `{"query":"1234567890"}`, opts: []Option{WithMaxBodyBytes(10)}, status: http.StatusRequestEntityTooLarge, message: "body too large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, helloRuntime(nil), tc.opts...)
			target := tc.target
			if target == "" {
				target = "/"
			}
			w := serve(h, tc.method, target, tc.body, tc.headers...)
			require.Equal(t, tc.status, w.Code)
			want := map[string]any{"data": nil, "errors": []any{map[string]any{"message": tc.message}}}
			if diff := cmp.Diff(want, decode(t, w)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrorLocations(t *testing.T) {
	h := newTestHandler(t, helloRuntime(nil))

	w := serve(h, http.MethodPost, "/", `{"query":"{ hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w).(map[string]any)
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	require.NotEmpty(t, errs[0].(map[string]any)["locations"])
}

func TestMetadataHeaders(t *testing.T) {
	var captured metadata.MD
	rt := helloRuntime(func(ctx context.Context) { captured, _ = metadata.FromIncomingContext(ctx) })

	h := newTestHandler(t, rt, WithMetadataHeaders("X-Test"))
	w := serve(h, http.MethodPost, "/", helloBody, "X-Test", "abc", "X-Other", "nope")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"abc"}, captured.Get("x-test"))
	require.Empty(t, captured.Get("x-other"))

	captured = nil
	h = newTestHandler(t, rt)
	serve(h, http.MethodPost, "/", helloBody, "X-Test", "abc")
	require.Empty(t, captured.Get("x-test"), "headers are not forwarded unless listed")
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t, helloRuntime(nil), WithCORS("http://example.com"))

	w := serve(h, http.MethodPost, "/", helloBody, "Origin", "http://example.com")
	require.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(h, http.MethodPost, "/", helloBody, "Origin", "http://evil.example")
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	h = newTestHandler(t, helloRuntime(nil), WithCORS("*"))
	w = serve(h, http.MethodOptions, "/", "",
		"Origin", "http://example.com",
		"Access-Control-Request-Headers", "X-Test")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestRequestID(t *testing.T) {
	var md metadata.MD
	var id string
	rt := helloRuntime(func(ctx context.Context) {
		md, _ = metadata.FromIncomingContext(ctx)
		id, _ = reqid.FromContext(ctx)
	})
	h := newTestHandler(t, rt)

	w := serve(h, http.MethodPost, "/", helloBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, id)
	require.Equal(t, []string{id}, md.Get("graphql-request-id"))
	require.Equal(t, id, w.Header().Get(reqid.Header))

	const given = "0f8fad5b-d9cb-469f-a165-70867728950e"
	serve(h, http.MethodGet, "/?query=%7Bhello%7D", "", reqid.Header, given)
	require.Equal(t, given, id)
}

func TestEventsCarryRequestID(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	var seen []string
	eventbus.Subscribe(func(_ context.Context, e events.HTTPStart) { seen = append(seen, e.RequestID) })
	eventbus.Subscribe(func(_ context.Context, e events.GraphQLStart) { seen = append(seen, e.RequestID) })
	eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) { seen = append(seen, e.RequestID) })
	eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) { seen = append(seen, e.RequestID) })
	h := newTestHandler(t, helloRuntime(nil))

	w := serve(h, http.MethodPost, "/", `[{"query":"{ hello }"},{"query":"{ a: hello }"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	rid := w.Header().Get(reqid.Header)
	require.NotEmpty(t, rid)
	require.Equal(t, []string{rid, rid, rid, rid, rid, rid}, seen)
}

func TestRootAndRequestValues(t *testing.T) {
	type tenant struct{ name string }
	root := &tenant{name: "acme"}

	var gotRoot any
	var gotMD metadata.MD
	rt := executor.NewMockRuntime(nil)
	rt.SetResolver("Mutation", "touch", func(ctx context.Context, src any, args map[string]any) (any, error) {
		gotRoot = src
		md, err := di.ResolveAs[metadata.MD](di.ValuesFromContext(ctx))
		if err != nil {
			return nil, err
		}
		gotMD = md
		return "ok", nil
	})
	h := newTestHandler(t, rt,
		WithRoot(func(*http.Request) any { return root }),
		WithMetadataHeaders("X-Tenant"))

	w := serve(h, http.MethodPost, "/", `{"query":"mutation { touch }"}`, "X-Tenant", "acme")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Same(t, root, gotRoot)
	require.Equal(t, []string{"acme"}, gotMD.Get("x-tenant"))
}

func TestMutationOverGETRefused(t *testing.T) {
	calls := 0
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Mutation.touch": func(ctx context.Context, src any, args map[string]any) (any, error) {
			calls++
			return "ok", nil
		},
	})
	h := newTestHandler(t, rt)

	w := serve(h, http.MethodGet, "/?query=mutation%7Btouch%7D", "")
	require.Zero(t, calls)
	require.Contains(t, w.Body.String(), "mutations are not allowed over GET")
}

func TestGraphiQL(t *testing.T) {
	h := newTestHandler(t, executor.NewMockRuntime(nil))
	w := serve(h, http.MethodGet, "/", "", "Accept", "text/html")
	require.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))

	h = newTestHandler(t, executor.NewMockRuntime(nil), WithGraphiQL(false))
	w = serve(h, http.MethodGet, "/", "", "Accept", "text/html")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
