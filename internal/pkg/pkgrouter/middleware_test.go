package pkgrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"github.com/FlavienRemy/csv-merger/internal/pkg/pkglog"
)

type staticGenerator struct {
	value string
	calls int
}

func (g *staticGenerator) Generate() string {
	g.calls++
	return g.value
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !reflect.DeepEqual(order, []string{"outer", "inner", "handler"}) {
		t.Fatalf("unexpected order: %#v", order)
	}
}

func TestRouteParams(t *testing.T) {
	router := NewRouter(nil)

	var id, slot, route string
	router.PUT("/workspaces/:id/tables/:slot", func(ctx context.Context, r *http.Request) (any, error) {
		id = GetParam(ctx, "id")
		slot = GetParam(ctx, "slot")
		route = routePath(r)
		return nil, nil
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/workspaces/w-1/tables/primary", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if id != "w-1" || slot != "primary" {
		t.Fatalf("unexpected params id=%q slot=%q", id, slot)
	}
	if route != "/workspaces/:id/tables/:slot" {
		t.Fatalf("unexpected route %q", route)
	}
	if got := GetParam(context.Background(), "id"); got != "" {
		t.Fatalf("expected empty param outside a route, got %q", got)
	}
}

func TestRoutePathFallsBackToURL(t *testing.T) {
	ctx := context.WithValue(context.Background(), httprouter.ParamsKey, httprouter.Params{})
	req := httptest.NewRequest(http.MethodGet, "/raw/path", nil).WithContext(ctx)

	if got := routePath(req); got != "/raw/path" {
		t.Fatalf("expected URL path, got %q", got)
	}
}

func TestNormalizeCID(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"trimmed":       {in: "  abc  ", want: "abc"},
		"empty":         {in: "   ", want: ""},
		"newline":       {in: "abc\ndef", want: ""},
		"non ascii":     {in: "café", want: ""},
		"capped length": {in: strings.Repeat("a", 200), want: strings.Repeat("a", maxCIDLen)},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := normalizeCID(tc.in); got != tc.want {
				t.Fatalf("normalizeCID(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMiddlewareCorrelationID(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		want      string
		generated int
	}{
		{name: "correlation header", headers: map[string]string{HeaderCorrelationID: "header-cid"}, want: "header-cid"},
		{name: "request id fallback", headers: map[string]string{HeaderRequestID: "proxy-id"}, want: "proxy-id"},
		{name: "invalid header", headers: map[string]string{HeaderCorrelationID: "bad\rvalue"}, want: "generated", generated: 1},
		{name: "missing", want: "generated", generated: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &staticGenerator{value: "generated"}

			var gotCID string
			h := middlewareCorrelationID(gen)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotCID = pkglog.GetCorrelationID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get(HeaderCorrelationID); got != tc.want {
				t.Fatalf("response cid = %q, want %q", got, tc.want)
			}
			if gotCID != tc.want {
				t.Fatalf("context cid = %q, want %q", gotCID, tc.want)
			}
			if gen.calls != tc.generated {
				t.Fatalf("generator called %d times, want %d", gen.calls, tc.generated)
			}
		})
	}
}

func TestRecovererAnswers500(t *testing.T) {
	router := NewRouter(nil)
	router.GET("/boom", func(ctx context.Context, r *http.Request) (any, error) {
		panic("merge exploded")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Internal server error" {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	h := middlewareRecoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rvr := recover(); rvr != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler panic, got %v", rvr)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestInternalFrames(t *testing.T) {
	stack := []byte("goroutine 1 [running]:\n" +
		"main.main()\n" +
		"\t/usr/local/go/src/runtime/proc.go:250 +0x1c\n" +
		"github.com/FlavienRemy/csv-merger/internal/merger/usecase.(*Usecase).Merge(...)\n" +
		"\t/src/csv-merger/internal/merger/usecase/usecase.go:240 +0x2a\n")

	want := []string{"internal/merger/usecase/usecase.go:240"}
	if got := internalFrames(stack); !reflect.DeepEqual(got, want) {
		t.Fatalf("internalFrames() = %#v, want %#v", got, want)
	}
}
