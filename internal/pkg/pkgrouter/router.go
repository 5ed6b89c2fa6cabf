package pkgrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgerror"
)

// Handler is the application-style handler used by this router.
//
// It returns a response payload (JSON encoded unless it is a Streamer) or an error.
type Handler func(ctx context.Context, r *http.Request) (any, error)

// Streamer is a response written as-is instead of inside the JSON envelope.
type Streamer interface {
	ContentType() string
	Stream(w io.Writer) error
}

// Router is an http.Handler that wraps httprouter and a middleware chain.
type Router struct {
	hr         *httprouter.Router
	errorCodec func(ctx context.Context, w http.ResponseWriter, err error)
	encoder    func(ctx context.Context, w http.ResponseWriter, resp any)
	mws        []Middleware
}

// NewRouter builds the default application router with standard middleware.
func NewRouter(uuid Generator) *Router {
	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"message": "endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"message": "method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}

	ro := &Router{
		hr:         hr,
		errorCodec: errorCodec,
		encoder:    okCodec,
		mws: []Middleware{
			middlewareRecoverer,
			middlewareCorrelationID(uuid),
			middlewareLogging,
		},
	}

	ro.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"message": "hi from csv-merger"}, http.StatusOK)
	}))

	ro.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"message": "server is running well"}, http.StatusOK)
	}))

	return ro
}

func errorCodec(ctx context.Context, w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		err = pkgerror.NewTooLarge(maxErr.Limit)
	}

	var gerr *pkgerror.Error
	if !errors.As(err, &gerr) {
		slog.ErrorContext(ctx, "unmapped handler error", "error", err)
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	if gerr.Type() == pkgerror.TypeServer {
		slog.ErrorContext(ctx, "server error", "error", gerr.String())
	}

	errResp := errorResponse{Message: gerr.Msg()}
	if detail := gerr.Detail(); detail != "" {
		errResp.Error = map[string]string{"detail": detail}
	}

	writeJSON(w, errResp, gerr.StatusCode())
}

func okCodec(ctx context.Context, w http.ResponseWriter, resp any) {
	code := http.StatusOK
	if sc, ok := resp.(interface {
		StatusCode() int
	}); ok {
		code = sc.StatusCode()
	}

	if code == http.StatusNoContent || resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if s, ok := resp.(Streamer); ok {
		writeStream(ctx, w, s, code)
		return
	}

	msg := "request has been successfully"
	if m, ok := resp.(interface {
		Message() string
	}); ok {
		msg = m.Message()
	}

	var meta map[string]any
	if m, ok := resp.(interface {
		Meta() map[string]any
	}); ok {
		meta = m.Meta()
	}

	writeJSON(w, successReponse{
		Message: msg,
		Data:    resp,
		Meta:    meta,
	}, code)
}

func writeStream(ctx context.Context, w http.ResponseWriter, s Streamer, code int) {
	if h, ok := s.(interface {
		Headers() http.Header
	}); ok {
		for key, values := range h.Headers() {
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}
	}
	w.Header().Set("Content-Type", s.ContentType())
	w.WriteHeader(code)

	// Headers are gone by now; a failure can only be logged.
	if err := s.Stream(w); err != nil {
		slog.ErrorContext(ctx, "server: failed to stream response", "error", err)
	}
}

// Use appends middleware to the existing middleware stack.
func (r *Router) Use(mws ...Middleware) {
	r.mws = append(r.mws, mws...)
}

// GET registers a GET endpoint using the application Handler signature.
func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodGet, path, h, mws...)
}

// POST registers a POST endpoint using the application Handler signature.
func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodPost, path, h, mws...)
}

// PUT registers a PUT endpoint using the application Handler signature.
func (r *Router) PUT(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodPut, path, h, mws...)
}

// DELETE registers a DELETE endpoint using the application Handler signature.
func (r *Router) DELETE(path string, h Handler, mws ...Middleware) {
	r.endpoint(http.MethodDelete, path, h, mws...)
}

// Handle registers a raw http.Handler with the router.
func (r *Router) Handle(method, path string, h http.Handler, mws ...Middleware) {
	r.hr.Handler(method, path, Chain(h, r.chain(mws)...))
}

func (r *Router) endpoint(method, path string, h Handler, mws ...Middleware) {
	r.hr.Handler(method, path, Chain(http.HandlerFunc(func(w http.ResponseWriter, re *http.Request) {
		resp, err := h(re.Context(), re)
		if err != nil {
			r.errorCodec(re.Context(), w, err)
			return
		}
		r.encoder(re.Context(), w, resp)
	}), r.chain(mws)...))
}

// chain returns the router middleware followed by mws without sharing
// the router's backing array between routes.
func (r *Router) chain(mws []Middleware) []Middleware {
	out := make([]Middleware, 0, len(r.mws)+len(mws))
	out = append(out, r.mws...)
	return append(out, mws...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

type errorResponse struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error,omitempty"`
}

type successReponse struct {
	Message string         `json:"message"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		slog.Error("server: failed to encode data to json", "error", err)
	}
}
