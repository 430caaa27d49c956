package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
	"github.com/IgorGrieder/encurtador-live/internal/constants"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/logger"
	"github.com/IgorGrieder/encurtador-live/pkg/httputils"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HandlerFunc is a request handler that may fail. Errors reach the Router,
// which answers 500 with the error message.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

type Middleware func(HandlerFunc) HandlerFunc

// IdentityResolver returns the caller's identity, or nil for anonymous
// requests.
type IdentityResolver interface {
	Resolve(r *http.Request) (*auth.Identity, error)
}

type anonymousResolver struct{}

func (anonymousResolver) Resolve(*http.Request) (*auth.Identity, error) { return nil, nil }

type route struct {
	method   string
	pattern  string
	segments []string
	handler  HandlerFunc
}

// Router matches routes in registration order. Patterns are slash separated
// literals and ":name" segments, e.g. "/links/:id".
type Router struct {
	routes   []route
	resolver IdentityResolver
}

func NewRouter(resolver IdentityResolver) *Router {
	if resolver == nil {
		resolver = anonymousResolver{}
	}
	return &Router{resolver: resolver}
}

// Handle registers h for method and pattern. Middlewares run in the given
// order, after identity resolution.
func (rt *Router) Handle(method, pattern string, h HandlerFunc, middlewares ...Middleware) {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	rt.routes = append(rt.routes, route{
		method:   method,
		pattern:  pattern,
		segments: splitPath(pattern),
		handler:  h,
	})
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := splitPath(r.URL.Path)
	for i := range rt.routes {
		params, ok := rt.routes[i].match(r.Method, path)
		if !ok {
			continue
		}
		rt.dispatch(w, r, &rt.routes[i], params)
		return
	}

	httputils.WriteText(w, r, http.StatusNotFound, constants.MsgNotFound)
}

func (rt *Router) dispatch(rw http.ResponseWriter, r *http.Request, rte *route, params map[string]string) {
	w := &responseTracker{ResponseWriter: rw}
	r.Pattern = rte.method + " " + rte.pattern
	trace.SpanFromContext(r.Context()).SetName(spanName(r.Pattern))
	for name, value := range params {
		r.SetPathValue(name, value)
	}

	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			rt.fail(w, r, fmt.Errorf("panic: %v", rec))
		}
	}()

	identity, err := rt.resolver.Resolve(r)
	if err != nil {
		rt.fail(w, r, err)
		return
	}

	r = r.WithContext(auth.WithIdentity(r.Context(), identity))
	if err := rte.handler(w, r); err != nil {
		rt.fail(w, r, err)
	}
}

// fail answers 500 with err's message. Once the handler has started its
// response the status can no longer change, so the error is only logged.
func (rt *Router) fail(w *responseTracker, r *http.Request, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("pattern", r.Pattern),
	}
	if w.started {
		logger.Error("request failed after response started", fields...)
		return
	}
	logger.Error("request failed", fields...)

	msg := err.Error()
	if msg == "" {
		msg = constants.MsgInternalFallback
	}
	httputils.WriteText(w, r, http.StatusInternalServerError, msg)
}

// responseTracker records whether a final status has been written.
type responseTracker struct {
	http.ResponseWriter
	started bool
}

func (t *responseTracker) WriteHeader(code int) {
	if code >= http.StatusOK {
		t.started = true
	}
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTracker) Write(b []byte) (int, error) {
	t.started = true
	return t.ResponseWriter.Write(b)
}

// FlushError is picked up by http.ResponseController; a flush commits the
// status just like a write.
func (t *responseTracker) FlushError() error {
	t.started = true
	return http.NewResponseController(t.ResponseWriter).Flush()
}

func (t *responseTracker) Flush() {
	_ = t.FlushError()
}

func (t *responseTracker) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

func (rte *route) match(method string, path []string) (map[string]string, bool) {
	if rte.method != method || len(rte.segments) != len(path) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range rte.segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if path[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = path[i]
			continue
		}
		if seg != path[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

// Adapt runs a standard net/http middleware inside the error-returning chain.
func Adapt(mw func(http.Handler) http.Handler) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			var err error
			mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = next(w, r)
			})).ServeHTTP(w, r)
			return err
		}
	}
}

// RequireIdentity answers 401 with the unauthorized view when the request
// carries no identity.
func RequireIdentity(next HandlerFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if _, err := auth.Require(r.Context()); err != nil {
			return renderView(w, http.StatusUnauthorized, viewUnauthorized, nil)
		}
		return next(w, r)
	}
}
