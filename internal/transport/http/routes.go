package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
	"github.com/IgorGrieder/encurtador-live/internal/config"
	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/encurtador-live/internal/processing/links"
	"github.com/IgorGrieder/encurtador-live/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /oauth/signin":   "auth.signin",
	"GET /oauth/signout":  "auth.signout",
	"GET /oauth/callback": "auth.callback",
	"GET /":               "home",
	"GET /health-check":   "health",
	"GET /metrics":        "metrics",
	"GET /links":          "links.list",
	"POST /links":         "links.create",
	"GET /links/:id":      "links.detail",
	"GET /realtime/:id":   "links.realtime",
	"GET /:id":            "links.redirect",
}

func spanName(pattern string) string {
	if name, ok := spanNames[pattern]; ok {
		return name
	}
	return pattern
}

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Config   *config.Config
	Links    *links.Service
	OAuth    *auth.GitHubOAuth
	Resolver IdentityResolver
	Limiter  middleware.Limiter
	// Shutdown ends open live feeds when done, letting the server drain.
	Shutdown context.Context
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

func NewHandler(deps Dependencies) http.Handler {
	return NewHandlerWithOptions(deps, DefaultRouterOptions())
}

func NewHandlerWithOptions(deps Dependencies, opts RouterOptions) http.Handler {
	cfg := deps.Config
	router := NewRouter(deps.Resolver)

	healthHandler := NewHealthHandler()
	authHandler := NewAuthHandler(deps.OAuth, cfg.Session.CookieSecure)
	linksHandler := NewLinksHandler(deps.Links, cfg.Shortener.RedirectStatus)
	realtimeHandler := NewRealtimeHandler(deps.Links, deps.Shutdown)

	router.Handle(http.MethodGet, "/oauth/signin", authHandler.SignIn)
	router.Handle(http.MethodGet, "/oauth/signout", authHandler.SignOut)
	router.Handle(http.MethodGet, "/oauth/callback", authHandler.Callback)

	router.Handle(http.MethodGet, "/", authHandler.Home)
	router.Handle(http.MethodGet, "/health-check", healthHandler.Health)
	router.Handle(http.MethodGet, "/metrics", healthHandler.Metrics)

	createMiddlewares := []Middleware{RequireIdentity}
	if deps.Limiter != nil {
		createMiddlewares = append(createMiddlewares, Adapt(middleware.RateLimitMiddleware(deps.Limiter)))
	}

	router.Handle(http.MethodGet, "/links", linksHandler.List, RequireIdentity)
	router.Handle(http.MethodPost, "/links", linksHandler.Create, createMiddlewares...)
	router.Handle(http.MethodGet, "/links/:id", linksHandler.Detail, RequireIdentity)
	router.Handle(http.MethodGet, "/realtime/:id", realtimeHandler.Stream, RequireIdentity)

	// Catch-all for short codes, registered last so fixed paths win.
	router.Handle(http.MethodGet, "/:id", linksHandler.Redirect)

	var inner []func(http.Handler) http.Handler
	if opts.EnableMetrics {
		inner = append(inner, middleware.MetricsMiddleware)
	}
	if opts.EnableLogging {
		inner = append(inner, middleware.LoggingMiddleware)
	}
	if opts.EnableCORS {
		inner = append(inner, middleware.CORSMiddleware(cfg.Server.CORSOrigins))
	}
	innerHandler := middleware.Chain(router, inner...)

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return r.Method + " " + path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
