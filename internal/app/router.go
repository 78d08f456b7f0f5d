package app

import (
	"database/sql"
	"net/http"
	"time"

	"examdesk/internal/app/observability"
	"examdesk/internal/auth"
	"examdesk/internal/proxy"
	"examdesk/internal/quiz"
	"examdesk/internal/report"
	"examdesk/internal/upstream"
	"examdesk/internal/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps carries the long-lived resources the router wires together. Every
// field is optional.
type Deps struct {
	DB            *sql.DB
	Snapshots     workspace.SnapshotStore
	Collector     *observability.Collector
	Workspaces    *workspace.Manager
	UpstreamHTTPC *http.Client
}

func NewRouter(cfg Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	collector := deps.Collector
	if collector == nil {
		collector = observability.NewCollector()
	}
	r.Use(collector.Middleware)
	r.Use(auth.Middleware)

	api := upstream.NewClient(upstream.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.UpstreamTimeout,
		HTTPClient: deps.UpstreamHTTPC,
		Observer:   collector,
	})

	manager := deps.Workspaces
	if manager == nil {
		manager = workspace.NewManager(workspace.ManagerConfig{
			TTL:     cfg.WorkspaceTTL,
			Store:   deps.Snapshots,
			OnCount: collector.SetWorkspaces,
		})
	}

	wsCfg := workspace.HandlerConfig{Upstream: api}
	if deps.DB != nil {
		wsCfg.Archive = quiz.NewResultStore(deps.DB)
	}
	wsHandler := workspace.NewHandler(manager, wsCfg)
	reportHandler := report.NewHandler(report.NewService(deps.DB))

	authHandler := auth.NewHandler(api, auth.HandlerConfig{
		CookieSecure: cfg.CookieSecure,
		CookieMaxAge: cfg.CookieMaxAge,
		Closer:       manager,
	})
	proxyHandler := proxy.NewHandler(api, nil)
	identity := auth.NewIdentityVerifier(api, cfg.IdentityTTL)
	loginLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Method(http.MethodGet, "/metrics", collector.MetricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(CSRFMiddleware(cfg.CSRFEnforced))

		r.Route("/apis", func(apis chi.Router) {
			apis.With(RateLimitMiddleware(loginLimiter)).Post("/login", authHandler.Login)
			apis.Post("/logout", authHandler.Logout)
			apis.Get("/profile/{id}", authHandler.Profile)
			apis.Get("/session", authHandler.SessionInfo)
			apis.Get("/session/access", authHandler.CanAccess)
			proxyHandler.Mount(apis)
		})

		r.Route("/api/workspace", func(ws chi.Router) {
			ws.Use(auth.RequireSession, identity.Middleware)
			wsHandler.Mount(ws)
			ws.Get("/quiz/summary", reportHandler.Summary)
		})
	})

	return r
}
