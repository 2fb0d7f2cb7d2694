package http

import (
	"net/http"

	"foodguide/internal/auth"
	"foodguide/internal/config"
	"foodguide/internal/http/handler"
	mw "foodguide/internal/http/middleware"
	"foodguide/internal/metrics"
	"foodguide/internal/orchestrator"
	"foodguide/internal/session"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Deps struct {
	Config   config.Config
	Orch     *orchestrator.Orchestrator
	Sessions *session.Registry
	JWT      *auth.JWT
	Geo      handler.CityResolver
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(log))
	r.Use(chimw.Recoverer)
	if d.Metrics != nil {
		r.Use(mw.Metrics(d.Metrics))
	}

	if len(d.Config.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(d.Config.CORSAllowedOrigins, d.Config.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	sh := &handler.SessionHandler{
		Registry: d.Sessions,
		Orch:     d.Orch,
		JWT:      d.JWT,
		Metrics:  d.Metrics,
		Log:      log,
	}
	r.With(auth.OptionalAuth(d.JWT)).Post("/sessions", sh.Create)
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", sh.Get)
		r.Delete("/", sh.Delete)
		r.Get("/ws", sh.Stream(handler.NewUpgrader(d.Config.CORSAllowedOrigins)))

		r.With(auth.RequireAuth(d.JWT)).Put("/identity", sh.SignIn)
		r.Delete("/identity", sh.SignOut)
		r.Put("/view", sh.Navigate)

		r.Post("/search", sh.Search)
		r.Post("/find-more", sh.FindMore)
		r.Put("/guide/{id}", sh.LoadGuide)
		r.Post("/new", sh.NewGuide)

		r.With(auth.RequireAuth(d.JWT)).Post("/like", sh.ToggleLike)
		r.Get("/comments", sh.Comments)
		r.With(auth.RequireAuth(d.JWT)).Post("/comments", sh.PostComment)
		r.Get("/share", sh.Share)
	})

	gh := &handler.GuideHandler{Orch: d.Orch}
	r.Route("/guides", func(r chi.Router) {
		r.Get("/", gh.List)
		r.Get("/{id}", gh.Get)
		r.Get("/{id}/comments", gh.Comments)
	})

	lh := &handler.LibraryHandler{Orch: d.Orch}
	r.Route("/library", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Get("/", lh.List)
		r.Post("/{id}", lh.Add)
		r.Delete("/{id}", lh.Remove)
	})

	if d.Geo != nil {
		loc := &handler.LocationHandler{Geo: d.Geo}
		r.Get("/geocode/reverse", loc.Reverse)
	}

	return otelhttp.NewHandler(r, "foodguide")
}
