package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"veobatch/internal/http/handlers"
	"veobatch/internal/middleware"
)

type RouterOptions struct {
	Logger             zerolog.Logger
	CORSAllowedOrigins []string
	RateLimitPerMin    int
	// StaticDir is served under /static when set.
	StaticDir string
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		middleware.Logger(opts.Logger),
		chimiddleware.Recoverer,
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Get("/v1/state", app.State)
		r.Get("/v1/events", app.Events)
		r.Put("/v1/input", app.InputPut)

		r.Route("/v1/jobs", func(r chi.Router) {
			r.Post("/", app.JobsStart)
			r.Post("/stop", app.JobsStop)
			r.Get("/archive", app.JobsArchive)
			r.Get("/{id}", app.JobGet)
		})

		r.Get("/v1/settings", app.SettingsGet)
		r.Patch("/v1/settings", app.SettingsPatch)

		r.Post("/v1/prompts/ideas", app.PromptIdeas)
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Handle("/static/*", fs)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
	})
	return c.Handler(r)
}
