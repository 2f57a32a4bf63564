package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nft-voting-api/internal/config"
	"github.com/nft-voting-api/internal/domain"
	"github.com/nft-voting-api/internal/transport/http/handler"
	appmiddleware "github.com/nft-voting-api/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Router is the application handler. Close stops background work owned by
// the middleware.
type Router struct {
	http.Handler
	limiter *appmiddleware.RateLimiter
}

func (r *Router) Close() { r.limiter.Stop() }

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) *Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLog(deps.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	authRL := appmiddleware.NewRateLimiter(
		rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst,
		appmiddleware.TrustProxyHeaders(cfg.TrustProxyHeaders),
	)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.Auth, deps.Users)
	nftH := handler.NewNFTHandler(deps.Users, deps.Eligibility, deps.Voting)
	votingH := handler.NewVotingHandler(deps.Users, deps.Eligibility, deps.Voting, deps.Metrics)
	adminH := handler.NewAdminHandler(deps.Voting, nil)

	// ── Public routes (no auth) ──────────────────────────────────────────
	r.Get("/health", healthH.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/voting/results", votingH.Results)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authRL.Limit)
			r.Post("/send-code", authH.SendCode)
			r.Post("/verify-code", authH.VerifyCode)
			r.Post("/wallet-connect", authH.WalletConnect)
		})
		r.With(authMw).Get("/verify", authH.Verify)
	})

	// ── Authenticated routes ─────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(authMw)

		r.Post("/nft/check-eligibility", nftH.CheckEligibility)
		r.Post("/voting/cast-vote", votingH.CastVote)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

			r.Get("/admin/stats", adminH.Stats)
			r.Get("/admin/export", adminH.Export)
		})
	})

	return &Router{Handler: r, limiter: authRL}
}
