package http

import (
	"net/http"
	"strings"
	"time"

	"accountd/internal/netutil"
	obsmw "accountd/internal/observability/middleware"
	"accountd/internal/service"
	"accountd/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Auth      service.AuthService
	TwoFactor service.TwoFactorService
	OAuth     service.OAuthService
	Tokens    service.TokenService
	Users     *store.Store
	Passwords service.PasswordService

	FrontendURL string
	Environment string

	// Requests per minute. Global applies per IP across the whole surface;
	// Strict guards the credential and code endpoints.
	GlobalRPM int
	StrictRPM int
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// XFF can be a list: client, proxy1, proxy2...
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if normalized, ok := netutil.NormalizeIP(ip); ok {
			return normalized
		}
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		if normalized, ok := netutil.NormalizeIP(xr); ok {
			return normalized
		}
	}
	if normalized, ok := netutil.NormalizeIP(r.RemoteAddr); ok {
		return normalized
	}
	return r.RemoteAddr
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.GlobalRPM <= 0 {
		cfg.GlobalRPM = 100
	}
	if cfg.StrictRPM <= 0 {
		cfg.StrictRPM = 10
	}

	gate := &SessionGate{Tokens: cfg.Tokens}
	authH := &AuthHandler{
		Auth:        cfg.Auth,
		OAuth:       cfg.OAuth,
		FrontendURL: cfg.FrontendURL,
		Environment: cfg.Environment,
	}
	twoFactorH := &TwoFactorHandler{TwoFactor: cfg.TwoFactor, Environment: cfg.Environment}
	userH := &UserHandler{Users: cfg.Users, Passwords: cfg.Passwords}

	// Authenticated callers share a bucket per account; everyone else is
	// keyed by source IP.
	strictLimit := httprate.Limit(cfg.StrictRPM, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
				if s, err := cfg.Tokens.Verify(cookie.Value); err == nil {
					return "user:" + s.UserID.String(), nil
				}
			}
			return "ip:" + clientIP(r), nil
		}),
	)

	r := chi.NewRouter()
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(httprate.LimitByIP(cfg.GlobalRPM, time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(strictLimit)
			r.Post("/register", authH.register)
			r.Post("/login", authH.login)
			r.Post("/forgot-password", authH.forgotPassword)
			r.Post("/reset-password", authH.resetPassword)
		})
		r.Group(func(r chi.Router) {
			r.Use(strictLimit)
			r.Use(gate.RequirePartialSession)
			r.Post("/login/verify", authH.verifyLogin)
		})
		r.Post("/logout", authH.logout)
		r.Get("/github", authH.githubRedirect)
		r.Get("/github/callback", authH.githubCallback)
	})

	r.Route("/2fa", func(r chi.Router) {
		r.Use(strictLimit)
		r.Use(gate.RequireSession)
		r.Post("/setup", twoFactorH.setup)
		r.Delete("/setup", twoFactorH.teardown)
		r.Post("/confirm", twoFactorH.confirm)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(gate.RequireSession)
		r.Get("/me", userH.me)
		r.Patch("/me", userH.updateMe)
		r.Delete("/me", userH.deleteMe)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole("admin"))
			r.Get("/", userH.list)
			r.Get("/{id}", userH.get)
			r.Patch("/{id}", userH.update)
			r.Delete("/{id}", userH.delete)
		})
	})

	return r
}
