package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"accountd/internal/config"
	"accountd/internal/domain"
	"accountd/internal/mailer"
	"accountd/internal/observability/logging"
	"accountd/internal/observability/metrics"
	"accountd/internal/service/impl"
	"accountd/internal/store"
	httpx "accountd/internal/transport/http"
	"accountd/pkg/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "accountd",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)

	logger.Info("starting service")

	cfg := config.Load()
	metrics.MustRegister()

	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}

	if cfg.AutoMigrate {
		if err := gdb.AutoMigrate(
			&domain.User{},
			&domain.PasswordCredential{},
			&domain.TwoFactorConfig{},
			&domain.TwoFactorCode{},
			&domain.PasswordResetToken{},
		); err != nil {
			logger.Error("auto migrate", "error", err)
			os.Exit(1)
		}
	}

	st := store.New(gdb)

	mail := mailer.New(mailer.Config{
		Host:        cfg.EmailHost,
		Port:        cfg.EmailPort,
		Username:    cfg.EmailUsername,
		Password:    cfg.EmailPassword,
		From:        cfg.EmailFrom,
		FrontendURL: cfg.FrontendURL,
	}, logger)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := mail.TestConnection(ctx); err != nil {
			logger.Warn("smtp connection check failed", "error", err)
		} else {
			logger.Info("smtp connection verified", "host", cfg.EmailHost)
		}
		cancel()
	}

	pw := impl.NewPasswordServiceArgon2id()

	ts := impl.NewTokenServiceHS256(impl.TokenConfig{
		Issuer:     cfg.Issuer,
		TTL:        cfg.TokenTTL,
		SigningKey: []byte(cfg.SigningKey),
	})

	tf := impl.NewTwoFactorService(st, pw, mail, impl.TwoFactorConfig{
		Issuer:  cfg.Issuer,
		CodeTTL: cfg.TwoFactorCodeTTL,
	}, logger)

	as := impl.NewAuthService(st, pw, ts, tf, mail, impl.AuthConfig{
		ResetTokenTTL: cfg.ResetTokenTTL,
	}, logger)

	gh := impl.NewGithubService(st, impl.GithubConfig{
		ClientID:     cfg.GithubClientID,
		ClientSecret: cfg.GithubClientSecret,
		RedirectURL:  cfg.GithubRedirectURL,
	}, logger)

	handler := httpx.NewRouter(httpx.RouterConfig{
		Auth:        as,
		TwoFactor:   tf,
		OAuth:       gh,
		Tokens:      ts,
		Users:       st,
		Passwords:   pw,
		FrontendURL: cfg.FrontendURL,
		Environment: cfg.Environment,
		GlobalRPM:   cfg.GlobalRPM,
		StrictRPM:   cfg.StrictRPM,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("listening", "addr", srv.Addr, "issuer", cfg.Issuer)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
