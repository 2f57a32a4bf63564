package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nft-voting-api/internal/application/auth"
	"github.com/nft-voting-api/internal/application/eligibility"
	"github.com/nft-voting-api/internal/application/user"
	"github.com/nft-voting-api/internal/application/voting"
	"github.com/nft-voting-api/internal/config"
	jwtinfra "github.com/nft-voting-api/internal/infrastructure/jwt"
	"github.com/nft-voting-api/internal/infrastructure/oracle"
	s3infra "github.com/nft-voting-api/internal/infrastructure/s3"
	"github.com/nft-voting-api/internal/infrastructure/smtp"
	"github.com/nft-voting-api/internal/infrastructure/sns"
	"github.com/nft-voting-api/internal/pkg/logger"
	"github.com/nft-voting-api/internal/pkg/metrics"
	transporthttp "github.com/nft-voting-api/internal/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.AppEnv)
	slog.SetDefault(log)
	if envErr != nil {
		slog.Debug("no .env file found, reading from environment")
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	if cfg.UsesFallbackSecret() {
		if cfg.IsProduction() {
			slog.Error("JWT_SECRET not set; signing tokens with the built-in fallback secret")
		} else {
			slog.Warn("JWT_SECRET not set; signing tokens with the built-in fallback secret")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer st.Close()

	var mailer smtp.Mailer
	switch cfg.Mailer {
	case "smtp":
		mailer = smtp.NewMailer(cfg)
	default:
		mailer = smtp.NewLogMailer(slog.Default())
	}

	jwtProvider := jwtinfra.NewProvider(cfg.JWTSecret, cfg.JWTExpiry)

	votingDeps := voting.ServiceDeps{
		VoteRepo: st.votes,
		UserRepo: st.users,
		Options:  cfg.VotingOptions,
		Metrics:  m,
	}
	if cfg.VoteEventsTopicARN != "" {
		client, err := sns.NewClient(ctx, cfg)
		if err != nil {
			slog.Warn("vote events disabled", "err", err)
		} else {
			votingDeps.Events = sns.NewPublisher(client, cfg.VoteEventsTopicARN)
		}
	}
	if cfg.ExportBucket != "" {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			slog.Warn("export archive disabled", "err", err)
		} else {
			votingDeps.Archive = s3infra.NewStore(client, cfg.ExportBucket)
		}
	}

	users := user.NewService(user.ServiceDeps{UserRepo: st.users, AdminEmails: cfg.AdminEmails})
	walletChain, emailChain := oracleChains(cfg, m)

	deps := &transporthttp.Deps{
		Auth: auth.NewService(auth.ServiceDeps{
			Codes:       st.codes,
			Users:       users,
			Mailer:      mailer,
			JWTProvider: jwtProvider,
		}),
		Users: users,
		Eligibility: eligibility.NewService(eligibility.ServiceDeps{
			WalletChain: walletChain,
			EmailChain:  emailChain,
			PolicyID:    cfg.Oracle.PolicyID,
			DemoMode:    cfg.DemoMode,
			DemoMarkers: cfg.DemoEmailMarkers,
		}),
		Voting:      voting.NewService(votingDeps),
		JWTProvider: jwtProvider,
		Metrics:     m,
		Gatherer:    reg,
	}

	router := transporthttp.NewRouter(cfg, deps)
	defer router.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "demo_mode", cfg.DemoMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// oracleChains builds the wallet (Blockfrost, then Koios) and email (NMKR)
// ownership chains over one bounded HTTP client.
func oracleChains(cfg *config.Config, m *metrics.Metrics) (wallet, email *oracle.Chain) {
	client := oracle.NewHTTPClient(oracle.HTTPOptions{
		Timeout:  cfg.Oracle.Timeout,
		RetryMax: cfg.Oracle.RetryMax,
	})
	oc := cfg.Oracle
	if oc.PolicyID == "" {
		slog.Warn("TARGET_POLICY_ID not set; ownership checks will report unknown")
	}
	wallet = oracle.NewChain(oc.PolicyID, m,
		oracle.NewBlockfrost(client, oc.BlockfrostBaseURL, oc.BlockfrostAPIKey, oc.PolicyID),
		oracle.NewKoios(client, oc.KoiosBaseURL, oc.KoiosAPIKey, oc.PolicyID),
	)
	email = oracle.NewChain(oc.PolicyID, m,
		oracle.NewNMKR(client, oc.NMKRBaseURL, oc.NMKRAPIKey, oc.PolicyID),
	)
	return wallet, email
}
