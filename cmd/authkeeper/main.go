package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sarunyu-dev/authkeeper/internal/auth"
	"github.com/sarunyu-dev/authkeeper/internal/config"
	"github.com/sarunyu-dev/authkeeper/internal/handler"
	"github.com/sarunyu-dev/authkeeper/internal/mailer"
	"github.com/sarunyu-dev/authkeeper/internal/middleware"
	"github.com/sarunyu-dev/authkeeper/internal/provider"
	"github.com/sarunyu-dev/authkeeper/internal/repository"
	"github.com/sarunyu-dev/authkeeper/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "authkeeper").
		Logger()

	cfg := config.New(&logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mongodb")
	}

	db := client.Database(cfg.MongoDatabase)

	userRepo := repository.NewUserMongoRepository(ctx, &logger, db)
	sessionRepo := repository.NewSessionMongoRepository(db)
	identityRepo := repository.NewIdentityMongoRepository(db)
	verificationTokenRepo := repository.NewEmailVerificationTokenMongoRepository(ctx, &logger, db)
	passwordResetTokenRepo := repository.NewPasswordResetTokenMongoRepository(ctx, &logger, db)

	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Issuer, cfg.Token.Issuer)
	m := mailer.NewMailer(&logger)

	var google usecase.IDTokenValidator
	if cfg.GoogleClientID != "" {
		google = provider.NewGoogleVerifier(cfg.GoogleClientID)
	}

	authUsecase := usecase.NewAuthUsecase(identityRepo, sessionRepo, userRepo, jwtAuth, google, cfg)
	sudoUsecase := usecase.NewSudoUsecase(userRepo, sessionRepo, cfg.SudoWindow)
	verificationUsecase := usecase.NewVerificationUsecase(
		userRepo, verificationTokenRepo, jwtAuth, m, cfg, &logger)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(
		userRepo, passwordResetTokenRepo, sessionRepo, jwtAuth, m, cfg, &logger)

	h := handler.NewHandler(
		authUsecase, sudoUsecase, verificationUsecase, passwordResetUsecase, cfg, &logger)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger(&logger))
	router.Use(chimiddleware.Recoverer)

	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to ping redis")
		}

		limiter := middleware.NewRateLimiter(
			redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window, &logger)
		router.Use(limiter.Handler)
	}

	router.Mount("/", h.Routes(
		middleware.Authenticator(authUsecase, cfg.AuthMode),
		middleware.RequireSudo(sudoUsecase, cfg.AuthMode),
	))

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.ServerAddress).
			Str("auth_mode", string(cfg.AuthMode)).
			Str("verification_mode", string(cfg.VerificationMode)).
			Msg("starting server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
