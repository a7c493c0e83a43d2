package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/princinho/tubebackend/config"
	"github.com/princinho/tubebackend/controllers"
	"github.com/princinho/tubebackend/database"
	"github.com/princinho/tubebackend/logging"
	"github.com/princinho/tubebackend/middleware"
	"github.com/princinho/tubebackend/repository"
	"github.com/princinho/tubebackend/repository/memory"
	"github.com/princinho/tubebackend/repository/mongostore"
	"github.com/princinho/tubebackend/services"
	"github.com/princinho/tubebackend/storage"
	"github.com/princinho/tubebackend/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	gateway, err := storage.NewFromConfig(ctx, cfg.Media, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Warn("media client close", zap.Error(err))
		}
	}()

	tokens := services.NewTokenService(store.Users(), services.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, logger.Named("tokens"))
	accounts := services.NewAccountService(store.Users(), tokens, logger.Named("accounts"))
	profiles := services.NewProfileService(store, logger.Named("profiles"))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	logger.Info("allowed origins", zap.Strings("origins", cfg.AllowedOrigins))
	allowedOrigins := map[string]bool{}
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = true
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(controllers.Recovery(logger))
	r.Use(middleware.BodyLimit(int64(cfg.MaxBodyKB) << 10))
	r.Static("/public", "./public")

	controllers.Router{
		Users: controllers.NewUserController(controllers.UserControllerDeps{
			Accounts:  accounts,
			Tokens:    tokens,
			Profiles:  profiles,
			Uploader:  gateway,
			Validator: utils.NewImageValidator(cfg.AllowedUploadExts, cfg.MaxUploadMB),
			TempDir:   cfg.TempDir,
			Cookies: utils.CookieOptions{
				Domain:     cfg.CookieDomain,
				AccessTTL:  cfg.AccessTokenTTL,
				RefreshTTL: cfg.RefreshTokenTTL,
			},
			Logger: logger.Named("users"),
		}),
		Subscriptions: controllers.NewSubscriptionController(profiles, logger.Named("subscriptions")),
		RequireAuth:   middleware.VerifyJWT(tokens),
		OptionalAuth:  middleware.OptionalJWT(tokens),
		AuthLimiter:   middleware.RateLimitPerIP(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, 10_000, 10*time.Minute),
	}.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	db := client.Database(cfg.DatabaseName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return mongostore.New(db), func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect", zap.Error(err))
		}
	}, nil
}
