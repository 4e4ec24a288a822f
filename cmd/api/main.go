package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rmi/internal/config"
	"rmi/internal/db"
	"rmi/internal/engine"
	apihttp "rmi/internal/http"
	"rmi/internal/llm"
	"rmi/internal/metrics"
	"rmi/internal/repository"
	"rmi/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	lexicon, err := engine.LoadLexicon(cfg.LexiconPath)
	if err != nil {
		logger.Fatal("load lexicon", zap.String("path", cfg.LexiconPath), zap.Error(err))
	}
	logger.Info("lexicon loaded", zap.String("version", lexicon.Version()))
	eng := engine.New(lexicon)

	llmClient, err := llm.NewClient(cfg.LLMProvider, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout(), logger)
	if err != nil {
		logger.Fatal("llm client", zap.Error(err))
	}

	var (
		loginLimiter service.LoginRateLimiter
		tokenStore   service.RefreshTokenStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, 10*time.Minute, 5)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
		logger,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	m := metrics.New()
	userRepo := repository.NewPgUserRepository(pool)
	contactRepo := repository.NewPgContactRepository(pool)
	messageRepo := repository.NewPgChatMessageRepository(pool)
	stateRepo := repository.NewPgUserStateRepository(pool)
	eventRepo := repository.NewPgInteractionEventRepository(pool)
	feedbackRepo := repository.NewPgFeedbackRepository(pool)

	userSvc := service.NewUserService(logger, userRepo, loginLimiter)
	stateSvc := service.NewStateService(logger, stateRepo, eventRepo, m, cfg.StateFlushInterval())
	networkSvc := service.NewNetworkService(logger, contactRepo, stateSvc, m, cfg.ContactCacheTTL())
	replySvc := service.NewReplyService(logger, llmClient, eng, m, cfg.LLMTimeout())
	chatSvc := service.NewChatService(logger, messageRepo, networkSvc, stateSvc, replySvc, eng, m)
	insightSvc := service.NewInsightService(logger, messageRepo, networkSvc, stateSvc, eng, m)
	feedbackSvc := service.NewFeedbackService(feedbackRepo)

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Logger:      logger,
		JWT:         jwtSvc,
		Users:       apihttp.NewUserHandler(logger, userSvc, jwtSvc),
		Network:     apihttp.NewNetworkHandler(logger, networkSvc),
		Chat:        apihttp.NewChatHandler(logger, chatSvc),
		State:       apihttp.NewStateHandler(logger, stateSvc, networkSvc, chatSvc),
		Insights:    apihttp.NewInsightHandler(logger, insightSvc, feedbackSvc),
		ChatLimiter: apihttp.NewUserRateLimiter(cfg.ChatRatePerMinute, cfg.ChatRateBurst),
		Metrics:     m,
		MetricsPath: cfg.MetricsPath,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := stateSvc.Close(shutdownCtx); err != nil {
		logger.Error("state flush on shutdown", zap.Error(err))
	}
}
