package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bizcard/internal/config"
	"bizcard/internal/db"
	"bizcard/internal/email"
	apihttp "bizcard/internal/http"
	"bizcard/internal/metrics"
	"bizcard/internal/queue"
	"bizcard/internal/repository"
	"bizcard/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "up"); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	metrics.MustRegister()

	userRepo := repository.NewPgUserRepository(pool)
	cardRepo := repository.NewPgCardRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.EmailLogOnly {
		emailSender = email.NewLogSender(logger)
	} else if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	cacheTTL := time.Duration(cfg.PublicCardCacheTTLSeconds) * time.Second
	var (
		otpLimiter  service.OTPRateLimiter
		otpStore    service.OTPStore
		tokenStore  service.RefreshTokenStore
		cardCache   = service.NewMemoryPublicCardCache(cacheTTL)
		redisClient *redis.Client
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
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, 10*time.Minute, 3)
			otpStore = service.NewRedisOTPStore(redisClient)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			cardCache = service.NewRedisPublicCardCache(redisClient, cacheTTL)
		}
		cancel()
	}

	var events queue.Publisher = queue.NewNoop()
	if cfg.AMQPURL != "" {
		rabbit, err := queue.NewRabbit(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("amqp publisher init failed", zap.Error(err))
		} else {
			events = rabbit
		}
	}
	defer events.Close()

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	if cfg.OAuthSharedSecret == "" {
		logger.Info("oauth sign-in disabled: OAUTH_SHARED_SECRET not set")
	}

	userSvc := service.NewUserService(logger, userRepo, emailSender, otpLimiter, otpStore, events)
	cardSvc := service.NewCardService(logger, cardRepo, cardCache, events, cfg.PublicBaseURL)

	router := apihttp.NewRouter(
		logger,
		jwtSvc,
		apihttp.NewUserHandler(logger, userSvc, jwtSvc),
		apihttp.NewCardHandler(logger, cardSvc),
		apihttp.NewPublicCardHandler(logger, cardSvc, cfg.QRSize),
		apihttp.NewHealthHandler(logger, pool),
		apihttp.RouterOptions{
			Limits: apihttp.RateLimits{
				RPS:       cfg.RateLimitRPS,
				Burst:     cfg.RateLimitBurst,
				AuthRPS:   cfg.AuthRateLimitRPS,
				AuthBurst: cfg.AuthRateLimitBurst,
			},
			OAuthSecret: cfg.OAuthSharedSecret,
		},
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
