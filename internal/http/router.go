package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bizcard/internal/metrics"
	"bizcard/internal/service"
)

// RateLimits configura los limitadores por IP.
type RateLimits struct {
	RPS       float64
	Burst     int
	AuthRPS   float64
	AuthBurst int
}

// RouterOptions agrupa la configuración del router que no son handlers.
type RouterOptions struct {
	Limits RateLimits
	// OAuthSecret lo presenta el servidor de autenticación en POST /auth/oauth.
	OAuthSecret string
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	cardH *CardHandler,
	publicH *PublicCardHandler,
	healthH *HealthHandler,
	opts RouterOptions,
) *gin.Engine {
	limits := opts.Limits
	r := gin.New()

	// Middlewares basicos: logging, recovery y métricas.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metricsMiddleware())

	r.GET("/healthz", healthH.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authLimiter := NewIPRateLimiter(limits.AuthRPS, limits.AuthBurst)
	auth := r.Group("/auth", authLimiter.Middleware())
	auth.POST("/otp/request", userH.RequestOTP)
	auth.POST("/otp/verify", userH.VerifyOTP)
	auth.POST("/oauth", RequireTrustedCaller(opts.OAuthSecret), userH.OAuthLogin)
	auth.POST("/refresh", userH.RefreshToken)
	auth.POST("/logout", userH.Logout)

	requireJWT := JWTAuthMiddleware(jwtSvc)
	r.GET("/me", requireJWT, userH.Me)

	createLimiter := NewIPRateLimiter(limits.RPS, limits.Burst)
	cards := r.Group("/cards", requireJWT)
	cards.POST("", createLimiter.Middleware(), cardH.CreateCard)
	cards.GET("", cardH.ListCards)
	cards.GET("/check-name", cardH.CheckName)
	cards.GET("/:id", cardH.GetCard)
	cards.PUT("/:id", cardH.UpdateCard)
	cards.DELETE("/:id", cardH.DeleteCard)

	public := r.Group("/public-cards")
	public.GET("/:id", publicH.GetPublicCard)
	public.GET("/:id/qr.png", publicH.GetQRCode)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// metricsMiddleware registra conteo, latencia y concurrencia por ruta.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.InFlight.Inc()
		defer metrics.InFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.ReqDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
