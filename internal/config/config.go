package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	// OAuthSharedSecret habilita POST /auth/oauth para el servidor de autenticación. Vacío lo deshabilita.
	OAuthSharedSecret string `env:"OAUTH_SHARED_SECRET"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	EmailLogOnly bool   `env:"EMAIL_LOG_ONLY" envDefault:"false"`

	RedisAddr                 string `env:"REDIS_ADDR"`
	RedisPassword             string `env:"REDIS_PASSWORD"`
	RedisDB                   int    `env:"REDIS_DB" envDefault:"0"`
	PublicCardCacheTTLSeconds int    `env:"PUBLIC_CARD_CACHE_TTL_SECONDS" envDefault:"300"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"bizcard.events"`

	RateLimitRPS       float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"1"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"5"`

	QRSize int `env:"QR_SIZE" envDefault:"256"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WizardConfig configura el cliente de terminal que crea tarjetas contra la API.
type WizardConfig struct {
	APIURL        string `env:"BIZCARD_API_URL" envDefault:"http://localhost:8080"`
	Token         string `env:"BIZCARD_TOKEN"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`
}

// LoadWizardConfig carga la configuración del cliente desde variables de entorno.
func LoadWizardConfig() (*WizardConfig, error) {
	var cfg WizardConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
