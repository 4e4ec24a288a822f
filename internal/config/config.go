package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int    `env:"DB_MIN_CONNS" envDefault:"1"`

	LLMProvider       string `env:"LLM_PROVIDER" envDefault:"chat"` // chat | responses
	LLMAPIKey         string `env:"LLM_API_KEY,required"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeoutSeconds int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"30"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	LexiconPath            string `env:"LEXICON_PATH"`
	StateFlushMillis       int    `env:"STATE_FLUSH_MILLIS" envDefault:"1000"`
	ChatRatePerMinute      int    `env:"CHAT_RATE_PER_MINUTE" envDefault:"20"`
	ChatRateBurst          int    `env:"CHAT_RATE_BURST" envDefault:"5"`
	ContactCacheTTLMinutes int    `env:"CONTACT_CACHE_TTL_MINUTES" envDefault:"60"`
	MetricsPath            string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c *Config) StateFlushInterval() time.Duration {
	return time.Duration(c.StateFlushMillis) * time.Millisecond
}

func (c *Config) ContactCacheTTL() time.Duration {
	return time.Duration(c.ContactCacheTTLMinutes) * time.Minute
}
