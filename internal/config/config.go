package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del cliente y del servidor companion.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"production"`

	APIBaseURL    string        `env:"API_BASE_URL" envDefault:"http://localhost:5000/api"`
	AuthPath      string        `env:"AUTH_PATH" envDefault:"/auth"`
	UserPath      string        `env:"USER_PATH" envDefault:"/user"`
	MatchPath     string        `env:"MATCH_PATH" envDefault:"/match"`
	CharacterPath string        `env:"CHARACTER_PATH" envDefault:"/character"`
	TagPath       string        `env:"TAG_PATH" envDefault:"/tag"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`

	SessionCheckInterval time.Duration `env:"SESSION_CHECK_INTERVAL" envDefault:"60s"`
	RefreshLookahead     time.Duration `env:"REFRESH_LOOKAHEAD" envDefault:"120s"`
	NewHighlightDuration time.Duration `env:"NEW_HIGHLIGHT_DURATION" envDefault:"3s"`
	SearchDebounce       time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"200ms"`
	ReadRetryAttempts    int           `env:"READ_RETRY_ATTEMPTS" envDefault:"3"`
	ReadRetryDelay       time.Duration `env:"READ_RETRY_DELAY" envDefault:"1s"`
	LandingRoute         string        `env:"LANDING_ROUTE" envDefault:"/home"`

	CredentialStore      string `env:"CREDENTIAL_STORE" envDefault:"file"`
	CredentialFile       string `env:"CREDENTIAL_FILE" envDefault:".smush/credentials.json"`
	CredentialPassphrase string `env:"CREDENTIAL_PASSPHRASE"`
	PersistCookies       bool   `env:"PERSIST_COOKIES" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"smush:"`

	HTTPPort string `env:"HTTP_PORT" envDefault:"8081"`
}

// Endpoints agrupa las rutas base de la API ya normalizadas.
type Endpoints struct {
	Auth      string
	User      string
	Match     string
	Character string
	Tag       string
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Endpoints devuelve las rutas base con una sola barra inicial y sin barra final.
func (c *Config) Endpoints() Endpoints {
	return Endpoints{
		Auth:      normalizePath(c.AuthPath),
		User:      normalizePath(c.UserPath),
		Match:     normalizePath(c.MatchPath),
		Character: normalizePath(c.CharacterPath),
		Tag:       normalizePath(c.TagPath),
	}
}

// Development indica si el logger debe usar el modo de desarrollo.
func (c *Config) Development() bool {
	return strings.EqualFold(c.AppEnv, "development") || strings.EqualFold(c.AppEnv, "dev")
}

func normalizePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
