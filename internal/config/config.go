// Package config lê a configuração do processo a partir do ambiente, depois de
// carregar um .env opcional.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Port       string `env:"PORT,default=10000"`
	ListenHost string `env:"LISTEN_HOST,default=0.0.0.0"`

	Secret string `env:"SECRET_STRING"`
	Email  string `env:"EMAIL"`

	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL,default=gpt-4o-mini"`

	QuizBaseURL      string        `env:"QUIZ_BASE_URL,default=https://tds-llm-analysis.s-anand.net"`
	SolveDeadline    time.Duration `env:"SOLVE_DEADLINE,default=3m"`
	SolveMaxSteps    int           `env:"SOLVE_MAX_STEPS,default=20"`
	SolveConcurrency int           `env:"SOLVE_CONCURRENCY,default=4"`
	SolveQueueMax    int           `env:"SOLVE_QUEUE_MAX,default=64"`

	BrowserNavTimeout    time.Duration `env:"BROWSER_NAV_TIMEOUT,default=30s"`
	BrowserSettle        time.Duration `env:"BROWSER_SETTLE,default=2s"`
	BrowserResultTimeout time.Duration `env:"BROWSER_RESULT_TIMEOUT,default=5s"`
	HTTPTimeout          time.Duration `env:"HTTP_TIMEOUT,default=30s"`

	RateEnabled        bool          `env:"RATE_ENABLED,default=true"`
	RateRPS            float64       `env:"RATE_RPS,default=10"`
	RateBurst          int           `env:"RATE_BURST,default=20"`
	RateKeyHeader      string        `env:"RATE_KEY_HEADER"`
	TrustXFF           bool          `env:"TRUST_XFF,default=false"`
	RetryAfter         time.Duration `env:"RETRY_AFTER,default=1s"`
	AddHeaders         bool          `env:"ADD_RATELIMIT_HEADERS,default=false"`
	ConcurrencyMax     int           `env:"CONCURRENCY_MAX,default=100"`
	ConcurrencyTimeout time.Duration `env:"CONCURRENCY_TIMEOUT,default=0s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	StatsPrefix    string        `env:"STATS_PREFIX,default=quizsolver:stats"`
	StatsTTL       time.Duration `env:"STATS_TTL,default=24h"`
	StatsBucket    string        `env:"STATS_BUCKET,default=minute"`
	StatsTrackKeys bool          `env:"STATS_TRACK_KEYS,default=false"`
	JobTTL         time.Duration `env:"JOB_TTL,default=24h"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

// Load carrega os arquivos .env informados (ou ".env" quando nenhum) e decodifica
// o ambiente. Arquivo inexistente não é erro.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}

	// IMPORTANTE: o burst permite uma rajada inicial. Com RPS < 1 e burst não
	// informado, o padrão 20 dá a impressão de que o limiter não funciona.
	if !isSet("RATE_BURST") && isSet("RATE_RPS") && cfg.RateRPS > 0 && cfg.RateRPS < 1 {
		cfg.RateBurst = 1
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Secret) == "" || strings.TrimSpace(c.Email) == "" {
		return errors.New("SECRET_STRING and EMAIL must be set")
	}
	if c.RateRPS <= 0 {
		return errors.New("RATE_RPS must be > 0")
	}
	if c.RateBurst <= 0 {
		return errors.New("RATE_BURST must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.SolveConcurrency <= 0 {
		return errors.New("SOLVE_CONCURRENCY must be > 0")
	}
	if c.SolveQueueMax <= 0 {
		return errors.New("SOLVE_QUEUE_MAX must be > 0")
	}
	if c.SolveMaxSteps <= 0 {
		return errors.New("SOLVE_MAX_STEPS must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.StatsBucket)) {
	case "minute", "none":
	default:
		return fmt.Errorf("STATS_BUCKET must be minute or none, got %q", c.StatsBucket)
	}
	return nil
}

func (c Config) Addr() string { return net.JoinHostPort(c.ListenHost, c.Port) }

func (c Config) RedisEnabled() bool { return strings.TrimSpace(c.RedisAddr) != "" }

func isSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}
