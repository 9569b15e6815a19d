package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Database  DBConfig
	Service   SvcConfig
	Providers ProviderConfig
	Jobs      JobConfig
}

type DBConfig struct {
	URL      string `envconfig:"DATABASE_URL" default:""`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"mock_test"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the parts.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Hostname, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type SvcConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL        time.Duration `envconfig:"JWT_TTL" default:"24h"`
	FrontendURL     string        `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

type ProviderConfig struct {
	OpenAIKey      string        `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL  string        `envconfig:"OPENAI_BASE_URL" default:""`
	OpenAIModel    string        `envconfig:"OPENAI_MODEL" default:""`
	AnthropicKey   string        `envconfig:"ANTHROPIC_API_KEY" default:""`
	AnthropicModel string        `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-5"`
	CLIPath        string        `envconfig:"CLAUDE_CLI_PATH" default:""`
	Timeout        time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"60s"`
}

type JobConfig struct {
	BatchSize     int           `envconfig:"GENERATION_BATCH_SIZE" default:"5"`
	Concurrency   int           `envconfig:"GENERATION_CONCURRENCY" default:"3"`
	ChunkSize     int           `envconfig:"APPROVAL_CHUNK_SIZE" default:"20"`
	ChunkPause    time.Duration `envconfig:"APPROVAL_CHUNK_PAUSE" default:"50ms"`
	TTL           time.Duration `envconfig:"JOB_TTL" default:"1h"`
	SweepInterval time.Duration `envconfig:"JOB_SWEEP_INTERVAL" default:"5m"`
}

// MaxChunkSize keeps an approval chunk's option insert (16 binds per
// question) under the Postgres limit of 65535 bind parameters.
const MaxChunkSize = 1000

func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Jobs.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c JobConfig) validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("GENERATION_BATCH_SIZE must be >= 1, got %d", c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("GENERATION_CONCURRENCY must be >= 1, got %d", c.Concurrency)
	}
	if c.ChunkSize < 1 || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("APPROVAL_CHUNK_SIZE must be between 1 and %d, got %d", MaxChunkSize, c.ChunkSize)
	}
	return nil
}
