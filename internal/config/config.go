package config

import (
	"chess-loader/internal/constants"
	"chess-loader/internal/domain"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://api.chess.com/pub/"`
	UserAgent  string `env:"USER_AGENT" envDefault:"chess-loader/1.0"`

	TitleGroupName string `env:"TITLE_GROUP" envDefault:"GM"`
	MaxPlayersRaw  string `env:"MAX_PLAYERS"`
	ArchiveMonths  int    `env:"ARCHIVE_MONTHS" envDefault:"1"`
	FetchWorkers   int    `env:"FETCH_WORKERS" envDefault:"1"`

	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"500ms"`
	RetryMaxDelay    time.Duration `env:"RETRY_MAX_DELAY" envDefault:"10s"`

	LoadBatchSize int    `env:"LOAD_BATCH_SIZE" envDefault:"100"`
	DBPath        string `env:"DB_PATH" envDefault:"chess.db"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	DryRunFixture string `env:"DRY_RUN_FIXTURE"`

	TitleGroup domain.TitleGroup
	// MaxPlayers is nil when no cap is configured.
	MaxPlayers *int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg, err := Parse(os.Environ())
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("api_base_url", cfg.APIBaseURL).
		Str("title_group", string(cfg.TitleGroup)).
		Str("max_players", cfg.MaxPlayersRaw).
		Int("archive_months", cfg.ArchiveMonths).
		Int("fetch_workers", cfg.FetchWorkers).
		Int("retry_max_attempts", cfg.RetryMaxAttempts).
		Dur("retry_base_delay", cfg.RetryBaseDelay).
		Str("db_path", cfg.DBPath).
		Str("log_level", cfg.LogLevel).
		Bool("dry_run", cfg.DryRunFixture != "").
		Msg("configuration loaded")

	return cfg, nil
}

// Parse builds a Config from KEY=VALUE pairs, applying defaults and validation.
func Parse(environ []string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: toMap(environ)}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	title, ok := domain.ParseTitleGroup(cfg.TitleGroupName)
	if !ok {
		return nil, fmt.Errorf("TITLE_GROUP %q is not a known title", cfg.TitleGroupName)
	}
	cfg.TitleGroup = title

	if raw := strings.TrimSpace(cfg.MaxPlayersRaw); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("MAX_PLAYERS must be an integer: %w", err)
		}
		cfg.MaxPlayers = &n
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("USER_AGENT is required")
	}
	if cfg.RetryMaxAttempts < 1 {
		cfg.RetryMaxAttempts = constants.RetryMaxAttempts
	}
	if cfg.RetryBaseDelay < 0 {
		return nil, fmt.Errorf("RETRY_BASE_DELAY must not be negative")
	}
	if cfg.ArchiveMonths < 0 {
		cfg.ArchiveMonths = constants.DefaultArchiveMonths
	}
	if cfg.FetchWorkers < 1 {
		cfg.FetchWorkers = constants.DefaultFetchWorkers
	}
	if cfg.LoadBatchSize < 1 {
		cfg.LoadBatchSize = constants.DBBatchSize
	}

	return cfg, nil
}

func toMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}

var Module = fx.Provide(Load)
