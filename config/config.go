package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// RawDirs points at the raw per-batch export folders of both sources.
type RawDirs struct {
	A string // directory catalog: periods/ and posts/ sub-folders
	B string // launchboard catalog: flat folder of batch files
}

// Config holds all application configuration. It is built once and passed
// into each component's constructor.
type Config struct {
	RawDirs       RawDirs
	OutDir        string
	RulesPath     string
	ValidityRules ValidityRules

	SampleSeed int64
	SampleSize int

	MergePolicy string
	MergeOrder  string

	EmbeddingCachePath string
	LogMode            string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int

	// EnvFileLoaded reports whether a .env file was found and applied.
	EnvFileLoaded bool
}

// Load reads the optional env file (".env" when empty) and returns a
// populated Config. System environment variables take precedence over the
// file, and unset values fall back to defaults.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	loaded := godotenv.Load(envFile) == nil

	cfg := &Config{
		RawDirs: RawDirs{
			A: getEnv("RAW_DIR_DIRECTORY", "./data/raw/directory"),
			B: getEnv("RAW_DIR_LAUNCHBOARD", "./data/raw/launchboard"),
		},
		OutDir:    getEnv("OUT_DIR", "./data/out"),
		RulesPath: getEnv("RULES_PATH", ""),

		SampleSeed: getEnvInt64("SAMPLE_SEED", 20240101),
		SampleSize: getEnvInt("SAMPLE_SIZE", 10),

		MergePolicy: strings.ToLower(getEnv("MERGE_POLICY", "prefer_a")),
		MergeOrder:  strings.ToLower(getEnv("MERGE_ORDER", "input")),

		EmbeddingCachePath: getEnv("EMBEDDING_CACHE_PATH", "./data/cache/embeddings.db"),
		LogMode:            getEnv("LOG_MODE", "dev"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "linker"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "linker123"),
		PostgresDB:       getEnv("POSTGRES_DB", "search_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MaxRetries:       getEnvInt("MAX_RETRIES", 5),

		EnvFileLoaded: loaded,
	}

	rules, err := LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	cfg.ValidityRules = rules

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.MergePolicy {
	case "prefer_a", "prefer_b", "prefer_longer":
	default:
		return fmt.Errorf("config: MERGE_POLICY must be prefer_a, prefer_b or prefer_longer, got %q", c.MergePolicy)
	}
	switch c.MergeOrder {
	case "input", "url":
	default:
		return fmt.Errorf("config: MERGE_ORDER must be input or url, got %q", c.MergeOrder)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("config: SAMPLE_SIZE must not be negative, got %d", c.SampleSize)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// OutPath joins name onto the output directory.
func (c *Config) OutPath(name string) string {
	return filepath.Join(c.OutDir, name)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err == nil {
			return n
		}
	}
	return fallback
}
