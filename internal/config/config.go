package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	SaveBackendMemory = "memory"
	SaveBackendRedis  = "redis"
	SaveBackendFS     = "fs"

	ArchiveNone     = "none"
	ArchivePostgres = "postgres"
	ArchiveSQLite   = "sqlite"
)

type AppConfig struct {
	HTTPAddr string
	FeedAddr string

	SaveBackend    string
	ArchiveBackend string

	RedisURL    string
	DatabaseURL string
	SQLitePath  string
	SaveDir     string

	SaveTTLSec   int
	SaveCompress bool

	DefaultTheme string
	ThemeDir     string
	MessageDir   string

	AssetManifest     string
	AssetModel        bool
	PreviewSquareSize int

	SessionIdleTTLSec int
	AllowedOrigins    []string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:          ":8080",
		FeedAddr:          ":8081",
		SaveBackend:       SaveBackendMemory,
		ArchiveBackend:    ArchiveNone,
		SQLitePath:        "data/archive.db",
		SaveDir:           "data/saves",
		SaveTTLSec:        7 * 24 * 3600,
		SaveCompress:      true,
		DefaultTheme:      "classic",
		AssetModel:        true,
		PreviewSquareSize: 64,
		SessionIdleTTLSec: 3600,
	}

	if v := env("STAGE_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := env("STAGE_FEED_ADDR"); v != "" {
		cfg.FeedAddr = v
	}
	if v := env("SAVE_BACKEND"); v != "" {
		cfg.SaveBackend = strings.ToLower(v)
	}
	if v := env("ARCHIVE_BACKEND"); v != "" {
		cfg.ArchiveBackend = strings.ToLower(v)
	}

	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	if v := env("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := env("SAVE_DIR"); v != "" {
		cfg.SaveDir = v
	}

	if v := env("SAVE_TTL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SaveTTLSec = n
		}
	}
	if v := env("SAVE_COMPRESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SaveCompress = b
		}
	}
	if v := env("DEFAULT_THEME"); v != "" {
		cfg.DefaultTheme = strings.ToLower(v)
	}
	cfg.ThemeDir = env("THEME_DIR")
	cfg.MessageDir = env("MESSAGE_DIR")

	cfg.AssetManifest = env("ASSET_MANIFEST")
	if v := env("ASSET_MODEL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AssetModel = b
		}
	}
	if v := env("PREVIEW_SQUARE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 16 && n <= 256 {
			cfg.PreviewSquareSize = n
		}
	}

	if v := env("SESSION_IDLE_TTL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionIdleTTLSec = n
		}
	}
	if v := env("ALLOWED_ORIGINS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.SaveBackend {
	case SaveBackendMemory, SaveBackendFS:
	case SaveBackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required")
		}
	default:
		return fmt.Errorf("unknown SAVE_BACKEND %q", c.SaveBackend)
	}
	switch c.ArchiveBackend {
	case ArchiveNone, ArchiveSQLite:
	case ArchivePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	default:
		return fmt.Errorf("unknown ARCHIVE_BACKEND %q", c.ArchiveBackend)
	}
	return nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }
