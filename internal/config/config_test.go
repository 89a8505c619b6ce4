package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STAGE_HTTP_ADDR", "SAVE_BACKEND", "ARCHIVE_BACKEND", "SAVE_TTL_SEC", "SAVE_COMPRESS", "DEFAULT_THEME", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.FeedAddr != ":8081" {
		t.Fatalf("addrs = %s %s", cfg.HTTPAddr, cfg.FeedAddr)
	}
	if cfg.SaveBackend != SaveBackendMemory || cfg.ArchiveBackend != ArchiveNone {
		t.Fatalf("backends = %s %s", cfg.SaveBackend, cfg.ArchiveBackend)
	}
	if cfg.SaveTTLSec != 604800 || !cfg.SaveCompress || cfg.DefaultTheme != "classic" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SAVE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("ARCHIVE_BACKEND", "sqlite")
	t.Setenv("SAVE_COMPRESS", "false")
	t.Setenv("SAVE_TTL_SEC", "60")
	t.Setenv("ALLOWED_ORIGINS", "a.example, ,b.example")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SaveBackend != SaveBackendRedis || cfg.SaveCompress || cfg.SaveTTLSec != 60 {
		t.Fatalf("unexpected: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("SAVE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected REDIS_URL error")
	}
	t.Setenv("SAVE_BACKEND", "memory")
	t.Setenv("ARCHIVE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected DATABASE_URL error")
	}
	t.Setenv("ARCHIVE_BACKEND", "mongo")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestLoadAssetOptions(t *testing.T) {
	t.Setenv("SAVE_BACKEND", "")
	t.Setenv("ARCHIVE_BACKEND", "")
	t.Setenv("ASSET_MODEL", "false")
	t.Setenv("PREVIEW_SQUARE_SIZE", "8")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AssetModel {
		t.Fatalf("ASSET_MODEL=false ignored")
	}
	if cfg.PreviewSquareSize != 64 {
		t.Fatalf("out of range square size accepted: %d", cfg.PreviewSquareSize)
	}
}
