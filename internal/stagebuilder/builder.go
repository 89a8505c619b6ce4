package stagebuilder

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Cheese-3DChess/internal/config"
	"github.com/park285/Cheese-3DChess/internal/feed"
	"github.com/park285/Cheese-3DChess/internal/httpapi"
	"github.com/park285/Cheese-3DChess/internal/msgcat"
	"github.com/park285/Cheese-3DChess/internal/preview"
	"github.com/park285/Cheese-3DChess/internal/session"
	"github.com/park285/Cheese-3DChess/internal/stage"
	"github.com/park285/Cheese-3DChess/internal/store"
	"github.com/park285/Cheese-3DChess/internal/theme"
)

type Deps struct {
	Registry *session.Registry
	Hub      *feed.Hub
	API      *httpapi.Server
	Feed     *feed.Server
	Slots    store.SlotStore
	Archive  store.GameArchive
	Assets   *stage.AssetCache

	closers []func() error
}

// Close releases the stores opened by New.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}
	fail := func(err error) (*Deps, error) {
		_ = d.Close()
		return nil, err
	}

	themes, err := theme.New(cfg.ThemeDir)
	if err != nil {
		return fail(fmt.Errorf("load themes: %w", err))
	}
	if _, ok := themes.Get(cfg.DefaultTheme); !ok {
		logger.Warn("default_theme_unknown", zap.String("theme", cfg.DefaultTheme), zap.String("fallback", theme.Default))
	}
	msgs, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		return fail(fmt.Errorf("load messages: %w", err))
	}

	loader := stage.BuiltinLoader(cfg.AssetModel)
	if strings.TrimSpace(cfg.AssetManifest) != "" {
		raw, err := os.ReadFile(cfg.AssetManifest)
		if err != nil {
			return fail(fmt.Errorf("read asset manifest: %w", err))
		}
		loader = stage.ManifestLoader(raw, cfg.AssetModel)
	}
	d.Assets = stage.NewAssetCache(loader, logger)
	if err := d.Assets.Load(ctx); err != nil {
		return fail(fmt.Errorf("load assets: %w", err))
	}

	if d.Slots, err = openSlots(cfg, d, logger); err != nil {
		return fail(err)
	}
	if d.Archive, err = openArchive(ctx, cfg, d); err != nil {
		return fail(err)
	}

	d.Hub = feed.NewHub(0, logger)
	deps := session.Deps{
		Assets:       d.Assets,
		Themes:       themes,
		Messages:     msgs,
		Scene:        d.Hub.Scene,
		Observer:     d.Hub.Observe,
		DefaultTheme: cfg.DefaultTheme,
		Logger:       logger,
	}
	if d.Archive != nil {
		deps.Archive = d.Archive
	}
	d.Registry = session.NewRegistry(deps, time.Duration(cfg.SessionIdleTTLSec)*time.Second)
	d.Registry.OnEvict(d.Hub.Close)

	d.API, err = httpapi.New(httpapi.Options{
		Registry:       d.Registry,
		Slots:          d.Slots,
		Archive:        d.Archive,
		Themes:         themes,
		Renderer:       preview.NewRenderer(cfg.PreviewSquareSize),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return fail(err)
	}
	d.Feed = feed.NewServer(d.Hub, d.Registry.Get, cfg.AllowedOrigins, logger)

	logger.Info("stage_built",
		zap.String("save_backend", cfg.SaveBackend),
		zap.String("archive_backend", cfg.ArchiveBackend),
		zap.Strings("themes", themes.IDs()),
	)
	return d, nil
}

func openSlots(cfg *config.AppConfig, d *Deps, logger *zap.Logger) (store.SlotStore, error) {
	switch cfg.SaveBackend {
	case config.SaveBackendRedis:
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		d.closers = append(d.closers, rdb.Close)
		logger.Info("redis_connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
		return store.NewRedisSlots(rdb,
			store.WithTTL(time.Duration(cfg.SaveTTLSec)*time.Second),
			store.WithCompression(cfg.SaveCompress),
		), nil
	case config.SaveBackendFS:
		slots, err := store.NewFSSlots(cfg.SaveDir)
		if err != nil {
			return nil, fmt.Errorf("init save dir: %w", err)
		}
		return slots, nil
	default:
		return store.NewMemorySlots(), nil
	}
}

func openArchive(ctx context.Context, cfg *config.AppConfig, d *Deps) (store.GameArchive, error) {
	var (
		archive store.GameArchive
		err     error
	)
	switch cfg.ArchiveBackend {
	case config.ArchivePostgres:
		archive, err = store.OpenPostgres(ctx, cfg.DatabaseURL)
	case config.ArchiveSQLite:
		archive, err = store.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	d.closers = append(d.closers, archive.Close)
	return archive, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	db := 0
	if u.Path != "" {
		p := strings.TrimPrefix(u.Path, "/")
		if p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				db = n
			}
		}
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: u.User.Username(),
		Password: pass,
		DB:       db,
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}
	return opts, nil
}
