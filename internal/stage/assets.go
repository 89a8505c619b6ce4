package stage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

var ErrAssetsNotReady = errors.New("piece assets not ready")

//go:embed pieces.yaml
var builtinPieces []byte

// Primitive is one solid of the fallback geometry.
type Primitive struct {
	Shape        string  `yaml:"shape" json:"shape"`
	RadiusTop    float64 `yaml:"radiusTop,omitempty" json:"radiusTop,omitempty"`
	RadiusBottom float64 `yaml:"radiusBottom,omitempty" json:"radiusBottom,omitempty"`
	Height       float64 `yaml:"height,omitempty" json:"height,omitempty"`
	Width        float64 `yaml:"width,omitempty" json:"width,omitempty"`
	Depth        float64 `yaml:"depth,omitempty" json:"depth,omitempty"`
	OffsetY      float64 `yaml:"offsetY,omitempty" json:"offsetY,omitempty"`
}

// Template is what the scene needs to build one piece entity. Model is empty
// when the renderer should fall back to Parts.
type Template struct {
	Kind        domain.PieceKind `json:"-"`
	Model       string           `json:"model,omitempty"`
	Mesh        string           `json:"mesh"`
	ModelHeight float64          `json:"modelHeight,omitempty"`
	Parts       []Primitive      `json:"parts"`
}

type manifest struct {
	Model       string  `yaml:"model"`
	ModelHeight float64 `yaml:"modelHeight"`
	Pieces      map[string]struct {
		Mesh  string      `yaml:"mesh"`
		Parts []Primitive `yaml:"parts"`
	} `yaml:"pieces"`
}

// Loader produces templates for every piece kind.
type Loader func(ctx context.Context) (map[domain.PieceKind]Template, error)

// ManifestLoader parses a YAML piece manifest. withModel controls whether the
// model URL is attached; without it every template uses the built-in parts.
func ManifestLoader(raw []byte, withModel bool) Loader {
	return func(ctx context.Context) (map[domain.PieceKind]Template, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return parseManifest(raw, withModel)
	}
}

// BuiltinLoader serves the embedded geometry manifest.
func BuiltinLoader(withModel bool) Loader {
	return ManifestLoader(builtinPieces, withModel)
}

func parseManifest(raw []byte, withModel bool) (map[domain.PieceKind]Template, error) {
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse piece manifest: %w", err)
	}
	out := make(map[domain.PieceKind]Template, len(m.Pieces))
	for code, p := range m.Pieces {
		kind, err := domain.ParsePieceKind(code)
		if err != nil || kind == domain.NoKind {
			return nil, fmt.Errorf("piece manifest: unknown kind %q", code)
		}
		if len(p.Parts) == 0 {
			return nil, fmt.Errorf("piece manifest: %s has no parts", code)
		}
		t := Template{Kind: kind, Mesh: p.Mesh, Parts: append([]Primitive(nil), p.Parts...)}
		if withModel {
			t.Model = m.Model
			t.ModelHeight = m.ModelHeight
		}
		out[kind] = t
	}
	for k := domain.Pawn; k <= domain.King; k++ {
		if _, ok := out[k]; !ok {
			return nil, fmt.Errorf("piece manifest: missing %s", k)
		}
	}
	return out, nil
}

// AssetCache holds piece templates behind an explicit ready state.
// It is constructed once and shared by every Engine that renders pieces.
type AssetCache struct {
	mu        sync.RWMutex
	loadMu    sync.Mutex
	loader    Loader
	templates map[domain.PieceKind]Template
	ready     bool
	logger    *zap.Logger
}

func NewAssetCache(loader Loader, logger *zap.Logger) *AssetCache {
	if loader == nil {
		loader = BuiltinLoader(false)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetCache{loader: loader, logger: logger}
}

// Load runs the loader once. A loader failure falls back to the built-in
// geometry so the cache still becomes ready; only a broken built-in manifest
// or a cancelled context leaves it unready.
func (c *AssetCache) Load(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.Ready() {
		return nil
	}

	templates, err := c.loader(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("asset_load_fallback", zap.Error(err))
		templates, err = parseManifest(builtinPieces, false)
		if err != nil {
			return fmt.Errorf("load builtin pieces: %w", err)
		}
	}

	c.mu.Lock()
	c.templates = templates
	c.ready = true
	c.mu.Unlock()
	c.logger.Info("asset_cache_ready", zap.Int("templates", len(templates)))
	return nil
}

func (c *AssetCache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

func (c *AssetCache) Template(kind domain.PieceKind) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ready {
		return Template{}, ErrAssetsNotReady
	}
	t, ok := c.templates[kind]
	if !ok {
		return Template{}, fmt.Errorf("no template for %q", kind.String())
	}
	return t, nil
}
