package theme

import (
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

// Default is applied whenever a requested theme is unknown.
const Default = "classic"

var ErrInvalidColor = errors.New("invalid colour")

//go:embed themes.yaml
var builtinThemes []byte

// Color is a 0xRRGGBB value. In YAML it is written "#rrggbb" or "0xrrggbb".
type Color uint32

func ParseColor(s string) (Color, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "#")
	v = strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
	if len(v) != 6 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color(n), nil
}

func (c Color) Hex() string { return fmt.Sprintf("#%06x", uint32(c)) }

func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xff}
}

func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseColor(n.Value)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

// Palette is the set of scene colours one theme applies.
type Palette struct {
	ID         string `yaml:"-" json:"id"`
	Name       string `yaml:"name" json:"name"`
	BoardLight Color  `yaml:"boardLight" json:"boardLight"`
	BoardDark  Color  `yaml:"boardDark" json:"boardDark"`
	Frame      Color  `yaml:"frame" json:"frame"`
	WhitePiece Color  `yaml:"whitePiece" json:"whitePiece"`
	BlackPiece Color  `yaml:"blackPiece" json:"blackPiece"`
	Background Color  `yaml:"background" json:"background"`
	Ground     Color  `yaml:"ground" json:"ground"`
}

// Set holds the known palettes. It is safe for concurrent reads.
type Set struct {
	mu       sync.RWMutex
	palettes map[string]Palette
}

// New loads the built-in palettes, then any *.yaml files from overrideDir.
// Override files may add themes or replace built-in ones.
func New(overrideDir string) (*Set, error) {
	s := &Set{palettes: make(map[string]Palette)}
	if err := s.apply(builtinThemes, "builtin"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) == "" {
		return s, nil
	}
	entries, err := os.ReadDir(overrideDir)
	if err != nil {
		return nil, fmt.Errorf("read theme dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(overrideDir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := s.apply(raw, name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustBuiltin returns the embedded palettes only.
func MustBuiltin() *Set {
	s, err := New("")
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Set) apply(raw []byte, source string) error {
	var parsed map[string]Palette
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range parsed {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		p.ID = id
		if p.Name == "" {
			p.Name = id
		}
		s.palettes[id] = p
	}
	return nil
}

func (s *Set) Get(id string) (Palette, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.palettes[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// Resolve returns the palette for id, or the default palette when id is unknown.
func (s *Set) Resolve(id string) Palette {
	if p, ok := s.Get(id); ok {
		return p
	}
	p, _ := s.Get(Default)
	return p
}

func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.palettes))
	for id := range s.palettes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
