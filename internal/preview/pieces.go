package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/theme"
)

// Piece silhouettes on a 45x45 canvas. Every piece stands on the same base.
const pieceBase = `<path d="M 9 39 L 36 39 L 36 42 L 9 42 Z"/>`

var pieceShapes = map[domain.PieceKind]string{
	domain.Pawn: `<circle cx="22.5" cy="13" r="5"/>` +
		`<path d="M 18 19 L 27 19 L 30 35 L 33 39 L 12 39 L 15 35 Z"/>`,
	domain.Rook: `<path d="M 11 8 L 15 8 L 15 11 L 20 11 L 20 8 L 25 8 L 25 11 L 30 11 L 30 8 L 34 8 L 34 15 L 30 18 L 30 33 L 34 36 L 34 39 L 11 39 L 11 36 L 15 33 L 15 18 L 11 15 Z"/>`,
	domain.Knight: `<path d="M 14 39 L 15 31 C 15 26 20 24 22 20 L 13 24 L 11 20 C 14 13 19 8 25 7 L 27 4 L 29 8 C 34 11 35 18 34 25 L 33 39 Z"/>`,
	domain.Bishop: `<circle cx="22.5" cy="7" r="2.5"/>` +
		`<ellipse cx="22.5" cy="19" rx="7" ry="9"/>` +
		`<path d="M 17 27 L 28 27 L 30 35 L 33 39 L 12 39 L 15 35 Z"/>`,
	domain.Queen: `<circle cx="9" cy="11" r="2.5"/><circle cx="16" cy="8" r="2.5"/>` +
		`<circle cx="22.5" cy="7" r="2.5"/><circle cx="29" cy="8" r="2.5"/><circle cx="36" cy="11" r="2.5"/>` +
		`<path d="M 9 13 L 14 28 L 16 10 L 20 26 L 22.5 9 L 25 26 L 29 10 L 31 28 L 36 13 L 33 35 L 12 35 Z"/>` +
		`<path d="M 12 35 L 33 35 L 33 39 L 12 39 Z"/>`,
	domain.King: `<path d="M 21 3 L 24 3 L 24 6 L 27 6 L 27 9 L 24 9 L 24 13 L 21 13 L 21 9 L 18 9 L 18 6 L 21 6 Z"/>` +
		`<path d="M 22.5 14 C 30 14 36 17 35 23 C 34 28 30 31 30 35 L 15 35 C 15 31 11 28 10 23 C 9 17 15 14 22.5 14 Z"/>` +
		`<path d="M 13 35 L 32 35 L 32 39 L 13 39 Z"/>`,
}

func pieceSVG(kind domain.PieceKind, fill, stroke theme.Color) (string, error) {
	shape, ok := pieceShapes[kind]
	if !ok {
		return "", fmt.Errorf("no shape for %q", kind.String())
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&b, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill.Hex(), stroke.Hex())
	b.WriteString(shape)
	b.WriteString(pieceBase)
	b.WriteString(`</g></svg>`)
	return b.String(), nil
}

type pieceKey struct {
	kind domain.PieceKind
	fill theme.Color
	edge theme.Color
	size int
}

// pieceCache memoises rasterised pieces per kind, colour and size.
type pieceCache struct {
	mu     sync.RWMutex
	images map[pieceKey]image.Image
}

func newPieceCache() *pieceCache {
	return &pieceCache{images: make(map[pieceKey]image.Image)}
}

func (c *pieceCache) render(kind domain.PieceKind, fill, edge theme.Color, size int) (image.Image, error) {
	key := pieceKey{kind: kind, fill: fill, edge: edge, size: size}

	c.mu.RLock()
	if img, ok := c.images[key]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	src, err := pieceSVG(kind, fill, edge)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	c.mu.Lock()
	c.images[key] = img
	c.mu.Unlock()
	return img, nil
}

// pieceColours picks body and outline colours for a side from the palette.
func pieceColours(side domain.Side, p theme.Palette) (fill, edge theme.Color) {
	if side == domain.White {
		return p.WhitePiece, p.BlackPiece
	}
	return p.BlackPiece, p.WhitePiece
}
