package preview

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/Cheese-3DChess/internal/chess"
	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/highlight"
	"github.com/park285/Cheese-3DChess/internal/theme"
)

func startFrame() Frame {
	return Frame{
		Board:   chess.NewGame().Board(),
		Palette: theme.MustBuiltin().Resolve("classic"),
		Status:  "White to move",
	}
}

func pixelAt(img *image.RGBA, sq domain.Square, r *Renderer, flipped bool) [4]uint8 {
	p := r.squareRect(sq, flipped).Min.Add(image.Pt(2, 2))
	c := img.RGBAAt(p.X, p.Y)
	return [4]uint8{c.R, c.G, c.B, c.A}
}

func TestRenderPNGStartPosition(t *testing.T) {
	r := NewRenderer(48)
	raw, err := r.RenderPNG(context.Background(), startFrame())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, r.Size(), img.Bounds().Size())
}

func TestSquaresUsePalette(t *testing.T) {
	r := NewRenderer(40)
	f := startFrame()
	img, err := r.Render(context.Background(), f)
	require.NoError(t, err)

	light := f.Palette.BoardLight.ToRGBA()
	dark := f.Palette.BoardDark.ToRGBA()
	assert.Equal(t, [4]uint8{light.R, light.G, light.B, 255}, pixelAt(img, domain.MustSquare("e4"), r, false))
	assert.Equal(t, [4]uint8{dark.R, dark.G, dark.B, 255}, pixelAt(img, domain.MustSquare("d4"), r, false))
}

func TestOverlaysTintSquares(t *testing.T) {
	r := NewRenderer(40)
	base, err := r.Render(context.Background(), startFrame())
	require.NoError(t, err)

	f := startFrame()
	f.Highlights = highlight.Classify(highlight.Selection{
		Active:  true,
		Square:  domain.MustSquare("e2"),
		Targets: []domain.LegalTarget{{To: domain.MustSquare("e3")}, {To: domain.MustSquare("e4")}},
	})
	f.LastMove = &domain.MoveRecord{From: domain.MustSquare("g1"), To: domain.MustSquare("f3")}
	tinted, err := r.Render(context.Background(), f)
	require.NoError(t, err)

	for _, name := range []string{"e2", "e3", "e4", "g1", "f3"} {
		sq := domain.MustSquare(name)
		assert.NotEqual(t, pixelAt(base, sq, r, false), pixelAt(tinted, sq, r, false), name)
	}
	d5 := domain.MustSquare("d5")
	assert.Equal(t, pixelAt(base, d5, r, false), pixelAt(tinted, d5, r, false))
}

func TestFlippedLayout(t *testing.T) {
	r := NewRenderer(40)
	o := r.origin()
	assert.Equal(t, o, r.squareRect(domain.MustSquare("a8"), false).Min)
	assert.Equal(t, o, r.squareRect(domain.MustSquare("h1"), true).Min)
	assert.Equal(t, r.squareRect(domain.MustSquare("a1"), false), r.squareRect(domain.MustSquare("h8"), true))
}

func TestRenderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRenderer(0).RenderPNG(ctx, startFrame())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPieceCache(t *testing.T) {
	c := newPieceCache()
	p := theme.MustBuiltin().Resolve("winter")
	kinds := []domain.PieceKind{domain.Pawn, domain.Rook, domain.Knight, domain.Bishop, domain.Queen, domain.King}
	for _, k := range kinds {
		img, err := c.render(k, p.WhitePiece, p.BlackPiece, 32)
		require.NoError(t, err, k.String())
		assert.Equal(t, image.Pt(32, 32), img.Bounds().Size())

		again, err := c.render(k, p.WhitePiece, p.BlackPiece, 32)
		require.NoError(t, err)
		assert.Same(t, img.(*image.RGBA), again.(*image.RGBA))
	}
	_, err := c.render(domain.NoKind, p.WhitePiece, p.BlackPiece, 32)
	assert.Error(t, err)
}
