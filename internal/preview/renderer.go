package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/Cheese-3DChess/internal/domain"
	"github.com/park285/Cheese-3DChess/internal/highlight"
	"github.com/park285/Cheese-3DChess/internal/theme"
)

// Frame is everything drawn in one preview.
type Frame struct {
	Board      domain.Board
	Highlights highlight.Map
	LastMove   *domain.MoveRecord
	Palette    theme.Palette
	Flipped    bool
	Status     string
}

const (
	DefaultSquareSize = 64

	sideMargin   = 28
	rightMargin  = 12
	headerHeight = 36
	bottomMargin = 28
	frameWidth   = 6
)

var (
	lastMoveFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	statusText     = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateText = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
)

// Renderer draws board previews as PNG. It is safe for concurrent use.
type Renderer struct {
	squareSize int
	pieces     *pieceCache
}

func NewRenderer(squareSize int) *Renderer {
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	return &Renderer{squareSize: squareSize, pieces: newPieceCache()}
}

// Size reports the image dimensions RenderPNG produces.
func (r *Renderer) Size() image.Point {
	board := r.squareSize * 8
	return image.Point{X: sideMargin + board + rightMargin, Y: headerHeight + board + bottomMargin}
}

func (r *Renderer) origin() image.Point { return image.Point{X: sideMargin, Y: headerHeight} }

func (r *Renderer) RenderPNG(ctx context.Context, f Frame) ([]byte, error) {
	img, err := r.Render(ctx, f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) Render(ctx context.Context, f Frame) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := r.Size()
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(f.Palette.Background.ToRGBA()), image.Point{}, imagedraw.Src)

	origin := r.origin()
	boardRect := image.Rect(origin.X, origin.Y, origin.X+8*r.squareSize, origin.Y+8*r.squareSize)
	imagedraw.Draw(img, boardRect.Inset(-frameWidth), image.NewUniform(f.Palette.Frame.ToRGBA()), image.Point{}, imagedraw.Src)

	r.drawSquares(img, f)
	r.drawLastMove(img, f)
	r.drawHighlights(img, f)
	if err := r.drawPieces(img, f); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, f.Flipped)
	drawStatus(img, f.Status, size.X)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// squareRect maps a square to pixels; flipped boards put h1 top left.
func (r *Renderer) squareRect(sq domain.Square, flipped bool) image.Rectangle {
	col := sq.File()
	row := 8 - sq.Rank()
	if flipped {
		col, row = 7-col, 7-row
	}
	o := r.origin()
	x := o.X + col*r.squareSize
	y := o.Y + row*r.squareSize
	return image.Rect(x, y, x+r.squareSize, y+r.squareSize)
}

func (r *Renderer) drawSquares(img *image.RGBA, f Frame) {
	light := image.NewUniform(f.Palette.BoardLight.ToRGBA())
	dark := image.NewUniform(f.Palette.BoardDark.ToRGBA())
	for _, sq := range domain.AllSquares() {
		src := dark
		if sq.IsLight() {
			src = light
		}
		imagedraw.Draw(img, r.squareRect(sq, f.Flipped), src, image.Point{}, imagedraw.Src)
	}
}

func (r *Renderer) drawLastMove(img *image.RGBA, f Frame) {
	if f.LastMove == nil {
		return
	}
	for _, sq := range []domain.Square{f.LastMove.From, f.LastMove.To} {
		if sq.Valid() {
			fillRect(img, r.squareRect(sq, f.Flipped), lastMoveFill)
		}
	}
}

func (r *Renderer) drawHighlights(img *image.RGBA, f Frame) {
	for _, sq := range domain.AllSquares() {
		rgb := f.Highlights.At(sq).Colour()
		if rgb == 0 {
			continue
		}
		tint := color.NRGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 170}
		fillRect(img, r.squareRect(sq, f.Flipped), tint)
	}
}

func (r *Renderer) drawPieces(img *image.RGBA, f Frame) error {
	inset := r.squareSize / 10
	for _, sq := range f.Board.Occupied() {
		p, _ := f.Board.Piece(sq)
		fill, edge := pieceColours(p.Side, f.Palette)
		icon, err := r.pieces.render(p.Kind, fill, edge, r.squareSize-2*inset)
		if err != nil {
			return err
		}
		rect := r.squareRect(sq, f.Flipped).Inset(inset)
		imagedraw.Draw(img, rect, icon, image.Point{}, imagedraw.Over)
	}
	return nil
}

func (r *Renderer) drawCoordinates(img *image.RGBA, flipped bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(coordinateText)}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		fileSq := domain.Square(i)
		rankSq := domain.Square(i * 8)

		fileRect := r.squareRect(fileSq, flipped)
		drawCentered(drawer, string(rune('a'+i)), fileRect.Min.X+r.squareSize/2, r.origin().Y+8*r.squareSize+frameWidth+ascent+2)

		rankRect := r.squareRect(rankSq, flipped)
		drawCentered(drawer, string(rune('1'+i)), sideMargin/2-frameWidth/2, rankRect.Min.Y+(r.squareSize+ascent)/2)
	}
}

func drawStatus(img *image.RGBA, text string, width int) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(statusText)}
	drawCentered(drawer, text, width/2, (headerHeight-frameWidth+face.Metrics().Ascent.Ceil())/2)
}

func drawCentered(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func fillRect(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}
