package domain

import (
	"fmt"
	"strings"
)

type Side uint8

const (
	White Side = iota
	Black
)

func (s Side) Code() string {
	if s == Black {
		return "b"
	}
	return "w"
}

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

// Title is the capitalised name used in toasts and tooltips.
func (s Side) Title() string {
	if s == Black {
		return "Black"
	}
	return "White"
}

func (s Side) Opponent() Side {
	if s == Black {
		return White
	}
	return Black
}

func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	default:
		return White, fmt.Errorf("unknown side %q", raw)
	}
}

type PieceKind uint8

const (
	NoKind PieceKind = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindCodes = [...]string{NoKind: "", Pawn: "p", Rook: "r", Knight: "n", Bishop: "b", Queen: "q", King: "k"}
var kindNames = [...]string{NoKind: "", Pawn: "pawn", Rook: "rook", Knight: "knight", Bishop: "bishop", Queen: "queen", King: "king"}

// Code returns the one-letter lowercase code ("p", "n", ...), empty for NoKind.
func (k PieceKind) Code() string {
	if int(k) >= len(kindCodes) {
		return ""
	}
	return kindCodes[k]
}

func (k PieceKind) String() string {
	if int(k) >= len(kindNames) {
		return ""
	}
	return kindNames[k]
}

func (k PieceKind) Title() string {
	name := k.String()
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ParsePieceKind accepts either the one-letter code or the full name.
// An empty input yields NoKind without error.
func ParsePieceKind(raw string) (PieceKind, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return NoKind, nil
	}
	for k := Pawn; k <= King; k++ {
		if s == kindCodes[k] || s == kindNames[k] {
			return k, nil
		}
	}
	return NoKind, fmt.Errorf("unknown piece kind %q", raw)
}

// Piece is compared by value; two pieces with the same kind and side are the same piece.
type Piece struct {
	Kind PieceKind
	Side Side
}

func (p Piece) IsZero() bool { return p.Kind == NoKind }

// Code is the "<side><kind>" tag, e.g. "wp" or "bq".
func (p Piece) Code() string { return p.Side.Code() + p.Kind.Code() }

func (p Piece) Title() string { return p.Side.Title() + " " + p.Kind.Title() }

func (p Piece) String() string { return p.Code() }

// ParsePiece reads a "<side><kind>" tag such as "wq".
func ParsePiece(code string) (Piece, error) {
	s := strings.TrimSpace(code)
	if len(s) != 2 {
		return Piece{}, fmt.Errorf("malformed piece %q", code)
	}
	side, err := ParseSide(s[:1])
	if err != nil {
		return Piece{}, err
	}
	kind, err := ParsePieceKind(s[1:])
	if err != nil || kind == NoKind {
		return Piece{}, fmt.Errorf("malformed piece %q", code)
	}
	return Piece{Kind: kind, Side: side}, nil
}

func (p Piece) MarshalText() ([]byte, error) { return []byte(p.Code()), nil }

func (p *Piece) UnmarshalText(b []byte) error {
	parsed, err := ParsePiece(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
