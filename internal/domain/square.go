package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSquare = errors.New("invalid square")

// Square identifies one cell of the 8x8 board. The value is rank0*8+file with a1 == 0.
type Square uint8

// NoSquare marks the absence of a square.
const NoSquare Square = 64

func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 1 || rank > 8 {
		return NoSquare
	}
	return Square((rank-1)*8 + file)
}

func ParseSquare(raw string) (Square, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, raw)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'0')), nil
}

// MustSquare panics on malformed input. Intended for literals.
func MustSquare(raw string) Square {
	sq, err := ParseSquare(raw)
	if err != nil {
		panic(err)
	}
	return sq
}

func (s Square) Valid() bool { return s < NoSquare }

// File is 0 for the a-file through 7 for the h-file.
func (s Square) File() int { return int(s) % 8 }

// Rank is 1..8.
func (s Square) Rank() int { return int(s)/8 + 1 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('0' + s.Rank())})
}

// Index is the grid position used by the stage, counted row by row from a8 (0) to h1 (63).
func (s Square) Index() int {
	row := 8 - s.Rank()
	return row*8 + s.File()
}

func SquareFromIndex(index int) Square {
	if index < 0 || index > 63 {
		return NoSquare
	}
	file := index % 8
	rank := 8 - index/8
	return NewSquare(file, rank)
}

func (s Square) IsLight() bool { return (s.File()+s.Rank())%2 == 0 }

func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrInvalidSquare
	}
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(b []byte) error {
	sq, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// AllSquares lists every square in grid order (a8, b8, ... h1).
func AllSquares() []Square {
	out := make([]Square, 0, 64)
	for i := 0; i < 64; i++ {
		out = append(out, SquareFromIndex(i))
	}
	return out
}
