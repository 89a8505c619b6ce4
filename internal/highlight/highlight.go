// Package highlight maps a selection to per-square highlight classes.
package highlight

import (
	"encoding/json"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

type Class uint8

const (
	None Class = iota
	LegalMove
	LegalCapture
	Selected
)

var classNames = [...]string{None: "none", LegalMove: "legalMove", LegalCapture: "legalCapture", Selected: "selected"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "none"
}

// Colour is the square tint for the class; zero means the theme's base colour.
func (c Class) Colour() uint32 {
	switch c {
	case Selected:
		return 0x88aa44
	case LegalCapture:
		return 0xaa4444
	case LegalMove:
		return 0x6699cc
	default:
		return 0
	}
}

// Selection is the read-only view of the interaction state the engine needs.
type Selection struct {
	Active  bool
	Square  domain.Square
	Targets []domain.LegalTarget
}

// Map holds one class per square, indexed by domain.Square.
type Map [64]Class

func (m *Map) At(sq domain.Square) Class {
	if !sq.Valid() {
		return None
	}
	return m[sq]
}

// Count returns how many squares carry class c.
func (m *Map) Count(c Class) int {
	n := 0
	for _, v := range m {
		if v == c {
			n++
		}
	}
	return n
}

// MarshalJSON emits only highlighted squares, keyed by name.
func (m Map) MarshalJSON() ([]byte, error) {
	out := make(map[string]string)
	for i, c := range m {
		if c != None {
			out[domain.Square(i).String()] = c.String()
		}
	}
	return json.Marshal(out)
}

// Classify resets every square to None and then applies the selection, so
// a square never keeps a class from an earlier selection. Precedence is
// Selected > LegalCapture > LegalMove.
func Classify(sel Selection) Map {
	var m Map
	for i := range m {
		m[i] = None
	}
	if !sel.Active || !sel.Square.Valid() {
		return m
	}
	for _, t := range sel.Targets {
		if !t.To.Valid() {
			continue
		}
		c := LegalMove
		if t.IsCapture {
			c = LegalCapture
		}
		if c > m[t.To] {
			m[t.To] = c
		}
	}
	m[sel.Square] = Selected
	return m
}
