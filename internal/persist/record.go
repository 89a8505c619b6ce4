package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

const (
	RecordType = "3d-chess-save"
	// RecordVersion is written on save. Version 1 records predate camera data.
	RecordVersion    = 2
	minRecordVersion = 1
)

// MoveEntry is one verbose history item. Fields are kept as raw strings so
// replay can tell a missing square from a1.
type MoveEntry struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Color     string `json:"color,omitempty"`
	Piece     string `json:"piece,omitempty"`
	Captured  string `json:"captured,omitempty"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san,omitempty"`
	Flags     string `json:"flags,omitempty"`
}

type CameraRecord struct {
	Position       domain.Vec3 `json:"position"`
	Target         domain.Vec3 `json:"target"`
	IsBoardFlipped *bool       `json:"isBoardFlipped,omitempty"`
}

// Record is the portable save format.
type Record struct {
	Type      string        `json:"type"`
	Version   int           `json:"version"`
	Timestamp int64         `json:"timestamp"`
	FEN       string        `json:"fen"`
	History   []MoveEntry   `json:"history"`
	Turn      string        `json:"turn,omitempty"`
	LastMove  *MoveEntry    `json:"lastMove"`
	Theme     string        `json:"theme,omitempty"`
	Camera    *CameraRecord `json:"camera,omitempty"`
}

// Snapshot is the session state captured on save.
type Snapshot struct {
	FEN     string
	Turn    domain.Side
	History []domain.MoveRecord
	Theme   string
	Camera  *domain.CameraPose
}

func EntryFromMove(m domain.MoveRecord) MoveEntry {
	return MoveEntry{
		From:      m.From.String(),
		To:        m.To.String(),
		Color:     m.Side.Code(),
		Piece:     m.Piece.Code(),
		Captured:  m.Captured.Code(),
		Promotion: m.Promotion.Code(),
		SAN:       m.SAN,
		Flags:     m.Flags,
	}
}

// Serialize builds a record from a snapshot. Timestamp is unix milliseconds.
func Serialize(s Snapshot, now time.Time) Record {
	rec := Record{
		Type:      RecordType,
		Version:   RecordVersion,
		Timestamp: now.UnixMilli(),
		FEN:       s.FEN,
		History:   make([]MoveEntry, 0, len(s.History)),
		Turn:      s.Turn.Code(),
		Theme:     s.Theme,
	}
	for _, m := range s.History {
		rec.History = append(rec.History, EntryFromMove(m))
	}
	if n := len(rec.History); n > 0 {
		last := rec.History[n-1]
		rec.LastMove = &last
	}
	if s.Camera != nil {
		flipped := s.Camera.IsBoardFlipped
		rec.Camera = &CameraRecord{Position: s.Camera.Position, Target: s.Camera.Target, IsBoardFlipped: &flipped}
	}
	return rec
}

// Encode renders the record as indented JSON.
func Encode(rec Record) ([]byte, error) {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}

// Decode parses and validates untrusted input. Malformed optional fields
// (theme, camera, individual history entries) are dropped rather than failing.
func Decode(raw []byte) (*Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecordEncoding, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: empty document", ErrCorruptRecordEncoding)
	}

	rec := &Record{}
	if !decodeString(fields["type"], &rec.Type) || rec.Type != RecordType {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidRecordFormat, rec.Type)
	}
	version, ok := decodeInt(fields["version"])
	if !ok {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidRecordFormat)
	}
	if version < minRecordVersion || version > RecordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidRecordFormat, version)
	}
	rec.Version = int(version)

	if !decodeString(fields["fen"], &rec.FEN) || strings.TrimSpace(rec.FEN) == "" {
		return nil, ErrMissingOrMalformedFEN
	}

	if ts, ok := decodeInt(fields["timestamp"]); ok {
		rec.Timestamp = ts
	}
	decodeString(fields["turn"], &rec.Turn)
	decodeString(fields["theme"], &rec.Theme)

	var items []json.RawMessage
	if err := json.Unmarshal(orNull(fields["history"]), &items); err == nil {
		rec.History = make([]MoveEntry, 0, len(items))
		for _, item := range items {
			rec.History = append(rec.History, decodeEntry(item))
		}
	}
	if raw, ok := fields["lastMove"]; ok && !isNull(raw) {
		last := decodeEntry(raw)
		rec.LastMove = &last
	}
	rec.Camera = decodeCamera(fields["camera"])
	return rec, nil
}

func orNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}

func isNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}

func decodeString(raw json.RawMessage, dst *string) bool {
	if isNull(raw) {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	*dst = s
	return true
}

func decodeInt(raw json.RawMessage) (int64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// decodeEntry keeps whatever string fields are present; anything else is left empty.
func decodeEntry(raw json.RawMessage) MoveEntry {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return MoveEntry{}
	}
	var e MoveEntry
	decodeString(fields["from"], &e.From)
	decodeString(fields["to"], &e.To)
	decodeString(fields["color"], &e.Color)
	decodeString(fields["piece"], &e.Piece)
	decodeString(fields["captured"], &e.Captured)
	decodeString(fields["promotion"], &e.Promotion)
	decodeString(fields["san"], &e.SAN)
	decodeString(fields["flags"], &e.Flags)
	return e
}

// decodeCamera returns nil unless both position and target are well-formed.
func decodeCamera(raw json.RawMessage) *CameraRecord {
	if isNull(raw) {
		return nil
	}
	var cam struct {
		Position       *domain.Vec3    `json:"position"`
		Target         *domain.Vec3    `json:"target"`
		IsBoardFlipped json.RawMessage `json:"isBoardFlipped"`
	}
	if err := json.Unmarshal(raw, &cam); err != nil || cam.Position == nil || cam.Target == nil {
		return nil
	}
	out := &CameraRecord{Position: *cam.Position, Target: *cam.Target}
	var flipped bool
	if !isNull(cam.IsBoardFlipped) && json.Unmarshal(cam.IsBoardFlipped, &flipped) == nil {
		out.IsBoardFlipped = &flipped
	}
	return out
}

// Pose converts the record camera into a pose, keeping the current flip
// flag when the record does not carry one.
func (c *CameraRecord) Pose(currentFlip bool) domain.CameraPose {
	pose := domain.CameraPose{Position: c.Position, Target: c.Target, IsBoardFlipped: currentFlip}
	if c.IsBoardFlipped != nil {
		pose.IsBoardFlipped = *c.IsBoardFlipped
	}
	return pose
}
