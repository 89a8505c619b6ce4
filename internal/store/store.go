package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/park285/Cheese-3DChess/internal/domain"
)

var (
	ErrSlotNotFound  = errors.New("save slot not found")
	ErrInvalidSlot   = errors.New("invalid save slot name")
	ErrDuplicateGame = errors.New("game already archived")
)

// DefaultSlot is used when a client saves without naming a slot.
const DefaultSlot = "quick"

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SlotStore keeps encoded save records per session and slot name.
type SlotStore interface {
	Put(ctx context.Context, sessionID, slot string, record []byte) error
	Get(ctx context.Context, sessionID, slot string) ([]byte, error)
	List(ctx context.Context, sessionID string) ([]string, error)
	Delete(ctx context.Context, sessionID, slot string) error
}

// GameArchive is the long-term log of finished games.
type GameArchive interface {
	Archive(ctx context.Context, g domain.ArchivedGame) error
	Recent(ctx context.Context, limit int) ([]domain.ArchivedGame, error)
	Close() error
}

func validateKeys(sessionID, slot string) error {
	if !keyPattern.MatchString(sessionID) {
		return fmt.Errorf("%w: session %q", ErrInvalidSlot, sessionID)
	}
	if !keyPattern.MatchString(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}
