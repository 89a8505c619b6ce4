package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const recordExt = ".json"

// FSSlots writes records as <dir>/<session>/<slot>.json, the same file a
// browser download of the save would produce.
type FSSlots struct {
	dir string
}

func NewFSSlots(dir string) (*FSSlots, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("save dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FSSlots{dir: dir}, nil
}

func (f *FSSlots) path(sessionID, slot string) string {
	return filepath.Join(f.dir, sessionID, slot+recordExt)
}

func (f *FSSlots) Put(_ context.Context, sessionID, slot string, record []byte) error {
	if err := validateKeys(sessionID, slot); err != nil {
		return err
	}
	dst := f.path(sessionID, slot)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+slot+"-*")
	if err != nil {
		return fmt.Errorf("create temp save: %w", err)
	}
	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close save: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (f *FSSlots) Get(_ context.Context, sessionID, slot string) ([]byte, error) {
	if err := validateKeys(sessionID, slot); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(f.path(sessionID, slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}
	return raw, nil
}

func (f *FSSlots) List(_ context.Context, sessionID string) ([]string, error) {
	if !keyPattern.MatchString(sessionID) {
		return nil, fmt.Errorf("%w: session %q", ErrInvalidSlot, sessionID)
	}
	entries, err := os.ReadDir(filepath.Join(f.dir, sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		out = append(out, strings.TrimSuffix(name, recordExt))
	}
	sort.Strings(out)
	return out, nil
}

func (f *FSSlots) Delete(_ context.Context, sessionID, slot string) error {
	if err := validateKeys(sessionID, slot); err != nil {
		return err
	}
	err := os.Remove(f.path(sessionID, slot))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrSlotNotFound
	}
	return err
}
