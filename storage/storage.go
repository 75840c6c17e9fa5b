// Package storage persists a small float memory an avatar can write
// into through its parameters and read back after a restart or avatar
// switch. Writes arrive as ExtIndex/ExtValue parameter pairs; stored
// values are replayed back as IntIndex/IntValue, one slot per interval.
package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360/facebridge/bundle"
	"github.com/c360/facebridge/errors"
)

const (
	fileName = "extMem.json"

	// slotCount is fixed by the parameter encoding: indices fit one
	// 8-bit avatar parameter, with slot 0 meaning "no selection".
	slotCount = 255

	// unset marks a slot that was never written. Replay skips them.
	unset = -1

	replayInterval = 250 * time.Millisecond
	saveInterval   = 300 * time.Second

	valueEpsilon = 1e-7
)

// Store is the persisted float memory.
type Store struct {
	path   string
	logger *slog.Logger

	data     []float32
	extIndex int
	extValue float32
	intIndex int

	lastTick time.Time
	lastSave time.Time

	now func() time.Time
}

// DefaultPath returns the store location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.WrapFatal(err, "storage", "DefaultPath", "config dir lookup")
	}
	return filepath.Join(dir, "facebridge", fileName), nil
}

// NewStore loads the memory at path, starting empty when the file is
// missing or unreadable.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:     path,
		logger:   logger,
		data:     emptySlots(),
		lastSave: time.Now(),
		lastTick: time.Now(),
		now:      time.Now,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}

	var data []float32
	if err := json.Unmarshal(raw, &data); err != nil || len(data) != slotCount {
		logger.Warn("discarding malformed storage file", "path", path, "error", err)
		return s
	}
	s.data = data

	return s
}

func emptySlots() []float32 {
	data := make([]float32, slotCount)
	for i := range data {
		data[i] = unset
	}
	return data
}

// Notify consumes one inbound avatar parameter. A slot is committed
// once both halves of the ExtIndex/ExtValue pair have arrived, in
// either order. Any commit restarts the replay cursor.
func (s *Store) Notify(name string, value interface{}) {
	switch name {
	case "ExtIndex":
		index, ok := value.(int32)
		if !ok || index < 0 || int(index) >= slotCount {
			return
		}
		s.extIndex = int(index)
		if s.extValue > valueEpsilon {
			s.data[s.extIndex] = s.extValue
			s.intIndex = 0
		}

	case "ExtValue":
		v, ok := value.(float32)
		if !ok {
			return
		}
		s.extValue = v
		if s.extIndex > 0 {
			s.data[s.extIndex] = s.extValue
			s.intIndex = 0
		}
	}
}

// next advances the replay cursor to the next written slot, wrapping
// to a pause at the end of the memory.
func (s *Store) next() (float32, bool) {
	start := s.intIndex
	for {
		s.intIndex++
		if s.intIndex == start {
			return 0, false
		}
		if s.intIndex >= slotCount {
			s.intIndex = 0
			return 0, false
		}
		if v := s.data[s.intIndex]; v >= 0 {
			return v, true
		}
	}
}

// Step replays one stored slot per interval while the avatar is not
// mid-write, and autosaves periodically.
func (s *Store) Step(b *bundle.Bundle) {
	if s.now().Sub(s.lastTick) <= replayInterval {
		return
	}

	// A selected ExtIndex means a write is in progress; hold replay.
	if s.extIndex != 0 {
		s.intIndex = 0
		return
	}

	if value, ok := s.next(); ok {
		s.lastTick = s.now()
		b.SendParameter("IntIndex", int32(s.intIndex))
		b.SendParameter("IntValue", value)
	}

	if s.now().Sub(s.lastSave) > saveInterval {
		s.Save()
	}
}

// Save writes the memory to disk.
func (s *Store) Save() {
	s.lastSave = s.now()

	raw, err := json.Marshal(s.data)
	if err != nil {
		s.logger.Warn("storage serialization failed", "error", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Warn("storage dir create failed", "path", s.path, "error", err)
		return
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		s.logger.Warn("storage write failed", "path", s.path, "error", err)
		return
	}

	s.logger.Info("saved storage", "path", s.path)
}
