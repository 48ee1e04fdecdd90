// Package memento captures, restores and persists the state of every slot and
// keeps a bounded undo history.
package memento

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tableflip.dev/teamviz/pkg/barrier"
	"tableflip.dev/teamviz/pkg/slot"
	"tableflip.dev/teamviz/pkg/store"
)

// DefaultSaveDelay buffers status-quo writes so bursts of commands cost a
// single store write.
const DefaultSaveDelay = 30 * time.Second

// Memento is the ordered state of all slots.
type Memento []slot.Data

// Clone returns an independent copy.
func (m Memento) Clone() Memento {
	return append(Memento(nil), m...)
}

// Decode parses the persisted layout.
func Decode(data []byte) (Memento, error) {
	var m Memento
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("memento: decode: %w", err)
	}
	return m, nil
}

// Manager owns the slots' snapshots, the store writes and the save timer.
type Manager struct {
	Slots     []*slot.Slot
	Store     store.Store
	StatusKey string
	SaveDelay time.Duration
	Logger    *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func (m *Manager) log() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// Create reads every slot in index order.
func (m *Manager) Create() Memento {
	out := make(Memento, len(m.Slots))
	for i, s := range m.Slots {
		out[i] = s.Extract()
	}
	return out
}

// Restore applies mem to the slots with one cohort barrier. Missing records
// are treated as empty slots. Every per-slot outcome is returned.
func (m *Manager) Restore(ctx context.Context, mem Memento) []error {
	mem = pad(mem, len(m.Slots))
	b := barrier.New(len(m.Slots))
	return slot.Each(ctx, m.Slots, func(ctx context.Context, i int, s *slot.Slot) error {
		return s.Restore(ctx, mem[i], b)
	})
}

// Persist writes mem under key.
func (m *Manager) Persist(ctx context.Context, key string, mem Memento) error {
	if m.Store == nil {
		return errors.New("memento: no store configured")
	}
	data, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("memento: encode: %w", err)
	}
	return m.Store.Set(ctx, key, data)
}

// Save persists the current state under key.
func (m *Manager) Save(ctx context.Context, key string) error {
	return m.Persist(ctx, key, m.Create())
}

// Fetch reads the memento stored under key, padded to the live slot count.
func (m *Manager) Fetch(ctx context.Context, key string) (Memento, error) {
	if m.Store == nil {
		return nil, errors.New("memento: no store configured")
	}
	data, err := m.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	mem, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return pad(mem, len(m.Slots)), nil
}

// Load restores the memento stored under key.
func (m *Manager) Load(ctx context.Context, key string) ([]error, error) {
	mem, err := m.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	return m.Restore(ctx, mem), nil
}

// ScheduleSave arms the status-quo timer unless one is already pending.
func (m *Manager) ScheduleSave() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		return
	}
	delay := m.SaveDelay
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	m.timer = time.AfterFunc(delay, m.saveStatusQuo)
}

// Pending reports whether a status-quo write is scheduled.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

// Flush writes a pending status-quo save right away. It is a no-op when
// nothing is scheduled.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	t := m.timer
	m.timer = nil
	m.mu.Unlock()

	if t == nil || !t.Stop() {
		// Not scheduled, or the timer already fired and is writing.
		return nil
	}
	return m.Save(ctx, m.StatusKey)
}

func (m *Manager) saveStatusQuo() {
	m.mu.Lock()
	m.timer = nil
	m.mu.Unlock()

	if err := m.Save(context.Background(), m.StatusKey); err != nil {
		m.log().Warn("status quo not saved", zap.String("key", m.StatusKey), zap.Error(err))
		return
	}
	m.log().Debug("status quo saved", zap.String("key", m.StatusKey))
}

func pad(mem Memento, n int) Memento {
	if len(mem) >= n {
		return mem
	}
	out := make(Memento, n)
	copy(out, mem)
	return out
}
