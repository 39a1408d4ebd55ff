package repository

import (
	"context"
	"sync"
	"time"

	"SignalSmith/internal/domain/models"
	domrepo "SignalSmith/internal/domain/repository"
)

// MemoryJournal keeps the most recent signals in a fixed-size ring.
type MemoryJournal struct {
	mu   sync.RWMutex
	buf  []models.Signal
	next int
	full bool
}

func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryJournal{buf: make([]models.Signal, capacity)}
}

func (m *MemoryJournal) Init(context.Context) error { return nil }

func (m *MemoryJournal) Store(_ context.Context, s models.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf[m.next] = s
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Query walks the ring from newest to oldest.
func (m *MemoryJournal) Query(_ context.Context, symbol string, from, to time.Time, limit int) ([]models.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.buf)
	}
	out := make([]models.Signal, 0)
	for i := 0; i < n && len(out) < limit; i++ {
		idx := (m.next - 1 - i + len(m.buf)) % len(m.buf)
		s := m.buf[idx]
		if s.Symbol != symbol || s.GeneratedAt.Before(from) || s.GeneratedAt.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryJournal) Health(context.Context) error { return nil }

func (m *MemoryJournal) Close() error { return nil }

// NopJournal drops every signal. Used when journal.backend is none.
type NopJournal struct{}

func (NopJournal) Init(context.Context) error                 { return nil }
func (NopJournal) Store(context.Context, models.Signal) error { return nil }
func (NopJournal) Query(context.Context, string, time.Time, time.Time, int) ([]models.Signal, error) {
	return []models.Signal{}, nil
}
func (NopJournal) Health(context.Context) error { return nil }
func (NopJournal) Close() error                 { return nil }

var (
	_ domrepo.SignalJournal = (*MemoryJournal)(nil)
	_ domrepo.SignalJournal = NopJournal{}
)
