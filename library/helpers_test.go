package library

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, time.March, 1, 10, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advanceDays(n int) { c.t = c.t.AddDate(0, 0, n) }

// flakyPersister fails every Save while failing is set.
type flakyPersister struct {
	MemoryPersister
	failing bool
}

func (p *flakyPersister) Save(s *Snapshot) error {
	if p.failing {
		return errors.New("disk full")
	}
	return p.MemoryPersister.Save(s)
}

func newTestLending(t *testing.T) (*Lending, *Store, *fakeClock) {
	t.Helper()
	store, err := NewStore(NewMemoryPersister())
	require.NoError(t, err)
	clock := newFakeClock()
	return NewLending(store, DefaultPolicy(), clock.Now), store, clock
}

func mustAddBook(t *testing.T, s *Store, isbn, title, category string, copies int) {
	t.Helper()
	_, err := s.AddBook(title, "Author of "+title, isbn, category, copies)
	require.NoError(t, err)
}

func mustRegister(t *testing.T, s *Store, name string) string {
	t.Helper()
	id, err := s.RegisterMember(name)
	require.NoError(t, err)
	return id
}
