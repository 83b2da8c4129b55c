package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCreateAssignsUniqueHexIDs(t *testing.T) {
	m := NewMemoryStorage(time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := m.Create(10, 20, "RGB")
		require.Len(t, s.ID, 32)
		require.False(t, seen[s.ID])
		seen[s.ID] = true
		require.Equal(t, 10, s.Width)
		require.Equal(t, 20, s.Height)
		require.Equal(t, "RGB", s.Mode)
	}
	require.Equal(t, 100, m.Len())
}

func TestGetUnknownSession(t *testing.T) {
	m := NewMemoryStorage(time.Minute)
	_, err := m.Get("nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetRefreshesLastActive(t *testing.T) {
	clock := newClock()
	m := NewMemoryStorage(5*time.Minute, WithClock(clock.Now))

	s := m.Create(1, 1, "L")
	clock.Advance(4 * time.Minute)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, clock.Now(), got.LastActive)

	// Idle relative to creation but not to the last access.
	clock.Advance(4 * time.Minute)
	_, err = m.Get(s.ID)
	require.NoError(t, err)
}

func TestGetRefreshesBeforeSweeping(t *testing.T) {
	clock := newClock()
	m := NewMemoryStorage(5*time.Minute, WithClock(clock.Now))

	s := m.Create(1, 1, "L")
	clock.Advance(10 * time.Minute)

	// Long expired, but its own access must keep it alive.
	got, err := m.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)
	require.Equal(t, 1, m.Len())
}

func TestSweepEvictsIdleSessionsAndDeletesFiles(t *testing.T) {
	clock := newClock()
	dir := t.TempDir()
	m := NewMemoryStorage(5*time.Minute, WithClock(clock.Now))

	stale := m.Create(1, 1, "RGB")
	fresh := m.Create(1, 1, "RGB")

	stalePath := filepath.Join(dir, "stale.png")
	freshPath := filepath.Join(dir, "fresh.png")
	require.NoError(t, os.WriteFile(stalePath, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(freshPath, []byte("x"), 0o644))
	require.NoError(t, m.AddTempFile(stale.ID, stalePath))
	require.NoError(t, m.AddTempFile(stale.ID, filepath.Join(dir, "already-gone.png")))
	require.NoError(t, m.AddTempFile(fresh.ID, freshPath))

	clock.Advance(3 * time.Minute)
	_, err := m.Get(fresh.ID)
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	// Touching fresh triggers the sweep that removes stale.
	_, err = m.Get(fresh.ID)
	require.NoError(t, err)

	_, err = m.Get(stale.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.NoFileExists(t, stalePath)
	require.FileExists(t, freshPath)
	require.Equal(t, 1, m.Len())
}

func TestSweepExactlyAtTTLKeepsSession(t *testing.T) {
	clock := newClock()
	m := NewMemoryStorage(5*time.Minute, WithClock(clock.Now))
	m.Create(1, 1, "RGB")

	clock.Advance(5 * time.Minute)
	require.Equal(t, 0, m.Sweep())

	clock.Advance(time.Nanosecond)
	require.Equal(t, 1, m.Sweep())
	require.Equal(t, 0, m.Len())
}

func TestSweepContinuesWhenDeletionFails(t *testing.T) {
	clock := newClock()
	var removed []string
	remover := func(path string) error {
		removed = append(removed, path)
		if path == "bad" {
			return errors.New("permission denied")
		}
		return nil
	}
	m := NewMemoryStorage(time.Minute, WithClock(clock.Now), WithRemover(remover))

	a := m.Create(1, 1, "RGB")
	b := m.Create(1, 1, "RGB")
	require.NoError(t, m.AddTempFile(a.ID, "bad"))
	require.NoError(t, m.AddTempFile(a.ID, "good-a"))
	require.NoError(t, m.AddTempFile(b.ID, "good-b"))

	clock.Advance(2 * time.Minute)
	require.Equal(t, 2, m.Sweep())
	require.Equal(t, 0, m.Len())
	require.ElementsMatch(t, []string{"bad", "good-a", "good-b"}, removed)
}

func TestAddTempFileAfterExpiry(t *testing.T) {
	clock := newClock()
	m := NewMemoryStorage(time.Minute, WithClock(clock.Now))
	s := m.Create(1, 1, "RGB")

	clock.Advance(2 * time.Minute)
	m.Sweep()

	require.ErrorIs(t, m.AddTempFile(s.ID, "x.png"), ErrSessionNotFound)
}

func TestGetReturnsSnapshot(t *testing.T) {
	m := NewMemoryStorage(time.Minute)
	s := m.Create(1, 1, "RGB")
	require.NoError(t, m.AddTempFile(s.ID, "a.png"))

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	got.TempFiles[0] = "mutated"

	again, err := m.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"a.png"}, again.TempFiles)
}

func TestConcurrentAccess(t *testing.T) {
	m := NewMemoryStorage(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := m.Create(2, 2, "RGBA")
			for j := 0; j < 50; j++ {
				_, err := m.Get(s.ID)
				require.NoError(t, err)
				require.NoError(t, m.AddTempFile(s.ID, "f"))
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 16, m.Len())
}
