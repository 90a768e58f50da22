package httpserver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRevealTakeOnce(t *testing.T) {
	s := NewRevealStore(time.Minute)
	token := s.Put("abc12", "code1234")
	require.Len(t, token, revealTokenLen)
	require.Equal(t, 1, s.Pending())

	_, ok := s.Take(token, "other")
	require.False(t, ok, "token bound to a different entry")

	code, ok := s.Take(token, "abc12")
	require.True(t, ok)
	require.Equal(t, "code1234", code)

	_, ok = s.Take(token, "abc12")
	require.False(t, ok)
	require.Zero(t, s.Pending())
}

func TestRevealExpires(t *testing.T) {
	s := NewRevealStore(20 * time.Millisecond)
	token := s.Put("abc12", "code1234")
	time.Sleep(60 * time.Millisecond)
	_, ok := s.Take(token, "abc12")
	require.False(t, ok)
}

func TestRevealConcurrentTake(t *testing.T) {
	s := NewRevealStore(time.Minute)
	token := s.Put("abc12", "code1234")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Take(token, "abc12"); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestRevealDefaultTTL(t *testing.T) {
	require.Equal(t, 5*time.Minute, NewRevealStore(0).TTL())
}
