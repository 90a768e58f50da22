package httpserver

import (
	"sync"
	"time"

	"github.com/dchest/uniuri"
	"github.com/patrickmn/go-cache"
)

const (
	revealCookieName = "showEditCode"
	revealTokenLen   = 32
)

// RevealStore keeps generated edit codes until the creator's first visit to
// the edit page. Only an opaque token travels in the cookie.
type RevealStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items *cache.Cache
}

type pendingReveal struct {
	entryID string
	code    string
}

// NewRevealStore returns a store whose tokens expire after ttl.
func NewRevealStore(ttl time.Duration) *RevealStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RevealStore{ttl: ttl, items: cache.New(ttl, ttl)}
}

// Put remembers code for entryID and returns the token that redeems it.
func (s *RevealStore) Put(entryID, code string) string {
	token := uniuri.NewLen(revealTokenLen)
	s.items.Set(token, pendingReveal{entryID: entryID, code: code}, cache.DefaultExpiration)
	return token
}

// Take redeems token for entryID. A token is good for one successful Take.
func (s *RevealStore) Take(token, entryID string) (string, bool) {
	if token == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items.Get(token)
	if !ok {
		return "", false
	}
	pending, ok := v.(pendingReveal)
	if !ok || pending.entryID != entryID {
		return "", false
	}
	s.items.Delete(token)
	return pending.code, true
}

// TTL reports how long a token stays redeemable.
func (s *RevealStore) TTL() time.Duration {
	return s.ttl
}

// Pending returns the number of unredeemed tokens.
func (s *RevealStore) Pending() int {
	return s.items.ItemCount()
}
