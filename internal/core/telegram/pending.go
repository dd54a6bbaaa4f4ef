package telegram

import (
	"sync"
	"time"
)

// PendingTokenTTL matches the deep-link token lifetime on the platform side.
const PendingTokenTTL = 5 * time.Minute

type pendingToken struct {
	token     string
	expiresAt time.Time
}

// PendingTokens holds deep-link tokens between /start and the contact share,
// keyed by chat id. Entries expire with the token itself, a stale entry would
// be rejected by the backend anyway.
type PendingTokens struct {
	mu     sync.Mutex
	tokens map[int64]pendingToken
	ttl    time.Duration
}

func NewPendingTokens(ttl time.Duration) *PendingTokens {
	return &PendingTokens{
		tokens: make(map[int64]pendingToken),
		ttl:    ttl,
	}
}

func (p *PendingTokens) Put(chatID int64, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[chatID] = pendingToken{
		token:     token,
		expiresAt: time.Now().Add(p.ttl),
	}
}

// Take removes and returns the stored token for the chat. A token is
// single-use on the relay side as well: a second contact share must restart
// from a fresh deep link.
func (p *PendingTokens) Take(chatID int64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.tokens[chatID]
	if !ok {
		return "", false
	}
	delete(p.tokens, chatID)
	if time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.token, true
}
