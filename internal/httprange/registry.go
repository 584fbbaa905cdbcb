package httprange

import (
	"crypto/rand"
	"encoding/base64"
	"sync"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/metrics"
)

// EntrySource opens random-access readers for archive entries. *archive.Session
// satisfies this; tests can supply a fake.
type EntrySource interface {
	OpenEntry(entry archive.Entry) (archive.EntryReader, error)
}

// Registration is one token's entry, per §4.7's token lifecycle: "(token,
// archive_path, entry_path, size)".
type Registration struct {
	Session EntrySource
	Entry   archive.Entry
	Name    string // cosmetic filename segment for the pointer URL
}

// registry maps tokens to registrations. Tokens are held for process
// lifetime by default (§4.7 "Token lifecycle") — there is no eviction path
// here; disposal policy decides whether the backing archive survives, not
// this registry.
type registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]Registration)}
}

// register mints a new 128-bit URL-safe token for reg.
func (r *registry) register(reg Registration) string {
	token := newToken()

	r.mu.Lock()
	r.entries[token] = reg
	r.mu.Unlock()

	metrics.HTTPRangeTokensActive.Set(float64(r.len()))
	return token
}

func (r *registry) lookup(token string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[token]
	return reg, ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func newToken() string {
	b := make([]byte, 16) // 128 bits
	if _, err := rand.Read(b); err != nil {
		panic("httprange: failed to read random token bytes: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
