package portal

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/sha3"
)

// AccountGuard ensures that at most one import per portal account runs at a time.
// Accounts are keyed by a SHA3-256 digest of the portal key and the lower-cased
// e-mail, so the guard never holds the address itself.
type AccountGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewAccountGuard creates an empty guard.
func NewAccountGuard() *AccountGuard {
	return &AccountGuard{active: make(map[string]struct{})}
}

// AccountKey returns the guard key for an account.
func AccountKey(portal, email string) string {
	sum := sha3.Sum256([]byte(portal + "\x00" + strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// TryLock claims the account. It fails with ErrImportInProgress when the account is
// already claimed. The returned function releases the claim and is safe to call twice.
func (g *AccountGuard) TryLock(portal, email string) (func(), error) {
	key := AccountKey(portal, email)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[key]; busy {
		return nil, fmt.Errorf("%w: %s", ErrImportInProgress, portal)
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, nil
}

// Active returns the number of claimed accounts.
func (g *AccountGuard) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
