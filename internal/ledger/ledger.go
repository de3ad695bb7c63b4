// Package ledger records which source spans a translation session has
// already consumed so the same span is never offered twice.
package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/valpere/bardtran/internal/quote"
)

// ErrNotBound is returned by persistence calls made before Open.
var ErrNotBound = errors.New("ledger is not bound to a translation id")

// Persister loads and stores the ledger of one translation id.
// A missing ledger is not an error: it loads as empty.
type Persister interface {
	LoadLedger(ctx context.Context, translationID string) (map[string][]string, error)
	SaveLedger(ctx context.Context, translationID string, entries map[string][]string) error
}

// Ledger is a session-scoped set of reference_key -> context labels.
// All methods are safe for concurrent use; mutations are serialized.
type Ledger struct {
	mu        sync.Mutex
	id        string
	entries   map[string][]string
	persister Persister
}

// New creates an unbound, empty ledger. persister may be nil for an
// in-memory ledger.
func New(persister Persister) *Ledger {
	return &Ledger{
		entries:   make(map[string][]string),
		persister: persister,
	}
}

// Open binds the ledger to translationID and loads its persisted state,
// replacing anything held in memory.
func (l *Ledger) Open(ctx context.Context, translationID string) error {
	l.mu.Lock()
	l.id = translationID
	l.entries = make(map[string][]string)
	l.mu.Unlock()
	return l.Load(ctx)
}

// ID returns the bound translation id.
func (l *Ledger) ID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id
}

// MarkUsed records the context label under key. Marking the same pair
// twice is a no-op. An empty label means the global scope.
func (l *Ledger) MarkUsed(key, label string) {
	if label == "" {
		label = quote.GlobalContext
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if contains(l.entries[key], label) {
		return
	}
	l.entries[key] = append(l.entries[key], label)
}

// WasUsed reports whether label, or the global scope, is recorded for key.
func (l *Ledger) WasUsed(key, label string) bool {
	if label == "" {
		label = quote.GlobalContext
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.entries[key] {
		if c == label || c == quote.GlobalContext {
			return true
		}
	}
	return false
}

// Reset forgets every recorded span. The cleared state is persisted on the
// next Save.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string][]string)
}

// Len returns the number of recorded (key, context) pairs.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, contexts := range l.entries {
		n += len(contexts)
	}
	return n
}

// Snapshot returns a deep copy of the entries with sorted contexts.
func (l *Ledger) Snapshot() map[string][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyEntries(l.entries)
}

// Save persists the current entries. Without a persister it is a no-op.
func (l *Ledger) Save(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}
	l.mu.Lock()
	id := l.id
	snapshot := copyEntries(l.entries)
	l.mu.Unlock()
	if id == "" {
		return ErrNotBound
	}
	return l.persister.SaveLedger(ctx, id, snapshot)
}

// Load replaces the in-memory entries with the persisted ones.
func (l *Ledger) Load(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}
	id := l.ID()
	if id == "" {
		return ErrNotBound
	}
	loaded, err := l.persister.LoadLedger(ctx, id)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string][]string, len(loaded))
	for k, contexts := range loaded {
		for _, c := range contexts {
			if !contains(l.entries[k], c) {
				l.entries[k] = append(l.entries[k], c)
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func copyEntries(src map[string][]string) map[string][]string {
	out := make(map[string][]string, len(src))
	for k, contexts := range src {
		c := append([]string(nil), contexts...)
		sort.Strings(c)
		out[k] = c
	}
	return out
}
