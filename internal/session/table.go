// Package session provides the process-wide table of conversation sessions.
//
// The table serializes access per session key: two concurrent messages for
// the same key run their handlers one after the other, while different keys
// proceed independently. Callers never hold a *domain.Session outside the
// callback passed to Do.
package session

import (
	"sync"

	"github.com/nvolkov/auditbot/internal/domain"
)

type entry struct {
	mu   sync.Mutex
	sess *domain.Session
}

// Table maps session keys to live sessions.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewTable creates an empty session table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// Do runs fn with the session for key, creating it lazily on first use.
// fn executes while holding that key's lock. When fn reports done, the
// session is removed from the table before Do returns, so the next message
// with the same key starts fresh.
func (t *Table) Do(key string, fn func(s *domain.Session) (reply string, done bool)) string {
	var e *entry
	for {
		e = t.acquire(key)
		e.mu.Lock()
		// The entry may have been deleted (done, or Delete) while this
		// caller waited on its lock. Mutating a detached session would
		// silently lose the update, so re-acquire and start over.
		t.mu.Lock()
		live := t.entries[key] == e
		t.mu.Unlock()
		if live {
			break
		}
		e.mu.Unlock()
	}
	defer e.mu.Unlock()

	reply, done := fn(e.sess)
	if done {
		t.mu.Lock()
		// Only delete if the table still points at this entry; a concurrent
		// Delete followed by a re-create must not be clobbered.
		if cur, ok := t.entries[key]; ok && cur == e {
			delete(t.entries, key)
		}
		t.mu.Unlock()
	}
	return reply
}

// Delete removes the session for key, if any.
func (t *Table) Delete(key string) {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// Len returns the number of live sessions.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) acquire(key string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{sess: &domain.Session{Key: key}}
		t.entries[key] = e
	}
	return e
}
