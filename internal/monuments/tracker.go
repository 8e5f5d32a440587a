package monuments

import (
	"context"
	"sync"
)

// Tracker hands out one live search per key. Starting a new search for a key
// cancels the previous one, and the old Token stops reporting Current.
type Tracker struct {
	mu      sync.Mutex
	seq     uint64
	entries map[string]*entry
}

type entry struct {
	gen    uint64
	cancel context.CancelFunc
}

// Token identifies one search invocation.
type Token struct {
	t   *Tracker
	key string
	gen uint64
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Begin cancels any running search for key and returns a context for the new
// one. Call Token.Done when the search finishes.
func (t *Tracker) Begin(parent context.Context, key string) (context.Context, Token) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{}
		t.entries[key] = e
	} else if e.cancel != nil {
		e.cancel()
	}
	t.seq++
	e.gen = t.seq
	e.cancel = cancel
	return ctx, Token{t: t, key: key, gen: e.gen}
}

// Current reports whether no newer search for the same key has started.
func (tok Token) Current() bool {
	tok.t.mu.Lock()
	defer tok.t.mu.Unlock()
	e, ok := tok.t.entries[tok.key]
	return ok && e.gen == tok.gen
}

// Commit runs write only while tok is current, holding the tracker lock so a
// newer Begin cannot interleave. It reports whether write ran.
func (tok Token) Commit(write func()) bool {
	tok.t.mu.Lock()
	defer tok.t.mu.Unlock()
	e, ok := tok.t.entries[tok.key]
	if !ok || e.gen != tok.gen {
		return false
	}
	write()
	return true
}

// Done releases the search's context. The key is forgotten if tok is still
// the latest search for it.
func (tok Token) Done() {
	tok.t.mu.Lock()
	defer tok.t.mu.Unlock()
	e, ok := tok.t.entries[tok.key]
	if !ok || e.gen != tok.gen {
		return
	}
	e.cancel()
	delete(tok.t.entries, tok.key)
}
