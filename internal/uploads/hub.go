package uploads

import (
	"context"
	"log"
	"sync"
	"time"

	"rutasonora/internal/models"
)

// InitialLoadTimeout bounds the first snapshot load of a new subscriber.
const InitialLoadTimeout = 5 * time.Second

// LoaderFunc loads the current upload list of one owner.
type LoaderFunc func(ctx context.Context, ownerID string) ([]models.Upload, error)

// Hub turns change events into full snapshots. For every event read from the
// message source it reloads the owner's list and hands it to that owner's
// subscribers. Reloads are serialised so subscribers never see an older
// snapshot after a newer one.
type Hub struct {
	source MessageIterator
	loader LoaderFunc

	mu   sync.Mutex
	subs map[string]map[uint64]func([]models.Upload)
	next uint64

	refreshMu sync.Mutex
}

func NewHub(source MessageIterator, loader LoaderFunc) *Hub {
	return &Hub{
		source: source,
		loader: loader,
		subs:   make(map[string]map[uint64]func([]models.Upload)),
	}
}

// Run consumes the message source until its channel closes. Malformed
// messages are logged and skipped; offsets are committed after the refresh.
func (h *Hub) Run(ctx context.Context) {
	for msg := range h.source.Messages() {
		ev, err := decodeEvent(msg.Value)
		if err != nil {
			log.Printf("[uploads] skipping change event: %v", err)
			continue
		}
		h.Refresh(ctx, ev.OwnerID)
		if err := h.source.CommitOffset(ctx, msg); err != nil {
			log.Printf("[uploads] failed to commit offset: %v", err)
		}
	}
}

// Subscribe registers fn for ownerID and delivers the initial snapshot
// before returning. The returned function unsubscribes.
func (h *Hub) Subscribe(ctx context.Context, ownerID string, fn func([]models.Upload)) func() {
	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[uint64]func([]models.Upload))
	}
	h.subs[ownerID][id] = fn
	h.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(ctx, InitialLoadTimeout)
	h.Refresh(loadCtx, ownerID)
	cancel()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[ownerID], id)
			if len(h.subs[ownerID]) == 0 {
				delete(h.subs, ownerID)
			}
		})
	}
}

// Refresh reloads ownerID's list and delivers it to current subscribers.
func (h *Hub) Refresh(ctx context.Context, ownerID string) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	fns := h.subscribers(ownerID)
	if len(fns) == 0 {
		return
	}
	list, err := h.loader(ctx, ownerID)
	if err != nil {
		log.Printf("[uploads] loading snapshot for %s: %v", ownerID, err)
		return
	}
	models.SortUploads(list)
	for _, fn := range fns {
		snapshot := make([]models.Upload, len(list))
		copy(snapshot, list)
		fn(snapshot)
	}
}

func (h *Hub) subscribers(ownerID string) []func([]models.Upload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fns := make([]func([]models.Upload), 0, len(h.subs[ownerID]))
	for _, fn := range h.subs[ownerID] {
		fns = append(fns, fn)
	}
	return fns
}
