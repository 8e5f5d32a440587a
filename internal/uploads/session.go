// Package uploads manages a signed-in user's images: storing the object,
// recording its metadata and keeping a live, sorted list of the user's
// uploads.
package uploads

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"rutasonora/internal/keys"
	"rutasonora/internal/models"
	"rutasonora/internal/storage"
)

// MaxUploadBytes is the largest accepted image.
const MaxUploadBytes = 10 << 20

// ObjectStore is implemented by *storage.S3Service.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, fn storage.ProgressFunc) error
	Remove(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// RecordStore is implemented by *storage.UploadStore.
type RecordStore interface {
	Create(ctx context.Context, u models.Upload) (models.Upload, error)
	Get(ctx context.Context, ownerID, id string) (models.Upload, error)
	Delete(ctx context.Context, ownerID, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Upload, error)
}

// Feed delivers snapshots of an owner's uploads. *Hub implements it.
type Feed interface {
	Subscribe(ctx context.Context, ownerID string, fn func([]models.Upload)) func()
}

// File is one file chosen by the user.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Progress is reported while the object is being stored.
type Progress struct {
	Transferred int64 `json:"transferred"`
	Total       int64 `json:"total"`
}

// Percent is the share already transferred, 0 to 100.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Transferred) * 100 / float64(p.Total)
}

type Deps struct {
	Objects   ObjectStore
	Records   RecordStore
	Feed      Feed
	Publisher Publisher
	Now       func() time.Time
}

// Session holds one owner's live upload list. Until the feed delivers its
// first snapshot, results of this session's own uploads and deletes are
// merged into the list; after that the feed is the only writer.
type Session struct {
	owner string
	deps  Deps

	mu          sync.Mutex
	items       []models.Upload
	synced      bool
	closed      bool
	unsubscribe func()
	watchers    map[chan []models.Upload]struct{}
}

// Open starts a session for ownerID and subscribes it to the feed. ctx
// bounds the subscription's snapshot loads, not the session's lifetime.
func Open(ctx context.Context, ownerID string, deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Session{
		owner:    ownerID,
		deps:     deps,
		items:    []models.Upload{},
		watchers: make(map[chan []models.Upload]struct{}),
	}
	if deps.Feed != nil {
		s.unsubscribe = deps.Feed.Subscribe(ctx, ownerID, s.applySnapshot)
	}
	return s
}

func (s *Session) Owner() string { return s.owner }

// Upload stores f and then records its metadata. A failed record leaves the
// stored object in place.
func (s *Session) Upload(ctx context.Context, f File, description string, progress func(Progress)) (models.Upload, error) {
	if s.isClosed() {
		return models.Upload{}, ErrSessionClosed
	}
	if !strings.HasPrefix(f.ContentType, "image/") {
		return models.Upload{}, ErrNotImage
	}
	if f.Size > MaxUploadBytes {
		return models.Upload{}, ErrTooLarge
	}

	now := s.deps.Now()
	key := keys.Upload(s.owner, now, f.Name)

	var fn storage.ProgressFunc
	if progress != nil {
		fn = func(transferred, total int64) {
			progress(Progress{Transferred: transferred, Total: total})
		}
	}
	if err := s.deps.Objects.Put(ctx, key, f.Body, f.Size, f.ContentType, fn); err != nil {
		return models.Upload{}, &StorageError{Op: "put", Key: key, Err: err}
	}
	url, err := s.deps.Objects.URL(ctx, key)
	if err != nil {
		return models.Upload{}, &StorageError{Op: "url", Key: key, Err: err}
	}

	rec, err := s.deps.Records.Create(ctx, models.Upload{
		ImageURL:    url,
		FilePath:    key,
		Title:       f.Name,
		Text:        strings.TrimSpace(description),
		OwnerID:     s.owner,
		CreatedAtMs: now.UnixMilli(),
	})
	if err != nil {
		log.Printf("[uploads] record for %s failed, object left in storage: %v", key, err)
		return models.Upload{}, &PersistError{Op: "create", Err: err}
	}

	s.mergeLocal(func(items []models.Upload) []models.Upload {
		for _, it := range items {
			if it.ID == rec.ID {
				return items
			}
		}
		return append(items, rec)
	})
	s.announce(ctx, rec.ID, OpCreated)
	return rec, nil
}

// Delete removes the stored object first and the record second. If the
// object cannot be removed the record is kept.
func (s *Session) Delete(ctx context.Context, rec models.Upload) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if rec.OwnerID != s.owner || !keys.OwnsUpload(rec.FilePath, s.owner) {
		return ErrNotOwner
	}

	if err := s.deps.Objects.Remove(ctx, rec.FilePath); err != nil {
		return &StorageError{Op: "remove", Key: rec.FilePath, Err: err}
	}
	if err := s.deps.Records.Delete(ctx, s.owner, rec.ID); err != nil {
		return &PersistError{Op: "delete", ID: rec.ID, Err: err}
	}

	s.mergeLocal(func(items []models.Upload) []models.Upload {
		out := items[:0]
		for _, it := range items {
			if it.ID != rec.ID {
				out = append(out, it)
			}
		}
		return out
	})
	s.announce(ctx, rec.ID, OpDeleted)
	return nil
}

// Find returns the listed record with id.
func (s *Session) Find(id string) (models.Upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return models.Upload{}, false
}

// Lookup returns the record with id, from the list when present and from the
// record store otherwise.
func (s *Session) Lookup(ctx context.Context, id string) (models.Upload, error) {
	if s.isClosed() {
		return models.Upload{}, ErrSessionClosed
	}
	if rec, ok := s.Find(id); ok {
		return rec, nil
	}
	rec, err := s.deps.Records.Get(ctx, s.owner, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Upload{}, ErrNotFound
	}
	if err != nil {
		return models.Upload{}, &PersistError{Op: "get", ID: id, Err: err}
	}
	return rec, nil
}

// Load reads the owner's records when the feed has not delivered a snapshot
// yet, e.g. because the first load failed. The result is kept as the local
// base and later uploads and deletes still merge into it.
func (s *Session) Load(ctx context.Context) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if s.Synced() {
		return nil
	}
	list, err := s.deps.Records.ListByOwner(ctx, s.owner)
	if err != nil {
		return &PersistError{Op: "list", Err: err}
	}
	if list == nil {
		list = []models.Upload{}
	}
	models.SortUploads(list)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.synced {
		return nil
	}
	s.items = list
	s.broadcast()
	return nil
}

// List returns the current list, newest first.
func (s *Session) List() []models.Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Upload, len(s.items))
	copy(out, s.items)
	return out
}

// Synced reports whether the feed has delivered a snapshot yet.
func (s *Session) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

// Watch returns a channel that receives the list after every change, latest
// value wins. The channel is closed by the returned stop function or when
// the session closes.
func (s *Session) Watch() (<-chan []models.Upload, func()) {
	ch := make(chan []models.Upload, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.watchers[ch] = struct{}{}
	s.send(ch, s.items)

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}
}

// Close unsubscribes from the feed. Nothing is updated afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	for ch := range s.watchers {
		close(ch)
	}
	s.watchers = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) applySnapshot(list []models.Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	models.SortUploads(list)
	s.items = list
	s.synced = true
	s.broadcast()
}

func (s *Session) mergeLocal(update func([]models.Upload) []models.Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.synced {
		return
	}
	items := update(append([]models.Upload(nil), s.items...))
	models.SortUploads(items)
	s.items = items
	s.broadcast()
}

// broadcast must be called with mu held.
func (s *Session) broadcast() {
	for ch := range s.watchers {
		s.send(ch, s.items)
	}
}

func (s *Session) send(ch chan []models.Upload, items []models.Upload) {
	snapshot := make([]models.Upload, len(items))
	copy(snapshot, items)
	select {
	case <-ch:
	default:
	}
	ch <- snapshot
}

func (s *Session) announce(ctx context.Context, id string, op Op) {
	if s.deps.Publisher == nil {
		return
	}
	payload, err := ChangeEvent{OwnerID: s.owner, UploadID: id, Op: op, AtMs: s.deps.Now().UnixMilli()}.encode()
	if err == nil {
		err = s.deps.Publisher.Publish(ctx, s.owner, payload)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[uploads] publishing %s event for %s: %v", op, id, err)
	}
}
