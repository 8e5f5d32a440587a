package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"rutasonora/internal/models"
	"rutasonora/internal/storage"
)

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	removeErr error
	removed   []string
}

func newFakeObjects() *fakeObjects { return &fakeObjects{objects: map[string][]byte{}} }

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, size int64, _ string, fn storage.ProgressFunc) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if fn != nil {
		half := int64(len(data)) / 2
		fn(half, size)
		fn(int64(len(data)), size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeObjects) URL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

type fakeRecords struct {
	mu        sync.Mutex
	rows      map[string]models.Upload
	seq       int
	createErr error
	deleteErr error
	listErr   error
}

func newFakeRecords() *fakeRecords { return &fakeRecords{rows: map[string]models.Upload{}} }

func (f *fakeRecords) Create(_ context.Context, u models.Upload) (models.Upload, error) {
	if f.createErr != nil {
		return models.Upload{}, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	u.ID = fmt.Sprintf("rec-%d", f.seq)
	f.rows[u.ID] = u
	return u, nil
}

func (f *fakeRecords) Get(_ context.Context, ownerID, id string) (models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok || u.OwnerID != ownerID {
		return models.Upload{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeRecords) Delete(_ context.Context, ownerID, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok || u.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRecords) ListByOwner(_ context.Context, ownerID string) ([]models.Upload, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Upload
	for _, u := range f.rows {
		if u.OwnerID == ownerID {
			out = append(out, u)
		}
	}
	return out, nil
}

// manualFeed delivers snapshots only when the test pushes them.
type manualFeed struct {
	mu           sync.Mutex
	fns          map[string]func([]models.Upload)
	unsubscribed bool
}

func (m *manualFeed) Subscribe(_ context.Context, ownerID string, fn func([]models.Upload)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fns == nil {
		m.fns = map[string]func([]models.Upload){}
	}
	m.fns[ownerID] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.unsubscribed = true
	}
}

func (m *manualFeed) push(ownerID string, list []models.Upload) {
	m.mu.Lock()
	fn := m.fns[ownerID]
	m.mu.Unlock()
	fn(list)
}

var errBoom = errors.New("boom")
