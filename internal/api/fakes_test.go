package api

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"rutasonora/internal/auth"
	"rutasonora/internal/models"
	"rutasonora/internal/monuments"
	"rutasonora/internal/storage"
	"rutasonora/internal/uploads"
	rootmodels "rutasonora/models"
	"rutasonora/pkg/geo"
	"rutasonora/pkg/overpass"
)

type fakeListings struct {
	listing monuments.Listing
	err     error
	gotName string
}

func (f *fakeListings) Nearby(ctx context.Context, req geo.Request, requested string) (monuments.Listing, error) {
	f.gotName = requested
	if f.err != nil {
		return monuments.Listing{}, f.err
	}
	return f.listing, nil
}

type fakeFinder struct {
	features []overpass.RawFeature
	err      error
}

func (f *fakeFinder) Find(ctx context.Context, coord rootmodels.Coordinates, radius int) ([]overpass.RawFeature, error) {
	return f.features, f.err
}

type fakeLookup struct {
	feature *overpass.RawFeature
	err     error
}

func (f *fakeLookup) Feature(ctx context.Context, ref overpass.FeatureRef) (*overpass.RawFeature, error) {
	return f.feature, f.err
}

type staticSessions map[string]string

func (s staticSessions) FindSessionByID(ctx context.Context, id string) (auth.Session, error) {
	owner, ok := s[id]
	if !ok {
		return auth.Session{}, &auth.AuthError{Kind: auth.KindUnauthorized, Message: auth.MsgNoSession}
	}
	return auth.Session{SessionID: id, UserID: owner, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type memObjects struct {
	mu        sync.Mutex
	objects   map[string]string
	removeErr error
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, size int64, _ string, fn storage.ProgressFunc) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if fn != nil {
		fn(int64(len(data)), size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(data)
	return nil
}

func (m *memObjects) Remove(_ context.Context, key string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) URL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

type memRecords struct {
	mu   sync.Mutex
	next int
	rows map[string]models.Upload
}

func (m *memRecords) Create(_ context.Context, u models.Upload) (models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	u.ID = fmt.Sprintf("rec-%d", m.next)
	m.rows[u.ID] = u
	return u, nil
}

func (m *memRecords) Get(_ context.Context, ownerID, id string) (models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok || u.OwnerID != ownerID {
		return models.Upload{}, storage.ErrNotFound
	}
	return u, nil
}

func (m *memRecords) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memRecords) ListByOwner(_ context.Context, ownerID string) ([]models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Upload
	for _, u := range m.rows {
		if u.OwnerID == ownerID {
			out = append(out, u)
		}
	}
	return out, nil
}

func newMemRecords() *memRecords { return &memRecords{rows: map[string]models.Upload{}} }

func newUploadManager(objects *memObjects, records *memRecords) *uploads.Manager {
	return uploads.NewManager(context.Background(), uploads.Deps{
		Objects: objects,
		Records: records,
		Now:     func() time.Time { return time.UnixMilli(1700000000000) },
	})
}
