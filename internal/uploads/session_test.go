package uploads

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rutasonora/internal/models"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newTestSession(objects *fakeObjects, records *fakeRecords, feed *manualFeed) *Session {
	return Open(context.Background(), "user-1", Deps{
		Objects: objects,
		Records: records,
		Feed:    feed,
		Now:     func() time.Time { return fixedNow },
	})
}

func image(name, body string) File {
	return File{Name: name, ContentType: "image/jpeg", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestSession_Upload(t *testing.T) {
	objects, records := newFakeObjects(), newFakeRecords()
	s := newTestSession(objects, records, &manualFeed{})

	var progress []Progress
	rec, err := s.Upload(context.Background(), image("alcazar.jpg", "0123456789"), "  Vista desde el puente ", func(p Progress) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	wantKey := "uploads/user-1_1700000000000_alcazar.jpg"
	if rec.FilePath != wantKey || rec.ImageURL != "https://cdn.test/"+wantKey {
		t.Errorf("record paths = %q / %q", rec.FilePath, rec.ImageURL)
	}
	if rec.Title != "alcazar.jpg" || rec.Text != "Vista desde el puente" || rec.OwnerID != "user-1" {
		t.Errorf("record = %+v", rec)
	}
	if rec.CreatedAtMs != fixedNow.UnixMilli() {
		t.Errorf("CreatedAtMs = %d", rec.CreatedAtMs)
	}
	if string(objects.objects[wantKey]) != "0123456789" {
		t.Errorf("stored object = %q", objects.objects[wantKey])
	}
	if len(progress) != 2 || progress[1].Percent() != 100 || progress[0].Total != 10 {
		t.Errorf("progress = %+v", progress)
	}
	if got := s.List(); len(got) != 1 || got[0].ID != rec.ID {
		t.Errorf("list = %+v", got)
	}
}

func TestSession_Upload_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		putErr  error
		recErr  error
		wantErr func(error) bool
		stored  bool
	}{
		{
			name:    "not an image",
			file:    File{Name: "notes.txt", ContentType: "text/plain", Size: 3, Body: strings.NewReader("abc")},
			wantErr: func(err error) bool { return errors.Is(err, ErrNotImage) },
		},
		{
			name:    "too large",
			file:    File{Name: "big.png", ContentType: "image/png", Size: MaxUploadBytes + 1, Body: strings.NewReader("")},
			wantErr: func(err error) bool { return errors.Is(err, ErrTooLarge) },
		},
		{
			name:   "storage failure",
			file:   image("a.jpg", "x"),
			putErr: errBoom,
			wantErr: func(err error) bool {
				var se *StorageError
				return errors.As(err, &se) && errors.Is(err, errBoom)
			},
		},
		{
			name:   "record failure keeps object",
			file:   image("a.jpg", "x"),
			recErr: errBoom,
			stored: true,
			wantErr: func(err error) bool {
				var pe *PersistError
				return errors.As(err, &pe)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects, records := newFakeObjects(), newFakeRecords()
			objects.putErr, records.createErr = tt.putErr, tt.recErr
			s := newTestSession(objects, records, &manualFeed{})

			_, err := s.Upload(context.Background(), tt.file, "", nil)
			if !tt.wantErr(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(objects.objects) > 0; got != tt.stored {
				t.Errorf("object stored = %v, want %v", got, tt.stored)
			}
			if len(records.rows) != 0 || len(s.List()) != 0 {
				t.Errorf("records = %d, list = %d", len(records.rows), len(s.List()))
			}
		})
	}
}

func TestSession_SnapshotAfterLocalUploadHasNoDuplicate(t *testing.T) {
	objects, records := newFakeObjects(), newFakeRecords()
	feed := &manualFeed{}
	s := newTestSession(objects, records, feed)

	rec, err := s.Upload(context.Background(), image("a.jpg", "x"), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	feed.push("user-1", []models.Upload{rec})

	got := s.List()
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Fatalf("list = %+v, want exactly %s", got, rec.ID)
	}
	if !s.Synced() {
		t.Error("session not synced after snapshot")
	}
}

func TestSession_SnapshotIsSoleWriterOnceSynced(t *testing.T) {
	objects, records := newFakeObjects(), newFakeRecords()
	feed := &manualFeed{}
	s := newTestSession(objects, records, feed)

	feed.push("user-1", []models.Upload{})
	rec, err := s.Upload(context.Background(), image("a.jpg", "x"), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("local result merged after sync: %+v", s.List())
	}
	feed.push("user-1", []models.Upload{rec})
	if len(s.List()) != 1 {
		t.Fatalf("snapshot not applied: %+v", s.List())
	}
}

func TestSession_SnapshotSorting(t *testing.T) {
	feed := &manualFeed{}
	s := newTestSession(newFakeObjects(), newFakeRecords(), feed)
	feed.push("user-1", []models.Upload{
		{ID: "old", CreatedAtMs: 10},
		{ID: "server", ServerCreatedAt: time.UnixMilli(50)},
		{ID: "new", CreatedAtMs: 90},
	})
	var ids []string
	for _, u := range s.List() {
		ids = append(ids, u.ID)
	}
	if strings.Join(ids, ",") != "new,server,old" {
		t.Errorf("order = %v", ids)
	}
}

func TestSession_Delete(t *testing.T) {
	objects, records := newFakeObjects(), newFakeRecords()
	s := newTestSession(objects, records, &manualFeed{})
	rec, err := s.Upload(context.Background(), image("a.jpg", "x"), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(context.Background(), rec); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if len(objects.objects) != 0 || len(records.rows) != 0 || len(s.List()) != 0 {
		t.Errorf("leftovers: objects=%d records=%d list=%d", len(objects.objects), len(records.rows), len(s.List()))
	}
}

func TestSession_Delete_StorageFailureKeepsRecord(t *testing.T) {
	objects, records := newFakeObjects(), newFakeRecords()
	s := newTestSession(objects, records, &manualFeed{})
	rec, err := s.Upload(context.Background(), image("a.jpg", "x"), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	objects.removeErr = errBoom
	err = s.Delete(context.Background(), rec)
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StorageError", err)
	}
	if _, ok := records.rows[rec.ID]; !ok {
		t.Error("record deleted despite storage failure")
	}
	if len(s.List()) != 1 {
		t.Error("record dropped from list")
	}
}

func TestSession_Delete_RecordFailure(t *testing.T) {
	objects, records := newFakeObjects(), newFakeRecords()
	s := newTestSession(objects, records, &manualFeed{})
	rec, err := s.Upload(context.Background(), image("a.jpg", "x"), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	records.deleteErr = errBoom
	var pe *PersistError
	if err := s.Delete(context.Background(), rec); !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PersistError", err)
	}
}

func TestSession_Delete_OtherOwner(t *testing.T) {
	objects := newFakeObjects()
	s := newTestSession(objects, newFakeRecords(), &manualFeed{})
	foreign := models.Upload{ID: "x", OwnerID: "user-2", FilePath: "uploads/user-2_1_a.jpg"}
	if err := s.Delete(context.Background(), foreign); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if len(objects.removed) != 0 {
		t.Error("foreign object removed")
	}
}

func TestSession_Close(t *testing.T) {
	feed := &manualFeed{}
	s := newTestSession(newFakeObjects(), newFakeRecords(), feed)
	ch, _ := s.Watch()
	<-ch // initial empty list

	s.Close()
	if !feed.unsubscribed {
		t.Error("feed not unsubscribed")
	}
	feed.push("user-1", []models.Upload{{ID: "late"}})
	if len(s.List()) != 0 {
		t.Error("snapshot applied after Close")
	}
	if _, ok := <-ch; ok {
		t.Error("watch channel still open")
	}
	if _, err := s.Upload(context.Background(), image("a.jpg", "x"), "", nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Upload after Close = %v", err)
	}
	if err := s.Delete(context.Background(), models.Upload{}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Delete after Close = %v", err)
	}
	s.Close()
}

func TestSession_WatchSeesLatest(t *testing.T) {
	feed := &manualFeed{}
	s := newTestSession(newFakeObjects(), newFakeRecords(), feed)
	ch, stop := s.Watch()
	defer stop()

	feed.push("user-1", []models.Upload{{ID: "a", CreatedAtMs: 1}})
	feed.push("user-1", []models.Upload{{ID: "a", CreatedAtMs: 1}, {ID: "b", CreatedAtMs: 2}})

	got := <-ch
	if len(got) != 2 || got[0].ID != "b" {
		t.Errorf("latest = %+v", got)
	}
}

func TestSession_AnnouncesChanges(t *testing.T) {
	bus := NewMemoryFeed(4)
	s := Open(context.Background(), "user-1", Deps{
		Objects:   newFakeObjects(),
		Records:   newFakeRecords(),
		Publisher: bus,
		Now:       func() time.Time { return fixedNow },
	})
	rec, err := s.Upload(context.Background(), image("a.jpg", "x"), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	msg := <-bus.Messages()
	ev, err := decodeEvent(msg.Value)
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Key) != "user-1" || ev.UploadID != rec.ID || ev.Op != OpCreated || ev.AtMs != fixedNow.UnixMilli() {
		t.Errorf("event = %+v key = %s", ev, msg.Key)
	}
}

func TestSession_LoadBeforeFirstSnapshot(t *testing.T) {
	objects, records := newFakeObjects(), newFakeRecords()
	stored, _ := records.Create(context.Background(), models.Upload{OwnerID: "user-1", CreatedAtMs: 1})
	_, _ = records.Create(context.Background(), models.Upload{OwnerID: "user-2", CreatedAtMs: 2})
	s := newTestSession(objects, records, &manualFeed{})

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if list := s.List(); len(list) != 1 || list[0].ID != stored.ID {
		t.Fatalf("List() = %+v", list)
	}
	if s.Synced() {
		t.Error("loading from the record store must not count as a feed snapshot")
	}

	// Local results still merge into the loaded base.
	if _, err := s.Upload(context.Background(), image("b.jpg", "x"), "", nil); err != nil {
		t.Fatal(err)
	}
	if n := len(s.List()); n != 2 {
		t.Errorf("len after upload = %d, want 2", n)
	}

	records.listErr = errBoom
	var persistErr *PersistError
	if err := s.Load(context.Background()); !errors.As(err, &persistErr) {
		t.Errorf("Load err = %v, want *PersistError", err)
	}
}

func TestSession_Lookup(t *testing.T) {
	objects, records := newFakeObjects(), newFakeRecords()
	s := newTestSession(objects, records, &manualFeed{})
	stored, _ := records.Create(context.Background(), models.Upload{OwnerID: "user-1", FilePath: "uploads/user-1_1_a.jpg"})
	foreign, _ := records.Create(context.Background(), models.Upload{OwnerID: "user-2", FilePath: "uploads/user-2_1_a.jpg"})

	got, err := s.Lookup(context.Background(), stored.ID)
	if err != nil || got.ID != stored.ID {
		t.Fatalf("Lookup unlisted = %+v, %v", got, err)
	}
	if _, err := s.Lookup(context.Background(), foreign.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup foreign = %v, want ErrNotFound", err)
	}
	if _, err := s.Lookup(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup missing = %v, want ErrNotFound", err)
	}

	s.Close()
	if _, err := s.Lookup(context.Background(), stored.ID); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Lookup after Close = %v", err)
	}
}
