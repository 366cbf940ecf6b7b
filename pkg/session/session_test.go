package session

import (
	"sync"
	"testing"

	"github.com/procsight/procsight/internal/model"
)

func TestPutGetDelete(t *testing.T) {
	s := NewStore()
	log := &model.Log{}

	snap := s.Put("upload.csv", log)
	if snap.ID == "" {
		t.Fatal("empty id")
	}
	if snap.Name != "upload.csv" {
		t.Errorf("name = %q", snap.Name)
	}

	got, ok := s.Get(snap.ID)
	if !ok || got.Log != log {
		t.Fatal("Get did not return the stored snapshot")
	}

	if !s.Delete(snap.ID) {
		t.Error("Delete returned false for a live id")
	}
	if _, ok := s.Get(snap.ID); ok {
		t.Error("session survived Delete")
	}
	if s.Delete(snap.ID) {
		t.Error("second Delete must report false")
	}
}

func TestUpdateReplacesSnapshot(t *testing.T) {
	s := NewStore()
	snap := s.Put("a.csv", &model.Log{})

	replaced := *snap
	replaced.Cleaned = &model.Log{}
	s.Update(&replaced)

	got, _ := s.Get(snap.ID)
	if got.Cleaned == nil {
		t.Error("Update did not replace the snapshot")
	}

	// Unknown ids are ignored.
	s.Update(&Snapshot{ID: "missing"})
	if _, ok := s.Get("missing"); ok {
		t.Error("Update created a session for an unknown id")
	}
}

func TestUniqueIDs(t *testing.T) {
	s := NewStore()
	a := s.Put("a", &model.Log{})
	b := s.Put("b", &model.Log{})
	if a.ID == b.ID {
		t.Error("ids collide")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := s.Put("x", &model.Log{})
			s.Get(snap.ID)
			s.Delete(snap.ID)
		}()
	}
	wg.Wait()
	if s.Len() != 0 {
		t.Errorf("Len = %d after balanced put/delete, want 0", s.Len())
	}
}
