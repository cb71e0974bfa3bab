package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/drewdunne/agenda/internal/intent"
)

func pending(ref string) PendingConfirmation {
	return PendingConfirmation{
		ID:       "p-" + ref,
		Kind:     intent.DeleteEvent,
		Entities: intent.Entities{EventReference: ref},
	}
}

func TestMemoryStore_SetGetClear(t *testing.T) {
	s := NewMemoryStore(0, 0)

	if _, ok := s.Get("u1"); ok {
		t.Error("Get() on empty store should report nothing pending")
	}

	s.Set("u1", pending("dentista"))

	got, ok := s.Get("u1")
	if !ok {
		t.Fatal("Get() should return the pending confirmation")
	}
	if got.Entities.EventReference != "dentista" {
		t.Errorf("EventReference = %q, want %q", got.Entities.EventReference, "dentista")
	}

	// Get does not consume
	if _, ok := s.Get("u1"); !ok {
		t.Error("Get() should not remove the entry")
	}

	s.Clear("u1")
	if _, ok := s.Get("u1"); ok {
		t.Error("Clear() should remove the entry")
	}
}

func TestMemoryStore_OnePerUser(t *testing.T) {
	s := NewMemoryStore(0, 0)

	s.Set("u1", pending("first"))
	s.Set("u1", pending("second"))

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	got, _ := s.Get("u1")
	if got.Entities.EventReference != "second" {
		t.Errorf("EventReference = %q, want the latest entry", got.Entities.EventReference)
	}
}

func TestMemoryStore_UsersAreIndependent(t *testing.T) {
	s := NewMemoryStore(0, 0)

	s.Set("u1", pending("a"))
	s.Set("u2", pending("b"))
	s.Clear("u1")

	if _, ok := s.Get("u2"); !ok {
		t.Error("clearing one user should not affect another")
	}
}

func TestMemoryStore_TakeConsumesOnce(t *testing.T) {
	s := NewMemoryStore(0, 0)
	s.Set("u1", pending("reunión"))

	got, ok := s.Take("u1")
	if !ok {
		t.Fatal("first Take() should return the entry")
	}
	if got.Entities.EventReference != "reunión" {
		t.Errorf("EventReference = %q", got.Entities.EventReference)
	}

	if _, ok := s.Take("u1"); ok {
		t.Error("second Take() should find nothing")
	}
}

func TestMemoryStore_ConcurrentTake(t *testing.T) {
	s := NewMemoryStore(0, 0)
	s.Set("u1", pending("x"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Take("u1"); ok {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if taken != 1 {
		t.Errorf("taken = %d, want exactly 1", taken)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(0, 50*time.Millisecond)
	s.Set("u1", pending("x"))

	time.Sleep(120 * time.Millisecond)

	if _, ok := s.Take("u1"); ok {
		t.Error("expired confirmation should not be returned")
	}
}

func TestMemoryStore_Capacity(t *testing.T) {
	s := NewMemoryStore(2, 0)
	s.Set("u1", pending("a"))
	s.Set("u2", pending("b"))
	s.Set("u3", pending("c"))

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if _, ok := s.Get("u1"); ok {
		t.Error("oldest user should be evicted beyond capacity")
	}
}
