package skiplist

import (
	"bytes"
	"testing"
	"time"
)

func TestPutGet(t *testing.T) {
	s := New()
	s.Put([]byte("b"), []byte("2"), time.Time{})
	s.Put([]byte("a"), []byte("1"), time.Time{})
	s.Put([]byte("c"), []byte("3"), time.Time{})

	v, ok := s.Get([]byte("a"))
	if !ok || !bytes.Equal(v, []byte("1")) {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	if _, ok := s.Get([]byte("missing")); ok {
		t.Fatalf("expected missing key to be absent")
	}
}

func TestOverwrite(t *testing.T) {
	s := New()
	s.Put([]byte("k"), []byte("v1"), time.Time{})
	s.Put([]byte("k"), []byte("v2"), time.Time{})

	v, ok := s.Get([]byte("k"))
	if !ok || !bytes.Equal(v, []byte("v2")) {
		t.Fatalf("Get(k) = %q, %v, want v2", v, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", s.Len())
	}
}

func TestDelete(t *testing.T) {
	s := New()
	s.Put([]byte("k"), []byte("v"), time.Time{})

	if !s.Delete([]byte("k")) {
		t.Fatalf("expected Delete to report found")
	}
	if s.Delete([]byte("k")) {
		t.Fatalf("expected second Delete to report not found")
	}
	if _, ok := s.Get([]byte("k")); ok {
		t.Fatalf("expected key gone after Delete")
	}
}

func TestTTLExpiry(t *testing.T) {
	s := New()
	s.Put([]byte("k"), []byte("v"), time.Now().Add(-time.Second))

	if _, ok := s.Get([]byte("k")); ok {
		t.Fatalf("expected expired key to be absent")
	}
}

func TestCopyOrderedAndExcludesExpired(t *testing.T) {
	s := New()
	s.Put([]byte("b"), []byte("2"), time.Time{})
	s.Put([]byte("a"), []byte("1"), time.Time{})
	s.Put([]byte("expired"), []byte("x"), time.Now().Add(-time.Minute))
	s.Put([]byte("c"), []byte("3"), time.Time{})

	entries := s.Copy()
	if len(entries) != 3 {
		t.Fatalf("expected 3 live entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if bytes.Compare(entries[i-1].Key, entries[i].Key) >= 0 {
			t.Fatalf("copy not sorted: %q before %q", entries[i-1].Key, entries[i].Key)
		}
	}
}

func TestCursorForwardBackward(t *testing.T) {
	s := New()
	for _, k := range []string{"c", "a", "b"} {
		s.Put([]byte(k), []byte(k), time.Time{})
	}

	c := NewCursor(s)
	var forward []string
	for c.Next() {
		e, _ := c.Get()
		forward = append(forward, string(e.Key))
	}
	if len(forward) != 3 || forward[0] != "a" || forward[1] != "b" || forward[2] != "c" {
		t.Fatalf("forward walk = %v, want [a b c]", forward)
	}

	var backward []string
	for c.Prev() {
		e, _ := c.Get()
		backward = append(backward, string(e.Key))
	}
	if len(backward) != 2 || backward[0] != "b" || backward[1] != "a" {
		t.Fatalf("backward walk = %v, want [b a]", backward)
	}
	c.Free()
}

func TestLockedMutationsAtomic(t *testing.T) {
	s := New()
	s.Lock()
	s.PutLocked([]byte("x"), []byte("1"), time.Time{})
	s.PutLocked([]byte("y"), []byte("2"), time.Time{})
	s.DeleteLocked([]byte("x"))
	s.Unlock()

	if _, ok := s.Get([]byte("x")); ok {
		t.Fatalf("expected x deleted")
	}
	if v, ok := s.Get([]byte("y")); !ok || !bytes.Equal(v, []byte("2")) {
		t.Fatalf("Get(y) = %q, %v, want 2", v, ok)
	}
}

func TestSizeTracking(t *testing.T) {
	s := New()
	s.Put([]byte("ab"), []byte("cd"), time.Time{})
	if s.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", s.Size())
	}
	s.Delete([]byte("ab"))
	if s.Size() != 0 {
		t.Fatalf("Size() after delete = %d, want 0", s.Size())
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Put([]byte("a"), []byte("1"), time.Time{})
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected empty after Clear, got %d", s.Len())
	}
	if _, ok := s.Get([]byte("a")); ok {
		t.Fatalf("expected key gone after Clear")
	}
}
