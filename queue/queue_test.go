package queue

import "testing"

func TestPushPopOrder(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)

	for _, want := range []int{1, 2, 3} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("Pop() = %d, %v; want %d, true", got, ok, want)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Fatalf("expected empty queue to report ok=false")
	}
}

func TestLen(t *testing.T) {
	q := New[string]()
	if q.Len() != 0 {
		t.Fatalf("expected empty queue length 0")
	}
	q.Push("a")
	q.Push("b")
	if q.Len() != 2 {
		t.Fatalf("expected length 2, got %d", q.Len())
	}
}

func TestDrain(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)

	items := q.Drain()
	if len(items) != 2 || items[0] != 1 || items[1] != 2 {
		t.Fatalf("Drain() = %v, want [1 2]", items)
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue empty after Drain")
	}
}
