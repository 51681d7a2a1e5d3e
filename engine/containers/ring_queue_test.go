package containers

import (
	"errors"
	"testing"
)

func TestRingQueueFIFOAndWrap(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d: unexpected error %v", i, err)
		}
	}
	if err := rq.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Errorf("enqueue on full: expected ErrQueueFull, got %v", err)
	}
	if v, _ := rq.Dequeue(); v != 1 {
		t.Errorf("dequeue: expected 1, got %d", v)
	}
	if err := rq.Enqueue(4); err != nil {
		t.Fatalf("enqueue after wrap: unexpected error %v", err)
	}
	for _, want := range []int{2, 3, 4} {
		if v, err := rq.Dequeue(); err != nil || v != want {
			t.Errorf("dequeue: expected %d, got %d (%v)", want, v, err)
		}
	}
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("dequeue on empty: expected ErrQueueEmpty, got %v", err)
	}
}

func TestRingQueuePeek(t *testing.T) {
	rq := NewRingQueue[string](2)
	if _, err := rq.Peek(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("peek on empty: expected ErrQueueEmpty, got %v", err)
	}
	_ = rq.Enqueue("a")
	if v, _ := rq.Peek(); v != "a" {
		t.Errorf("peek: expected a, got %q", v)
	}
	if rq.Len() != 1 {
		t.Errorf("len after peek: expected 1, got %d", rq.Len())
	}
}
