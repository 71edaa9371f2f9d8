package queue

import "testing"

func TestPushPop(t *testing.T) {
	q := New[int](2)
	q.Push(1)
	q.Push(2)
	q.Push(3)

	a, _ := q.Pop()
	b, _ := q.Pop()
	c, _ := q.Pop()

	if a != 1 || b != 2 || c != 3 {
		t.Fatal("bad contents:", a, b, c)
	}
}

func TestPopEmpty(t *testing.T) {
	q := New[int](4)
	if _, ok := q.Pop(); ok {
		t.Fatal("popped from empty queue")
	}
}

func TestGrowsPastInitialCapacity(t *testing.T) {
	q := New[int](2)
	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	if q.Len() != 10 {
		t.Fatalf("got len %d, want 10", q.Len())
	}
	for i := 0; i < 10; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("at %d: got (%d, %v), want (%d, true)", i, v, ok, i)
		}
	}
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New[string](4)
	q.Push("a")
	q.Push("b")

	v, ok := q.Peek()
	if !ok || v != "a" {
		t.Fatalf("got (%q, %v), want (\"a\", true)", v, ok)
	}
	if q.Len() != 2 {
		t.Fatalf("Peek should not remove; got len %d", q.Len())
	}
}

func TestFIFOOrderPreservedAcrossGrowthAndWraparound(t *testing.T) {
	q := New[int](3)
	q.Push(1)
	q.Push(2)
	q.Push(3)
	v, _ := q.Pop()
	if v != 1 {
		t.Fatalf("got %d, want 1", v)
	}
	q.Push(4) // wraps within capacity 3
	q.Push(5) // forces growth
	for i, want := range []int{2, 3, 4, 5} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("pop %d: got (%d, %v), want (%d, true)", i, got, ok, want)
		}
	}
}
