package container_test

import (
	"testing"

	"github.com/studease/chatease-ws/internal/container"
)

func TestQueueOrder(t *testing.T) {
	q := container.NewQueue[string]()
	q.PushBack("a")
	q.PushBack("b")
	q.PushBack("c")

	var got []string
	q.Each(func(v string) { got = append(got, v) })
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("order mismatch at %d: got %s want %s", i, got[i], w)
		}
	}

	v, ok := q.PopFront()
	if !ok || v != "a" {
		t.Fatalf("PopFront = %v, %v, want a, true", v, ok)
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
}

func TestHeaderSetHashProperty(t *testing.T) {
	names := []string{"host", "user-agent", "sec-websocket-key", "connection", "upgrade"}
	hs := container.NewHeaderSet[int](len(names))
	for i, n := range names {
		hs.Insert(n, i)
	}
	for i, n := range names {
		v, ok := hs.Lookup(n)
		if !ok || v != i {
			t.Fatalf("Lookup(%q) = %v, %v, want %d, true", n, v, ok, i)
		}
		if container.RollingHash([]byte(n)) != container.RollingHash([]byte(n)) {
			t.Fatalf("rolling hash not deterministic for %q", n)
		}
	}
	if _, ok := hs.Lookup("x-not-present"); ok {
		t.Fatal("unexpected hit for unregistered header")
	}
}
