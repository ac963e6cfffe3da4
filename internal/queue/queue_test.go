package queue

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestJoin_Validation(t *testing.T) {
	q := New()
	if _, err := q.Join("u1", "Player One", "seed1", false, now); err != nil {
		t.Fatalf("first join: %v", err)
	}

	cases := []struct {
		name    string
		userID  string
		seated  bool
		wantErr error
	}{
		{"duplicate rejected", "u1", false, ErrAlreadyQueued},
		{"seated rejected", "u2", true, ErrAlreadySeated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := q.Join(tc.userID, "x", "s", tc.seated, now)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestJoin_CapacityCap(t *testing.T) {
	q := New()
	for i := 0; i < MaxQueueSize; i++ {
		if _, err := q.Join(fmt.Sprintf("u%d", i), "p", "s", false, now); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if _, err := q.Join("overflow", "p", "s", false, now); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("want ErrQueueFull, got %v", err)
	}
}

func assertContiguous(t *testing.T, q *Queue) {
	t.Helper()
	for i, e := range q.Entries() {
		if e.Position != i+1 {
			t.Fatalf("position gap at index %d: %+v", i, q.Entries())
		}
	}
}

func TestLeave_RenumbersContiguously(t *testing.T) {
	q := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		q.Join(id, id, "s", false, now)
	}

	if err := q.Leave("b"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	assertContiguous(t, q)
	if q.Len() != 3 || q.Entries()[1].UserID != "c" {
		t.Fatalf("unexpected entries: %+v", q.Entries())
	}

	if err := q.Leave("b"); !errors.Is(err, ErrNotQueued) {
		t.Fatalf("want ErrNotQueued, got %v", err)
	}
}

func TestPopFront_TakesEarliestJoiners(t *testing.T) {
	q := New()
	for _, id := range []string{"a", "b", "c"} {
		q.Join(id, id, "s", false, now)
	}

	popped := q.PopFront(2)
	if len(popped) != 2 || popped[0].UserID != "a" || popped[1].UserID != "b" {
		t.Fatalf("popped = %+v", popped)
	}
	assertContiguous(t, q)
	if q.Len() != 1 || q.Entries()[0].Position != 1 {
		t.Fatalf("remainder = %+v", q.Entries())
	}

	if got := q.PopFront(5); len(got) != 1 {
		t.Fatalf("over-pop = %+v", got)
	}
	if got := q.PopFront(1); got != nil {
		t.Fatalf("empty pop = %+v", got)
	}
}

func TestWillGetSpot(t *testing.T) {
	e := Entry{Position: 2}
	if WillGetSpot(e, 1) {
		t.Fatalf("position 2 should not fit one spot")
	}
	if !WillGetSpot(e, 2) {
		t.Fatalf("position 2 should fit two spots")
	}
}

// Random-ish churn keeps positions a contiguous 1..N sequence.
func TestChurn_PositionsStayContiguous(t *testing.T) {
	q := New()
	for i := 0; i < 10; i++ {
		q.Join(fmt.Sprintf("u%d", i), "p", "s", false, now)
	}
	q.Leave("u3")
	q.PopFront(2)
	q.Leave("u7")
	q.Join("u99", "p", "s", false, now)
	q.PopFront(1)

	assertContiguous(t, q)
}
