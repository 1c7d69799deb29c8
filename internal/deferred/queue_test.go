package deferred

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func TestQueue_AfterRunsWhenDue(t *testing.T) {
	q := NewQueue()
	ran := 0
	q.After(t0, 10*time.Second, func(time.Time) { ran++ })

	if n := q.Run(t0.Add(9 * time.Second)); n != 0 || ran != 0 {
		t.Fatalf("Run() before due ran %d tasks", n)
	}
	if n := q.Run(t0.Add(10 * time.Second)); n != 1 || ran != 1 {
		t.Fatalf("Run() at due ran %d tasks, want 1", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after run, want 0", q.Len())
	}
	if n := q.Run(t0.Add(time.Minute)); n != 0 {
		t.Errorf("task ran twice")
	}
}

func TestQueue_RunOrder(t *testing.T) {
	q := NewQueue()
	var order []string
	rec := func(s string) Func { return func(time.Time) { order = append(order, s) } }

	q.After(t0, 2*time.Second, rec("c"))
	q.After(t0, time.Second, rec("a"))
	q.After(t0, time.Second, rec("b"))

	q.Run(t0.Add(5 * time.Second))

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestQueue_LaterDoesNotRecurse(t *testing.T) {
	q := NewQueue()
	depth := 0
	var schedule func(now time.Time)
	schedule = func(now time.Time) {
		depth++
		q.Later(now, schedule)
	}
	q.Later(t0, schedule)

	for i := 1; i <= 3; i++ {
		if n := q.Run(t0); n != 1 {
			t.Fatalf("Run #%d ran %d tasks, want 1", i, n)
		}
		if depth != i {
			t.Fatalf("depth = %d after run %d", depth, i)
		}
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}

func TestHandle_Cancel(t *testing.T) {
	q := NewQueue()
	ran := false
	h := q.After(t0, time.Second, func(time.Time) { ran = true })

	if !h.Valid() {
		t.Fatal("Valid() = false for pending task")
	}
	if !h.Cancel() {
		t.Fatal("Cancel() = false for pending task")
	}
	if h.Cancel() {
		t.Error("Cancel() = true twice")
	}
	q.Run(t0.Add(time.Minute))
	if ran {
		t.Error("cancelled task ran")
	}

	var zero Handle
	if zero.Valid() || zero.Cancel() || zero.Accelerate(t0) {
		t.Error("zero Handle reported as pending")
	}
}

func TestHandle_Accelerate(t *testing.T) {
	q := NewQueue()
	ran := 0
	h := q.After(t0, 10*time.Second, func(time.Time) { ran++ })

	if !h.Accelerate(t0.Add(2 * time.Second)) {
		t.Fatal("Accelerate() = false")
	}
	if due, _ := h.Due(); !due.Equal(t0.Add(2 * time.Second)) {
		t.Errorf("Due() = %v", due)
	}

	// Accelerating to a later time keeps the earlier due time.
	h.Accelerate(t0.Add(8 * time.Second))
	if due, _ := h.Due(); !due.Equal(t0.Add(2 * time.Second)) {
		t.Errorf("Due() after later accelerate = %v", due)
	}

	if q.Len() != 1 {
		t.Fatalf("Len() = %d, accelerate must not duplicate", q.Len())
	}
	q.Run(t0.Add(2 * time.Second))
	q.Run(t0.Add(20 * time.Second))
	if ran != 1 {
		t.Errorf("ran = %d, want 1", ran)
	}
	if h.Accelerate(t0) {
		t.Error("Accelerate() = true after run")
	}
}

func TestQueue_ScheduleReplacesKey(t *testing.T) {
	q := NewQueue()
	var got []int

	first := q.Schedule("restore", t0, 10*time.Second, func(time.Time) { got = append(got, 1) })
	second := q.Schedule("restore", t0.Add(5*time.Second), 10*time.Second, func(time.Time) { got = append(got, 2) })

	if first.Valid() {
		t.Error("replaced handle still valid")
	}
	if !second.Valid() || q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	if h, ok := q.Pending("restore"); !ok || h != second {
		t.Error("Pending() does not return replacement handle")
	}

	q.Run(t0.Add(10 * time.Second))
	if len(got) != 0 {
		t.Fatalf("replacement ran early: %v", got)
	}
	q.Run(t0.Add(15 * time.Second))
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("got = %v, want [2]", got)
	}
	if _, ok := q.Pending("restore"); ok {
		t.Error("Pending() after run")
	}
}

func TestQueue_CancelWithinRun(t *testing.T) {
	q := NewQueue()
	ran := false
	var victim Handle
	q.After(t0, 0, func(time.Time) { victim.Cancel() })
	victim = q.After(t0, 0, func(time.Time) { ran = true })

	if n := q.Run(t0); n != 1 {
		t.Errorf("Run() = %d, want 1", n)
	}
	if ran {
		t.Error("task cancelled by earlier task still ran")
	}
}

func TestQueue_NextDue(t *testing.T) {
	q := NewQueue()
	if _, ok := q.NextDue(); ok {
		t.Fatal("NextDue() on empty queue")
	}
	q.After(t0, 5*time.Second, func(time.Time) {})
	q.After(t0, 2*time.Second, func(time.Time) {})
	if next, _ := q.NextDue(); !next.Equal(t0.Add(2 * time.Second)) {
		t.Errorf("NextDue() = %v", next)
	}
}
