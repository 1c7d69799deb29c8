package deferred

import (
	"sort"
	"time"
)

// Func is a deferred task. It receives the time of the Run call executing it.
type Func func(now time.Time)

type task struct {
	seq uint64
	key string
	due time.Time
	fn  Func
}

// Queue holds pending tasks ordered by due time and scheduling order.
type Queue struct {
	seq   uint64
	tasks map[uint64]*task
	keys  map[string]uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		tasks: make(map[uint64]*task),
		keys:  make(map[string]uint64),
	}
}

// Handle identifies one scheduled task. The zero Handle is never valid.
type Handle struct {
	q   *Queue
	seq uint64
}

// After schedules fn to run on the first Run at or after now+delay.
func (q *Queue) After(now time.Time, delay time.Duration, fn Func) Handle {
	return q.add("", now.Add(delay), fn)
}

// Later schedules fn for the next Run call. It never runs within the Run
// call that scheduled it.
func (q *Queue) Later(now time.Time, fn Func) Handle {
	return q.add("", now, fn)
}

// Schedule is After with a key: a pending task with the same key is
// cancelled and replaced.
func (q *Queue) Schedule(key string, now time.Time, delay time.Duration, fn Func) Handle {
	if seq, ok := q.keys[key]; ok {
		delete(q.tasks, seq)
	}
	return q.add(key, now.Add(delay), fn)
}

// Pending returns the live handle for key, if any.
func (q *Queue) Pending(key string) (Handle, bool) {
	seq, ok := q.keys[key]
	if !ok {
		return Handle{}, false
	}
	return Handle{q: q, seq: seq}, true
}

func (q *Queue) add(key string, due time.Time, fn Func) Handle {
	q.seq++
	t := &task{seq: q.seq, key: key, due: due, fn: fn}
	q.tasks[t.seq] = t
	if key != "" {
		q.keys[key] = t.seq
	}
	return Handle{q: q, seq: t.seq}
}

func (q *Queue) remove(t *task) {
	delete(q.tasks, t.seq)
	if t.key != "" && q.keys[t.key] == t.seq {
		delete(q.keys, t.key)
	}
}

// Run executes every task due at now that was scheduled before this call,
// in due-time order with ties broken by scheduling order. It returns the
// number of tasks run.
func (q *Queue) Run(now time.Time) int {
	barrier := q.seq
	due := make([]*task, 0, len(q.tasks))
	for _, t := range q.tasks {
		if t.seq <= barrier && !t.due.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].due.Equal(due[j].due) {
			return due[i].due.Before(due[j].due)
		}
		return due[i].seq < due[j].seq
	})

	ran := 0
	for _, t := range due {
		// An earlier task in this batch may have cancelled it.
		if _, live := q.tasks[t.seq]; !live {
			continue
		}
		q.remove(t)
		t.fn(now)
		ran++
	}
	return ran
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// NextDue returns the earliest due time among pending tasks.
func (q *Queue) NextDue() (time.Time, bool) {
	var next time.Time
	found := false
	for _, t := range q.tasks {
		if !found || t.due.Before(next) {
			next = t.due
			found = true
		}
	}
	return next, found
}

// Valid reports whether the task is still pending.
func (h Handle) Valid() bool {
	if h.q == nil {
		return false
	}
	_, ok := h.q.tasks[h.seq]
	return ok
}

// Cancel removes the task and reports whether it was pending.
func (h Handle) Cancel() bool {
	if h.q == nil {
		return false
	}
	t, ok := h.q.tasks[h.seq]
	if !ok {
		return false
	}
	h.q.remove(t)
	return true
}

// Accelerate moves the task's due time to now if that is sooner and reports
// whether the task was pending.
func (h Handle) Accelerate(now time.Time) bool {
	if h.q == nil {
		return false
	}
	t, ok := h.q.tasks[h.seq]
	if !ok {
		return false
	}
	if now.Before(t.due) {
		t.due = now
	}
	return true
}

// Due returns the task's due time.
func (h Handle) Due() (time.Time, bool) {
	if h.q == nil {
		return time.Time{}, false
	}
	t, ok := h.q.tasks[h.seq]
	if !ok {
		return time.Time{}, false
	}
	return t.due, true
}
