// Package deferred provides the cooperative task queue used by the control
// loop to postpone work to a later tick.
//
// The queue is not safe for concurrent use. It is owned by the engine
// goroutine, which calls Run once per tick with the current time. Tasks
// scheduled while Run is executing are never run by the same Run call, so a
// task that schedules follow-up work cannot recurse within one tick.
//
// Every scheduled task is addressed by a Handle. A handle can be cancelled or
// accelerated; accelerating moves the existing task's due time, it never
// adds a second task. Keyed scheduling (Schedule) cancels and replaces any
// pending task with the same key, so at most one task per key is live.
//
// # Usage
//
//	q := deferred.NewQueue()
//	h := q.Schedule("dhw_restore", now, 10*time.Second, restore)
//	...
//	h.Accelerate(now) // run on the next tick instead
//	...
//	q.Run(now)
package deferred
