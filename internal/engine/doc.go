// Package engine runs the HPSU polling loop.
//
// One goroutine owns every entity, the deferred task queue and the control
// components. Inbound frames, operator commands and the tick timer are
// consumed by that goroutine's select loop, so entity state needs no locks.
// Operator methods (SetValue, SendCustom, RunDHW, Dump, Snapshot, Stats)
// hand a closure to the loop and wait for its result.
//
// Each tick:
//  1. runs due deferred tasks (derived recomputes, mode handlers, DHW restore)
//  2. expires stale requests and sends the next poll request
//  3. evaluates the setpoint regulator
//
// Every committed value is published through the Publisher, after the
// error code has been annotated with confirmed plant faults.
package engine
