// Package derived recomputes composite values from polled measurements and
// annotates the controller's error code with debounced plant faults.
//
// # Graph
//
// Each entity lists the derived ids it feeds (Definition.Updates). When the
// entity updates, Graph.Notify queues one recompute per dependent on the
// deferred queue; recomputation therefore happens on a later tick and never
// recursively inside frame handling. A dependent already queued is
// accelerated instead of queued again.
//
// A formula whose inputs are not all present is skipped and logged at debug
// level; it is retried automatically the next time an input updates.
//
// # Faults
//
// The Annotator is evaluated whenever error_code updates. It checks four
// independent conditions, each behind its own fault.Debouncer:
//
//   - DHW three-way valve: flow > 600, DHW mixer closed, tvbh above tv by
//     more than the configured spread (10 min).
//   - Bypass valve: flow > 600, bypass fully open, tvbh above tr by more
//     than the configured spread (10 min).
//   - Low spread: heating or hot water with the compressor running and the
//     smoothed spread below MinSpread(tv) (20 min, latched on good).
//   - Missing flow: hot water production with tdhw1 below 48 °C while flow,
//     mixer or compressor is off (5 min).
//
// Confirmed faults are appended to the error text as "|<fault>" suffixes.
package derived
