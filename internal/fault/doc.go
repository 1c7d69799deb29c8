// Package fault converts instantaneous error observations into confirmed,
// debounced fault signals.
//
// A Debouncer only reports a fault once the error condition has held without
// interruption for its confirmation window. A single clean observation breaks
// the streak. Debouncers created with latchOnGood additionally stop tracking
// errors after the first clean observation until Reset is called, which suits
// checks that are only meaningful until the plant has proven itself once in the
// current operating context.
//
// Debouncers are not safe for concurrent use; they are owned by the engine loop.
package fault
