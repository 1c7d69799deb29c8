package fault

import "time"

// Debouncer tracks one fault condition.
type Debouncer struct {
	window      time.Duration
	latchOnGood bool

	errorSince time.Time
	goodSeen   bool
	reported   bool
}

// NewDebouncer creates a Debouncer that confirms after the error condition
// has persisted for window.
func NewDebouncer(window time.Duration, latchOnGood bool) *Debouncer {
	return &Debouncer{
		window:      window,
		latchOnGood: latchOnGood,
	}
}

// Observe feeds one observation of the condition at time now.
//
// confirmed is true for every observation made while the streak is at least
// window long. first is true only for the first confirming observation of an
// unbroken streak, so callers that emit events can react exactly once.
func (d *Debouncer) Observe(isError bool, now time.Time) (confirmed, first bool) {
	if !isError {
		d.errorSince = time.Time{}
		d.reported = false
		if d.latchOnGood {
			d.goodSeen = true
		}
		return false, false
	}

	if d.errorSince.IsZero() && !d.goodSeen {
		d.errorSince = now
	}
	if d.errorSince.IsZero() || now.Sub(d.errorSince) < d.window {
		return false, false
	}

	first = !d.reported
	d.reported = true
	return true, first
}

// Reset clears the tracking timestamp and the good-case latch.
func (d *Debouncer) Reset() {
	d.errorSince = time.Time{}
	d.goodSeen = false
	d.reported = false
}

// Window returns the confirmation window.
func (d *Debouncer) Window() time.Duration { return d.window }

// Tracking reports whether an error streak is in progress and when it began.
func (d *Debouncer) Tracking() (time.Time, bool) {
	return d.errorSince, !d.errorSince.IsZero()
}

// GoodSeen reports whether the good-case latch is set.
func (d *Debouncer) GoodSeen() bool { return d.goodSeen }
