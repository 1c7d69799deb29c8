package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/canbus"
)

// Transmitter sends frames on the bus. canbus.Transport satisfies it.
type Transmitter interface {
	Send(ctx context.Context, f canbus.Frame) error
}

// UpdateFunc is called after every successful match or local publish.
type UpdateFunc func(e *Entity, current, previous Value)

// Definition is the static description of an entity.
type Definition struct {
	ID   string
	Name string

	// CanID is the identifier responses arrive on.
	CanID uint32

	// RequestID is the identifier requests and writes are sent on.
	RequestID uint32

	// Command is the read request; zero for local or derived entities.
	Command Command

	// Offset and Width locate the big-endian value window in the response.
	Offset int
	Width  int

	// Divider scales raw values into engineering units.
	Divider float64
	Signed  bool

	// Interval is the minimum time between successful polls.
	Interval time.Duration

	// Updates lists derived entity IDs to recompute when this value arrives.
	Updates []string

	Variant Variant
	Decode  DecodeFunc
	Encode  EncodeFunc
}

// Validate checks the definition for internal consistency.
func (d Definition) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidDefinition)
	case d.Variant == nil:
		return fmt.Errorf("%w: %s has no kind", ErrInvalidDefinition, d.ID)
	case d.Divider == 0:
		return fmt.Errorf("%w: %s has zero divider", ErrInvalidDefinition, d.ID)
	case !d.Command.IsZero() && d.Decode == nil && (d.Width < 1 || d.Width > 4):
		return fmt.Errorf("%w: %s width %d", ErrInvalidDefinition, d.ID, d.Width)
	case !d.Command.IsZero() && d.Decode == nil && (d.Offset < 0 || d.Offset+d.Width > CommandLength):
		return fmt.Errorf("%w: %s window [%d:%d]", ErrInvalidDefinition, d.ID, d.Offset, d.Offset+d.Width)
	}
	return nil
}

// Entity is one polled or settable point.
type Entity struct {
	def         Definition
	fingerprint Fingerprint

	lastResponse time.Time
	lastRequest  time.Time
	lastChange   time.Time
	current      Value
	previous     Value
	raw          uint32

	onUpdate UpdateFunc
}

// New validates def and derives the response fingerprint with fp.
// A nil fp selects DefaultFingerprint.
func New(def Definition, fp FingerprintFunc) (*Entity, error) {
	if def.Divider == 0 {
		def.Divider = 1
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if fp == nil {
		fp = DefaultFingerprint
	}
	return &Entity{
		def:         def,
		fingerprint: fp(def.Command),
	}, nil
}

func (e *Entity) ID() string { return e.def.ID }
func (e *Entity) Definition() Definition { return e.def }
func (e *Entity) Kind() Kind { return e.def.Variant.Kind() }
func (e *Entity) Variant() Variant { return e.def.Variant }
func (e *Entity) Fingerprint() Fingerprint { return e.fingerprint }
func (e *Entity) Value() Value { return e.current }
func (e *Entity) Previous() Value { return e.previous }
func (e *Entity) Raw() uint32 { return e.raw }
func (e *Entity) LastResponse() time.Time { return e.lastResponse }
func (e *Entity) LastRequest() time.Time  { return e.lastRequest }
func (e *Entity) LastChange() time.Time   { return e.lastChange }

// Name returns the display name, falling back to the ID.
func (e *Entity) Name() string {
	if e.def.Name != "" {
		return e.def.Name
	}
	return e.def.ID
}

// SetOnUpdate registers the post-update notification.
func (e *Entity) SetOnUpdate(fn UpdateFunc) {
	e.onUpdate = fn
}

// HasCommand reports whether the entity is polled.
func (e *Entity) HasCommand() bool {
	return !e.def.Command.IsZero()
}

// IsPollDue reports whether a poll should be issued at now.
func (e *Entity) IsPollDue(now time.Time) bool {
	if !e.HasCommand() {
		return false
	}
	return e.lastResponse.IsZero() || now.After(e.lastResponse.Add(e.def.Interval))
}

// OverdueAmount returns how far past its due time the entity is, saturated
// at zero.
func (e *Entity) OverdueAmount(now time.Time) time.Duration {
	if !e.HasCommand() {
		return 0
	}
	due := e.lastResponse.Add(e.def.Interval)
	if now.After(due) {
		return now.Sub(due)
	}
	return 0
}

// InFlight reports whether a request has been sent and not yet answered.
func (e *Entity) InFlight() bool {
	return !e.lastRequest.IsZero() && e.lastRequest.After(e.lastResponse)
}

// Expire abandons an outstanding request older than timeout and reports
// whether it did.
func (e *Entity) Expire(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 || !e.InFlight() || now.Sub(e.lastRequest) < timeout {
		return false
	}
	e.lastRequest = time.Time{}
	return true
}

// SendRequest transmits the read command and records the request time.
func (e *Entity) SendRequest(ctx context.Context, tx Transmitter, now time.Time) error {
	if !e.HasCommand() {
		return fmt.Errorf("%w: %s", ErrNoCommand, e.def.ID)
	}
	f, err := canbus.NewFrame(e.def.RequestID, e.def.Command[:])
	if err != nil {
		return fmt.Errorf("building request for %s: %w", e.def.ID, err)
	}
	if err := tx.Send(ctx, f); err != nil {
		return fmt.Errorf("sending request for %s: %w", e.def.ID, err)
	}
	e.lastRequest = now
	return nil
}

// EncodeValue builds the write frame for v. Numeric values are multiplied by
// the divider; select options are looked up in the options table.
func (e *Entity) EncodeValue(v Value) (canbus.Frame, error) {
	if !e.HasCommand() {
		return canbus.Frame{}, fmt.Errorf("%w: %s", ErrNoCommand, e.def.ID)
	}
	raw, err := e.rawFor(v)
	if err != nil {
		return canbus.Frame{}, fmt.Errorf("%s: %w", e.def.ID, err)
	}
	cmd := e.writeCommand(raw)
	return canbus.NewFrame(e.def.RequestID, cmd[:])
}

// SendValue encodes and transmits v.
func (e *Entity) SendValue(ctx context.Context, tx Transmitter, v Value) error {
	f, err := e.EncodeValue(v)
	if err != nil {
		return err
	}
	if err := tx.Send(ctx, f); err != nil {
		return fmt.Errorf("sending value for %s: %w", e.def.ID, err)
	}
	return nil
}

// TryHandle matches an inbound frame against this entity. On a match the
// value is decoded and committed, timestamps are updated and the post-update
// notification fires. It returns false without mutating anything when the
// frame does not belong to this entity or cannot be decoded.
//
// A matched reading outside the sensor's plausibility range counts as an
// answer (the request is complete) but the value is not committed; the
// returned error is ErrOutOfRange.
func (e *Entity) TryHandle(canID uint32, payload []byte, now time.Time) (bool, error) {
	if !e.HasCommand() || canID != e.def.CanID || !e.fingerprint.Match(payload) {
		return false, nil
	}

	v, raw, err := e.decode(payload)
	if err != nil {
		if isOutOfRange(err) {
			e.lastResponse = now
			return true, err
		}
		return false, err
	}

	e.raw = raw
	e.lastResponse = now
	e.commit(v, now)
	return true, nil
}

// Publish sets the value of a local or derived entity and fires the
// post-update notification.
func (e *Entity) Publish(v Value, now time.Time) {
	e.lastResponse = now
	e.commit(v, now)
}

func (e *Entity) commit(v Value, now time.Time) {
	e.previous = e.current
	e.current = v
	if !v.Equal(e.previous) {
		e.lastChange = now
	}
	if e.onUpdate != nil {
		e.onUpdate(e, e.current, e.previous)
	}
}
