package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/entity"
)

// Default scheduling parameters.
const (
	DefaultDelay   = 250 * time.Millisecond
	DefaultTimeout = 3 * time.Second
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Observer receives bus accounting events. The engine feeds them into
// Prometheus counters.
type Observer interface {
	RequestSent(id string)
	RequestTimedOut(id string)
	FrameRouted(id string)
	FrameUnhandled(canID uint32)
	ValueDispatched(id string)
}

type noopObserver struct{}

func (noopObserver) RequestSent(string)     {}
func (noopObserver) RequestTimedOut(string) {}
func (noopObserver) FrameRouted(string)     {}
func (noopObserver) FrameUnhandled(uint32)  {}
func (noopObserver) ValueDispatched(string) {}

// Options configures a Registry. Zero durations select the defaults; a
// negative Timeout disables request expiry.
type Options struct {
	Delay    time.Duration
	Timeout  time.Duration
	Logger   Logger
	Observer Observer
}

// Registry is the ordered entity collection and poll scheduler.
type Registry struct {
	entities    []*entity.Entity
	byID        map[string]*entity.Entity
	lastHandled time.Time

	delay    time.Duration
	timeout  time.Duration
	logger   Logger
	observer Observer
}

// New creates an empty registry.
func New(opts Options) *Registry {
	r := &Registry{
		byID:     make(map[string]*entity.Entity),
		delay:    opts.Delay,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if r.delay == 0 {
		r.delay = DefaultDelay
	}
	if r.timeout == 0 {
		r.timeout = DefaultTimeout
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	if r.observer == nil {
		r.observer = noopObserver{}
	}
	return r
}

// Add registers e after all previously registered entities.
func (r *Registry) Add(e *entity.Entity) error {
	if _, exists := r.byID[e.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID())
	}
	r.entities = append(r.entities, e)
	r.byID[e.ID()] = e
	return nil
}

// Get returns the entity with the given id.
func (r *Registry) Get(id string) (*entity.Entity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// ByName resolves an entity by display name, falling back to the id.
func (r *Registry) ByName(name string) (*entity.Entity, bool) {
	for _, e := range r.entities {
		if e.Definition().Name == name {
			return e, true
		}
	}
	return r.Get(name)
}

// Entities returns the entities in registration order.
func (r *Registry) Entities() []*entity.Entity {
	out := make([]*entity.Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	return len(r.entities)
}

// LastHandled returns the arrival time of the last routed frame.
func (r *Registry) LastHandled() time.Time {
	return r.lastHandled
}

// Route offers a frame to each entity in registration order and stops at the
// first match. The arrival time is recorded whether or not anything matched.
func (r *Registry) Route(canID uint32, payload []byte, now time.Time) (*entity.Entity, bool) {
	r.lastHandled = now

	for _, e := range r.entities {
		ok, err := e.TryHandle(canID, payload, now)
		if !ok {
			continue
		}
		if errors.Is(err, entity.ErrOutOfRange) {
			r.logger.Debug("reading rejected", "entity", e.ID(), "error", err)
		}
		r.observer.FrameRouted(e.ID())
		return e, true
	}

	r.logger.Debug("unhandled frame", "can_id", fmt.Sprintf("0x%03X", canID), "data", fmt.Sprintf("% X", payload))
	r.observer.FrameUnhandled(canID)
	return nil, false
}

// InFlight returns the entity with an outstanding request, if any.
func (r *Registry) InFlight() (*entity.Entity, bool) {
	for _, e := range r.entities {
		if e.InFlight() {
			return e, true
		}
	}
	return nil, false
}

// ExpireRequests abandons outstanding requests older than the timeout and
// returns the affected entities.
func (r *Registry) ExpireRequests(now time.Time) []*entity.Entity {
	if r.timeout < 0 {
		return nil
	}
	var expired []*entity.Entity
	for _, e := range r.entities {
		if e.Expire(now, r.timeout) {
			r.logger.Warn("request timed out", "entity", e.ID(), "timeout", r.timeout)
			r.observer.RequestTimedOut(e.ID())
			expired = append(expired, e)
		}
	}
	return expired
}

// SelectNextPoll returns the entity that should be polled at now, or false
// when pacing, an outstanding request or the absence of due entities
// forbids a request.
func (r *Registry) SelectNextPoll(now time.Time) (*entity.Entity, bool) {
	if now.Before(r.lastHandled.Add(r.delay)) {
		return nil, false
	}
	if _, busy := r.InFlight(); busy {
		return nil, false
	}

	var best *entity.Entity
	var bestOverdue time.Duration
	for _, e := range r.entities {
		if !e.IsPollDue(now) {
			continue
		}
		overdue := e.OverdueAmount(now)
		if best == nil || overdue > bestOverdue {
			best, bestOverdue = e, overdue
		}
	}
	return best, best != nil
}

// PollNext expires stale requests, selects the next entity and sends its
// request. It returns the polled entity, or nil when nothing was sent.
func (r *Registry) PollNext(ctx context.Context, tx entity.Transmitter, now time.Time) (*entity.Entity, error) {
	r.ExpireRequests(now)

	e, ok := r.SelectNextPoll(now)
	if !ok {
		return nil, nil
	}
	if err := e.SendRequest(ctx, tx, now); err != nil {
		return nil, err
	}
	r.observer.RequestSent(e.ID())
	return e, nil
}

// DueCount returns how many entities are due for a poll at now.
func (r *Registry) DueCount(now time.Time) int {
	n := 0
	for _, e := range r.entities {
		if e.IsPollDue(now) {
			n++
		}
	}
	return n
}

// DispatchValue encodes v for the named entity and transmits it. Unknown
// names are logged and reported as ErrEntityNotFound.
func (r *Registry) DispatchValue(ctx context.Context, tx entity.Transmitter, name string, v entity.Value) error {
	e, ok := r.ByName(name)
	if !ok {
		r.logger.Warn("dispatch to unknown entity", "name", name)
		return fmt.Errorf("%w: %s", ErrEntityNotFound, name)
	}
	if err := e.SendValue(ctx, tx, v); err != nil {
		r.logger.Warn("dispatch failed", "entity", e.ID(), "value", v.String(), "error", err)
		return err
	}
	r.logger.Info("value dispatched", "entity", e.ID(), "value", v.String())
	r.observer.ValueDispatched(e.ID())
	return nil
}
