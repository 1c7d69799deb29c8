package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/canbus"
	"github.com/nerrad567/rotex-can-core/internal/entity"
)

var t0 = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// MockTransmitter records sent frames.
type MockTransmitter struct {
	mu     sync.Mutex
	frames []canbus.Frame
}

func (m *MockTransmitter) Send(_ context.Context, f canbus.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, f)
	return nil
}

func (m *MockTransmitter) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// MockObserver counts observer events.
type MockObserver struct {
	mu        sync.Mutex
	sent      []string
	timeouts  []string
	routed    []string
	unhandled []uint32
	written   []string
}

func (m *MockObserver) RequestSent(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, id)
}

func (m *MockObserver) RequestTimedOut(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts = append(m.timeouts, id)
}

func (m *MockObserver) FrameRouted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routed = append(m.routed, id)
}

func (m *MockObserver) FrameUnhandled(canID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unhandled = append(m.unhandled, canID)
}

func (m *MockObserver) ValueDispatched(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, id)
}

// sensor builds a polled sensor on extended register 0x00nn.
func sensor(t *testing.T, id string, reg byte, interval time.Duration) *entity.Entity {
	t.Helper()
	e, err := entity.New(entity.Definition{
		ID:        id,
		CanID:     0x180,
		RequestID: 0x680,
		Command:   entity.Command{0x31, 0x00, 0xFA, 0x00, reg},
		Offset:    5,
		Width:     2,
		Divider:   10,
		Interval:  interval,
		Variant:   entity.Sensor{},
	}, nil)
	if err != nil {
		t.Fatalf("entity.New(%s) error = %v", id, err)
	}
	return e
}

func response(reg byte, raw uint16) []byte {
	return []byte{0x32, 0x10, 0xFA, 0x00, reg, byte(raw >> 8), byte(raw)}
}

func newRegistry(t *testing.T, entities ...*entity.Entity) (*Registry, *MockObserver) {
	t.Helper()
	obs := &MockObserver{}
	r := New(Options{Observer: obs})
	for _, e := range entities {
		if err := r.Add(e); err != nil {
			t.Fatalf("Add(%s) error = %v", e.ID(), err)
		}
	}
	return r, obs
}

func TestRegistry_AddDuplicate(t *testing.T) {
	r, _ := newRegistry(t, sensor(t, "tv", 1, time.Second))
	err := r.Add(sensor(t, "tv", 2, time.Second))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Add() error = %v, want ErrDuplicateID", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) = true")
	}
}

func TestRegistry_RouteFirstMatch(t *testing.T) {
	a := sensor(t, "a", 1, time.Minute)
	b := sensor(t, "b", 2, time.Minute)
	// Same register as a: never reached because a matches first.
	shadow := sensor(t, "shadow", 1, time.Minute)
	r, obs := newRegistry(t, a, b, shadow)

	got, ok := r.Route(0x180, response(1, 100), t0)
	if !ok || got != a {
		t.Fatalf("Route() = %v, %v; want a", got, ok)
	}
	if shadow.Value().Valid() {
		t.Error("later entity handled an already matched frame")
	}

	if _, ok := r.Route(0x180, response(9, 100), t0.Add(time.Second)); ok {
		t.Error("Route() matched unknown register")
	}
	if !r.LastHandled().Equal(t0.Add(time.Second)) {
		t.Errorf("LastHandled() = %v, unmatched frames must still be recorded", r.LastHandled())
	}
	if len(obs.unhandled) != 1 || obs.unhandled[0] != 0x180 {
		t.Errorf("unhandled = %v", obs.unhandled)
	}
	if len(obs.routed) != 1 || obs.routed[0] != "a" {
		t.Errorf("routed = %v", obs.routed)
	}
}

func TestRegistry_SelectNextPollPacing(t *testing.T) {
	a := sensor(t, "a", 1, time.Minute)
	r, _ := newRegistry(t, a)

	r.Route(0x180, response(9, 0), t0)

	tests := []struct {
		at   time.Duration
		want bool
	}{
		{0, false},
		{249 * time.Millisecond, false},
		{250 * time.Millisecond, true},
	}
	for _, tt := range tests {
		t.Run(tt.at.String(), func(t *testing.T) {
			_, ok := r.SelectNextPoll(t0.Add(tt.at))
			if ok != tt.want {
				t.Errorf("SelectNextPoll(+%v) = %v, want %v", tt.at, ok, tt.want)
			}
		})
	}
}

func TestRegistry_SingleFlight(t *testing.T) {
	a := sensor(t, "a", 1, time.Second)
	b := sensor(t, "b", 2, time.Second)
	r, _ := newRegistry(t, a, b)
	tx := &MockTransmitter{}
	ctx := context.Background()

	polled, err := r.PollNext(ctx, tx, t0)
	if err != nil || polled != a {
		t.Fatalf("PollNext() = %v, %v; want a", polled, err)
	}

	// Simulate many ticks without an answer: nothing else may be sent.
	for i := 1; i <= 10; i++ {
		now := t0.Add(time.Duration(i) * 100 * time.Millisecond)
		if e, _ := r.PollNext(ctx, tx, now); e != nil {
			t.Fatalf("PollNext() at tick %d sent %s while a is in flight", i, e.ID())
		}
	}
	if tx.Count() != 1 {
		t.Fatalf("frames sent = %d, want 1", tx.Count())
	}

	answered := t0.Add(1500 * time.Millisecond)
	r.Route(0x180, response(1, 10), answered)
	if _, busy := r.InFlight(); busy {
		t.Fatal("InFlight() after answer")
	}

	polled, _ = r.PollNext(ctx, tx, answered.Add(250*time.Millisecond))
	if polled != b {
		t.Fatalf("PollNext() after answer = %v, want b", polled)
	}
}

func TestRegistry_MostOverdueWins(t *testing.T) {
	fast := sensor(t, "fast", 1, 10*time.Second)
	slow := sensor(t, "slow", 2, 60*time.Second)
	late := sensor(t, "late", 3, 10*time.Second)
	r, _ := newRegistry(t, fast, slow, late)

	// All answered at t0, late answered earlier so it is most overdue.
	r.Route(0x180, response(3, 1), t0.Add(-20*time.Second))
	r.Route(0x180, response(1, 1), t0)
	r.Route(0x180, response(2, 1), t0)

	now := t0.Add(30 * time.Second)
	got, ok := r.SelectNextPoll(now)
	if !ok || got != late {
		t.Fatalf("SelectNextPoll() = %v, want late", got)
	}
	if n := r.DueCount(now); n != 2 {
		t.Errorf("DueCount() = %d, want 2", n)
	}
}

func TestRegistry_TiesGoToFirstRegistered(t *testing.T) {
	var entities []*entity.Entity
	for i := 1; i <= 5; i++ {
		entities = append(entities, sensor(t, fmt.Sprintf("e%d", i), byte(i), time.Second))
	}
	r, _ := newRegistry(t, entities...)

	// Never answered: every entity is due with zero overdue time.
	got, ok := r.SelectNextPoll(t0)
	if !ok || got.ID() != "e1" {
		t.Fatalf("SelectNextPoll() = %v, want e1", got)
	}

	for _, e := range entities {
		r.Route(0x180, response(byte(e.ID()[1]-'0'), 1), t0)
	}
	got, _ = r.SelectNextPoll(t0.Add(5 * time.Second))
	if got.ID() != "e1" {
		t.Errorf("SelectNextPoll() with equal overdue = %s, want e1", got.ID())
	}
}

func TestRegistry_NothingDue(t *testing.T) {
	a := sensor(t, "a", 1, time.Minute)
	r, _ := newRegistry(t, a)
	r.Route(0x180, response(1, 1), t0)

	if _, ok := r.SelectNextPoll(t0.Add(30 * time.Second)); ok {
		t.Error("SelectNextPoll() returned entity before interval elapsed")
	}
}

func TestRegistry_RequestTimeout(t *testing.T) {
	a := sensor(t, "a", 1, time.Second)
	b := sensor(t, "b", 2, time.Second)
	r, obs := newRegistry(t, a, b)
	tx := &MockTransmitter{}
	ctx := context.Background()

	r.PollNext(ctx, tx, t0)
	if e, _ := r.PollNext(ctx, tx, t0.Add(2*time.Second)); e != nil {
		t.Fatalf("PollNext() before timeout sent %s", e.ID())
	}

	polled, _ := r.PollNext(ctx, tx, t0.Add(3*time.Second))
	if polled == nil {
		t.Fatal("PollNext() after timeout sent nothing")
	}
	if len(obs.timeouts) != 1 || obs.timeouts[0] != "a" {
		t.Errorf("timeouts = %v, want [a]", obs.timeouts)
	}
}

func TestRegistry_DispatchValue(t *testing.T) {
	num, err := entity.New(entity.Definition{
		ID:        "max_target_flow_temp",
		Name:      "Max target flow temperature",
		CanID:     0x180,
		RequestID: 0x680,
		Command:   entity.MustParseCommand("31 00 28 00 00 00 00"),
		Offset:    3,
		Width:     2,
		Divider:   10,
		Variant:   entity.Number{Min: 20, Max: 90, Step: 1},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, obs := newRegistry(t, num)
	tx := &MockTransmitter{}
	ctx := context.Background()

	if err := r.DispatchValue(ctx, tx, "Max target flow temperature", entity.Float(45)); err != nil {
		t.Fatalf("DispatchValue(name) error = %v", err)
	}
	if err := r.DispatchValue(ctx, tx, "max_target_flow_temp", entity.Float(46)); err != nil {
		t.Fatalf("DispatchValue(id) error = %v", err)
	}
	if err := r.DispatchValue(ctx, tx, "nope", entity.Float(1)); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("DispatchValue(unknown) error = %v, want ErrEntityNotFound", err)
	}
	if tx.Count() != 2 || len(obs.written) != 2 {
		t.Errorf("sent = %d, dispatched = %d, want 2", tx.Count(), len(obs.written))
	}
}

func TestRegistry_TypedLookup(t *testing.T) {
	tv := sensor(t, "tv", 1, time.Second)
	mode, _ := entity.New(entity.Definition{
		ID: "mode_of_operating", CanID: 0x180, RequestID: 0x680,
		Command: entity.MustParseCommand("31 00 FA C0 F6"), Offset: 6, Width: 1,
		Variant: entity.TextSensor{Options: entity.Options{1: "heating"}},
	}, nil)
	r, _ := newRegistry(t, tv, mode)

	if _, ok := r.Float("tv"); ok {
		t.Error("Float() reported value before any response")
	}
	r.Route(0x180, response(1, 455), t0)
	if f, ok := r.Float("tv"); !ok || f != 45.5 {
		t.Errorf("Float(tv) = %v, %v", f, ok)
	}

	r.Route(0x180, []byte{0x32, 0x10, 0xFA, 0xC0, 0xF6, 0x00, 0x01}, t0)
	if s, ok := r.Text("mode_of_operating"); !ok || s != "heating" {
		t.Errorf("Text() = %q, %v", s, ok)
	}

	if _, ok := r.Float("mode_of_operating"); ok {
		t.Error("Float() on text sensor reported a value")
	}
	if _, ok := r.Bool("tv"); ok {
		t.Error("Bool() on sensor reported a value")
	}
	if _, ok := r.Text("missing"); ok {
		t.Error("Text() on missing entity reported a value")
	}
}
