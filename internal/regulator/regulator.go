package regulator

import (
	"context"
	"math"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/entity"
)

// DefaultInterval is the minimum time between two regulator actions.
const DefaultInterval = 30 * time.Second

const (
	// pullDownThreshold is how far tv may exceed the target before the
	// setpoint is pulled down regardless of the regulated value.
	pullDownThreshold = 2.5

	// pullDownMargin is the distance kept below tv when pulling down.
	pullDownMargin = 1.5
)

// Logger defines the logging interface used by the Regulator.
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

// Store gives access to current entity values.
type Store interface {
	Float(id string) (float64, bool)
	Text(id string) (string, bool)
	Bool(id string) (bool, bool)
}

// Dispatcher sends a value to the named entity.
type Dispatcher interface {
	DispatchValue(ctx context.Context, name string, v entity.Value) error
}

// Regulator is the rate-limited setpoint control loop.
type Regulator struct {
	store    Store
	dispatch Dispatcher
	interval time.Duration
	logger   Logger

	lastAction time.Time
}

// New creates a regulator. A non-positive interval selects DefaultInterval.
func New(store Store, dispatch Dispatcher, interval time.Duration, logger Logger) *Regulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Regulator{
		store:    store,
		dispatch: dispatch,
		interval: interval,
		logger:   logger,
	}
}

// LastAction returns when the regulator last evaluated the control law.
func (r *Regulator) LastAction() time.Time { return r.lastAction }

// Law returns the max flow temperature to request for supply temperature
// tv, controller target and regulated setpoint. Pull-down requests round
// half to even.
func Law(tv, target, regulated float64) float64 {
	switch {
	case tv > target && tv-target > pullDownThreshold:
		return math.RoundToEven(tv - pullDownMargin)
	case regulated >= tv:
		return regulated
	case tv-regulated < pullDownMargin:
		return regulated
	default:
		return math.RoundToEven(tv - pullDownMargin)
	}
}

// Tick evaluates the regulator at now. It returns the value written to
// max_target_flow_temp, if any.
func (r *Regulator) Tick(ctx context.Context, now time.Time) (float64, bool) {
	state, ok := r.store.Text(catalog.ModeOfOperating)
	if !ok || state != catalog.StateHeating {
		return 0, false
	}
	if on, ok := r.store.Bool(catalog.StatusCompressor); !ok || !on {
		return 0, false
	}

	maxFlow, okMax := r.store.Float(catalog.MaxTargetFlowTemp)
	tv, okTV := r.store.Float(catalog.TV)
	target, okTarget := r.store.Float(catalog.TargetSupplyTemperature)
	regulated, okReg := r.store.Float(catalog.SupplySetpointRegulated)
	if !okMax || !okTV || !okTarget || !okReg {
		r.logger.Debug("regulator inputs missing",
			"max_target_flow_temp", okMax, "tv", okTV, "target_supply_temperature", okTarget, "regulated", okReg)
		return 0, false
	}
	if regulated == 0 {
		return 0, false
	}

	if !r.lastAction.IsZero() && now.Before(r.lastAction.Add(r.interval)) {
		return 0, false
	}
	r.lastAction = now

	request := Law(tv, target, regulated)
	if request == maxFlow || request == target {
		r.logger.Debug("regulator holding", "request", request, "tv", tv, "max_target_flow_temp", maxFlow, "target", target)
		return 0, false
	}

	r.logger.Info("regulating max flow temperature",
		"request", request, "tv", tv, "max_target_flow_temp", maxFlow, "target", target, "regulated", regulated)
	if err := r.dispatch.DispatchValue(ctx, catalog.MaxTargetFlowTemp, entity.Float(request)); err != nil {
		r.logger.Warn("regulator write failed", "error", err)
		return 0, false
	}
	return request, true
}
