package mode

import (
	"context"

	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/entity"
	"github.com/nerrad567/rotex-can-core/internal/flags"
)

// Logger defines the logging interface used by the Coordinator.
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

// Store gives access to the entities the Coordinator reads.
type Store interface {
	Get(id string) (*entity.Entity, bool)
	Text(id string) (string, bool)
}

// Dispatcher sends a value to the named entity.
type Dispatcher interface {
	DispatchValue(ctx context.Context, name string, v entity.Value) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(ctx context.Context, name string, v entity.Value) error

// DispatchValue calls f.
func (f DispatchFunc) DispatchValue(ctx context.Context, name string, v entity.Value) error {
	return f(ctx, name, v)
}

// Coordinator reacts to operating state and mode transitions.
type Coordinator struct {
	store    Store
	dispatch Dispatcher
	flags    flags.Store
	logger   Logger

	optimized bool
	restore   string
}

// NewCoordinator creates a coordinator with optimized defrosting disabled
// and the restore memory at standby. Call Load to pick up persisted state.
func NewCoordinator(store Store, dispatch Dispatcher, fs flags.Store, logger Logger) *Coordinator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Coordinator{
		store:    store,
		dispatch: dispatch,
		flags:    fs,
		logger:   logger,
		restore:  catalog.ModeStandby,
	}
}

// Load reads the persisted flag and restore memory.
func (c *Coordinator) Load(ctx context.Context) error {
	if v, ok, err := c.flags.Get(ctx, flags.KeyOptimizedDefrosting); err != nil {
		return err
	} else if ok {
		c.optimized = v != 0
	}

	v, ok, err := c.flags.Get(ctx, flags.KeyModeRestore)
	if err != nil {
		return err
	}
	if ok {
		if label, found := c.modeOptions().Label(uint32(v)); found { //nolint:gosec // keys are single bytes
			c.restore = label
		}
	}
	c.logger.Info("mode coordinator loaded", "optimized_defrosting", c.optimized, "restore", c.restore)
	return nil
}

// Optimized reports whether optimized defrosting is enabled.
func (c *Coordinator) Optimized() bool { return c.optimized }

// Restore returns the mode that will be restored after the current defrost.
func (c *Coordinator) Restore() string { return c.restore }

// SetOptimized enables or disables optimized defrosting and persists the
// flag. Enabling it switches the controller's antifreeze function off.
func (c *Coordinator) SetOptimized(ctx context.Context, on bool) error {
	if on {
		if _, ok := c.store.Get(catalog.TemperatureAntifreeze); ok {
			if err := c.dispatch.DispatchValue(ctx, catalog.TemperatureAntifreeze, entity.String(catalog.OptionOff)); err != nil {
				c.logger.Warn("switching antifreeze off failed", "error", err)
			}
		} else {
			c.logger.Warn("antifreeze select missing", "entity", catalog.TemperatureAntifreeze)
		}
	}
	c.optimized = on
	c.logger.Info("optimized defrosting changed", "enabled", on)
	return c.flags.Set(ctx, flags.KeyOptimizedDefrosting, boolInt(on))
}

// OnAntifreezeChange clears optimized defrosting when antifreeze has been
// switched back on at the controller. It reports whether the flag changed.
func (c *Coordinator) OnAntifreezeChange(ctx context.Context, option string) (bool, error) {
	if option == catalog.OptionOff || !c.optimized {
		return false, nil
	}
	c.optimized = false
	c.logger.Info("optimized defrosting disabled by antifreeze", "antifreeze", option)
	return true, c.flags.Set(ctx, flags.KeyOptimizedDefrosting, 0)
}

// OnStateChange handles a mode_of_operating transition from previous to
// current. It returns the mode written to operating_mode, if any.
func (c *Coordinator) OnStateChange(ctx context.Context, current, previous string) (string, bool) {
	if !c.optimized {
		return "", false
	}
	if _, ok := c.store.Get(catalog.OperatingMode); !ok {
		return "", false
	}
	mode, ok := c.store.Text(catalog.OperatingMode)
	if !ok {
		c.logger.Debug("operating mode unknown", "state", current)
		return "", false
	}

	heating := catalog.IsHeatingMode(mode)
	next := mode
	restoreBefore := c.restore

	switch {
	case previous == catalog.StateHeating && current == catalog.StateDefrosting && heating:
		next = catalog.ModeSummer
	case previous == catalog.StateDefrosting && current == catalog.StateHeating && mode == catalog.ModeSummer:
		next = c.takeRestore()
	case previous == catalog.StateHotWater && current == catalog.StateDefrosting && heating:
		next = catalog.ModeSummer
	case previous == catalog.StateDefrosting && current == catalog.StateHotWater && mode == catalog.ModeSummer &&
		catalog.IsHeatingMode(c.restore):
		next = c.takeRestore()
	case previous == catalog.StateDefrosting && current == catalog.StateStandby && mode == catalog.ModeSummer:
		next = c.takeRestore()
	}

	c.logger.Debug("operating state changed",
		"current", current, "previous", previous, "mode", mode, "new_mode", next, "restore", c.restore)

	if next == mode {
		c.persistRestore(ctx, restoreBefore)
		return "", false
	}
	if current == catalog.StateDefrosting && heating {
		c.restore = mode
	}
	c.persistRestore(ctx, restoreBefore)

	key, found := c.modeOptions().Key(next)
	if !found || key == 0 {
		c.logger.Warn("no key for mode", "mode", next)
		return "", false
	}
	if err := c.dispatch.DispatchValue(ctx, catalog.OperatingMode, entity.String(next)); err != nil {
		c.logger.Warn("mode write failed", "mode", next, "error", err)
		return "", false
	}
	c.logger.Info("operating mode corrected", "from", mode, "to", next, "state", current)
	return next, true
}

// OnModeChange handles an operating_mode update. Picking a non-heating mode
// outside a defrost clears the restore memory.
func (c *Coordinator) OnModeChange(ctx context.Context, current, _ string) {
	state, _ := c.store.Text(catalog.ModeOfOperating)
	if catalog.IsHeatingMode(current) || state == catalog.StateDefrosting {
		return
	}
	if c.restore == catalog.ModeStandby {
		return
	}
	prev := c.restore
	c.restore = catalog.ModeStandby
	c.persistRestore(ctx, prev)
}

func (c *Coordinator) takeRestore() string {
	mode := c.restore
	c.restore = catalog.ModeStandby
	return mode
}

// persistRestore writes the restore memory when it differs from before.
func (c *Coordinator) persistRestore(ctx context.Context, before string) {
	if c.restore == before {
		return
	}
	key, ok := c.modeOptions().Key(c.restore)
	if !ok {
		return
	}
	if err := c.flags.Set(ctx, flags.KeyModeRestore, int(key)); err != nil {
		c.logger.Warn("persisting restore mode failed", "error", err)
	}
}

func (c *Coordinator) modeOptions() entity.Options {
	e, ok := c.store.Get(catalog.OperatingMode)
	if !ok {
		return nil
	}
	sel, ok := e.Variant().(entity.Select)
	if !ok {
		return nil
	}
	return sel.Options
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
