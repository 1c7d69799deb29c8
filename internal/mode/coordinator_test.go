package mode

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/entity"
	"github.com/nerrad567/rotex-can-core/internal/flags"
	"github.com/nerrad567/rotex-can-core/internal/registry"
)

var t0 = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

type write struct {
	name  string
	value string
}

// MockDispatcher records writes and echoes them onto the entity, like the
// controller answering the next poll.
type MockDispatcher struct {
	mu     sync.Mutex
	reg    *registry.Registry
	writes []write
}

func (m *MockDispatcher) DispatchValue(_ context.Context, name string, v entity.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, write{name: name, value: v.String()})
	if e, ok := m.reg.Get(name); ok {
		e.Publish(v, t0)
	}
	return nil
}

func (m *MockDispatcher) Writes() []write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]write(nil), m.writes...)
}

type fixture struct {
	reg      *registry.Registry
	dispatch *MockDispatcher
	flags    *flags.MemoryStore
	coord    *Coordinator
}

func newFixture(t *testing.T, optimized bool) *fixture {
	t.Helper()
	reg := registry.New(registry.Options{})
	defs := []entity.Definition{
		{
			ID: catalog.OperatingMode, CanID: 0x180, RequestID: 0x680,
			Command: entity.MustParseCommand("31 00 FA 01 12"), Offset: 5, Width: 1,
			Variant: entity.Select{Options: entity.Options{
				0x01: catalog.ModeStandby, 0x03: catalog.ModeHeating, 0x04: catalog.ModeLowering,
				0x05: catalog.ModeSummer, 0x11: catalog.ModeCooling,
				0x0B: catalog.ModeAutomatic1, 0x0C: catalog.ModeAutomatic2,
			}},
		},
		{
			ID: catalog.ModeOfOperating, CanID: 0x180, RequestID: 0x680,
			Command: entity.MustParseCommand("31 00 FA C0 F6"), Offset: 6, Width: 1,
			Variant: entity.TextSensor{Options: entity.Options{
				0: catalog.StateStandby, 1: catalog.StateHeating, 2: catalog.StateCooling,
				3: catalog.StateDefrosting, 4: catalog.StateHotWater,
			}},
		},
		{
			ID: catalog.TemperatureAntifreeze, CanID: 0x180, RequestID: 0x680,
			Command: entity.MustParseCommand("31 00 FA 0A 00"), Offset: 5, Width: 2, Divider: 10,
			Variant: entity.Select{Options: entity.Options{0xFF60: catalog.OptionOff, 0: "0 °C"}},
		},
	}
	for _, def := range defs {
		e, err := entity.New(def, nil)
		if err != nil {
			t.Fatalf("entity.New(%s) error = %v", def.ID, err)
		}
		if err := reg.Add(e); err != nil {
			t.Fatal(err)
		}
	}

	fs := flags.NewMemoryStore()
	if optimized {
		fs.Set(context.Background(), flags.KeyOptimizedDefrosting, 1)
	}
	d := &MockDispatcher{reg: reg}
	c := NewCoordinator(reg, d, fs, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return &fixture{reg: reg, dispatch: d, flags: fs, coord: c}
}

func (f *fixture) setMode(mode string) {
	e, _ := f.reg.Get(catalog.OperatingMode)
	e.Publish(entity.String(mode), t0)
}

func (f *fixture) setState(state string) {
	e, _ := f.reg.Get(catalog.ModeOfOperating)
	e.Publish(entity.String(state), t0)
}

func TestCoordinator_HeatingDefrostRoundTrip(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.setMode(catalog.ModeHeating)

	f.setState(catalog.StateDefrosting)
	got, ok := f.coord.OnStateChange(ctx, catalog.StateDefrosting, catalog.StateHeating)
	if !ok || got != catalog.ModeSummer {
		t.Fatalf("heating→defrost wrote (%q, %v), want summer", got, ok)
	}
	if f.coord.Restore() != catalog.ModeHeating {
		t.Errorf("Restore() = %q, want heating", f.coord.Restore())
	}
	if v, _, _ := f.flags.Get(ctx, flags.KeyModeRestore); v != 0x03 {
		t.Errorf("persisted restore = %#x, want 0x03", v)
	}

	f.setState(catalog.StateHeating)
	got, ok = f.coord.OnStateChange(ctx, catalog.StateHeating, catalog.StateDefrosting)
	if !ok || got != catalog.ModeHeating {
		t.Fatalf("defrost→heating wrote (%q, %v), want heating", got, ok)
	}
	if f.coord.Restore() != catalog.ModeStandby {
		t.Errorf("Restore() = %q, want standby after consumption", f.coord.Restore())
	}

	writes := f.dispatch.Writes()
	if len(writes) != 2 || writes[0].value != catalog.ModeSummer || writes[1].value != catalog.ModeHeating {
		t.Errorf("writes = %v", writes)
	}
}

func TestCoordinator_DisabledDoesNothing(t *testing.T) {
	f := newFixture(t, false)
	f.setMode(catalog.ModeHeating)

	if _, ok := f.coord.OnStateChange(context.Background(), catalog.StateDefrosting, catalog.StateHeating); ok {
		t.Error("mode written with optimized defrosting disabled")
	}
	if len(f.dispatch.Writes()) != 0 {
		t.Errorf("writes = %v", f.dispatch.Writes())
	}
}

func TestCoordinator_HotWaterDefrost(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.setMode(catalog.ModeAutomatic1)

	if got, _ := f.coord.OnStateChange(ctx, catalog.StateDefrosting, catalog.StateHotWater); got != catalog.ModeSummer {
		t.Fatalf("dhw→defrost wrote %q, want summer", got)
	}
	if got, _ := f.coord.OnStateChange(ctx, catalog.StateHotWater, catalog.StateDefrosting); got != catalog.ModeAutomatic1 {
		t.Fatalf("defrost→dhw wrote %q, want automatic_1", got)
	}
}

func TestCoordinator_DefrostToStandby(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.setMode(catalog.ModeLowering)

	f.coord.OnStateChange(ctx, catalog.StateDefrosting, catalog.StateHeating)
	got, ok := f.coord.OnStateChange(ctx, catalog.StateStandby, catalog.StateDefrosting)
	if !ok || got != catalog.ModeLowering {
		t.Errorf("defrost→standby wrote (%q, %v), want lowering", got, ok)
	}
}

func TestCoordinator_NonHeatingModeUntouched(t *testing.T) {
	f := newFixture(t, true)
	f.setMode(catalog.ModeCooling)

	if _, ok := f.coord.OnStateChange(context.Background(), catalog.StateDefrosting, catalog.StateHeating); ok {
		t.Error("cooling mode replaced during defrost")
	}
	if f.coord.Restore() != catalog.ModeStandby {
		t.Errorf("Restore() = %q", f.coord.Restore())
	}
}

func TestCoordinator_OnModeChange(t *testing.T) {
	tests := []struct {
		name        string
		state       string
		newMode     string
		wantRestore string
	}{
		{"manual non-heating mode clears", catalog.StateHeating, catalog.ModeCooling, catalog.ModeStandby},
		{"heating mode keeps", catalog.StateHeating, catalog.ModeAutomatic2, catalog.ModeHeating},
		{"summer during defrost keeps", catalog.StateDefrosting, catalog.ModeSummer, catalog.ModeHeating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			ctx := context.Background()
			f.setMode(catalog.ModeHeating)
			f.coord.OnStateChange(ctx, catalog.StateDefrosting, catalog.StateHeating)

			f.setState(tt.state)
			f.coord.OnModeChange(ctx, tt.newMode, catalog.ModeSummer)
			if f.coord.Restore() != tt.wantRestore {
				t.Errorf("Restore() = %q, want %q", f.coord.Restore(), tt.wantRestore)
			}
		})
	}
}

func TestCoordinator_LoadRestoresPersistedState(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.flags.Set(ctx, flags.KeyModeRestore, 0x0B)

	c := NewCoordinator(f.reg, f.dispatch, f.flags, nil)
	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if !c.Optimized() || c.Restore() != catalog.ModeAutomatic1 {
		t.Errorf("Load() = optimized %v restore %q", c.Optimized(), c.Restore())
	}
}

func TestCoordinator_AntifreezeInterlock(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if err := f.coord.SetOptimized(ctx, true); err != nil {
		t.Fatalf("SetOptimized() error = %v", err)
	}
	writes := f.dispatch.Writes()
	if len(writes) != 1 || writes[0].name != catalog.TemperatureAntifreeze || writes[0].value != catalog.OptionOff {
		t.Fatalf("writes = %v, want antifreeze off", writes)
	}
	if v, _, _ := f.flags.Get(ctx, flags.KeyOptimizedDefrosting); v != 1 {
		t.Error("flag not persisted")
	}

	if changed, _ := f.coord.OnAntifreezeChange(ctx, catalog.OptionOff); changed {
		t.Error("antifreeze off cleared the flag")
	}
	changed, err := f.coord.OnAntifreezeChange(ctx, "0 °C")
	if err != nil || !changed {
		t.Fatalf("OnAntifreezeChange() = (%v, %v), want (true, nil)", changed, err)
	}
	if f.coord.Optimized() {
		t.Error("Optimized() = true after antifreeze re-enabled")
	}
	if v, _, _ := f.flags.Get(ctx, flags.KeyOptimizedDefrosting); v != 0 {
		t.Error("cleared flag not persisted")
	}
}
