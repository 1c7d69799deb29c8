package derived

import (
	"math"
	"testing"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/deferred"
	"github.com/nerrad567/rotex-can-core/internal/entity"
)

var t0 = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// mockStore serves values from maps.
type mockStore struct {
	floats   map[string]float64
	texts    map[string]string
	bools    map[string]bool
	entities map[string]*entity.Entity
}

func newMockStore() *mockStore {
	return &mockStore{
		floats:   make(map[string]float64),
		texts:    make(map[string]string),
		bools:    make(map[string]bool),
		entities: make(map[string]*entity.Entity),
	}
}

func (m *mockStore) Get(id string) (*entity.Entity, bool) {
	e, ok := m.entities[id]
	return e, ok
}

func (m *mockStore) Float(id string) (float64, bool) {
	if e, ok := m.entities[id]; ok && e.Value().Valid() {
		return e.Value().Float()
	}
	v, ok := m.floats[id]
	return v, ok
}

func (m *mockStore) Text(id string) (string, bool) {
	v, ok := m.texts[id]
	return v, ok
}

func (m *mockStore) Bool(id string) (bool, bool) {
	v, ok := m.bools[id]
	return v, ok
}

func (m *mockStore) addLocal(t *testing.T, id string, updates ...string) *entity.Entity {
	t.Helper()
	e, err := entity.New(entity.Definition{ID: id, Updates: updates, Variant: entity.Sensor{}}, nil)
	if err != nil {
		t.Fatalf("entity.New(%s) error = %v", id, err)
	}
	m.entities[id] = e
	return e
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestThermalPower(t *testing.T) {
	got := ThermalPower(45, 35, 1000)
	if !approx(got, 11.64, 0.01) {
		t.Errorf("ThermalPower(45, 35, 1000) = %v, want ≈11.64", got)
	}
	if ThermalPower(40, 40, 1500) != 0 {
		t.Error("ThermalPower() with zero spread != 0")
	}
}

func TestMinSpread(t *testing.T) {
	tests := []struct {
		tv   float64
		want float64
	}{
		{27, 0.3},
		{29, 1.2},
		{35, 2.5},
		{40, 3.0},
		{50, 4.0},
	}
	for _, tt := range tests {
		if got := MinSpread(tt.tv); !approx(got, tt.want, 0.2) {
			t.Errorf("MinSpread(%v) = %.3f, want ≈%v", tt.tv, got, tt.want)
		}
	}
}

func TestEMA(t *testing.T) {
	a := NewEMA(0.2)
	if _, primed := a.Value(); primed {
		t.Fatal("Value() primed before first sample")
	}
	if got := a.Next(10); got != 10 {
		t.Errorf("first Next() = %v, want 10", got)
	}
	if got := a.Next(20); !approx(got, 12, 1e-9) {
		t.Errorf("Next(20) = %v, want 12", got)
	}
	if NewEMA(0).alpha != DefaultAlpha {
		t.Error("invalid alpha not replaced by default")
	}
}

func TestGraph_NotifyDefersRecompute(t *testing.T) {
	store := newMockStore()
	q := deferred.NewQueue()
	g := NewGraph(store, q, nil)
	if err := g.Register(Standard(DefaultAlpha)...); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tv := store.addLocal(t, catalog.TV, catalog.ThermalPowerRaw, catalog.TemperatureSpreadRaw)
	tr := store.addLocal(t, catalog.TR, catalog.ThermalPowerRaw, catalog.TemperatureSpreadRaw)
	store.addLocal(t, catalog.FlowRate, catalog.ThermalPowerRaw)
	power := store.addLocal(t, catalog.ThermalPowerRaw)
	spread := store.addLocal(t, catalog.TemperatureSpreadRaw)

	tv.Publish(entity.Float(45), t0)
	tr.Publish(entity.Float(35), t0)
	store.entities[catalog.FlowRate].Publish(entity.Float(1000), t0)

	g.Notify(tv, t0)
	g.Notify(tr, t0)
	g.Notify(store.entities[catalog.FlowRate], t0)

	if power.Value().Valid() {
		t.Fatal("dependent recomputed inline")
	}
	if q.Len() != 2 {
		t.Fatalf("queued recomputes = %d, want 2 (one per dependent)", q.Len())
	}

	q.Run(t0)

	if p, _ := power.Value().Float(); !approx(p, 11.64, 0.01) {
		t.Errorf("thermal_power_raw = %v, want ≈11.64", p)
	}
	if s, _ := spread.Value().Float(); s != 10 {
		t.Errorf("temperature_spread_raw = %v, want 10", s)
	}
}

func TestGraph_MissingInputSkips(t *testing.T) {
	store := newMockStore()
	q := deferred.NewQueue()
	g := NewGraph(store, q, nil)
	g.Register(Standard(DefaultAlpha)...)

	delta := store.addLocal(t, catalog.TVTVBHDelta)
	store.floats[catalog.TV] = 40

	if g.Recompute(catalog.TVTVBHDelta, t0) {
		t.Fatal("Recompute() published with tvbh missing")
	}
	if delta.Value().Valid() {
		t.Error("value committed with missing input")
	}

	store.floats[catalog.TVBH] = 42.5
	if !g.Recompute(catalog.TVTVBHDelta, t0) {
		t.Fatal("Recompute() = false with all inputs")
	}
	if v, _ := delta.Value().Float(); v != -2.5 {
		t.Errorf("tv_tvbh_delta = %v, want -2.5", v)
	}
}

func TestGraph_RegisterDuplicate(t *testing.T) {
	g := NewGraph(newMockStore(), deferred.NewQueue(), nil)
	f := Formula{ID: "x", Compute: func(*Inputs) entity.Value { return entity.Float(1) }}
	if err := g.Register(f, f); err == nil {
		t.Error("Register() accepted duplicate formula")
	}
}

func TestStandard_SystemClock(t *testing.T) {
	store := newMockStore()
	g := NewGraph(store, deferred.NewQueue(), nil)
	g.Register(Standard(DefaultAlpha)...)

	clock := store.addLocal(t, catalog.SystemTime)
	date := store.addLocal(t, catalog.SystemDate)
	store.floats[catalog.SystemTimeHour] = 7
	store.floats[catalog.SystemTimeMinute] = 5
	store.floats[catalog.SystemTimeSecond] = 9
	store.floats[catalog.SystemDateDay] = 3
	store.floats[catalog.SystemDateMonth] = 11
	store.floats[catalog.SystemDateYear] = 26

	g.Recompute(catalog.SystemTime, t0)
	g.Recompute(catalog.SystemDate, t0)

	if s, _ := clock.Value().Text(); s != "07:05:09" {
		t.Errorf("system_time = %q", s)
	}
	if s, _ := date.Value().Text(); s != "03.11.2026" {
		t.Errorf("system_date = %q", s)
	}
}

func TestStandard_SmoothedSpread(t *testing.T) {
	store := newMockStore()
	g := NewGraph(store, deferred.NewQueue(), nil)
	g.Register(Standard(0.5)...)
	spread := store.addLocal(t, catalog.TemperatureSpread)

	store.floats[catalog.TV] = 40
	store.floats[catalog.TR] = 36
	g.Recompute(catalog.TemperatureSpread, t0)
	store.floats[catalog.TR] = 34
	g.Recompute(catalog.TemperatureSpread, t0)

	if s, _ := spread.Value().Float(); s != 5 {
		t.Errorf("smoothed spread = %v, want 5", s)
	}
}

// plant sets up a store with healthy heating readings.
func plant() *mockStore {
	s := newMockStore()
	s.floats[catalog.TV] = 40
	s.floats[catalog.TVBH] = 40
	s.floats[catalog.TR] = 35
	s.floats[catalog.FlowRate] = 1000
	s.floats[catalog.DHWMixerPosition] = 50
	s.floats[catalog.BypassValve] = 0
	s.floats[catalog.TDHW1] = 50
	s.floats[catalog.TemperatureSpread] = 5
	s.texts[catalog.ModeOfOperating] = catalog.StateHeating
	s.bools[catalog.StatusCompressor] = true
	return s
}

func TestAnnotator_HealthyPlant(t *testing.T) {
	a := NewAnnotator(plant(), Thresholds{MaxSpreadTVBHTV: 0.3, MaxSpreadTVBHTR: 0.3}, nil)
	for i := 0; i <= 30; i++ {
		got := a.Annotate("err_0", t0.Add(time.Duration(i)*time.Minute))
		if got.Text != "err_0" || len(got.Active) != 0 {
			t.Fatalf("minute %d: Annotate() = %+v", i, got)
		}
	}
}

func TestAnnotator_DHWValve(t *testing.T) {
	s := plant()
	s.floats[catalog.DHWMixerPosition] = 0
	s.floats[catalog.TVBH] = 45
	a := NewAnnotator(s, Thresholds{MaxSpreadTVBHTV: 0.3, MaxSpreadTVBHTR: 50}, nil)

	if got := a.Annotate("err_0", t0); len(got.Active) != 0 {
		t.Fatalf("confirmed immediately: %+v", got)
	}
	if got := a.Annotate("err_0", t0.Add(DHWValveWindow-time.Second)); len(got.Active) != 0 {
		t.Fatalf("confirmed before window: %+v", got)
	}

	got := a.Annotate("err_0", t0.Add(DHWValveWindow))
	if got.Text != "err_0|3UV DHW defect" {
		t.Errorf("Text = %q", got.Text)
	}
	if len(got.Confirmed) != 1 || got.Confirmed[0] != FaultDHWValve {
		t.Errorf("Confirmed = %v", got.Confirmed)
	}

	got = a.Annotate("err_0", t0.Add(DHWValveWindow+time.Minute))
	if got.Text != "err_0|3UV DHW defect" || len(got.Confirmed) != 0 {
		t.Errorf("second confirmation = %+v, want suffix without new event", got)
	}
	if StripFaults(got.Text) != "err_0" {
		t.Errorf("StripFaults() = %q", StripFaults(got.Text))
	}
}

func TestAnnotator_OffsetsApply(t *testing.T) {
	s := plant()
	s.floats[catalog.DHWMixerPosition] = 0
	s.floats[catalog.TVBH] = 41
	// Corrected tv = 41.5 keeps tvbh below tv + spread.
	a := NewAnnotator(s, Thresholds{OffsetTV: 1.5, MaxSpreadTVBHTV: 0.3, MaxSpreadTVBHTR: 50}, nil)

	a.Annotate("err_0", t0)
	if got := a.Annotate("err_0", t0.Add(time.Hour)); len(got.Active) != 0 {
		t.Errorf("offset ignored: %+v", got)
	}
}

func TestAnnotator_BypassValve(t *testing.T) {
	s := plant()
	s.floats[catalog.BypassValve] = 100
	s.floats[catalog.TVBH] = 36
	a := NewAnnotator(s, Thresholds{MaxSpreadTVBHTV: 50, MaxSpreadTVBHTR: 0.3}, nil)

	a.Annotate("E9001", t0)
	got := a.Annotate("E9001", t0.Add(BypassValveWindow))
	if got.Text != "E9001|3UV BPV defect" {
		t.Errorf("Text = %q", got.Text)
	}

	// One clean observation breaks the streak.
	s.floats[catalog.BypassValve] = 50
	a.Annotate("E9001", t0.Add(BypassValveWindow+time.Second))
	s.floats[catalog.BypassValve] = 100
	if got := a.Annotate("E9001", t0.Add(BypassValveWindow+2*time.Second)); len(got.Active) != 0 {
		t.Errorf("streak not broken by clean observation: %+v", got)
	}
}

func TestAnnotator_LowSpreadLatch(t *testing.T) {
	s := plant()
	a := NewAnnotator(s, Thresholds{MaxSpreadTVBHTV: 50, MaxSpreadTVBHTR: 50}, nil)

	// Good observation latches: later low spread is ignored.
	a.Annotate("err_0", t0)
	s.floats[catalog.TemperatureSpread] = 0.5
	a.Annotate("err_0", t0.Add(time.Minute))
	if got := a.Annotate("err_0", t0.Add(time.Hour)); len(got.Active) != 0 {
		t.Fatalf("latched debouncer confirmed: %+v", got)
	}

	// After a reset the low spread is tracked again.
	a.ResetSpread()
	a.Annotate("err_0", t0.Add(2*time.Hour))
	got := a.Annotate("err_0", t0.Add(2*time.Hour+LowSpreadWindow))
	if got.Text != "err_0|low temperature spread" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestAnnotator_LowSpreadNeedsCompressor(t *testing.T) {
	s := plant()
	s.floats[catalog.TemperatureSpread] = 0.5
	s.bools[catalog.StatusCompressor] = false
	a := NewAnnotator(s, Thresholds{MaxSpreadTVBHTV: 50, MaxSpreadTVBHTR: 50}, nil)

	a.Annotate("err_0", t0)
	if got := a.Annotate("err_0", t0.Add(time.Hour)); len(got.Active) != 0 {
		t.Errorf("low spread confirmed with compressor off: %+v", got)
	}
}

func TestAnnotator_MissingFlow(t *testing.T) {
	s := plant()
	s.texts[catalog.ModeOfOperating] = catalog.StateHotWater
	s.floats[catalog.TDHW1] = 40
	s.floats[catalog.FlowRate] = 0
	a := NewAnnotator(s, Thresholds{MaxSpreadTVBHTV: 50, MaxSpreadTVBHTR: 50}, nil)

	a.Annotate("err_0", t0)
	got := a.Annotate("err_0", t0.Add(MissingFlowWindow))
	if got.Text != "err_0|missing flow" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestAnnotator_IndependentConditions(t *testing.T) {
	s := plant()
	s.floats[catalog.DHWMixerPosition] = 0
	s.floats[catalog.BypassValve] = 100
	s.floats[catalog.TVBH] = 45
	a := NewAnnotator(s, Thresholds{MaxSpreadTVBHTV: 0.3, MaxSpreadTVBHTR: 0.3}, nil)

	a.Annotate("err_0", t0)
	got := a.Annotate("err_0", t0.Add(10*time.Minute))
	if got.Text != "err_0|3UV DHW defect|3UV BPV defect" {
		t.Errorf("Text = %q, want both faults", got.Text)
	}
}

func TestAnnotator_MissingTemperaturesSkips(t *testing.T) {
	s := plant()
	delete(s.floats, catalog.TVBH)
	a := NewAnnotator(s, Thresholds{}, nil)
	if got := a.Annotate("err_0", t0); got.Text != "err_0" {
		t.Errorf("Text = %q", got.Text)
	}
}
