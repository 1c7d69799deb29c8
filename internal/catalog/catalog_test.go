package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/entity"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/config"
)

func findDef(t *testing.T, id string) entity.Definition {
	t.Helper()
	for _, d := range Defaults() {
		if d.ID == id {
			return d
		}
	}
	t.Fatalf("entity %q not in catalog", id)
	return entity.Definition{}
}

func buildOne(t *testing.T, id string) *entity.Entity {
	t.Helper()
	e, err := entity.New(findDef(t, id), nil)
	if err != nil {
		t.Fatalf("entity.New(%s) error = %v", id, err)
	}
	return e
}

func TestDefaults_Consistent(t *testing.T) {
	defs := Defaults()
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if seen[d.ID] {
			t.Errorf("duplicate id %q", d.ID)
		}
		seen[d.ID] = true
		if err := d.Validate(); err != nil {
			t.Errorf("Validate(%s) error = %v", d.ID, err)
		}
		if d.RequestID != RequestID {
			t.Errorf("%s RequestID = 0x%X, want 0x%X", d.ID, d.RequestID, RequestID)
		}
	}
	for _, d := range defs {
		for _, dep := range d.Updates {
			if !seen[dep] {
				t.Errorf("%s updates unknown entity %q", d.ID, dep)
			}
		}
	}

	for _, id := range []string{TV, TVBH, TR, FlowRate, ModeOfOperating, ErrorCode, OperatingMode,
		SupplySetpointRegulated, OptimizedDefrosting, ThermalPower, SystemDate} {
		if !seen[id] {
			t.Errorf("catalog missing %q", id)
		}
	}
}

func TestDefaults_LocalEntitiesHaveNoCommand(t *testing.T) {
	for _, id := range []string{OptimizedDefrosting, SupplySetpointRegulated, ThermalPower, TemperatureSpreadRaw, SystemTime} {
		if d := findDef(t, id); !d.Command.IsZero() {
			t.Errorf("%s command = %s, want none", id, d.Command)
		}
	}
}

func TestDefaults_ResponseIDs(t *testing.T) {
	tests := map[string]uint32{
		TV:                         ResponseID,
		StatusCompressor:           ResponseID500,
		"bivalence_temperature":    ResponseID500,
		"t_room":                   ResponseID300,
		"heating_curve_adaptation": ResponseID300,
	}
	for id, want := range tests {
		if got := findDef(t, id).CanID; got != want {
			t.Errorf("%s CanID = 0x%X, want 0x%X", id, got, want)
		}
	}
}

func TestBuild(t *testing.T) {
	all := len(Defaults())

	tests := []struct {
		name      string
		cfg       config.EntitiesConfig
		wantCount int
		wantErr   error
		check     func(t *testing.T, es []*entity.Entity)
	}{
		{
			name:      "defaults",
			cfg:       config.EntitiesConfig{},
			wantCount: all,
			check: func(t *testing.T, es []*entity.Entity) {
				if got := es[0].Definition().Interval; got != DefaultInterval {
					t.Errorf("Interval = %v, want %v", got, DefaultInterval)
				}
			},
		},
		{
			name: "interval overrides",
			cfg: config.EntitiesConfig{
				DefaultInterval: 10 * time.Second,
				Intervals:       map[string]time.Duration{TV: 2 * time.Second},
			},
			wantCount: all,
			check: func(t *testing.T, es []*entity.Entity) {
				for _, e := range es {
					want := 10 * time.Second
					if e.ID() == TV {
						want = 2 * time.Second
					}
					if got := e.Definition().Interval; got != want {
						t.Errorf("%s Interval = %v, want %v", e.ID(), got, want)
					}
				}
			},
		},
		{
			name:      "disabled entities omitted",
			cfg:       config.EntitiesConfig{Disabled: []string{"ta2", "tliq"}},
			wantCount: all - 2,
			check: func(t *testing.T, es []*entity.Entity) {
				for _, e := range es {
					if e.ID() == "ta2" || e.ID() == "tliq" {
						t.Errorf("disabled entity %s built", e.ID())
					}
				}
			},
		},
		{
			name:    "unknown disabled id",
			cfg:     config.EntitiesConfig{Disabled: []string{"nope"}},
			wantErr: ErrUnknownEntity,
		},
		{
			name:    "unknown interval id",
			cfg:     config.EntitiesConfig{Intervals: map[string]time.Duration{"nope": time.Second}},
			wantErr: ErrUnknownEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			es, err := Build(tt.cfg, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Build() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if len(es) != tt.wantCount {
				t.Fatalf("Build() count = %d, want %d", len(es), tt.wantCount)
			}
			if tt.check != nil {
				tt.check(t, es)
			}
		})
	}
}

func TestCatalog_DecodeResponses(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		id      string
		canID   uint32
		payload []byte
		want    entity.Value
	}{
		{TV, ResponseID, []byte{0x32, 0x10, 0xFA, 0xC0, 0xFC, 0x01, 0x2C}, entity.Float(30)},
		{TemperatureOutside, ResponseID, []byte{0x32, 0x10, 0xFA, 0xC0, 0xFF, 0xFF, 0xCE}, entity.Float(-5)},
		{"power_dhw", ResponseID, []byte{0x32, 0x10, 0xFA, 0x06, 0x68, 0x03, 0xE8}, entity.Float(10)},
		{TargetSupplyTemperature, ResponseID, []byte{0x32, 0x10, 0x02, 0x01, 0xC2, 0x00, 0x00}, entity.Float(45)},
		{ModeOfOperating, ResponseID, []byte{0x32, 0x10, 0xFA, 0xC0, 0xF6, 0x00, 0x04}, entity.String(StateHotWater)},
		{ErrorCode, ResponseID, []byte{0x32, 0x10, 0xFA, 0x13, 0x88, 0x23, 0x29}, entity.String("err_E9001")},
		{OperatingMode, ResponseID, []byte{0x32, 0x10, 0xFA, 0x01, 0x12, 0x0B, 0x00}, entity.String(ModeAutomatic1)},
		{"electric_heater", ResponseID, []byte{0x32, 0x10, 0xFA, 0x0A, 0x20, 0x0D, 0x00}, entity.String("6 kW")},
		{"external_temp_sensor", ResponseID, []byte{0x32, 0x10, 0xFA, 0x09, 0x61, 0x00, 0x05}, entity.Bool(true)},
		{TemperatureAntifreeze, ResponseID, []byte{0x32, 0x10, 0xFA, 0x0A, 0x00, 0xFF, 0x6A}, entity.String("-15 °C")},
		{TemperatureAntifreeze, ResponseID, []byte{0x32, 0x10, 0xFA, 0x0A, 0x00, 0xFF, 0x60}, entity.String(OptionOff)},
		{"heating_limit_day", ResponseID, []byte{0x32, 0x10, 0xFA, 0x01, 0x16, 0xFE, 0x70}, entity.String(OptionOff)},
		{StatusCompressor, ResponseID500, []byte{0xA2, 0x10, 0x61, 0x01, 0x00, 0x00, 0x00}, entity.Bool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			e := buildOne(t, tt.id)
			ok, err := e.TryHandle(tt.canID, tt.payload, now)
			if err != nil || !ok {
				t.Fatalf("TryHandle() = %v, %v; want true, nil", ok, err)
			}
			if got := e.Value(); !got.Equal(tt.want) {
				t.Errorf("Value() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalog_EncodeWrites(t *testing.T) {
	tests := []struct {
		id    string
		value entity.Value
		want  []byte
	}{
		{TemperatureAntifreeze, entity.String(OptionOff), []byte{0x30, 0x00, 0xFA, 0x0A, 0x00, 0xFF, 0x60}},
		{TemperatureAntifreeze, entity.String("-15 °C"), []byte{0x30, 0x00, 0xFA, 0x0A, 0x00, 0xFF, 0x6A}},
		{"electric_heater", entity.String("9 kW"), []byte{0x30, 0x00, 0xFA, 0x0A, 0x20, 0x0F, 0x00}},
		{"electric_heater", entity.String(OptionOff), []byte{0x30, 0x00, 0xFA, 0x0A, 0x20, 0x01, 0x00}},
		{"power_dhw", entity.Float(12), []byte{0x30, 0x00, 0xFA, 0x06, 0x68, 0x04, 0xB0}},
		{TargetHotWater1, entity.Float(70), []byte{0x30, 0x00, 0x13, 0x02, 0xBC, 0x00, 0x00}},
		{"cooling_setpoint_adj", entity.Float(-2), []byte{0x30, 0x00, 0xFA, 0x13, 0x59, 0xFF, 0xEC}},
		{"1_dhw", entity.String(OptionOn), []byte{0x30, 0x00, 0xFA, 0x01, 0x44, 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.id+"/"+tt.value.String(), func(t *testing.T) {
			f, err := buildOne(t, tt.id).EncodeValue(tt.value)
			if err != nil {
				t.Fatalf("EncodeValue() error = %v", err)
			}
			if f.ID != RequestID {
				t.Errorf("frame ID = 0x%X, want 0x%X", f.ID, RequestID)
			}
			if got := f.Data[:f.Len]; string(got) != string(tt.want) {
				t.Errorf("frame data = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestDecodeElectricHeater(t *testing.T) {
	tests := []struct {
		b5   byte
		want uint32
	}{
		{0x00, 0},
		{0x01, 0},
		{0x09, 3},
		{0x0D, 6},
		{0x0F, 9},
		{0x02, 3},
	}
	for _, tt := range tests {
		got, err := DecodeElectricHeater([]byte{0, 0, 0, 0, 0, tt.b5, 0})
		if err != nil {
			t.Fatalf("DecodeElectricHeater(0x%02X) error = %v", tt.b5, err)
		}
		if got != tt.want {
			t.Errorf("DecodeElectricHeater(0x%02X) = %d, want %d", tt.b5, got, tt.want)
		}
	}

	if _, err := DecodeElectricHeater([]byte{1, 2}); !errors.Is(err, entity.ErrDecode) {
		t.Errorf("short payload error = %v, want ErrDecode", err)
	}
}

func TestDecodeExternalSensor(t *testing.T) {
	got, _ := DecodeExternalSensor([]byte{0, 0, 0, 0, 0, 0, 0x05})
	if got != 1 {
		t.Errorf("present = %d, want 1", got)
	}
	got, _ = DecodeExternalSensor([]byte{0, 0, 0, 0, 0, 0, 0x04})
	if got != 0 {
		t.Errorf("absent = %d, want 0", got)
	}
	if _, err := DecodeExternalSensor([]byte{0}); !errors.Is(err, entity.ErrDecode) {
		t.Errorf("short payload error = %v, want ErrDecode", err)
	}
}

func TestTranslator(t *testing.T) {
	tests := []struct {
		lang  string
		token string
		want  string
	}{
		{"en", "hot_water_production", "Hot water production"},
		{"de", "hot_water_production", "Warmwasserbereitung"},
		{"de", "off", "Aus"},
		{"en", "err_E9001", "E9001"},
		{"de", "err_0", "Kein Fehler"},
		{"en", "-15 °C", "-15 °C"},
		{"", "on", "On"},
	}
	for _, tt := range tests {
		tr, err := NewTranslator(tt.lang)
		if err != nil {
			t.Fatalf("NewTranslator(%q) error = %v", tt.lang, err)
		}
		if got := tr.Translate(tt.token); got != tt.want {
			t.Errorf("[%s] Translate(%q) = %q, want %q", tt.lang, tt.token, got, tt.want)
		}
	}

	if _, err := NewTranslator("fr"); !errors.Is(err, ErrUnknownLanguage) {
		t.Errorf("NewTranslator(fr) error = %v, want ErrUnknownLanguage", err)
	}
}

func TestIsHeatingMode(t *testing.T) {
	for _, m := range []string{ModeHeating, ModeLowering, ModeAutomatic1, ModeAutomatic2} {
		if !IsHeatingMode(m) {
			t.Errorf("IsHeatingMode(%q) = false", m)
		}
	}
	for _, m := range []string{ModeStandby, ModeSummer, ModeCooling, ""} {
		if IsHeatingMode(m) {
			t.Errorf("IsHeatingMode(%q) = true", m)
		}
	}
}
