package catalog

import (
	"fmt"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/entity"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/config"
)

// Bus identifiers used by HPSU controllers.
const (
	// ResponseID is the identifier most registers answer on.
	ResponseID uint32 = 0x180

	// RequestID is the identifier every read and write is sent on.
	RequestID uint32 = 0x680

	// Alternative response identifiers used by a few registers.
	ResponseID300 uint32 = 0x300
	ResponseID500 uint32 = 0x500
)

// DefaultInterval is the poll interval used when configuration sets none.
const DefaultInterval = 30 * time.Second

// Units.
const (
	unitCelsius   = "°C"
	unitKelvin    = "K"
	unitKW        = "kW"
	unitKWh       = "kWh"
	unitHours     = "h"
	unitMinutes   = "min"
	unitPercent   = "%"
	unitBar       = "bar"
	unitLitreHour = "l/h"
	unitLitreMin  = "l/min"
)

// def is a Definition under construction. Every modifier returns a copy.
type def struct {
	d entity.Definition
}

// reg starts a register read with the common defaults: response on 0x180,
// value in byte 5, one byte wide, unscaled.
func reg(id, cmd string) def {
	return def{entity.Definition{
		ID:        id,
		CanID:     ResponseID,
		RequestID: RequestID,
		Command:   entity.MustParseCommand(cmd),
		Offset:    5,
		Width:     1,
		Divider:   1,
	}}
}

// local starts an entity with no bus command.
func local(id string) def {
	return def{entity.Definition{ID: id, CanID: ResponseID, RequestID: RequestID, Divider: 1}}
}

func (b def) at(offset, width int) def {
	b.d.Offset, b.d.Width = offset, width
	return b
}

func (b def) div(divider float64) def {
	b.d.Divider = divider
	return b
}

func (b def) signed() def {
	b.d.Signed = true
	return b
}

func (b def) from(canID uint32) def {
	b.d.CanID = canID
	return b
}

func (b def) updates(ids ...string) def {
	b.d.Updates = append([]string(nil), ids...)
	return b
}

func (b def) codec(dec entity.DecodeFunc, enc entity.EncodeFunc) def {
	b.d.Decode, b.d.Encode = dec, enc
	return b
}

func (b def) sensor(unit string) def {
	b.d.Variant = entity.Sensor{Unit: unit}
	return b
}

func (b def) sensorIn(unit string, lo, hi float64) def {
	b.d.Variant = entity.Sensor{Unit: unit, Range: &entity.Range{Min: lo, Max: hi}}
	return b
}

// number makes a writable setting. The step is one raw unit.
func (b def) number(unit string, lo, hi float64) def {
	b.d.Variant = entity.Number{Unit: unit, Min: lo, Max: hi, Step: 1 / b.d.Divider}
	return b
}

func (b def) step(s float64) def {
	if n, ok := b.d.Variant.(entity.Number); ok {
		n.Step = s
		b.d.Variant = n
	}
	return b
}

func (b def) selects(opts entity.Options) def {
	b.d.Variant = entity.Select{Options: opts}
	return b
}

func (b def) text(opts entity.Options) def {
	b.d.Variant = entity.TextSensor{Options: opts}
	return b
}

func (b def) binary() def {
	b.d.Variant = entity.BinarySensor{}
	return b
}

func onOff() entity.Options {
	return entity.Options{0: OptionOff, 1: OptionOn}
}

// celsiusOptions maps i*10 to "i °C" for lo <= i <= hi and offKey to "off".
// Negative keys are stored in 16-bit two's complement.
func celsiusOptions(lo, hi int, offKey uint32) entity.Options {
	opts := entity.Options{offKey: OptionOff}
	for i := lo; i <= hi; i++ {
		opts[uint32(i*10)&0xFFFF] = fmt.Sprintf("%d %s", i, unitCelsius) //nolint:gosec // masked to 16 bits
	}
	return opts
}

func errorCodes() entity.Options {
	opts := entity.Options{0: "err_0"}
	for code := uint32(9000); code <= 9044; code++ {
		if code == 9040 {
			continue
		}
		opts[code] = fmt.Sprintf("err_E%d", code)
	}
	for _, code := range []uint32{75, 76, 81, 88, 91, 128, 129, 198, 200, 8005, 8100} {
		opts[code] = fmt.Sprintf("err_E%d", code)
	}
	opts[8006] = "err_W8006"
	opts[8007] = "err_W8007"
	return opts
}

// Defaults returns the built-in HPSU entity table in registration order.
// Intervals are left zero; Build fills them in.
func Defaults() []entity.Definition {
	rows := []def{
		// Switches.
		reg("1_dhw", "31 00 FA 01 44").at(6, 1).selects(onOff()),
		reg("circulation_with_dhw_program", "31 00 FA 01 82").at(6, 1).selects(onOff()),
		reg("smart_grid", "31 00 FA 06 93").at(6, 1).selects(onOff()),
		reg("ch_support", "31 00 FA 06 6C").at(6, 1).selects(onOff()),
		reg("room_therm", "31 00 FA 06 78").at(6, 1).selects(onOff()),
		reg("heating_curve_adaptation", "61 00 FA 01 15").from(ResponseID300).selects(onOff()),
		local(OptimizedDefrosting).selects(onOff()),

		// Temperatures.
		reg("t_hs", "31 00 FA 01 D6").at(5, 2).div(10).sensorIn(unitCelsius, 1, 90),
		reg(TemperatureOutside, "31 00 FA C0 FF").at(5, 2).signed().div(10).sensorIn(unitCelsius, -30, 90),
		reg("ta2", "31 00 FA C1 05").at(5, 2).signed().div(10).sensor(unitCelsius),
		reg("tliq", "31 00 FA C1 03").at(5, 2).signed().div(10).sensor(unitCelsius),
		reg("t_ext", "61 00 FA 0A 0C").from(ResponseID300).at(5, 2).signed().div(10).sensor(unitCelsius),
		reg("t_room", "61 00 FA 00 11").from(ResponseID300).at(5, 2).signed().div(10).sensor(unitCelsius),
		reg(TDHW1, "31 00 FA 00 0E").at(5, 2).div(10).sensorIn(unitCelsius, 1, 90),
		reg("tdhw2", "31 00 FA C1 06").at(5, 2).div(10).sensorIn(unitCelsius, 1, 90),
		reg(TV, "31 00 FA C0 FC").at(5, 2).div(10).sensorIn(unitCelsius, 1, 90).
			updates(ThermalPower, ThermalPowerRaw, TemperatureSpread, TemperatureSpreadRaw, TVTVBHDelta, SupplyTargetDelta),
		reg(TVBH, "31 00 FA C0 FE").at(5, 2).div(10).sensorIn(unitCelsius, 1, 90).
			updates(TVTVBHDelta, TVBHTRDelta),
		reg(TR, "31 00 FA C1 00").at(5, 2).div(10).sensorIn(unitCelsius, 1, 90).
			updates(ThermalPower, ThermalPowerRaw, TemperatureSpread, TemperatureSpreadRaw, TVBHTRDelta),
		reg(TargetSupplyTemperature, "31 00 02").at(3, 2).div(10).sensorIn(unitCelsius, 0, 90).
			updates(SupplyTargetDelta),
		reg("bivalence_temperature", "A1 00 FA 06 D4").from(ResponseID500).at(5, 2).signed().div(10).sensor(unitCelsius),

		// Hydraulics.
		reg("water_pressure", "31 00 1C").at(3, 2).div(1000).sensor(unitBar),
		reg("circulation_pump", "31 00 FA C0 F7").at(6, 1).sensorIn(unitPercent, 0, 100),
		reg(BypassValve, "31 00 FA C0 FB").at(5, 2).sensorIn(unitPercent, 0, 100),
		reg(DHWMixerPosition, "31 00 FA 06 9B").at(5, 2).sensorIn(unitPercent, 0, 100),
		reg(FlowRate, "31 00 FA 01 DA").at(5, 2).sensorIn(unitLitreHour, 0, 3000).
			updates(ThermalPower, ThermalPowerRaw),
		reg("flow_rate_calc", "31 00 FA 06 9C").at(5, 2).div(10).sensor(unitLitreMin),

		// Energy and runtime counters.
		reg("ehs_for_ch", "31 00 FA 09 20").at(5, 2).sensor(unitKWh),
		reg("qch", "31 00 FA 06 A7").at(5, 2).sensor(unitKWh),
		reg("qboh", "31 00 FA 09 1C").at(5, 2).sensor(unitKWh),
		reg("qdhw", "31 00 FA 09 2C").at(5, 2).sensor(unitKWh),
		reg("total_energy_produced", "31 00 FA 09 30").at(5, 2).sensor(unitKWh),
		reg("energy_cooling", "31 00 FA 06 A6").at(5, 2).sensor(unitKWh),
		reg("total_electrical_energy", "31 00 FA C2 FA").at(5, 2).sensor(unitKWh),
		reg("runtime_compressor", "31 00 FA 06 A5").at(5, 2).sensor(unitHours),
		reg("runtime_pump", "31 00 FA 06 A4").at(5, 2).sensor(unitHours),

		// Controller clock.
		reg(SystemDateDay, "31 00 FA 01 22").sensor("").updates(SystemDate),
		reg(SystemDateMonth, "31 00 FA 01 23").sensor("").updates(SystemDate),
		reg(SystemDateYear, "31 00 FA 01 24").sensor("").updates(SystemDate),
		reg(SystemTimeHour, "31 00 FA 01 25").sensor("").updates(SystemTime),
		reg(SystemTimeMinute, "31 00 FA 01 26").sensor("").updates(SystemTime),
		reg(SystemTimeSecond, "31 00 FA 01 27").sensor("").updates(SystemTime),

		// State.
		reg(ModeOfOperating, "31 00 FA C0 F6").at(6, 1).text(entity.Options{
			0: StateStandby, 1: StateHeating, 2: StateCooling, 3: StateDefrosting, 4: StateHotWater,
		}).updates(ThermalPower, ThermalPowerRaw),
		reg(ErrorCode, "31 00 FA 13 88").at(5, 2).text(errorCodes()),
		reg("ext", "31 00 FA C0 F8").at(6, 1).text(entity.Options{
			0: "---", 3: "sgn_normal_mode", 4: "sg1_hot_water_and_heating_off",
			5: "sg2_hot_water_and_heating_plus_5c", 6: "sg3_hot_water_70c",
		}),
		reg(StatusCompressor, "A1 00 61 00 00 00 00").from(ResponseID500).at(3, 1).binary(),
		reg("status_kesselpumpe", "31 00 FA 0A 8C").at(6, 1).binary(),
		reg("external_temp_sensor", "31 00 FA 09 61").at(6, 1).codec(DecodeExternalSensor, nil).binary(),
		reg("energy_saving_mode", "31 00 FA 01 76").at(6, 1).binary(),
		reg("bivalence_function", "A1 00 FA 06 D3").from(ResponseID500).at(6, 1).binary(),

		// Selects.
		reg(OperatingMode, "31 00 FA 01 12").selects(entity.Options{
			0x01: ModeStandby, 0x03: ModeHeating, 0x04: ModeLowering, 0x05: ModeSummer,
			0x11: ModeCooling, 0x0B: ModeAutomatic1, 0x0C: ModeAutomatic2,
		}),
		reg("outdoor_unit", "31 00 FA 06 9A").at(6, 1).selects(entity.Options{
			0: "--", 1: "4", 2: "6", 3: "8", 4: "11", 5: "14", 6: "16",
		}),
		reg("indoor_unit", "31 00 FA 06 99").at(6, 1).selects(entity.Options{
			0: "--", 1: "304", 2: "308", 3: "508", 4: "516",
		}),
		reg("building_insulation", "31 00 FA 01 0C").selects(entity.Options{
			0x00: OptionOff, 0x02: "low", 0x04: "normal", 0x08: "good", 0x0C: "very_good",
		}),
		reg("antileg_day", "31 00 FA 01 01").selects(entity.Options{
			0: OptionOff, 1: "monday", 2: "tuesday", 3: "wednesday", 4: "thursday",
			5: "friday", 6: "saturday", 7: "sunday", 8: "mo_to_su",
		}),
		reg(TemperatureAntifreeze, "31 00 FA 0A 00").at(5, 2).selects(celsiusOptions(-15, 5, 0xFF60)),
		reg("heating_limit_day", "31 00 FA 01 16").at(5, 2).selects(celsiusOptions(10, 40, 0xFE70)),
		reg("heating_limit_night", "31 00 FA 01 17").at(5, 2).selects(celsiusOptions(10, 40, 90)),
		reg("t_h_c_switch", "31 00 FA C1 C3").at(5, 2).selects(celsiusOptions(10, 40, 90)),
		reg("quiet", "31 00 FA 06 96").at(6, 1).selects(entity.Options{0: OptionOff, 1: OptionOn, 2: "night_only"}),
		reg("hk_function", "31 00 FA 01 41").at(6, 1).selects(entity.Options{0: "weather_dependent", 1: "fixed"}),
		reg("sg_mode", "31 00 FA 06 94").at(6, 1).selects(entity.Options{0: OptionOff, 1: "sg_mode_1", 2: "sg_mode_2"}),
		reg("function_ehs", "31 00 FA 06 D2").at(6, 1).selects(entity.Options{
			0: "no_additional_heat_generator", 1: "optional_backup_heater",
			2: "wez_for_hot_water_and_heating", 3: "wez1_for_hot_water_wez2_for_heating",
		}),
		reg("electric_heater", "31 00 FA 0A 20").at(5, 2).codec(DecodeElectricHeater, EncodeElectricHeater).
			selects(entity.Options{0: OptionOff, 3: "3 kW", 6: "6 kW", 9: "9 kW"}),

		// Hot water settings.
		reg(TargetHotWater1, "31 00 13").at(3, 2).div(10).number(unitCelsius, 35, 70),
		reg("target_hot_water_temperature_2", "31 00 FA 0A 06").at(5, 2).div(10).number(unitCelsius, 35, 70),
		reg("target_hot_water_temperature_3", "31 00 FA 01 3E").at(5, 2).div(10).number(unitCelsius, 35, 70),
		reg("hp_hyst_tdhw", "31 00 FA 06 91").at(5, 2).div(10).number(unitKelvin, 2, 20),
		reg("delay_time_for_backup_heating", "31 00 FA 06 92").at(5, 2).number(unitMinutes, 20, 95),
		reg("antileg_temp", "31 00 FA 05 87").at(5, 2).div(10).number(unitCelsius, 60, 75),
		reg("t_dhw_1_min", "31 00 FA 06 73").at(5, 2).div(10).number(unitCelsius, 20, 85),
		reg("max_dhw_loading", "31 00 FA 01 80").at(5, 2).number(unitMinutes, 10, 240),
		reg("dhw_off_time", "31 00 FA 4E 3F").at(5, 2).number(unitMinutes, 0, 180),
		reg("tdiff_dhw_ch", "31 00 FA 06 6D").at(5, 2).div(10).number(unitKelvin, 2, 15),
		reg("circulation_interval_on", "31 00 FA 06 5E").at(5, 2).number(unitMinutes, 0, 15),
		reg("circulation_interval_off", "31 00 FA 06 5F").at(5, 2).number(unitMinutes, 0, 15),

		// Circulation and flow settings.
		reg("circulation_pump_min", "31 00 FA 06 7F").at(6, 1).number(unitPercent, 40, 100),
		reg("circulation_pump_max", "31 00 FA 06 7E").at(6, 1).number(unitPercent, 60, 100),
		reg("delta_temp_ch", "31 00 FA 06 83").at(6, 1).div(10).number(unitKelvin, 2, 20),
		reg("delta_temp_dhw", "31 00 FA 06 84").at(6, 1).div(10).number(unitKelvin, 2, 20),
		reg("flow_rate_setpoint", "31 00 FA 06 89").at(6, 1).div(10).number(unitLitreMin, 8, 25),
		reg("flow_rate_min", "31 00 FA 06 88").at(6, 1).div(10).number(unitLitreMin, 12, 25),
		reg("flow_rate_hyst", "31 00 FA 06 8A").at(6, 1).div(10).number(unitLitreMin, 0, 5),

		// Heating settings.
		reg("target_room1_temperature", "31 00 05").at(3, 2).div(10).number(unitCelsius, 5, 40),
		reg("flow_temperature_day", "31 00 FA 01 29").at(5, 2).div(10).number(unitCelsius, 20, 90),
		reg("flow_temperature_night", "31 00 FA 01 2A").at(5, 2).div(10).number(unitCelsius, 10, 90),
		reg("heating_curve", "31 00 FA 01 0E").at(5, 2).div(100).number("", 0, 2.55),
		reg("min_target_flow_temp", "31 00 FA 01 2B").at(5, 2).div(10).number(unitCelsius, 10, 90),
		reg(MaxTargetFlowTemp, "31 00 28").at(3, 2).div(10).number(unitCelsius, 20, 90),
		reg("max_heating_temperature", "31 00 FA 06 6E").at(5, 2).div(10).number(unitCelsius, 5, 85),
		reg("supply_temperature_adjustment_heating", "31 00 FA 06 A0").at(5, 2).div(10).number(unitKelvin, 0, 50),
		reg("supply_temperature_adjustment_cooling", "31 00 FA 06 A1").at(5, 2).div(10).number(unitKelvin, 0, 50),
		local(SupplySetpointRegulated).number(unitCelsius, 20, 90),

		// Backup heater power. The register holds hundredths of a kW.
		reg("power_dhw", "31 00 FA 06 68").at(5, 2).div(100).number(unitKW, 1, 40).step(1),
		reg("power_ehs_1", "31 00 FA 06 69").at(5, 2).div(100).number(unitKW, 1, 40).step(1),
		reg("power_ehs_2", "31 00 FA 06 6A").at(5, 2).div(100).number(unitKW, 1, 40).step(1),
		reg("power_biv", "31 00 FA 06 6B").at(5, 2).div(100).number(unitKW, 3, 40).step(1),

		// Pressure settings.
		reg("set_pressure", "31 00 FA 07 25").at(5, 2).div(1000).number(unitBar, 0.1, 5),
		reg("max_pressure_drop", "31 00 FA 07 26").at(5, 2).div(1000).number(unitBar, 0.1, 5),
		reg("max_pressure", "31 00 FA 07 27").at(5, 2).div(1000).number(unitBar, 0.1, 5),
		reg("min_pressure", "31 00 FA 07 28").at(5, 2).div(1000).number(unitBar, 0.1, 5),

		// Cooling settings.
		reg("start_t_out_cooling", "31 00 FA 13 5B").at(5, 2).div(10).number(unitCelsius, 15, 45),
		reg("max_t_out_cooling", "31 00 FA 13 5C").at(5, 2).div(10).number(unitCelsius, 20, 45),
		reg("t_flow_cooling_start", "31 00 FA 13 5D").at(5, 2).div(10).number(unitCelsius, 5, 25),
		reg("t_flow_cooling_max", "31 00 FA 13 5E").at(5, 2).div(10).number(unitCelsius, 5, 25),
		reg("min_t_flow_cooling", "31 00 FA 13 63").at(5, 2).div(10).number(unitCelsius, 5, 25),
		reg("t_flow_cooling", "31 00 FA 03 DD").at(5, 2).div(10).number(unitCelsius, 8, 30),
		reg("cooling_setpoint_adj", "31 00 FA 13 59").at(5, 2).signed().div(10).number(unitKelvin, -5, 5),

		// Derived values.
		local(ThermalPower).sensor(unitKW),
		local(ThermalPowerRaw).sensor(unitKW),
		local(TemperatureSpread).sensor(unitKelvin),
		local(TemperatureSpreadRaw).sensor(unitKelvin),
		local(TVTVBHDelta).sensor(unitKelvin),
		local(TVBHTRDelta).sensor(unitKelvin),
		local(SupplyTargetDelta).sensor(unitKelvin),
		local(SystemDate).text(nil),
		local(SystemTime).text(nil),
	}

	out := make([]entity.Definition, len(rows))
	for i, r := range rows {
		out[i] = r.d
	}
	return out
}

// Build instantiates the enabled catalog entities. Poll intervals come from
// cfg.Intervals, then cfg.DefaultInterval, then DefaultInterval.
//
// Parameters:
//   - cfg: entity selection and interval overrides
//   - fp: response fingerprint derivation; nil selects entity.DefaultFingerprint
//
// Returns:
//   - []*entity.Entity: entities in registration order
//   - error: ErrUnknownEntity if cfg names an entity not in the catalog
func Build(cfg config.EntitiesConfig, fp entity.FingerprintFunc) ([]*entity.Entity, error) {
	defs := Defaults()

	known := make(map[string]bool, len(defs))
	for _, d := range defs {
		known[d.ID] = true
	}
	disabled := make(map[string]bool, len(cfg.Disabled))
	for _, id := range cfg.Disabled {
		if !known[id] {
			return nil, fmt.Errorf("%w: disabled %q", ErrUnknownEntity, id)
		}
		disabled[id] = true
	}
	for id := range cfg.Intervals {
		if !known[id] {
			return nil, fmt.Errorf("%w: interval for %q", ErrUnknownEntity, id)
		}
	}

	fallback := cfg.DefaultInterval
	if fallback <= 0 {
		fallback = DefaultInterval
	}

	out := make([]*entity.Entity, 0, len(defs))
	for _, d := range defs {
		if disabled[d.ID] {
			continue
		}
		d.Interval = fallback
		if iv, ok := cfg.Intervals[d.ID]; ok && iv > 0 {
			d.Interval = iv
		}
		e, err := entity.New(d, fp)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", d.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}
