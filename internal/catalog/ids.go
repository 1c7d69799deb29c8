package catalog

// Entity ids referenced by the control logic.
const (
	TV                      = "tv"
	TVBH                    = "tvbh"
	TR                      = "tr"
	FlowRate                = "flow_rate"
	TargetSupplyTemperature = "target_supply_temperature"
	MaxTargetFlowTemp       = "max_target_flow_temp"
	ModeOfOperating         = "mode_of_operating"
	OperatingMode           = "operating_mode"
	ErrorCode               = "error_code"
	StatusCompressor        = "status_kompressor"
	BypassValve             = "bypass_valve"
	DHWMixerPosition        = "dhw_mixer_position"
	TDHW1                   = "tdhw1"
	TargetHotWater1         = "target_hot_water_temperature_1"
	TemperatureAntifreeze   = "temperature_antifreeze"
	TemperatureOutside      = "temperature_outside"

	SupplySetpointRegulated = "supply_setpoint_regulated"
	OptimizedDefrosting     = "optimized_defrosting"

	ThermalPower         = "thermal_power"
	ThermalPowerRaw      = "thermal_power_raw"
	TemperatureSpread    = "temperature_spread"
	TemperatureSpreadRaw = "temperature_spread_raw"
	TVTVBHDelta          = "tv_tvbh_delta"
	TVBHTRDelta          = "tvbh_tr_delta"
	SupplyTargetDelta    = "vorlauf_soll_tv_delta"

	SystemTime       = "system_time"
	SystemTimeHour   = "system_time_hour"
	SystemTimeMinute = "system_time_minute"
	SystemTimeSecond = "system_time_second"
	SystemDate       = "system_date"
	SystemDateDay    = "system_date_day"
	SystemDateMonth  = "system_date_month"
	SystemDateYear   = "system_date_year"
)

// Operating states reported by mode_of_operating.
const (
	StateStandby    = "standby"
	StateHeating    = "heating"
	StateCooling    = "cooling"
	StateDefrosting = "defrosting"
	StateHotWater   = "hot_water_production"
)

// Modes offered by the operating_mode select.
const (
	ModeStandby    = "standby"
	ModeHeating    = "heating"
	ModeLowering   = "lowering"
	ModeSummer     = "summer"
	ModeCooling    = "cooling"
	ModeAutomatic1 = "automatic_1"
	ModeAutomatic2 = "automatic_2"
)

// Option tokens shared by on/off selects.
const (
	OptionOff = "off"
	OptionOn  = "on"
)

// IsHeatingMode reports whether mode keeps the space-heating circuit active.
func IsHeatingMode(mode string) bool {
	switch mode {
	case ModeHeating, ModeLowering, ModeAutomatic1, ModeAutomatic2:
		return true
	}
	return false
}
