package derived

import (
	"fmt"

	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/entity"
)

// SpecificHeat is the volumetric heat capacity of water in kJ/(l·K).
const SpecificHeat = 4.19

// ThermalPower returns the heat output in kW for supply and return
// temperatures in °C and a flow rate in l/h.
func ThermalPower(tv, tr, flow float64) float64 {
	return (tv - tr) * SpecificHeat * flow / 3600
}

// Standard returns the built-in formulas. Each call returns fresh smoothing
// state.
func Standard(alpha float64) []Formula {
	powerAvg := NewEMA(alpha)
	spreadAvg := NewEMA(alpha)

	power := func(in *Inputs) (float64, bool) {
		tv, tr, flow := in.Float(catalog.TV), in.Float(catalog.TR), in.Float(catalog.FlowRate)
		return ThermalPower(tv, tr, flow), len(in.Missing()) == 0
	}
	spread := func(in *Inputs) (float64, bool) {
		tv, tr := in.Float(catalog.TV), in.Float(catalog.TR)
		return tv - tr, len(in.Missing()) == 0
	}

	return []Formula{
		{ID: catalog.ThermalPowerRaw, Compute: func(in *Inputs) entity.Value {
			p, ok := power(in)
			if !ok {
				return entity.Value{}
			}
			return entity.Float(p)
		}},
		{ID: catalog.ThermalPower, Compute: func(in *Inputs) entity.Value {
			p, ok := power(in)
			if !ok {
				return entity.Value{}
			}
			return entity.Float(powerAvg.Next(p))
		}},
		{ID: catalog.TemperatureSpreadRaw, Compute: func(in *Inputs) entity.Value {
			s, ok := spread(in)
			if !ok {
				return entity.Value{}
			}
			return entity.Float(s)
		}},
		{ID: catalog.TemperatureSpread, Compute: func(in *Inputs) entity.Value {
			s, ok := spread(in)
			if !ok {
				return entity.Value{}
			}
			return entity.Float(spreadAvg.Next(s))
		}},
		difference(catalog.TVTVBHDelta, catalog.TV, catalog.TVBH),
		difference(catalog.TVBHTRDelta, catalog.TVBH, catalog.TR),
		difference(catalog.SupplyTargetDelta, catalog.TargetSupplyTemperature, catalog.TV),
		{ID: catalog.SystemTime, Compute: func(in *Inputs) entity.Value {
			h := in.Float(catalog.SystemTimeHour)
			m := in.Float(catalog.SystemTimeMinute)
			s := in.Float(catalog.SystemTimeSecond)
			return entity.String(fmt.Sprintf("%02d:%02d:%02d", int(h), int(m), int(s)))
		}},
		{ID: catalog.SystemDate, Compute: func(in *Inputs) entity.Value {
			d := in.Float(catalog.SystemDateDay)
			m := in.Float(catalog.SystemDateMonth)
			y := in.Float(catalog.SystemDateYear)
			return entity.String(fmt.Sprintf("%02d.%02d.%04d", int(d), int(m), int(y)+2000))
		}},
	}
}

// difference computes a - b.
func difference(id, a, b string) Formula {
	return Formula{ID: id, Compute: func(in *Inputs) entity.Value {
		return entity.Float(in.Float(a) - in.Float(b))
	}}
}
