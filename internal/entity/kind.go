package entity

import "sort"

// Kind names an entity kind.
type Kind string

// Entity kinds.
const (
	KindSensor       Kind = "sensor"
	KindTextSensor   Kind = "text_sensor"
	KindBinarySensor Kind = "binary_sensor"
	KindNumber       Kind = "number"
	KindSelect       Kind = "select"
)

// Variant carries the kind-specific capabilities of an entity.
// The set of implementations is closed.
type Variant interface {
	Kind() Kind
	variant()
}

// Range bounds accepted sensor readings, inclusive.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Sensor is a read-only numeric measurement.
type Sensor struct {
	Unit  string
	Range *Range
}

// TextSensor is a read-only enumerated value shown as text. Keys missing from
// Options are rendered by the entity's fallback formatter.
type TextSensor struct {
	Options Options
}

// BinarySensor is a read-only on/off value.
type BinarySensor struct{}

// Number is a writable numeric setting.
type Number struct {
	Unit string
	Min  float64
	Max  float64
	Step float64
}

// Select is a writable enumerated setting.
type Select struct {
	Options Options
}

func (Sensor) Kind() Kind { return KindSensor }
func (TextSensor) Kind() Kind { return KindTextSensor }
func (BinarySensor) Kind() Kind { return KindBinarySensor }
func (Number) Kind() Kind { return KindNumber }
func (Select) Kind() Kind { return KindSelect }

func (Sensor) variant() {}
func (TextSensor) variant() {}
func (BinarySensor) variant() {}
func (Number) variant() {}
func (Select) variant() {}

// Options maps raw bus keys to option tokens ("heating", "summer", ...).
type Options map[uint32]string

// Label returns the option token for key.
func (o Options) Label(key uint32) (string, bool) {
	s, ok := o[key]
	return s, ok
}

// Key returns the raw key for an option token.
func (o Options) Key(label string) (uint32, bool) {
	for k, v := range o {
		if v == label {
			return k, true
		}
	}
	return 0, false
}

// Labels returns the option tokens ordered by key.
func (o Options) Labels() []string {
	keys := make([]uint32, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = o[k]
	}
	return out
}
