package entity

import (
	"fmt"
	"math"
	"strconv"
)

// DecodeFunc extracts the raw key from a response payload, replacing the
// offset/width window for entities with irregular encodings.
type DecodeFunc func(payload []byte) (uint32, error)

// EncodeFunc writes raw into a write command, replacing the default
// offset/width placement.
type EncodeFunc func(cmd *Command, raw uint32)

// writeOpcodeMask keeps the service nibble of byte 0; a zero low nibble
// turns a read request into a write.
const writeOpcodeMask = 0xF0

// extract reads width bytes big-endian starting at offset.
func extract(payload []byte, offset, width int) (uint32, error) {
	if offset < 0 || width < 1 || width > 4 || offset+width > len(payload) {
		return 0, fmt.Errorf("%w: window [%d:%d] of %d bytes", ErrDecode, offset, offset+width, len(payload))
	}
	var raw uint32
	for _, b := range payload[offset : offset+width] {
		raw = raw<<8 | uint32(b)
	}
	return raw, nil
}

// signed interprets raw as a two's complement number of width bytes.
func signed(raw uint32, width int) int64 {
	bits := uint(width * 8)
	if bits >= 32 {
		return int64(int32(raw)) //nolint:gosec // deliberate reinterpretation
	}
	if raw&(1<<(bits-1)) != 0 {
		return int64(raw) - int64(1)<<bits
	}
	return int64(raw)
}

// place writes the low width bytes of raw big-endian at offset.
func place(cmd *Command, offset, width int, raw uint32) {
	for i := width - 1; i >= 0; i-- {
		if offset+i < len(cmd) {
			cmd[offset+i] = byte(raw)
		}
		raw >>= 8
	}
}

// numeric converts a raw key into the scaled measurement.
func (e *Entity) numeric(raw uint32) float64 {
	var v float64
	if e.def.Signed {
		v = float64(signed(raw, e.def.Width))
	} else {
		v = float64(raw)
	}
	return v / e.def.Divider
}

// decode turns a payload into the typed value and its raw key.
func (e *Entity) decode(payload []byte) (Value, uint32, error) {
	var raw uint32
	var err error
	if e.def.Decode != nil {
		raw, err = e.def.Decode(payload)
	} else {
		raw, err = extract(payload, e.def.Offset, e.def.Width)
	}
	if err != nil {
		return Value{}, 0, err
	}

	switch v := e.def.Variant.(type) {
	case Sensor:
		f := e.numeric(raw)
		if v.Range != nil && !v.Range.Contains(f) {
			return Value{}, raw, fmt.Errorf("%w: %g not in [%g, %g]", ErrOutOfRange, f, v.Range.Min, v.Range.Max)
		}
		return Float(f), raw, nil
	case Number:
		return Float(e.numeric(raw)), raw, nil
	case BinarySensor:
		return Bool(raw != 0), raw, nil
	case TextSensor:
		if label, ok := v.Options.Label(raw); ok {
			return String(label), raw, nil
		}
		return String(strconv.FormatUint(uint64(raw), 10)), raw, nil
	case Select:
		label, ok := v.Options.Label(raw)
		if !ok {
			return Value{}, raw, fmt.Errorf("%w: key 0x%X", ErrUnknownOption, raw)
		}
		return String(label), raw, nil
	default:
		return Value{}, raw, fmt.Errorf("%w: unsupported variant %T", ErrDecode, e.def.Variant)
	}
}

// rawFor converts an outgoing value into the raw key for this entity.
func (e *Entity) rawFor(v Value) (uint32, error) {
	switch vr := e.def.Variant.(type) {
	case Number:
		f, ok := v.Float()
		if !ok {
			return 0, fmt.Errorf("%w: number needs numeric value, got %s", ErrTypeMismatch, v.Type())
		}
		return e.scale(f), nil
	case Select:
		if label, ok := v.Text(); ok {
			key, found := vr.Options.Key(label)
			if !found {
				return 0, fmt.Errorf("%w: %q", ErrUnknownOption, label)
			}
			return key, nil
		}
		f, ok := v.Float()
		if !ok {
			return 0, fmt.Errorf("%w: select needs option or key, got %s", ErrTypeMismatch, v.Type())
		}
		return e.scale(f), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrNotWritable, e.Kind())
	}
}

// scale multiplies by the divider and wraps negative values into the
// entity's width.
func (e *Entity) scale(f float64) uint32 {
	scaled := int64(math.Round(f * e.def.Divider))
	if scaled < 0 {
		bits := uint(e.def.Width * 8)
		if bits >= 32 {
			return uint32(int32(scaled)) //nolint:gosec // deliberate reinterpretation
		}
		return uint32(scaled + int64(1)<<bits) //nolint:gosec // bounded by width
	}
	return uint32(scaled) //nolint:gosec // controller registers are at most 32 bits
}

// writeCommand builds the write payload for raw: the request command with the
// write opcode in byte 0 and the value placed in the value window.
func (e *Entity) writeCommand(raw uint32) Command {
	cmd := e.def.Command
	cmd[0] &= writeOpcodeMask
	if e.def.Encode != nil {
		e.def.Encode(&cmd, raw)
		return cmd
	}
	place(&cmd, e.def.Offset, e.def.Width, raw)
	return cmd
}
