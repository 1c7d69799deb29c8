package catalog

import (
	"fmt"

	"github.com/nerrad567/rotex-can-core/internal/entity"
)

// Electric heater stage bits in byte 5. Each set bit adds one 3 kW stage;
// bit 0 enables the heater for writes.
const (
	heaterEnable = 0x01
	heaterStage1 = 0x08
	heaterStage2 = 0x04
	heaterStage3 = 0x02
	heaterStepKW = 3
)

// externalSensorPresent is the byte 6 marker of a connected outdoor sensor.
const externalSensorPresent = 0x05

// DecodeElectricHeater returns the heater power in kW (0, 3, 6 or 9) as the
// select key.
func DecodeElectricHeater(payload []byte) (uint32, error) {
	if len(payload) < 6 {
		return 0, fmt.Errorf("%w: electric heater needs 6 bytes, got %d", entity.ErrDecode, len(payload))
	}
	var kw uint32
	for _, bit := range []byte{heaterStage1, heaterStage2, heaterStage3} {
		if payload[5]&bit != 0 {
			kw += heaterStepKW
		}
	}
	return kw, nil
}

// EncodeElectricHeater enables one stage per 3 kW of raw.
func EncodeElectricHeater(cmd *entity.Command, raw uint32) {
	b := byte(heaterEnable)
	if raw >= 3 {
		b |= heaterStage1
	}
	if raw >= 6 {
		b |= heaterStage2
	}
	if raw >= 9 {
		b |= heaterStage3
	}
	cmd[5] = b
}

// DecodeExternalSensor reports 1 when an external temperature sensor is
// connected.
func DecodeExternalSensor(payload []byte) (uint32, error) {
	if len(payload) < 7 {
		return 0, fmt.Errorf("%w: external sensor needs 7 bytes, got %d", entity.ErrDecode, len(payload))
	}
	if payload[6] == externalSensorPresent {
		return 1, nil
	}
	return 0, nil
}
