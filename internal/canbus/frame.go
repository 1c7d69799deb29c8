package canbus

import (
	"fmt"
	"strings"
)

// Identifier limits.
const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF

	// MaxDataLength is the payload size of a classical CAN frame.
	MaxDataLength = 8
)

// Frame is a classical CAN 2.0 data frame.
type Frame struct {
	ID       uint32
	Extended bool
	Len      uint8
	Data     [MaxDataLength]byte
}

// NewFrame builds a standard frame, switching to an extended identifier when
// id does not fit 11 bits.
func NewFrame(id uint32, data []byte) (Frame, error) {
	f := Frame{ID: id, Extended: id > maxStdID}
	if len(data) > MaxDataLength {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(data))
	}
	f.Len = uint8(len(data)) //nolint:gosec // bounded above
	copy(f.Data[:], data)
	return f, f.Validate()
}

// Validate reports whether the identifier and length are in range.
func (f Frame) Validate() error {
	if f.Len > MaxDataLength {
		return ErrInvalidLength
	}
	limit := uint32(maxStdID)
	if f.Extended {
		limit = maxExtID
	}
	if f.ID > limit {
		return fmt.Errorf("%w: 0x%X", ErrInvalidID, f.ID)
	}
	return nil
}

// Payload returns the valid portion of Data.
func (f Frame) Payload() []byte {
	return f.Data[:f.Len]
}

// String renders the frame in candump style, e.g. "180#32 10 FA C0 FC 01 C2".
func (f Frame) String() string {
	return fmt.Sprintf("%03X#%s", f.ID, HexBytes(f.Payload()))
}

// HexBytes formats b as space separated upper-case hex pairs.
func HexBytes(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}
