package canbus

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SLCAN protocol constants.
const (
	slcanDefaultBaud  = 115200
	slcanReadTimeout  = 200 * time.Millisecond
	slcanTerminator   = '\r'
	slcanDefaultSpeed = 4 // S4 = 125 kbit/s, the HPSU bus speed
)

// SLCANOptions configures a serial SLCAN adapter.
type SLCANOptions struct {
	// Port is the serial device, e.g. "/dev/ttyACM0".
	Port string

	// BaudRate of the serial link. Default: 115200
	BaudRate int

	// Bitrate is the SLCAN speed code 0-8 (S0=10k ... S8=1M). Default: 4
	Bitrate int
}

// SLCAN is a Transport over a Lawicel-compatible serial adapter.
type SLCAN struct {
	port   serial.Port
	name   string
	logger Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// OpenSLCAN opens the serial port, sets the bus speed and opens the channel.
func OpenSLCAN(opts SLCANOptions, logger Logger) (*SLCAN, error) {
	baud := opts.BaudRate
	if baud <= 0 {
		baud = slcanDefaultBaud
	}
	speed := opts.Bitrate
	if speed <= 0 || speed > 8 {
		speed = slcanDefaultSpeed
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(opts.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", opts.Port, err)
	}
	if err := port.SetReadTimeout(slcanReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}

	s := &SLCAN{port: port, name: opts.Port, logger: logger}

	// Close any channel left open by a previous run before configuring.
	for _, cmd := range []string{"C", "S" + strconv.Itoa(speed), "O"} {
		if err := s.writeLine(cmd); err != nil {
			port.Close()
			return nil, fmt.Errorf("slcan %q: %w", cmd, err)
		}
	}
	return s, nil
}

// Send writes f as a t/T line.
func (s *SLCAN) Send(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := EncodeSLCAN(f)
	if err != nil {
		return err
	}
	return s.writeLine(line)
}

// Receive reads lines from the adapter until ctx ends.
func (s *SLCAN) Receive(ctx context.Context, out chan<- Frame) error {
	s.logger.Info("slcan receiving", "port", s.name)
	r := bufio.NewReader(s.port)
	var buf []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := r.ReadByte()
		if err != nil {
			// A read timeout surfaces as EOF from go.bug.st/serial.
			if errors.Is(err, io.EOF) {
				continue
			}
			return fmt.Errorf("slcan read: %w", err)
		}
		if b != slcanTerminator && b != '\n' {
			buf = append(buf, b)
			continue
		}
		if len(buf) == 0 {
			continue
		}
		line := string(buf)
		buf = buf[:0]

		f, err := DecodeSLCAN(line)
		if err != nil {
			// Acknowledgements (z/Z) and status replies are not frames.
			s.logger.Debug("slcan line ignored", "line", line, "error", err)
			continue
		}
		if !deliver(ctx, out, f) {
			return ctx.Err()
		}
	}
}

// Close closes the channel and the serial port.
func (s *SLCAN) Close() error {
	var err error
	s.closeOnce.Do(func() {
		//nolint:errcheck // Best-effort channel close before releasing the port
		s.writeLine("C")
		err = s.port.Close()
	})
	return err
}

func (s *SLCAN) writeLine(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.port.Write([]byte(line + string(rune(slcanTerminator))))
	return err
}

// EncodeSLCAN renders f as an SLCAN transmit command without terminator.
func EncodeSLCAN(f Frame) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	var head string
	if f.Extended {
		head = fmt.Sprintf("T%08X%d", f.ID, f.Len)
	} else {
		head = fmt.Sprintf("t%03X%d", f.ID, f.Len)
	}
	return head + fmt.Sprintf("%X", f.Payload()), nil
}

// DecodeSLCAN parses a t/T line (without terminator) into a Frame.
func DecodeSLCAN(line string) (Frame, error) {
	if len(line) == 0 {
		return Frame{}, ErrMalformedLine
	}

	var idLen int
	var f Frame
	switch line[0] {
	case 't':
		idLen = 3
	case 'T':
		idLen = 8
		f.Extended = true
	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	if len(line) < 1+idLen+1 {
		return Frame{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	id, err := strconv.ParseUint(line[1:1+idLen], 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: id: %v", ErrMalformedLine, err)
	}
	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > MaxDataLength {
		return Frame{}, fmt.Errorf("%w: dlc %q", ErrMalformedLine, line[1+idLen])
	}
	data := line[2+idLen:]
	// Adapters with timestamping append 4 hex digits after the data.
	if len(data) < dlc*2 {
		return Frame{}, fmt.Errorf("%w: short data %q", ErrMalformedLine, line)
	}
	if _, err := hex.Decode(f.Data[:dlc], []byte(data[:dlc*2])); err != nil {
		return Frame{}, fmt.Errorf("%w: data: %v", ErrMalformedLine, err)
	}

	f.ID = uint32(id)
	f.Len = uint8(dlc) //nolint:gosec // bounded above
	return f, f.Validate()
}
