package canbus

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/rotex-can-core/internal/infrastructure/config"
)

// Transport moves frames to and from the bus.
type Transport interface {
	// Send transmits one frame.
	Send(ctx context.Context, f Frame) error

	// Receive delivers inbound frames to out until ctx is cancelled or the
	// transport fails. It blocks; run it in its own goroutine.
	Receive(ctx context.Context, out chan<- Frame) error

	// Close releases the underlying device.
	Close() error
}

// Logger is the logging interface used by the transports.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Open creates the transport selected by cfg.Driver.
func Open(cfg config.CANConfig, logger Logger) (Transport, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "socketcan":
		return OpenSocketCAN(cfg.Interface, logger)
	case "slcan":
		return OpenSLCAN(SLCANOptions{
			Port:     cfg.SerialPort,
			BaudRate: cfg.BaudRate,
			Bitrate:  cfg.Bitrate,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// deliver forwards f to out unless ctx is done.
func deliver(ctx context.Context, out chan<- Frame, f Frame) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
