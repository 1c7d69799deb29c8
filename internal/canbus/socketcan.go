package canbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/brutella/can"
)

// SocketCAN is a Transport over a Linux SocketCAN interface.
type SocketCAN struct {
	iface  string
	bus    *can.Bus
	logger Logger

	sendMu    sync.Mutex
	closeOnce sync.Once
}

// OpenSocketCAN binds to the named interface (e.g. "can0").
func OpenSocketCAN(iface string, logger Logger) (*SocketCAN, error) {
	bus, err := can.NewBusForInterfaceWithName(iface)
	if err != nil {
		return nil, fmt.Errorf("opening socketcan %s: %w", iface, err)
	}
	return &SocketCAN{iface: iface, bus: bus, logger: logger}, nil
}

// Send publishes f on the bus.
func (s *SocketCAN) Send(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	frm := toWire(f)

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.bus.Publish(frm); err != nil {
		return fmt.Errorf("socketcan publish: %w", err)
	}
	return nil
}

// Receive subscribes to the bus and blocks in the read loop until ctx ends.
func (s *SocketCAN) Receive(ctx context.Context, out chan<- Frame) error {
	s.bus.SubscribeFunc(func(frm can.Frame) {
		f, ok := fromWire(frm)
		if !ok {
			s.logger.Debug("socketcan dropped control frame", "id", fmt.Sprintf("0x%08X", frm.ID))
			return
		}
		deliver(ctx, out, f)
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.bus.ConnectAndPublish() }()

	s.logger.Info("socketcan receiving", "interface", s.iface)

	select {
	case <-ctx.Done():
		//nolint:errcheck // Close below reports the disconnect error
		s.Close()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("socketcan read loop: %w", err)
		}
		return nil
	}
}

// toWire converts f to the kernel layout, flagging extended identifiers.
func toWire(f Frame) can.Frame {
	frm := can.Frame{ID: f.ID & can.MaskIDSff, Length: f.Len, Data: f.Data}
	if f.Extended {
		frm.ID = (f.ID & can.MaskIDEff) | can.MaskEff
	}
	return frm
}

// fromWire strips the flag bits from frm. Error and remote frames are
// reported as not ok.
func fromWire(frm can.Frame) (Frame, bool) {
	if frm.ID&(can.MaskErr|can.MaskRtr) != 0 {
		return Frame{}, false
	}
	f := Frame{ID: frm.ID & can.MaskIDSff, Len: frm.Length, Data: frm.Data}
	if frm.ID&can.MaskEff != 0 {
		f.Extended = true
		f.ID = frm.ID & can.MaskIDEff
	}
	if f.Len > MaxDataLength {
		f.Len = MaxDataLength
	}
	return f, true
}

// Close disconnects from the interface.
func (s *SocketCAN) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.bus.Disconnect()
	})
	return err
}
