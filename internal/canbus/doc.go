// Package canbus provides the CAN frame type and the transports that move
// frames between the engine and the heat pump.
//
// Two drivers are available:
//   - socketcan: a Linux SocketCAN interface (can0, vcan0) via github.com/brutella/can
//   - slcan: a USB-serial adapter speaking the Lawicel/SLCAN ASCII protocol,
//     opened with go.bug.st/serial
//
// # Usage
//
//	tr, err := canbus.Open(cfg.CAN, logger)
//	if err != nil {
//	    return err
//	}
//	defer tr.Close()
//
//	frames := make(chan canbus.Frame, 64)
//	go tr.Receive(ctx, frames)
//
// # Thread Safety
//
// Send may be called concurrently with Receive. Concurrent Send calls are
// serialised by each driver.
package canbus
