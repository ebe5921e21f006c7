// Package hardware provides the hardware abstraction layer for the pulse
// driver. It defines the Driver interface and the frame type shared by the
// real UART driver and the mock driver.
package hardware

import "context"

// Frame is one tick's worth of output signals for the pulse head, as signed
// voltage codes (±5 V full scale).
type Frame struct {
	Trigger   int16 // probe trigger line
	Intensity int16 // pulse intensity, pre-clamped by the controller
	Debug     int16 // FSM observer code
}

// Driver is the hardware abstraction for the DS1140 pulse head. All
// operations are context-aware and safe for concurrent use, though in
// practice only the tick loop calls ReadTrigger and WriteFrame.
type Driver interface {
	// Init initializes the hardware link. Must be called before any other
	// method.
	Init(ctx context.Context) error

	// ReadTrigger returns the most recent sample of the monitored trigger
	// input as a signed voltage code.
	ReadTrigger(ctx context.Context) (int16, error)

	// WriteFrame drives the three outputs for this control period.
	WriteFrame(ctx context.Context, f Frame) error

	// IsReal returns true for a real hardware driver, false for a mock.
	IsReal() bool

	// Close releases the hardware link.
	Close() error
}

// ErrHardware is a simple hardware error string.
type ErrHardware string

func (e ErrHardware) Error() string { return string(e) }
