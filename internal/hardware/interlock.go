package hardware

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Interlock reports the state of the physical safety key. While the key is
// out (interlock open) the run loop holds the controller in reset: the probe
// must never stay armed with the key removed.
type Interlock interface {
	// Closed returns true when it is safe to operate.
	Closed() bool
}

// GPIOInterlock reads the safety key switch on a GPIO pin. The switch pulls
// the pin low when the key is inserted.
type GPIOInterlock struct {
	pin gpio.PinIn
}

// NewGPIOInterlock opens the named pin (e.g. "GPIO17") with the pull-up
// enabled.
func NewGPIOInterlock(name string) (*GPIOInterlock, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph.io init: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("interlock: no such pin %q", name)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("interlock: configure %s: %w", name, err)
	}
	return &GPIOInterlock{pin: pin}, nil
}

// Closed returns true while the key switch holds the pin low.
func (i *GPIOInterlock) Closed() bool {
	return i.pin.Read() == gpio.Low
}

// StaticInterlock is a fixed interlock state, used when no key switch is
// wired and in tests.
type StaticInterlock bool

// Closed returns the fixed state.
func (s StaticInterlock) Closed() bool { return bool(s) }
