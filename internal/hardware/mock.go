package hardware

import (
	"context"
	"sync"
)

// Mock is a thread-safe in-memory mock pulse-head driver for testing and
// development. The trigger input level is settable so tests can simulate a
// target crossing the threshold.
type Mock struct {
	mu        sync.Mutex
	trigger   int16
	last      Frame
	frames    int
	failRead  bool
	failWrite bool
}

// NewMock creates a new mock driver with the trigger input at 0 V.
func NewMock() *Mock {
	return &Mock{}
}

// SetTrigger sets the simulated trigger input level.
func (m *Mock) SetTrigger(code int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trigger = code
}

// SetFailRead configures the mock to fail all reads.
func (m *Mock) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// SetFailWrite configures the mock to fail all writes.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// LastFrame returns the most recently written output frame.
func (m *Mock) LastFrame() Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// FrameCount returns the number of frames written since creation.
func (m *Mock) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

func (m *Mock) Init(ctx context.Context) error { return nil }

func (m *Mock) ReadTrigger(ctx context.Context) (int16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return 0, ErrHardware("mock: read failure configured")
	}
	return m.trigger, nil
}

func (m *Mock) WriteFrame(ctx context.Context, f Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return ErrHardware("mock: write failure configured")
	}
	m.last = f
	m.frames++
	return nil
}

func (m *Mock) IsReal() bool { return false }

func (m *Mock) Close() error { return nil }
