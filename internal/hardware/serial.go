package hardware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.bug.st/serial"
	"golang.org/x/time/rate"
)

// UART link to the DS1140 pulse head.
//
// Outgoing frames (host → head), 8 bytes:
//   {0x56 'V', trig_hi, trig_lo, int_hi, int_lo, dbg_hi, dbg_lo, 0x0A}
// Incoming trigger samples (head → host), 4 bytes, streamed continuously:
//   {0x54 'T', sample_hi, sample_lo, 0x0A}
const (
	frameHeader     = 0x56 // 'V'
	sampleHeader    = 0x54 // 'T'
	frameTrailer    = 0x0A // '\n'
	baudRate        = 115200
	maxFramesPerSec = 2000
)

// SerialDriver talks to the pulse head over a UART. Writes are rate limited
// so a misconfigured tick period cannot flood the head's input buffer.
type SerialDriver struct {
	mu      sync.Mutex
	device  string
	port    serial.Port
	limiter *rate.Limiter

	trigMu  sync.Mutex
	trigger int16
}

// NewSerial creates a driver for the given serial device, e.g. /dev/ttyUSB0.
func NewSerial(device string) *SerialDriver {
	return &SerialDriver{
		device:  device,
		limiter: rate.NewLimiter(rate.Limit(maxFramesPerSec), 16),
	}
}

// Init opens the port and starts the sample reader.
func (d *SerialDriver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	port, err := serial.Open(d.device, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", d.device, err)
	}
	d.port = port
	slog.Info("serial: pulse head link open", "device", d.device, "baud", baudRate)

	go d.readLoop(port)
	return nil
}

// readLoop consumes the head's continuous trigger sample stream, keeping only
// the most recent sample. Resynchronizes on the header byte after any framing
// error.
func (d *SerialDriver) readLoop(port serial.Port) {
	buf := make([]byte, 1)
	frame := make([]byte, 0, 4)
	for {
		n, err := port.Read(buf)
		if err != nil {
			slog.Warn("serial: read loop terminated", "err", err)
			return
		}
		if n == 0 {
			continue
		}
		b := buf[0]
		if len(frame) == 0 && b != sampleHeader {
			continue // resync
		}
		frame = append(frame, b)
		if len(frame) < 4 {
			continue
		}
		if sample, ok := decodeSample(frame); ok {
			d.trigMu.Lock()
			d.trigger = sample
			d.trigMu.Unlock()
		}
		frame = frame[:0]
	}
}

// encodeFrame packs an output frame for the wire, big-endian.
func encodeFrame(f Frame) [8]byte {
	return [8]byte{
		frameHeader,
		byte(uint16(f.Trigger) >> 8), byte(uint16(f.Trigger)),
		byte(uint16(f.Intensity) >> 8), byte(uint16(f.Intensity)),
		byte(uint16(f.Debug) >> 8), byte(uint16(f.Debug)),
		frameTrailer,
	}
}

// decodeSample extracts the trigger level from a complete incoming sample
// frame. Returns false on a framing error.
func decodeSample(frame []byte) (int16, bool) {
	if len(frame) != 4 || frame[0] != sampleHeader || frame[3] != frameTrailer {
		return 0, false
	}
	return int16(uint16(frame[1])<<8 | uint16(frame[2])), true
}

// ReadTrigger returns the most recent trigger sample from the head.
func (d *SerialDriver) ReadTrigger(ctx context.Context) (int16, error) {
	d.trigMu.Lock()
	defer d.trigMu.Unlock()
	return d.trigger, nil
}

// WriteFrame sends one output frame to the head.
func (d *SerialDriver) WriteFrame(ctx context.Context, f Frame) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return fmt.Errorf("serial: driver not initialized")
	}
	buf := encodeFrame(f)
	if _, err := d.port.Write(buf[:]); err != nil {
		return fmt.Errorf("serial: write frame: %w", err)
	}
	return nil
}

func (d *SerialDriver) IsReal() bool { return true }

// Close releases the serial port, which also stops the read loop.
func (d *SerialDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port != nil {
		err := d.port.Close()
		d.port = nil
		return err
	}
	return nil
}
