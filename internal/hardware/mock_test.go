package hardware_test

import (
	"context"
	"testing"

	"github.com/ez-emfi/volod/internal/hardware"
)

func TestMockTriggerLevel(t *testing.T) {
	m := hardware.NewMock()
	ctx := context.Background()

	if err := m.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	got, err := m.ReadTrigger(ctx)
	if err != nil {
		t.Fatalf("ReadTrigger: %v", err)
	}
	if got != 0 {
		t.Errorf("initial trigger = %d, want 0", got)
	}

	m.SetTrigger(0x4000)
	got, err = m.ReadTrigger(ctx)
	if err != nil {
		t.Fatalf("ReadTrigger: %v", err)
	}
	if got != 0x4000 {
		t.Errorf("trigger = %#x, want 0x4000", got)
	}
}

func TestMockRecordsFrames(t *testing.T) {
	m := hardware.NewMock()
	ctx := context.Background()

	frames := []hardware.Frame{
		{Trigger: 0, Intensity: 0, Debug: 0},
		{Trigger: 0x547A, Intensity: 0x2666, Debug: 4681},
	}
	for _, f := range frames {
		if err := m.WriteFrame(ctx, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	if got := m.FrameCount(); got != len(frames) {
		t.Errorf("FrameCount = %d, want %d", got, len(frames))
	}
	if got := m.LastFrame(); got != frames[1] {
		t.Errorf("LastFrame = %+v, want %+v", got, frames[1])
	}
}

func TestMockFailureModes(t *testing.T) {
	m := hardware.NewMock()
	ctx := context.Background()

	m.SetFailRead(true)
	if _, err := m.ReadTrigger(ctx); err == nil {
		t.Error("ReadTrigger should fail when configured to")
	}
	m.SetFailRead(false)
	if _, err := m.ReadTrigger(ctx); err != nil {
		t.Errorf("ReadTrigger after clearing failure: %v", err)
	}

	m.SetFailWrite(true)
	if err := m.WriteFrame(ctx, hardware.Frame{}); err != nil {
		if m.FrameCount() != 0 {
			t.Error("failed write must not be recorded")
		}
	} else {
		t.Error("WriteFrame should fail when configured to")
	}
}

func TestMockIsNotReal(t *testing.T) {
	m := hardware.NewMock()
	if m.IsReal() {
		t.Error("mock driver must report IsReal() == false")
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
