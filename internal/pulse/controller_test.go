package pulse_test

import (
	"testing"

	"github.com/ez-emfi/volod/internal/models"
	"github.com/ez-emfi/volod/internal/pulse"
)

// Trigger levels used against the default threshold (2.4 V).
const (
	trigHigh int16 = 0x4000 // well above the default threshold
	trigLow  int16 = 0x0000
)

// armedSnapshot returns a default snapshot with Arm set and short, explicit
// timing so tests stay fast.
func armedSnapshot() models.ConfigSnapshot {
	snap := models.DefaultSnapshot()
	snap.Arm = true
	snap.FiringDur = 4
	snap.CoolingDur = 8
	return snap
}

func step(c *pulse.Core, trigger int16) pulse.Outputs {
	return c.Step(pulse.Input{TriggerIn: trigger})
}

// stepUntil steps with the given trigger until the controller reaches the
// wanted state, failing the test after max ticks.
func stepUntil(t *testing.T, c *pulse.Core, trigger int16, want pulse.State, max int) {
	t.Helper()
	for i := 0; i < max; i++ {
		if c.State() == want {
			return
		}
		step(c, trigger)
	}
	if c.State() != want {
		t.Fatalf("state = %v after %d ticks, want %v", c.State(), max, want)
	}
}

// countState steps while the controller remains in the given state,
// returning the number of ticks it was observed.
func countState(c *pulse.Core, trigger int16, s pulse.State, max int) int {
	n := 0
	for i := 0; i < max && c.State() == s; i++ {
		n++
		step(c, trigger)
	}
	return n
}

// Scenario A: after reset with no prior writes, the active snapshot is
// exactly the compiled-in default.
func TestResetYieldsDefaults(t *testing.T) {
	core := pulse.NewCore()

	junk := models.ConfigSnapshot{Arm: true, Intensity: 0x7FFF, FiringDur: 200}
	core.Stage(junk)
	core.Step(pulse.Input{Reset: true})

	status := core.Status()
	def := models.DefaultSnapshot()
	if status.Active != def {
		t.Errorf("active = %+v, want defaults", status.Active)
	}
	if status.Staged != def {
		t.Errorf("staged = %+v, want defaults (reset overrides pending writes)", status.Staged)
	}
	if status.State != "READY" {
		t.Errorf("state = %s, want READY", status.State)
	}
	if status.FireCount != 0 || status.SpuriousCount != 0 || status.TimedOut || status.WasTriggered {
		t.Errorf("counters/flags not cleared by reset: %+v", status)
	}
}

// Scenario B: arm while Ready; next tick the controller is Armed and the
// gate is closed.
func TestArmClosesGate(t *testing.T) {
	core := pulse.NewCore()
	core.Stage(armedSnapshot())

	step(core, trigLow)

	if got := core.State(); got != pulse.StateArmed {
		t.Fatalf("state = %v, want ARMED", got)
	}
	if core.Status().GateOpen {
		t.Error("gate must be closed while Armed")
	}
}

// Scenario C: trigger while Armed starts a firing cycle of exactly
// firing_duration ticks, then Cooling.
func TestFiringDurationExact(t *testing.T) {
	for _, dur := range []uint8{1, 4, 16, 32} {
		snap := armedSnapshot()
		snap.FiringDur = dur

		core := pulse.NewCore()
		core.Stage(snap)
		step(core, trigLow) // Ready → Armed
		stepUntil(t, core, trigHigh, pulse.StateFiring, 4)

		got := countState(core, trigHigh, pulse.StateFiring, 200)
		if got != int(dur) {
			t.Errorf("firing_duration=%d: Firing lasted %d ticks, want %d", dur, got, dur)
		}
		if st := core.State(); st != pulse.StateCooling {
			t.Errorf("firing_duration=%d: state after Firing = %v, want COOLING", dur, st)
		}
	}
}

// Out-of-range firing durations are clamped, never rejected.
func TestFiringDurationClamped(t *testing.T) {
	tests := []struct {
		configured uint8
		wantTicks  int
	}{
		{0, 1},
		{33, models.MaxFiringCycles},
		{255, models.MaxFiringCycles},
	}

	for _, tt := range tests {
		snap := armedSnapshot()
		snap.FiringDur = tt.configured

		core := pulse.NewCore()
		core.Stage(snap)
		step(core, trigLow)
		stepUntil(t, core, trigHigh, pulse.StateFiring, 4)

		got := countState(core, trigHigh, pulse.StateFiring, 200)
		if got != tt.wantTicks {
			t.Errorf("firing_duration=%d: Firing lasted %d ticks, want %d",
				tt.configured, got, tt.wantTicks)
		}
	}
}

// Scenario D: cooling below the minimum still cools for the minimum.
func TestCoolingDurationFloor(t *testing.T) {
	tests := []struct {
		configured uint8
		wantTicks  int
	}{
		{3, models.MinCoolingCycles},
		{8, 8},
		{20, 20},
	}

	for _, tt := range tests {
		snap := armedSnapshot()
		snap.CoolingDur = tt.configured

		core := pulse.NewCore()
		core.Stage(snap)
		step(core, trigLow)
		stepUntil(t, core, trigHigh, pulse.StateCooling, 20)

		got := countState(core, trigLow, pulse.StateCooling, 200)
		if got != tt.wantTicks {
			t.Errorf("cooling_duration=%d: Cooling lasted %d ticks, want %d",
				tt.configured, got, tt.wantTicks)
		}
		if st := core.State(); st != pulse.StateDone {
			t.Errorf("state after Cooling = %v, want DONE", st)
		}
	}
}

// Scenario E: no trigger before arm_timeout → TimedOut for one tick with the
// sticky flag set, then back to Ready.
func TestArmTimeout(t *testing.T) {
	snap := armedSnapshot()
	snap.ArmTimeout = 10

	core := pulse.NewCore()
	core.Stage(snap)
	step(core, trigLow) // Ready → Armed

	for i := 0; i < 9; i++ {
		step(core, trigLow)
		if got := core.State(); got != pulse.StateArmed {
			t.Fatalf("state = %v at armed tick %d, want ARMED", got, i+1)
		}
	}
	step(core, trigLow) // tick 10
	if got := core.State(); got != pulse.StateTimedOut {
		t.Fatalf("state = %v at tick 10, want TIMEDOUT", got)
	}
	if !core.Status().TimedOut {
		t.Error("timed_out sticky flag must be set")
	}

	step(core, trigLow)
	if got := core.State(); got != pulse.StateReady {
		t.Errorf("state = %v after TimedOut, want READY", got)
	}
	if !core.Status().TimedOut {
		t.Error("timed_out flag must stay set until external reset")
	}
}

// Scenario F: counters saturate, never wrap.
func TestFireCountSaturates(t *testing.T) {
	snap := armedSnapshot()
	snap.ForceFire = true
	snap.FiringDur = 1

	core := pulse.NewCore()
	core.Stage(snap)

	// Leaving Arm and ForceFire staged re-arms after every cycle: enough
	// ticks for well over 20 complete cycles.
	fireEntries := 0
	prev := core.State()
	for i := 0; i < 1000; i++ {
		step(core, trigLow)
		if st := core.State(); st == pulse.StateFiring && prev != pulse.StateFiring {
			fireEntries++
		}
		prev = core.State()
	}

	if fireEntries <= 20 {
		t.Fatalf("only %d firing cycles observed, test needs more than 20", fireEntries)
	}
	if got := core.Status().FireCount; got != models.CountMax {
		t.Errorf("fire_count = %d after %d cycles, want %d (saturated)",
			got, fireEntries, models.CountMax)
	}
}

// Intensity driven while Firing is clamped on every tick, for any raw value.
func TestIntensityClampedAtUse(t *testing.T) {
	tests := []struct {
		raw  int16
		want int16
	}{
		{0x2666, 0x2666}, // 2.0 V passes through
		{0x7000, models.MaxIntensity},
		{32767, models.MaxIntensity},
		{-0x7000, -models.MaxIntensity},
		{-32768, -models.MaxIntensity},
	}

	for _, tt := range tests {
		snap := armedSnapshot()
		snap.ForceFire = true
		snap.Intensity = tt.raw

		core := pulse.NewCore()
		core.Stage(snap)
		stepUntil(t, core, trigLow, pulse.StateFiring, 4)

		out := step(core, trigLow)
		if core.State() != pulse.StateFiring {
			t.Fatalf("intensity=%d: expected to still be FIRING", tt.raw)
		}
		if out.IntensitySignal != tt.want {
			t.Errorf("intensity=%d: output = %d, want %d", tt.raw, out.IntensitySignal, tt.want)
		}
		if out.TriggerSignal != pulse.TriggerHigh {
			t.Errorf("trigger output = %d while firing, want %d", out.TriggerSignal, pulse.TriggerHigh)
		}
	}
}

// Outputs are zero in every non-firing state.
func TestOutputsZeroOutsideFiring(t *testing.T) {
	snap := armedSnapshot()
	snap.ArmTimeout = 4

	core := pulse.NewCore()
	core.Stage(snap)

	for i := 0; i < 20; i++ {
		out := step(core, trigLow)
		if core.State() == pulse.StateFiring {
			continue
		}
		if out.TriggerSignal != 0 || out.IntensitySignal != 0 {
			t.Fatalf("state %v drove outputs %d/%d, want 0/0",
				core.State(), out.TriggerSignal, out.IntensitySignal)
		}
	}
}

// ForceFire fires without any trigger input.
func TestForceFire(t *testing.T) {
	snap := armedSnapshot()
	snap.ForceFire = true

	core := pulse.NewCore()
	core.Stage(snap)

	step(core, trigLow) // Ready → Armed
	step(core, trigLow) // Armed → Firing (forced)
	if got := core.State(); got != pulse.StateFiring {
		t.Fatalf("state = %v, want FIRING", got)
	}
	if core.Status().WasTriggered {
		t.Error("was_triggered must not be set by force fire")
	}
}

func TestWasTriggeredSticky(t *testing.T) {
	core := pulse.NewCore()
	core.Stage(armedSnapshot())
	step(core, trigLow)
	stepUntil(t, core, trigHigh, pulse.StateFiring, 4)

	if !core.Status().WasTriggered {
		t.Fatal("was_triggered must be set after a real trigger")
	}

	// Survives the rest of the cycle; cleared only by external reset.
	stepUntil(t, core, trigLow, pulse.StateReady, 100)
	if !core.Status().WasTriggered {
		t.Error("was_triggered must stay set until external reset")
	}
	core.Step(pulse.Input{Reset: true})
	if core.Status().WasTriggered {
		t.Error("was_triggered must clear on external reset")
	}
}

// Triggers observed outside Armed are counted, saturating, and otherwise
// ignored.
func TestSpuriousTriggerCounting(t *testing.T) {
	core := pulse.NewCore()
	step(core, trigLow) // settle in Ready, defaults active

	// 20 distinct rising edges while Ready.
	for i := 0; i < 20; i++ {
		step(core, trigHigh)
		if got := core.State(); got != pulse.StateReady {
			t.Fatalf("state = %v, spurious triggers must not transition", got)
		}
		step(core, trigLow) // full swing below the hysteresis band
	}

	if got := core.Status().SpuriousCount; got != models.CountMax {
		t.Errorf("spurious_count = %d, want %d (saturated)", got, models.CountMax)
	}
}

// A level wobbling inside the hysteresis band is one trigger, not many.
func TestTriggerHysteresis(t *testing.T) {
	core := pulse.NewCore()
	step(core, trigLow)

	thr := models.DefaultThreshold
	inBand := thr - 100 // below threshold but above threshold − band

	step(core, thr+1)
	if got := core.Status().SpuriousCount; got != 1 {
		t.Fatalf("spurious_count = %d after first crossing, want 1", got)
	}

	// Chatter inside the band must not re-trigger.
	for i := 0; i < 10; i++ {
		step(core, inBand)
		step(core, thr+1)
	}
	if got := core.Status().SpuriousCount; got != 1 {
		t.Errorf("spurious_count = %d after in-band chatter, want 1", got)
	}

	// A full swing below the band re-arms the detector.
	step(core, thr-pulse.HysteresisBand-1)
	step(core, thr+1)
	if got := core.Status().SpuriousCount; got != 2 {
		t.Errorf("spurious_count = %d after full swing, want 2", got)
	}
}

// With a clock divider every duration stretches by the divider in base
// ticks: the FSM counts enabled ticks only.
func TestClockDividerStretchesTiming(t *testing.T) {
	const div = 4
	snap := armedSnapshot()
	snap.ForceFire = true
	snap.ClockDivider = div
	snap.FiringDur = 2

	core := pulse.NewCore()
	core.Stage(snap)
	stepUntil(t, core, trigLow, pulse.StateFiring, 4*div+4)

	got := countState(core, trigLow, pulse.StateFiring, 200)
	want := 2 * div
	if got != want {
		t.Errorf("Firing lasted %d base ticks with divider %d, want %d", got, div, want)
	}
}

// While the controller is anywhere but Ready the gate is closed: writes are
// staged but apply only on the first tick back in Ready.
func TestWritesHeldWhileBusy(t *testing.T) {
	snap := armedSnapshot()
	snap.ForceFire = true
	snap.FiringDur = 2

	core := pulse.NewCore()
	core.Stage(snap)
	stepUntil(t, core, trigLow, pulse.StateFiring, 4)

	// Stage a disarmed config mid-cycle.
	w2 := models.DefaultSnapshot()
	w2.Intensity = 0x1111
	core.Stage(w2)

	for core.State() != pulse.StateReady {
		if core.Status().Active == w2 {
			t.Fatalf("write applied in state %v with the gate closed", core.State())
		}
		step(core, trigLow)
	}

	// The gate value the bank consumes is from the end of the previous
	// tick, so the write lands one tick after re-entering Ready.
	step(core, trigLow)
	if got := core.Status().Active; got != w2 {
		t.Errorf("active = %+v on first Ready tick, want %+v", got, w2)
	}
}
