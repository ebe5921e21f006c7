package pulse

import "github.com/ez-emfi/volod/internal/models"

// State is the pulse controller state. The encoding is closed: any value
// outside the named constants is treated as a hardware fault.
type State uint8

const (
	StateReady State = iota
	StateArmed
	StateFiring
	StateCooling
	StateDone
	StateTimedOut
	StateFault
)

var stateNames = [...]string{
	StateReady:    "READY",
	StateArmed:    "ARMED",
	StateFiring:   "FIRING",
	StateCooling:  "COOLING",
	StateDone:     "DONE",
	StateTimedOut: "TIMEDOUT",
	StateFault:    "FAULT",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "FAULT"
}

// TriggerHigh is the level driven on the trigger output while firing:
// a 3.3 V logic high for the probe's trigger input.
const TriggerHigh int16 = 0x547A

// HysteresisBand is the dead band below the trigger threshold. A trigger is
// detected above the threshold and considered cleared only below
// threshold − HysteresisBand, suppressing chatter near the threshold.
// 655 codes ≈ 0.1 V.
const HysteresisBand = 655

// Outputs are the three signals driven to the pulse head each tick.
type Outputs struct {
	TriggerSignal   int16 // probe trigger, high only while firing
	IntensitySignal int16 // clamped intensity, nonzero only while firing
	DebugCode       int16 // state observer code, always valid
}

// Controller is the safety-interlocked firing state machine. It is the sole
// owner of the gate signal and the only component permitted to drive the
// probe outputs. It has no synchronization of its own: exactly one goroutine
// may call Tick.
type Controller struct {
	state   State
	latched models.ConfigSnapshot // clamped copy of active, taken when arming

	firingRemaining  int
	coolingRemaining int
	armElapsed       int
	divCount         int

	fireCount     uint8
	spuriousCount uint8
	wasTriggered  bool
	timedOut      bool

	trigActive bool // hysteresis latch on the trigger input
}

// NewController returns a controller in the Ready state.
func NewController() *Controller {
	return &Controller{state: StateReady}
}

// Tick advances the controller by one base clock tick. trigger is the raw
// monitored input; active is the bank's current active snapshot. State
// transitions and duration counters advance only on enabled ticks (base ticks
// divided by the configured clock divider); the trigger detector samples
// every base tick so no crossing is missed between enabled ticks.
func (c *Controller) Tick(reset bool, trigger int16, active models.ConfigSnapshot) Outputs {
	if reset {
		*c = Controller{state: StateReady}
		return c.outputs()
	}

	cfg := c.config(active)

	// Hysteresis trigger detector, sampled on the base clock.
	was := c.trigActive
	thr := int(cfg.TriggerThreshold)
	switch {
	case int(trigger) > thr:
		c.trigActive = true
	case int(trigger) < thr-HysteresisBand:
		c.trigActive = false
	}
	if c.trigActive && !was && c.state != StateArmed {
		// Spurious activity is recorded, never acted on.
		c.spuriousCount = models.SatInc(c.spuriousCount)
	}

	// Enabled-tick divider. All FSM timing counts enabled ticks, so the
	// control-loop resolution is independent of the base clock rate.
	c.divCount++
	if c.divCount < int(cfg.ClockDivider) {
		return c.outputs()
	}
	c.divCount = 0

	c.advance(active)
	return c.outputs()
}

// config returns the snapshot governing this tick: the live active snapshot
// while Ready, the latched copy once a cycle is in flight.
func (c *Controller) config(active models.ConfigSnapshot) models.ConfigSnapshot {
	if c.state == StateReady {
		return active.Clamped()
	}
	return c.latched
}

// advance runs one enabled-tick step of the state machine.
func (c *Controller) advance(active models.ConfigSnapshot) {
	switch c.state {
	case StateReady:
		if active.Reset {
			// Soft reset holds the FSM in Ready.
			return
		}
		if active.Arm {
			c.latched = active.Clamped()
			c.state = StateArmed
			c.armElapsed = 0
		}

	case StateArmed:
		switch {
		case c.trigActive || c.latched.ForceFire:
			if c.trigActive {
				c.wasTriggered = true
			}
			c.state = StateFiring
			c.firingRemaining = int(c.latched.FiringDur)
			c.fireCount = models.SatInc(c.fireCount)
		default:
			c.armElapsed++
			if c.armElapsed >= int(c.latched.ArmTimeout) {
				c.state = StateTimedOut
				c.timedOut = true
			}
		}

	case StateFiring:
		c.firingRemaining--
		if c.firingRemaining <= 0 {
			c.state = StateCooling
			c.coolingRemaining = int(c.latched.CoolingDur)
		}

	case StateCooling:
		c.coolingRemaining--
		if c.coolingRemaining <= 0 {
			c.state = StateDone
		}

	case StateDone:
		c.state = StateReady

	case StateTimedOut:
		c.state = StateReady

	case StateFault:
		// Terminal until external reset.

	default:
		// Unreachable encoding: fail safe, recoverable only by reset.
		c.state = StateFault
	}
}

// outputs derives the three output signals from the current state. The
// intensity clamp is re-applied here on every tick, so a malformed value can
// never reach the probe even if it was latched.
func (c *Controller) outputs() Outputs {
	out := Outputs{DebugCode: DebugCode(c.state)}
	if c.state == StateFiring {
		out.TriggerSignal = TriggerHigh
		out.IntensitySignal = models.ClampIntensity(c.latched.Intensity)
	}
	return out
}

// State returns the current FSM state.
func (c *Controller) State() State { return c.state }

// GateOpen reports whether configuration updates may be applied. The gate is
// asserted only while Ready.
func (c *Controller) GateOpen() bool { return c.state == StateReady }

// FireCount returns the saturating count of firing cycles since reset.
func (c *Controller) FireCount() uint8 { return c.fireCount }

// SpuriousCount returns the saturating count of triggers seen outside Armed.
func (c *Controller) SpuriousCount() uint8 { return c.spuriousCount }

// WasTriggered reports whether any firing cycle was started by a real
// trigger (as opposed to force-fire) since reset. Sticky.
func (c *Controller) WasTriggered() bool { return c.wasTriggered }

// TimedOut reports whether any armed cycle expired without a trigger since
// reset. Sticky.
func (c *Controller) TimedOut() bool { return c.timedOut }

// Latched returns the clamped configuration captured at the moment of
// arming. Meaningful only while a cycle is in flight.
func (c *Controller) Latched() models.ConfigSnapshot { return c.latched }
