package pulse

import "github.com/ez-emfi/volod/internal/models"

// Input is everything the core consumes on one tick.
type Input struct {
	Reset     bool  // external reset: forces Ready and restores default config
	TriggerIn int16 // raw monitored input, signed voltage code
}

// Core wires the register bank and the controller into the single
// synchronous step the embedding application drives once per control period.
// Stage is the only entry safe to call from another goroutine; Step and the
// readback methods belong to the tick loop alone.
type Core struct {
	bank *RegisterBank
	ctrl *Controller

	// gate is the controller's gate value as computed at the end of the
	// previous tick. Feeding the bank the previous tick's gate breaks the
	// same-cycle dependency between "controller just became Ready" and
	// "bank should apply staged now".
	gate bool
}

// NewCore returns a core with default configuration, controller Ready and
// the gate open.
func NewCore() *Core {
	return &Core{
		bank: NewRegisterBank(),
		ctrl: NewController(),
		gate: true,
	}
}

// Stage submits a complete configuration snapshot. Callable at any time from
// any goroutine; takes effect on the first gate-open tick.
func (c *Core) Stage(snap models.ConfigSnapshot) {
	c.bank.Stage(snap)
}

// Step advances the whole core by one tick: the bank first (consuming last
// tick's gate), then the controller on the resulting active snapshot.
func (c *Core) Step(in Input) Outputs {
	c.bank.Tick(in.Reset, c.gate)
	out := c.ctrl.Tick(in.Reset, in.TriggerIn, c.bank.Active())
	c.gate = c.ctrl.GateOpen()
	return out
}

// State returns the controller state.
func (c *Core) State() State { return c.ctrl.State() }

// Status assembles the full readback: state, sticky flags, saturating
// counters, and the staged, active and effective (post-clamp) snapshots.
func (c *Core) Status() models.Status {
	st := c.ctrl.State()
	active := c.bank.Active()
	code := DebugCode(st)
	return models.Status{
		State:         st.String(),
		DebugCode:     code,
		DebugVolts:    models.CodeToVolts(code),
		GateOpen:      c.ctrl.GateOpen(),
		WasTriggered:  c.ctrl.WasTriggered(),
		TimedOut:      c.ctrl.TimedOut(),
		FireCount:     c.ctrl.FireCount(),
		SpuriousCount: c.ctrl.SpuriousCount(),
		Staged:        c.bank.Staged(),
		Active:        active,
		Effective:     active.Clamped(),
	}
}
