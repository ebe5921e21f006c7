// Package engine drives the pulse core at a fixed control period. A single
// goroutine owns the tick: re-entrancy is impossible by construction, and
// every hardware exchange and state transition happens inside one step.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ez-emfi/volod/internal/config"
	"github.com/ez-emfi/volod/internal/events"
	"github.com/ez-emfi/volod/internal/hardware"
	"github.com/ez-emfi/volod/internal/models"
	"github.com/ez-emfi/volod/internal/pulse"
	"github.com/ez-emfi/volod/internal/telemetry"
)

// heartbeatEvery is how often a full status snapshot goes to telemetry even
// without a state change.
const heartbeatEvery = 5 * time.Second

// Runner owns the pulse core and steps it once per control period.
type Runner struct {
	mu   sync.Mutex // guards core readback against the stepping goroutine
	core *pulse.Core

	hw        hardware.Driver
	interlock hardware.Interlock
	bus       *events.Bus
	store     config.Store
	tele      telemetry.Publisher

	period       time.Duration
	pendingReset atomic.Bool
	oneShot      atomic.Bool // clear Arm/ForceFire after the next firing entry

	lastState pulse.State
}

// New creates a runner ticking at tickHz.
func New(core *pulse.Core, hw hardware.Driver, interlock hardware.Interlock,
	bus *events.Bus, store config.Store, tele telemetry.Publisher, tickHz int) *Runner {
	if tickHz <= 0 {
		tickHz = 1000
	}
	return &Runner{
		core:      core,
		hw:        hw,
		interlock: interlock,
		bus:       bus,
		store:     store,
		tele:      tele,
		period:    time.Second / time.Duration(tickHz),
		lastState: pulse.StateReady,
	}
}

// Run steps the core until ctx is cancelled. Tick N+1 is not issued until
// tick N's effects are fully applied; the loop body is synchronous.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	slog.Info("engine: control loop running", "period", r.period)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.step(ctx)
		}
	}
}

// step runs exactly one control tick.
func (r *Runner) step(ctx context.Context) {
	trigger, err := r.hw.ReadTrigger(ctx)
	if err != nil {
		slog.Debug("engine: trigger read failed, sampling 0", "err", err)
		trigger = 0
	}

	interlockClosed := r.interlock.Closed()
	// An open interlock behaves as a continuous external reset: the probe
	// never stays armed with the safety key out.
	reset := r.pendingReset.Swap(false) || !interlockClosed

	r.mu.Lock()
	out := r.core.Step(pulse.Input{Reset: reset, TriggerIn: trigger})
	state := r.core.State()
	status := r.core.Status()
	r.mu.Unlock()
	status.Interlock = interlockClosed

	if err := r.hw.WriteFrame(ctx, hardware.Frame{
		Trigger:   out.TriggerSignal,
		Intensity: out.IntensitySignal,
		Debug:     out.DebugCode,
	}); err != nil {
		slog.Warn("engine: frame write failed", "err", err)
	}

	if state != r.lastState {
		r.onTransition(r.lastState, state, status)
		r.lastState = state
	}
}

// onTransition publishes state changes and handles one-shot fire cleanup.
func (r *Runner) onTransition(from, to pulse.State, status models.Status) {
	slog.Debug("engine: state transition", "from", from, "to", to)
	r.bus.Publish(status)

	var event string
	switch to {
	case pulse.StateFiring:
		event = "FIRED"
		if r.oneShot.Swap(false) {
			// The one-shot request is satisfied; disarm the staged
			// snapshot so the cycle does not repeat.
			snap := status.Staged
			snap.Arm = false
			snap.ForceFire = false
			r.Stage(snap)
		}
	case pulse.StateTimedOut:
		event = "TIMEOUT"
	case pulse.StateFault:
		event = "FAULT"
	}
	if event != "" {
		r.publishEvent(event, status)
	}
}

func (r *Runner) publishEvent(typ string, status models.Status) {
	ev := telemetry.Event{
		Timestamp: time.Now(),
		Type:      typ,
		State:     status.State,
		FireCount: status.FireCount,
	}
	// The MQTT publisher may block on a dead broker; never stall the tick.
	go func() {
		if err := r.tele.PublishEvent(ev); err != nil {
			slog.Warn("engine: telemetry publish failed", "type", typ, "err", err)
		}
	}()
}

// PublishLifecycle sends a STARTUP or SHUTDOWN marker to telemetry.
// Synchronous, unlike transition events: the shutdown marker must be on the
// wire before the broker connection closes.
func (r *Runner) PublishLifecycle(typ string) {
	st := r.Status()
	ev := telemetry.Event{
		Timestamp: time.Now(),
		Type:      typ,
		State:     st.State,
		FireCount: st.FireCount,
	}
	if err := r.tele.PublishEvent(ev); err != nil {
		slog.Debug("engine: lifecycle publish failed", "type", typ, "err", err)
	}
}

// RunHeartbeat publishes a retained status snapshot to telemetry at a fixed
// interval until ctx is cancelled.
func (r *Runner) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.tele.PublishStatus(r.Status()); err != nil {
				slog.Debug("engine: status heartbeat failed", "err", err)
			}
		}
	}
}

// Stage submits a complete configuration snapshot, persists it, and notifies
// subscribers. Safe to call from any goroutine. Re-staging the snapshot that
// is already staged is a no-op: the file watcher feeds the store's own atomic
// rename back through here, and without this guard one save would re-save
// every debounce period forever.
func (r *Runner) Stage(snap models.ConfigSnapshot) {
	r.mu.Lock()
	same := r.core.Status().Staged == snap
	r.mu.Unlock()
	if same {
		return
	}

	r.core.Stage(snap)
	if err := r.store.Save(&snap); err != nil {
		slog.Warn("engine: failed to persist snapshot", "err", err)
	}
	slog.Info("engine: configuration staged",
		"arm", snap.Arm,
		"force_fire", snap.ForceFire,
		"intensity_v", models.CodeToVolts(snap.Intensity),
		"threshold_v", models.CodeToVolts(snap.TriggerThreshold),
	)
	r.bus.Publish(r.Status())
}

// RequestReset schedules an external reset for the next tick.
func (r *Runner) RequestReset() {
	r.pendingReset.Store(true)
	slog.Info("engine: external reset requested")
}

// Fire stages a one-shot force-fire cycle: the current staged snapshot with
// Arm and ForceFire set. The runner disarms again as soon as the firing
// cycle starts.
func (r *Runner) Fire() {
	r.mu.Lock()
	snap := r.core.Status().Staged
	r.mu.Unlock()
	snap.Arm = true
	snap.ForceFire = true
	r.oneShot.Store(true)
	r.Stage(snap)
}

// Status returns the full controller readback.
func (r *Runner) Status() models.Status {
	r.mu.Lock()
	status := r.core.Status()
	r.mu.Unlock()
	status.Interlock = r.interlock.Closed()
	return status
}
