// Package pulse implements the control core of the DS1140 pulse driver: the
// gated configuration register bank and the safety-interlocked firing state
// machine. Everything here is tick-driven and deterministic: the same input
// sequence always produces the same state trajectory.
package pulse

import (
	"sync"

	"github.com/ez-emfi/volod/internal/models"
)

// RegisterBank decouples arbitrarily-timed configuration writes from the
// synchronous control loop. Writers replace the staged snapshot at any time;
// the active snapshot, the only one the controller reads, changes solely in
// Tick, and only by wholesale copy of staged while the controller's gate is
// open. The control loop can therefore never observe a torn snapshot.
type RegisterBank struct {
	mu     sync.Mutex
	staged models.ConfigSnapshot
	active models.ConfigSnapshot
}

// NewRegisterBank returns a bank with both snapshots set to the compiled-in
// defaults.
func NewRegisterBank() *RegisterBank {
	def := models.DefaultSnapshot()
	return &RegisterBank{staged: def, active: def}
}

// Stage replaces the staged snapshot. Unconditional, always succeeds, safe to
// call from any goroutine. Last write wins: a snapshot staged and then
// overwritten before a gate-open tick is silently superseded. That is the
// contract, not a defect.
func (b *RegisterBank) Stage(snap models.ConfigSnapshot) {
	b.mu.Lock()
	b.staged = snap
	b.mu.Unlock()
}

// Tick advances the bank by one control tick. Called exactly once per tick by
// the owning core. reset restores both snapshots to the defaults, overriding
// any pending write. Otherwise, if the gate is open, the staged snapshot is
// copied into active in a single step. No other code path mutates active.
func (b *RegisterBank) Tick(reset, gateOpen bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case reset:
		def := models.DefaultSnapshot()
		b.staged = def
		b.active = def
	case gateOpen:
		b.active = b.staged
	}
}

// Active returns the snapshot currently governing the controller, by value.
func (b *RegisterBank) Active() models.ConfigSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Staged returns the most recently written snapshot, by value.
func (b *RegisterBank) Staged() models.ConfigSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.staged
}
