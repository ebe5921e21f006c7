// Package models defines the data structures for the volod pulse driver.
// Voltage fields are 16-bit signed codes over the ±5 V full scale of the
// DS1140 front end (32767 = +5 V).
package models

// ConfigSnapshot is one complete operating configuration for the pulse
// driver. A snapshot is always written and applied as a whole record; there
// is no partial update. Out-of-range values are never rejected; the
// controller clamps them at the point of use.
type ConfigSnapshot struct {
	Arm       bool `json:"arm"`
	ForceFire bool `json:"force_fire"`
	Reset     bool `json:"reset"`

	ClockDivider uint8  `json:"clock_divider"`    // enabled-tick divider, 1..16
	ArmTimeout   uint16 `json:"arm_timeout"`      // enabled ticks, 0..4095
	FiringDur    uint8  `json:"firing_duration"`  // enabled ticks, 1..32
	CoolingDur   uint8  `json:"cooling_duration"` // enabled ticks, min 8

	TriggerThreshold int16 `json:"trigger_threshold"` // signed voltage code
	Intensity        int16 `json:"intensity"`         // signed voltage code
}

// Safety limits for the DS1140 pulse head. MaxIntensity is the 3.0 V hard
// clamp on the intensity output; the probe is not rated above it.
const (
	MaxIntensity     int16 = 0x4CCD // 3.0 V
	MaxFiringCycles        = 32
	MinCoolingCycles       = 8
	MaxArmTimeout          = 4095
	MinClockDivider        = 1
	MaxClockDivider        = 16

	// CountMax is the saturation point of the fire and spurious-trigger
	// counters (4-bit hardware counters).
	CountMax uint8 = 15
)

// DefaultThreshold and DefaultIntensity are the safe power-on values used by
// the deployment tooling: trigger at 2.4 V, intensity 2.0 V.
const (
	DefaultThreshold int16 = 0x3DCF // 2.4 V
	DefaultIntensity int16 = 0x2666 // 2.0 V
)

// DefaultSnapshot returns the compiled-in power-on configuration. Reset
// restores both the staged and active snapshots to exactly this record.
func DefaultSnapshot() ConfigSnapshot {
	return ConfigSnapshot{
		ClockDivider:     1,
		ArmTimeout:       MaxArmTimeout,
		FiringDur:        16,
		CoolingDur:       16,
		TriggerThreshold: DefaultThreshold,
		Intensity:        DefaultIntensity,
	}
}

// Clamped returns a copy of the snapshot with every field forced into its
// safe operating range. The controller latches a clamped copy when arming and
// additionally re-clamps the intensity on every firing tick.
func (c ConfigSnapshot) Clamped() ConfigSnapshot {
	out := c
	out.ClockDivider = clampU8(c.ClockDivider, MinClockDivider, MaxClockDivider)
	if c.ArmTimeout > MaxArmTimeout {
		out.ArmTimeout = MaxArmTimeout
	}
	out.FiringDur = clampU8(c.FiringDur, 1, MaxFiringCycles)
	if c.CoolingDur < MinCoolingCycles {
		out.CoolingDur = MinCoolingCycles
	}
	out.Intensity = ClampIntensity(c.Intensity)
	return out
}

// ClampIntensity forces a raw intensity code into [-MaxIntensity, MaxIntensity].
func ClampIntensity(v int16) int16 {
	if v > MaxIntensity {
		return MaxIntensity
	}
	if v < -MaxIntensity {
		return -MaxIntensity
	}
	return v
}

func clampU8(v, lo, hi uint8) uint8 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SatInc increments a saturating counter, stopping at CountMax.
func SatInc(v uint8) uint8 {
	if v >= CountMax {
		return CountMax
	}
	return v + 1
}

// fullScaleVolts is the analog full scale of the Moku front end.
const fullScaleVolts = 5.0

// CodeToVolts converts a signed 16-bit voltage code to volts.
func CodeToVolts(code int16) float64 {
	return float64(code) / 32767.0 * fullScaleVolts
}

// VoltsToCode converts volts to the nearest signed 16-bit code, saturating at
// full scale.
func VoltsToCode(v float64) int16 {
	raw := v / fullScaleVolts * 32767.0
	if raw > 32767 {
		raw = 32767
	}
	if raw < -32768 {
		raw = -32768
	}
	if raw >= 0 {
		return int16(raw + 0.5)
	}
	return int16(raw - 0.5)
}
