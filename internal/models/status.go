package models

// Status is the full controller readback returned by GET /api/status and
// published on the event bus. Staged is the most recent write, Active is the
// snapshot the controller is using, Effective is Active after clamping, i.e.
// the values actually driven to the probe.
type Status struct {
	State         string  `json:"state"`
	DebugCode     int16   `json:"debug_code"`
	DebugVolts    float64 `json:"debug_volts"`
	GateOpen      bool    `json:"gate_open"`
	WasTriggered  bool    `json:"was_triggered"`
	TimedOut      bool    `json:"timed_out"`
	FireCount     uint8   `json:"fire_count"`
	SpuriousCount uint8   `json:"spurious_count"`

	Staged    ConfigSnapshot `json:"staged"`
	Active    ConfigSnapshot `json:"active"`
	Effective ConfigSnapshot `json:"effective"`

	Interlock bool `json:"interlock_closed"`
}

// Info is the system information response.
type Info struct {
	Version string `json:"version"`
	Mock    bool   `json:"mock"`
	TickHz  int    `json:"tick_hz"`
	Serial  string `json:"serial_port,omitempty"`
}
