package pulse

// The state observer maps the FSM state to a voltage code on the debug
// output so the state trajectory can be watched on an oscilloscope. The
// ladder spreads 8 state slots over 0..2.5 V of the ±5 V full scale:
// code = state · (2.5 V / 7) · (32767 / 5 V). Purely informational; the
// debug signal is never fed back into control logic.
var debugCodes = [8]int16{
	StateReady:    0,     // 0.000 V
	StateArmed:    2341,  // 0.357 V
	StateFiring:   4681,  // 0.714 V
	StateCooling:  7022,  // 1.071 V
	StateDone:     9362,  // 1.429 V
	StateTimedOut: 11703, // 1.786 V
	StateFault:    14044, // 2.143 V
	7:             16384, // 2.500 V, unused slot
}

// DebugCode returns the observer code for a state. Out-of-range states read
// back as the Fault code, matching the fail-safe encoding of the FSM itself.
func DebugCode(s State) int16 {
	if int(s) < len(debugCodes) {
		return debugCodes[s]
	}
	return debugCodes[StateFault]
}
