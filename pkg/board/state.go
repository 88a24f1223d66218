package board

// State is the lifecycle state of a session.
type State uint8

const (
	// Disconnected is the initial state; no transport handle is held.
	Disconnected State = iota
	// Connecting is the transient state while a connect attempt runs.
	Connecting
	// Connected means the session owns an open transport handle.
	Connected
)

var stateNames = map[State]string{
	Disconnected: "disconnected",
	Connecting:   "connecting",
	Connected:    "connected",
}

// String returns the lowercase state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
