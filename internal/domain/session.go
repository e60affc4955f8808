package domain

// SessionState is the activation state of the sensor session.
type SessionState int

const (
	SessionInactive SessionState = iota
	SessionActivating
	SessionActive
	SessionDeactivating
)

func (s SessionState) String() string {
	switch s {
	case SessionInactive:
		return "inactive"
	case SessionActivating:
		return "activating"
	case SessionActive:
		return "active"
	case SessionDeactivating:
		return "deactivating"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Next returns the state that follows s in the activation cycle
// Inactive -> Activating -> Active -> Deactivating -> Inactive.
func (s SessionState) Next() SessionState {
	switch s {
	case SessionInactive:
		return SessionActivating
	case SessionActivating:
		return SessionActive
	case SessionActive:
		return SessionDeactivating
	default:
		return SessionInactive
	}
}

// SessionStatus is a point-in-time view of the session.
type SessionStatus struct {
	State    SessionState        `json:"state"`
	Handles  map[SensorKind]bool `json:"handles"`
	Emulated bool                `json:"emulated"`
}
