package domain

// GateState is the execution gate's single process-wide state.
type GateState int32

const (
	GateIdle GateState = iota
	GateInFlight
)

func (s GateState) String() string {
	if s == GateInFlight {
		return "in-flight"
	}
	return "idle"
}
