package monitor

// State represents the lifecycle state of the monitor loop.
type State int

const (
	Starting State = iota
	Polling
	Stopping
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Polling:
		return "polling"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}
