package status

// Status is the tri-state VPN connectivity result of a probe or a poll cycle.
// The zero value is Unknown.
type Status int

const (
	Unknown Status = iota
	Connected
	Disconnected
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Known reports whether s carries a usable determination.
func (s Status) Known() bool {
	return s == Connected || s == Disconnected
}
