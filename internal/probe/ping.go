package probe

import (
	"context"
	"log"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"vpn-monitor/internal/status"
)

// PingProbe sends a single ICMP echo to a host that is only reachable
// through the tunnel.
type PingProbe struct {
	Target     string
	Timeout    time.Duration
	Privileged bool
}

// NewPingProbe creates a ping probe for target. Windows requires privileged
// (raw socket) mode; elsewhere unprivileged UDP pings are used.
func NewPingProbe(target string) *PingProbe {
	return &PingProbe{
		Target:     target,
		Timeout:    3 * time.Second,
		Privileged: runtime.GOOS == "windows",
	}
}

func (p *PingProbe) Name() string { return "ping" }

func (p *PingProbe) Probe(ctx context.Context) status.Status {
	pinger, err := probing.NewPinger(p.Target)
	if err != nil {
		log.Printf("ping probe: %s: %v", p.Target, err)
		return status.Unknown
	}
	pinger.Count = 1
	pinger.Timeout = p.Timeout
	pinger.SetPrivileged(p.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		log.Printf("ping probe: %s: %v", p.Target, err)
		return status.Unknown
	}
	if pinger.Statistics().PacketsRecv > 0 {
		return status.Connected
	}
	return status.Disconnected
}
