package probe

import (
	"context"
	"log"
	"regexp"
	"strings"

	"vpn-monitor/internal/command"
	"vpn-monitor/internal/status"
)

var upWord = regexp.MustCompile(`(?i)\b(up|connected)\b`)

// AdapterProbe looks for an up network adapter belonging to the VPN vendor,
// falling back to a scan of the full network configuration dump.
type AdapterProbe struct {
	Runner             command.Runner
	Terms              []string
	ListCommand        []string
	DumpCommand        []string
	DisconnectedMarker string
}

// NewAdapterProbe creates an adapter probe using the platform's commands and
// the given name filter.
func NewAdapterProbe(r command.Runner, p Platform, filter string) *AdapterProbe {
	terms := FilterTerms(filter)
	return &AdapterProbe{
		Runner:             r,
		Terms:              terms,
		ListCommand:        p.ListCommand(terms),
		DumpCommand:        p.DumpCommand,
		DisconnectedMarker: p.DisconnectedMarker,
	}
}

func (a *AdapterProbe) Name() string { return "adapter" }

func (a *AdapterProbe) Probe(ctx context.Context) status.Status {
	res, err := a.Runner.Run(ctx, a.ListCommand[0], a.ListCommand[1:]...)
	if err != nil {
		log.Printf("adapter probe: list adapters: %v", err)
		return status.Unknown
	}
	if res.ExitCode == 0 && a.hasUpAdapter(res.Stdout) {
		return status.Connected
	}

	res, err = a.Runner.Run(ctx, a.DumpCommand[0], a.DumpCommand[1:]...)
	if err != nil {
		log.Printf("adapter probe: config dump: %v", err)
		return status.Unknown
	}
	dump := strings.ToLower(res.Stdout)
	if a.matches(dump) && !strings.Contains(dump, strings.ToLower(a.DisconnectedMarker)) {
		return status.Connected
	}
	return status.Disconnected
}

func (a *AdapterProbe) hasUpAdapter(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		if a.matches(strings.ToLower(line)) && upWord.MatchString(line) {
			return true
		}
	}
	return false
}

// matches reports whether lower contains any filter term.
func (a *AdapterProbe) matches(lower string) bool {
	for _, t := range a.Terms {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
