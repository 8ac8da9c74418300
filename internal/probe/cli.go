package probe

import (
	"context"
	"log"
	"os"
	"os/exec"
	"strings"

	"vpn-monitor/internal/command"
	"vpn-monitor/internal/status"
)

// CLIProbe asks the vendor command-line client for its connection state.
type CLIProbe struct {
	Runner command.Runner
	// Path to the CLI binary. Empty means the CLI is not installed.
	Path string
}

// NewCLIProbe creates a CLI probe for the binary at path.
func NewCLIProbe(r command.Runner, path string) *CLIProbe {
	return &CLIProbe{Runner: r, Path: path}
}

func (c *CLIProbe) Name() string { return "cli" }

func (c *CLIProbe) Probe(ctx context.Context) status.Status {
	if c.Path == "" {
		return status.Unknown
	}
	res, err := c.Runner.Run(ctx, c.Path, "state")
	if err != nil {
		log.Printf("cli probe: %v", err)
		return status.Unknown
	}
	return ParseCLIState(res.Stdout)
}

// ParseCLIState interprets the output of "vpncli state". The last "state:"
// line wins; without one the whole output is scanned.
func ParseCLIState(out string) status.Status {
	out = strings.ToLower(out)

	last := ""
	for _, line := range strings.Split(out, "\n") {
		if i := strings.Index(line, "state:"); i >= 0 {
			last = line[i+len("state:"):]
		}
	}
	if last != "" {
		return classifyState(last)
	}
	return classifyState(out)
}

// "disconnected" contains "connected", so it is checked first.
func classifyState(s string) status.Status {
	switch {
	case strings.Contains(s, "disconnected"):
		return status.Disconnected
	case strings.Contains(s, "connected"):
		return status.Connected
	default:
		return status.Unknown
	}
}

// FindCLI resolves the vendor CLI binary: the explicit path first, then the
// platform install locations, then PATH. It returns "" when nothing is found.
func FindCLI(explicit string, p Platform) string {
	if explicit != "" {
		if fileExists(explicit) {
			log.Printf("cli probe: using %s", explicit)
			return explicit
		}
		log.Printf("cli probe: configured path %s not found", explicit)
	}
	for _, path := range p.CLIPaths {
		if fileExists(path) {
			log.Printf("cli probe: found %s", path)
			return path
		}
	}
	if p.CLIName != "" {
		if path, err := exec.LookPath(p.CLIName); err == nil {
			log.Printf("cli probe: found %s in PATH", path)
			return path
		}
	}
	log.Printf("warning: vpn cli not found, falling back to adapter and process checks")
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
