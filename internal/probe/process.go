package probe

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"vpn-monitor/internal/command"
	"vpn-monitor/internal/status"
)

// ProcessLister returns the names of running processes.
type ProcessLister interface {
	ProcessNames(ctx context.Context) ([]string, error)
}

// GopsutilLister reads the process table with gopsutil.
type GopsutilLister struct{}

func (GopsutilLister) ProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// exited or inaccessible
			continue
		}
		names = append(names, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// ProcessProbe checks for the vendor UI process. A running UI does not prove
// an active tunnel, so presence is confirmed by another probe.
type ProcessProbe struct {
	Lister  ProcessLister
	Process string
	Confirm Probe
	Timeout time.Duration
}

// NewProcessProbe creates a process probe that confirms presence with confirm.
func NewProcessProbe(l ProcessLister, name string, confirm Probe) *ProcessProbe {
	return &ProcessProbe{
		Lister:  l,
		Process: name,
		Confirm: confirm,
		Timeout: command.DefaultTimeout,
	}
}

func (p *ProcessProbe) Name() string { return "process" }

func (p *ProcessProbe) Probe(ctx context.Context) status.Status {
	running, err := p.running(ctx)
	if err != nil {
		log.Printf("process probe: %v", err)
		return status.Unknown
	}
	if !running {
		return status.Disconnected
	}
	debugf("process probe: %s running, confirming with %s probe", p.Process, p.Confirm.Name())
	return p.Confirm.Probe(ctx)
}

func (p *ProcessProbe) running(ctx context.Context) (bool, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = command.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names, err := p.Lister.ProcessNames(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if strings.EqualFold(n, p.Process) {
			return true, nil
		}
	}
	return false, nil
}
