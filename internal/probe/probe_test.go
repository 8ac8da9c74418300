package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"vpn-monitor/internal/command"
	"vpn-monitor/internal/status"
)

// scriptedRunner returns canned results keyed by command name.
type scriptedRunner struct {
	mu      sync.Mutex
	results map[string]command.Result
	errs    map[string]error
	calls   []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		results: map[string]command.Result{},
		errs:    map[string]error{},
	}
}

func (r *scriptedRunner) on(name string, stdout string) *scriptedRunner {
	r.results[name] = command.Result{Stdout: stdout}
	return r
}

func (r *scriptedRunner) fail(name string, err error) *scriptedRunner {
	r.errs[name] = err
	return r
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) (command.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	if err, ok := r.errs[name]; ok {
		return command.Result{}, err
	}
	if res, ok := r.results[name]; ok {
		return res, nil
	}
	return command.Result{}, fmt.Errorf("run %s: executable file not found", name)
}

func (r *scriptedRunner) called(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c == name {
			return true
		}
	}
	return false
}

// fixedProbe always returns the same status and counts invocations.
type fixedProbe struct {
	name   string
	result status.Status
	calls  int
}

func (f *fixedProbe) Name() string { return f.name }

func (f *fixedProbe) Probe(ctx context.Context) status.Status {
	f.calls++
	return f.result
}

type fakeLister struct {
	names []string
	err   error
}

func (f fakeLister) ProcessNames(ctx context.Context) ([]string, error) {
	return f.names, f.err
}

var timeoutErr = fmt.Errorf("powershell: %w after 10s", command.ErrTimeout)

func TestReconcilePriority(t *testing.T) {
	U, C, D := status.Unknown, status.Connected, status.Disconnected
	tests := []struct {
		cli, adapter, process status.Status
		want                  status.Status
	}{
		{C, D, D, C},
		{D, C, C, D},
		{U, C, D, C},
		{U, D, C, D},
		{U, U, C, C},
		{U, U, D, D},
		{U, U, U, U},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("%s/%s/%s", tt.cli, tt.adapter, tt.process)
		t.Run(name, func(t *testing.T) {
			r := NewReconciler(
				&fixedProbe{name: "cli", result: tt.cli},
				&fixedProbe{name: "adapter", result: tt.adapter},
				&fixedProbe{name: "process", result: tt.process},
			)
			if got := r.Reconcile(context.Background()); got != tt.want {
				t.Errorf("Reconcile() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReconcileShortCircuits(t *testing.T) {
	cli := &fixedProbe{name: "cli", result: status.Connected}
	adapter := &fixedProbe{name: "adapter", result: status.Disconnected}
	process := &fixedProbe{name: "process", result: status.Disconnected}

	got := NewReconciler(cli, adapter, process).Reconcile(context.Background())
	if got != status.Connected {
		t.Fatalf("Reconcile() = %s, want connected", got)
	}
	if adapter.calls != 0 || process.calls != 0 {
		t.Errorf("lower-priority probes ran: adapter=%d process=%d", adapter.calls, process.calls)
	}
}

func TestReconcileNoProbes(t *testing.T) {
	if got := NewReconciler().Reconcile(context.Background()); got != status.Unknown {
		t.Errorf("Reconcile() = %s, want unknown", got)
	}
}

func TestParseCLIState(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want status.Status
	}{
		{"connected", "  >> state: Connected\n  >> notice: Connected to vpn.example.com.\n", status.Connected},
		{"disconnected", "  >> state: Disconnected\n  >> notice: Ready to connect.\n", status.Disconnected},
		{"last state line wins", "  >> state: Disconnected\n  >> state: Connected\n", status.Connected},
		{"reconnecting", "  >> state: Reconnecting\n", status.Unknown},
		{"no state line", "VPN is disconnected", status.Disconnected},
		{"no state line connected", "session connected", status.Connected},
		{"garbage", "Cisco AnyConnect Secure Mobility Client (version 4.10)", status.Unknown},
		{"empty", "", status.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCLIState(tt.out); got != tt.want {
				t.Errorf("ParseCLIState() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCLIProbe(t *testing.T) {
	t.Run("not installed", func(t *testing.T) {
		r := newScriptedRunner()
		p := NewCLIProbe(r, "")
		if got := p.Probe(context.Background()); got != status.Unknown {
			t.Errorf("got %s, want unknown", got)
		}
		if len(r.calls) != 0 {
			t.Errorf("runner called %v", r.calls)
		}
	})

	t.Run("connected", func(t *testing.T) {
		r := newScriptedRunner().on("vpncli", ">> state: Connected\n")
		if got := NewCLIProbe(r, "vpncli").Probe(context.Background()); got != status.Connected {
			t.Errorf("got %s, want connected", got)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		r := newScriptedRunner().fail("vpncli", timeoutErr)
		if got := NewCLIProbe(r, "vpncli").Probe(context.Background()); got != status.Unknown {
			t.Errorf("got %s, want unknown", got)
		}
	})
}

func TestFindCLI(t *testing.T) {
	dir := t.TempDir()
	installed := filepath.Join(dir, "vpncli")
	if err := os.WriteFile(installed, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	p := Platform{CLIPaths: []string{filepath.Join(dir, "missing"), installed}}

	if got := FindCLI("", p); got != installed {
		t.Errorf("FindCLI() = %q, want %q", got, installed)
	}
	if got := FindCLI(installed, Platform{}); got != installed {
		t.Errorf("FindCLI(explicit) = %q, want %q", got, installed)
	}
	if got := FindCLI(filepath.Join(dir, "nope"), Platform{}); got != "" {
		t.Errorf("FindCLI(missing) = %q, want empty", got)
	}
}

func windowsAdapterProbe(r command.Runner) *AdapterProbe {
	return NewAdapterProbe(r, DefaultPlatform("windows"), "Cisco AnyConnect")
}

func TestAdapterProbeUpAdapter(t *testing.T) {
	r := newScriptedRunner().
		on("powershell", "\nEthernet 2 Cisco AnyConnect Secure Mobility Client Virtual Miniport Adapter for Windows x64 Up\n\n")
	if got := windowsAdapterProbe(r).Probe(context.Background()); got != status.Connected {
		t.Fatalf("got %s, want connected", got)
	}
	if r.called("ipconfig") {
		t.Error("fallback dump ran although an up adapter was found")
	}
}

func TestAdapterProbeFallbackDump(t *testing.T) {
	tests := []struct {
		name string
		dump string
		want status.Status
	}{
		{
			"vendor adapter with link",
			"Ethernet adapter Ethernet 2:\n   Description . . . : Cisco AnyConnect Secure Mobility Client Virtual Miniport Adapter\n   IPv4 Address. . . : 10.1.2.3\n",
			status.Connected,
		},
		{
			"vendor adapter media disconnected",
			"Ethernet adapter Ethernet 2:\n   Media State . . . : Media disconnected\n   Description . . . : Cisco AnyConnect Secure Mobility Client Virtual Miniport Adapter\n",
			status.Disconnected,
		},
		{
			"no vendor adapter",
			"Wireless LAN adapter Wi-Fi:\n   Description . . . : Intel(R) Wi-Fi 6 AX201\n",
			status.Disconnected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newScriptedRunner().on("powershell", "").on("ipconfig", tt.dump)
			if got := windowsAdapterProbe(r).Probe(context.Background()); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAdapterProbeNonZeroExitFallsBack(t *testing.T) {
	r := newScriptedRunner().on("ipconfig", "Description: Cisco AnyConnect adapter\n")
	r.results["powershell"] = command.Result{Stdout: "Cisco Up", ExitCode: 1}

	if got := windowsAdapterProbe(r).Probe(context.Background()); got != status.Connected {
		t.Fatalf("got %s, want connected", got)
	}
	if !r.called("ipconfig") {
		t.Error("expected fallback dump after non-zero exit")
	}
}

func TestAdapterProbeToolFailure(t *testing.T) {
	t.Run("list timeout", func(t *testing.T) {
		r := newScriptedRunner().fail("powershell", timeoutErr)
		if got := windowsAdapterProbe(r).Probe(context.Background()); got != status.Unknown {
			t.Errorf("got %s, want unknown", got)
		}
	})
	t.Run("dump failure", func(t *testing.T) {
		r := newScriptedRunner().on("powershell", "").fail("ipconfig", errors.New("run ipconfig: not found"))
		if got := windowsAdapterProbe(r).Probe(context.Background()); got != status.Unknown {
			t.Errorf("got %s, want unknown", got)
		}
	})
}

func TestAdapterProbeLinux(t *testing.T) {
	p := DefaultPlatform("linux")

	up := "1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 state UNKNOWN\n" +
		"7: cscotun0: <POINTOPOINT,MULTICAST,NOARP,UP,LOWER_UP> mtu 1390 qdisc fq_codel state UNKNOWN\n"
	r := newScriptedRunner().on("ip", up)
	if got := NewAdapterProbe(r, p, "").Probe(context.Background()); got != status.Disconnected {
		// empty filter matches nothing
		t.Errorf("empty filter: got %s, want disconnected", got)
	}
	if got := NewAdapterProbe(r, p, p.AdapterFilter).Probe(context.Background()); got != status.Connected {
		t.Errorf("got %s, want connected", got)
	}

	down := "7: cscotun0: <POINTOPOINT,MULTICAST,NOARP> mtu 1390 state DOWN\n"
	r = newScriptedRunner().on("ip", down)
	if got := NewAdapterProbe(r, p, p.AdapterFilter).Probe(context.Background()); got != status.Connected {
		// the dump (same fake output) mentions cscotun without no-carrier
		t.Errorf("got %s, want connected from dump fallback", got)
	}
}

func TestGetNetAdapterCommand(t *testing.T) {
	cmd := DefaultPlatform("windows").ListCommand([]string{"Cisco", "Any'Connect"})
	if cmd[0] != "powershell" {
		t.Fatalf("command = %v", cmd)
	}
	script := cmd[len(cmd)-1]
	for _, want := range []string{
		"$_.Name -like '*Cisco*'",
		"$_.InterfaceDescription -like '*Any''Connect*'",
		"$_.Status -eq 'Up'",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}

func TestProcessProbe(t *testing.T) {
	tests := []struct {
		name       string
		lister     fakeLister
		confirm    status.Status
		want       status.Status
		wantDelegs int
	}{
		{"absent", fakeLister{names: []string{"explorer.exe", "svchost.exe"}}, status.Connected, status.Disconnected, 0},
		{"present confirmed", fakeLister{names: []string{"VPNUI.EXE"}}, status.Connected, status.Connected, 1},
		{"present not confirmed", fakeLister{names: []string{"vpnui.exe"}}, status.Disconnected, status.Disconnected, 1},
		{"present unknown", fakeLister{names: []string{"vpnui.exe"}}, status.Unknown, status.Unknown, 1},
		{"lister failure", fakeLister{err: errors.New("access denied")}, status.Connected, status.Unknown, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirm := &fixedProbe{name: "adapter", result: tt.confirm}
			p := NewProcessProbe(tt.lister, "vpnui.exe", confirm)
			if got := p.Probe(context.Background()); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if confirm.calls != tt.wantDelegs {
				t.Errorf("confirm calls = %d, want %d", confirm.calls, tt.wantDelegs)
			}
		})
	}
}

func TestPingProbeBadTarget(t *testing.T) {
	p := NewPingProbe("host.invalid")
	if got := p.Probe(context.Background()); got != status.Unknown {
		t.Errorf("got %s, want unknown", got)
	}
}
