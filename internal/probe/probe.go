package probe

import (
	"context"
	"log"

	"vpn-monitor/internal/metrics"
	"vpn-monitor/internal/status"
)

// Verbose enables per-probe debug logging.
var Verbose bool

// Probe samples VPN connectivity from one OS-level signal. Failures are
// reported as status.Unknown, never as errors.
type Probe interface {
	Name() string
	Probe(ctx context.Context) status.Status
}

// Reconciler merges probe results in trust order: the first probe that
// returns a known status decides the cycle.
type Reconciler struct {
	probes []Probe
}

// NewReconciler creates a reconciler that consults probes in the given order.
func NewReconciler(probes ...Probe) *Reconciler {
	return &Reconciler{probes: probes}
}

// Reconcile runs the probes in order and returns the first known status.
// Probes after the deciding one are not run.
func (r *Reconciler) Reconcile(ctx context.Context) status.Status {
	for _, p := range r.probes {
		s := p.Probe(ctx)
		metrics.ProbeResults.WithLabelValues(p.Name(), s.String()).Inc()
		debugf("probe %s: %s", p.Name(), s)
		if s.Known() {
			return s
		}
	}
	return status.Unknown
}

func debugf(format string, args ...any) {
	if Verbose {
		log.Printf("debug: "+format, args...)
	}
}
