package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statusGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpn_monitor_status",
		Help: "Last reconciled VPN status (1=current, 0=not current)",
	}, []string{"status"})

	loopStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpn_monitor_loop_state",
		Help: "Current state of the monitor loop (1=active, 0=inactive)",
	}, []string{"state"})

	ProbeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpn_monitor_probe_results_total",
		Help: "Probe outcomes by probe and status",
	}, []string{"probe", "status"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpn_monitor_notifications_total",
		Help: "Notification attempts by result",
	}, []string{"result"})

	StatusTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpn_monitor_status_transitions_total",
		Help: "Total number of reported VPN status transitions",
	})

	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpn_monitor_poll_cycles_total",
		Help: "Total number of poll cycles",
	})

	LoopErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpn_monitor_loop_errors_total",
		Help: "Total number of poll cycles skipped after an unexpected error",
	})

	allStatuses   = []string{"unknown", "connected", "disconnected"}
	allLoopStates = []string{"starting", "polling", "stopping"}
)

// SetStatus marks the given status as current in the status gauge.
func SetStatus(status string) {
	setOneHot(statusGauge, allStatuses, status)
}

// SetLoopState marks the given loop state as active.
func SetLoopState(state string) {
	setOneHot(loopStateGauge, allLoopStates, state)
}

func setOneHot(g *prometheus.GaugeVec, labels []string, active string) {
	for _, l := range labels {
		if l == active {
			g.WithLabelValues(l).Set(1)
		} else {
			g.WithLabelValues(l).Set(0)
		}
	}
}
