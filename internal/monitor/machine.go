package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"vpn-monitor/internal/metrics"
	"vpn-monitor/internal/notify"
	"vpn-monitor/internal/status"
)

// shutdownTimeout bounds the best-effort shutdown notification.
const shutdownTimeout = 10 * time.Second

// Reconciler produces one authoritative status per poll cycle.
type Reconciler interface {
	Reconcile(ctx context.Context) status.Status
}

// Config holds timing parameters for the loop.
type Config struct {
	Interval time.Duration
	// Now returns the wall clock used in messages. Defaults to time.Now.
	Now func() time.Time
}

// Loop polls the reconciler and reports status changes through the notifier.
type Loop struct {
	reconciler Reconciler
	notifier   notify.Notifier
	config     Config

	mu    sync.Mutex
	state State
	// last is the last reported status; Unknown until the first determination.
	last status.Status
}

// New creates a new Loop.
func New(r Reconciler, n notify.Notifier, cfg Config) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Loop{
		reconciler: r,
		notifier:   n,
		config:     cfg,
		state:      Starting,
	}
}

// Run announces startup, polls until ctx is cancelled, then announces
// shutdown. Probe and notification calls already in flight when ctx is
// cancelled are allowed to finish.
func (l *Loop) Run(ctx context.Context) {
	l.transition(Starting)
	l.notifier.Send(context.WithoutCancel(ctx), notify.StartupMessage(l.config.Interval, l.config.Now()).Render())

	l.transition(Polling)
	for {
		select {
		case <-ctx.Done():
			l.stop()
			return
		default:
		}

		if err := l.Poll(context.WithoutCancel(ctx)); err != nil {
			log.Printf("monitor: cycle skipped: %v", err)
			metrics.LoopErrors.Inc()
		}

		select {
		case <-ctx.Done():
			l.stop()
			return
		case <-time.After(l.config.Interval):
		}
	}
}

// Poll runs one cycle: reconcile, and notify when a known status differs
// from the last reported one. The first known status is recorded without a
// notification. A panic during the cycle is returned as an error.
func (l *Loop) Poll(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	metrics.PollCycles.Inc()

	current := l.reconciler.Reconcile(ctx)
	metrics.SetStatus(current.String())
	if !current.Known() {
		log.Printf("monitor: vpn status could not be determined")
		return nil
	}

	previous := l.LastStatus()
	if current == previous {
		return nil
	}

	if previous.Known() {
		metrics.StatusTransitions.Inc()
		l.notifier.Send(ctx, notify.StatusMessage(current, l.config.Now()).Render())
		log.Printf("monitor: vpn status: %s → %s", previous, current)
	} else {
		log.Printf("monitor: vpn status: %s (initial)", current)
	}

	l.mu.Lock()
	l.last = current
	l.mu.Unlock()
	return nil
}

// LastStatus returns the last reported status, Unknown before the first
// determination.
func (l *Loop) LastStatus() status.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) stop() {
	l.transition(Stopping)
	log.Println("monitor: shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	l.notifier.Send(ctx, notify.ShutdownMessage(l.config.Now()).Render())
}

func (l *Loop) transition(newState State) {
	l.mu.Lock()
	old := l.state
	l.state = newState
	l.mu.Unlock()

	if old != newState {
		log.Printf("monitor: state: %s → %s", old, newState)
	}
	metrics.SetLoopState(newState.String())
}
