package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"vpn-monitor/internal/command"
	"vpn-monitor/internal/monitor"
	"vpn-monitor/internal/notify"
	"vpn-monitor/internal/probe"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmsgprefix)
	log.SetPrefix("vpn-monitor: ")

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Printf("warning: cannot open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}
	probe.Verbose = cfg.LogLevel == "debug"

	log.Printf("check interval: %s, adapter filter: %q, process: %s",
		cfg.Interval, cfg.AdapterFilter, cfg.ProcessName)

	runner, err := command.NewExecRunner(command.DefaultTimeout, cfg.OutputEncoding)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	platform := probe.DefaultPlatform(runtime.GOOS)
	adapter := probe.NewAdapterProbe(runner, platform, cfg.AdapterFilter)
	probes := []probe.Probe{
		probe.NewCLIProbe(runner, probe.FindCLI(cfg.CLIPath, platform)),
		adapter,
		probe.NewProcessProbe(probe.GopsutilLister{}, cfg.ProcessName, adapter),
	}
	if cfg.PingTarget != "" {
		log.Printf("ping target: %s", cfg.PingTarget)
		probes = append(probes, probe.NewPingProbe(cfg.PingTarget))
	}

	loop := monitor.New(
		probe.NewReconciler(probes...),
		notify.NewTelegram(cfg.APIURL, cfg.BotToken, cfg.ChatID),
		monitor.Config{Interval: cfg.Interval},
	)

	// Set up signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

		g.Go(func() error {
			log.Printf("metrics server listening on %s", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				// monitoring carries on without metrics
				log.Printf("metrics server error: %v", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		log.Println("starting vpn monitor")
		loop.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("vpn monitor stopped")
}
