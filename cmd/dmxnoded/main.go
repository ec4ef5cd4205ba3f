// dmxnoded runs the node configuration store on a host: it boots the
// record from the configured medium, applies an optional settings
// document and keeps the write-back pipeline running until SIGINT or
// SIGTERM, then flushes and saves the medium image.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/logging"
	"github.com/xtxerr/dmxnode/internal/node"
	"github.com/xtxerr/dmxnode/internal/settings"
	"github.com/xtxerr/dmxnode/internal/storage/config"
	"github.com/xtxerr/dmxnode/internal/storage/medium"
	"github.com/xtxerr/dmxnode/internal/storage/store"
	"github.com/xtxerr/dmxnode/internal/timer"
)

// Version is set at build time via ldflags
var Version = "dev"

var log = logging.Component("dmxnoded")

func main() {
	// CLI flags
	cfgPath := flag.String("config", "node.yaml", "config file path")
	backendKind := flag.String("backend", "", "storage backend: none, ram, flash, eeprom (overrides config)")
	image := flag.String("image", "", "medium image file (overrides config)")
	settingsPath := flag.String("settings", "", "settings document applied at boot (overrides config)")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	debug := flag.Bool("debug", false, "panic on storage errors")
	statsEvery := flag.Duration("stats", time.Minute, "store statistics log interval, 0 disables")
	flag.Parse()

	if err := run(*cfgPath, overrides{
		backend:  *backendKind,
		image:    *image,
		settings: *settingsPath,
		logLevel: *logLevel,
		debug:    *debug,
	}, *statsEvery); err != nil {
		log.Error("dmxnoded failed", "error", err)
		os.Exit(1)
	}
}

type overrides struct {
	backend  string
	image    string
	settings string
	logLevel string
	debug    bool
}

func loadConfig(path string, o overrides) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = config.DefaultConfig()
	}

	// CLI overrides
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	if o.image != "" {
		cfg.Image = o.image
	}
	if o.settings != "" {
		cfg.Settings = o.settings
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.debug {
		cfg.Store.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func run(cfgPath string, o overrides, statsEvery time.Duration) error {
	cfg, err := loadConfig(cfgPath, o)
	if err != nil {
		return err
	}

	logging.Init(cfg.Logging.LogLevel(), cfg.Logging.JSON)
	log.Info("dmxnoded starting", "version", Version, "config", cfgPath, "backend", cfg.Backend)

	req := cfg.CalculateRequirements()
	log.Info("record placement",
		"sector_size", req.SectorSize,
		"sectors", req.Sectors,
		"base", req.Base,
		"record_bytes", req.RecordBytes,
		"flush_quanta", req.FlushQuanta,
		"flush_latency", req.FlushLatency)

	// =========================================================================
	// Storage
	// =========================================================================

	med, err := medium.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := med.Close(); err != nil {
			log.Warn("close medium", "error", err)
		}
	}()

	pool := timer.New(cfg.Timer.PoolSize, timer.NewSystemClock())
	st, err := store.Open(med.Backend, pool, store.Options{
		Debug:      cfg.Store.Debug,
		DebounceMs: cfg.Store.DebounceMs(),
		Sectors:    cfg.Store.Sectors,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reg := settings.New(st)
	if cfg.Settings != "" {
		applySettings(reg, cfg.Settings)
	}

	// =========================================================================
	// Run
	// =========================================================================

	loop := node.New(pool, st, &node.Config{
		Tick:       cfg.Timer.LoopTick,
		DrainLimit: cfg.Store.DrainLimit,
		QueueSize:  16,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})

	g.Go(func() error {
		return handleSignals(gctx, cancel, loop, reg, cfg.Settings)
	})

	if statsEvery > 0 {
		g.Go(func() error {
			return reportStats(gctx, loop, st, statsEvery)
		})
	}

	runErr := g.Wait()

	// The loop has drained; persist the simulated medium even when the
	// drain fell short so the image matches what a device would hold.
	if err := med.Save(); err != nil {
		log.Error("save medium image", "path", cfg.Image, "error", err)
		if runErr == nil {
			runErr = err
		}
	} else if cfg.Image != "" {
		log.Info("medium image saved", "path", cfg.Image)
	}

	s := st.Stats()
	log.Info("dmxnoded stopped",
		"cycles", s.Cycles,
		"mutations", s.Mutations,
		"io_errors", s.IOErrors)
	return runErr
}

func applySettings(reg *settings.Registry, path string) {
	res, err := reg.ApplyFile(path)
	switch {
	case err == nil:
	case errors.IsValidation(err), errors.IsNotFound(err):
		log.Warn("settings document incomplete", "path", path, "failed", res.Failed, "error", err)
		return
	default:
		log.Error("cannot apply settings document", "path", path, "error", err)
		return
	}
	log.Info("settings document applied", "path", path, "changed", res.Changed)
}

// handleSignals cancels the run on SIGINT/SIGTERM and re-applies the
// settings document on SIGHUP.
func handleSignals(ctx context.Context, cancel context.CancelFunc, loop *node.Loop, reg *settings.Registry, settingsPath string) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-sig:
			if s == syscall.SIGHUP {
				if settingsPath == "" {
					log.Info("SIGHUP ignored, no settings document configured")
					continue
				}
				if err := loop.Do(ctx, func() { applySettings(reg, settingsPath) }); err != nil {
					return nil
				}
				continue
			}
			log.Info("shutting down", "signal", s.String())
			cancel()
			return nil
		}
	}
}

func reportStats(ctx context.Context, loop *node.Loop, st *store.Store, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			var s store.Stats
			if err := loop.Do(ctx, func() { s = st.Stats() }); err != nil {
				return nil
			}
			log.Info("store statistics",
				"state", s.State,
				"durable", s.Durable,
				"cycles", s.Cycles,
				"requeued", s.Requeued,
				"io_errors", s.IOErrors,
				"cycle_ms_p50", s.CycleMs.P50,
				"cycle_ms_p99", s.CycleMs.P99,
				"iterations", loop.Iterations())
		}
	}
}
