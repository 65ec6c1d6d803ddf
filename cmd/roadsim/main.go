// Command roadsim runs the road simulation headless. Without -script it
// loads world.file, trains for sim.ticks and saves the best brain; with
// -script it executes host commands line by line.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roadsim/roadsim/internal/config"
	"github.com/roadsim/roadsim/internal/dispatcher"
	"github.com/roadsim/roadsim/internal/influx"
	"github.com/roadsim/roadsim/internal/logging"
	"github.com/roadsim/roadsim/internal/monitor"
	"github.com/roadsim/roadsim/internal/parser"
	"github.com/roadsim/roadsim/internal/session"
	"github.com/roadsim/roadsim/internal/storage"
	"github.com/roadsim/roadsim/internal/worker"
	"github.com/spf13/viper"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion = "0.0.1"
	BuildDate      = "unknown"
)

const appName = "roadsim"

// app holds everything wired up for one session.
type app struct {
	start      time.Time
	logFile    *os.File
	logManager *logging.SlogManager
	logger     *slog.Logger
	session    *session.Context
	backend    storage.Backend
	influx     *influx.Manager
	dispatcher *dispatcher.Dispatcher
	worker     *worker.Manager
	monitor    *monitor.Service
}

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	script := flag.String("script", "", "command script to run, - for stdin")
	ticks := flag.Int("ticks", 0, "override sim.ticks for a headless run")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("%s %s (%s)\n", appName, CurrentVersion, BuildDate)
		return
	}

	a, err := newApp(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	if *script != "" {
		err = a.runScriptFile(*script)
	} else {
		if *ticks > 0 {
			viper.Set("sim.ticks", *ticks)
		}
		err = a.runHeadless(config.GetSimulationConfig())
	}
	if err != nil {
		a.logger.Error("Run failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
	}

	if closeErr := a.close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newApp(configDir string) (*app, error) {
	a := &app{
		start:      time.Now(),
		session:    session.NewContext(),
		logManager: logging.NewSlogManager(),
	}

	// defaults still apply when the file is missing
	configErr := config.Load(configDir)

	logFile, err := logging.OpenLogFile(viper.GetString("logsDir"), appName, a.start)
	if err != nil {
		return nil, err
	}
	a.logFile = logFile
	a.logManager.Setup(logFile, viper.GetString("logLevel"), logging.TickProvider(a.session.Tick))
	a.logger = a.logManager.Logger()
	if configErr != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		a.logger.Info("Loaded config", "version", CurrentVersion, "build", BuildDate)
	}

	if err := a.initStorage(); err != nil {
		_ = logFile.Close()
		return nil, err
	}
	a.initInflux()

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.logManager.Zerolog("dispatcher")))
	if err != nil {
		_ = a.backend.Close()
		_ = logFile.Close()
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	simCfg := config.GetSimulationConfig()
	a.worker = worker.NewManager(worker.Dependencies{
		Session:       a.session,
		LogManager:    a.logManager,
		ParserService: parser.NewParser(a.logger),
		Influx:        a.influx,
		World:         config.GetWorldConfig(),
		Spawn:         simCfg.Spawn,
		Seed:          simCfg.Seed,
	}, a.backend)
	a.worker.RegisterHandlers(a.dispatcher)
	a.logger.Info("Handlers registered", "commands", strings.Join(a.dispatcher.Commands(), " "))

	if viper.GetBool("monitor.enabled") {
		a.monitor = monitor.NewService(monitor.Dependencies{
			LogManager: a.logManager,
			Source:     a.worker,
			Influx:     a.influx,
			StatusPath: filepath.Join(viper.GetString("logsDir"), "status.json"),
			Interval:   viper.GetDuration("monitor.interval"),
		})
		if err := a.monitor.Start(); err != nil {
			a.logger.Warn("Status monitor not started", "error", err)
		}
	}
	return a, nil
}

func (a *app) initStorage() error {
	storageCfg := config.GetStorageConfig()

	backend, err := storage.NewBackend(storageCfg, a.logManager.Zerolog("storage"))
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	a.backend = backend
	a.logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return nil
}

// initInflux connects when influx.enabled is set. A failed connection only
// disables telemetry.
func (a *app) initInflux() {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}
	backupPath := filepath.Join(
		viper.GetString("logsDir"),
		fmt.Sprintf("%s_influx_backup.%s.lp.gz", appName, a.start.Format("20060102_150405")),
	)
	m := influx.NewManager(a.logManager.Zerolog("influx"), backupPath)
	if err := m.Connect(cfg); err != nil {
		a.logger.Warn("InfluxDB disabled", "error", err)
		return
	}
	a.influx = m
}

func (a *app) close() error {
	var errs []error
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.worker != nil {
		if err := a.worker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ending run: %w", err))
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing influx: %w", err))
		}
	}
	a.logger.Info("Shutdown complete", "uptime", time.Since(a.start))
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
	return errors.Join(errs...)
}
