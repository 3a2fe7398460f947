package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/OCAP2/ibt/internal/catalog"
	"github.com/OCAP2/ibt/internal/config"
	"github.com/OCAP2/ibt/internal/database"
	"github.com/OCAP2/ibt/internal/handlers"
	"github.com/OCAP2/ibt/internal/influx"
	"github.com/OCAP2/ibt/internal/logging"
	intOtel "github.com/OCAP2/ibt/internal/otel"
	"github.com/OCAP2/ibt/internal/settings"
	"github.com/rs/zerolog"
)

const appName = "ibt"

func configFileName() string {
	return config.FileName
}

// app holds the process-wide state shared by the subcommands.
type app struct {
	configDir string
	logLevel  string

	log      zerolog.Logger
	closers  []io.Closer
	db       *database.Manager
	settings *settings.Store
	catalog  *catalog.Catalog
	svc      *handlers.Service
}

func (a *app) init() error {
	configErr := config.Load(a.configDir)

	level := config.GetString("logLevel")
	if a.logLevel != "" {
		level = a.logLevel
	}

	opts := logging.Options{
		Level:   level,
		Console: os.Stderr,
		AppName: appName,
	}
	logPath := logging.LogFilePath(config.GetString("logsDir"), appName, time.Now())
	if f, err := logging.OpenLogFile(logPath); err == nil {
		opts.File = f
		a.closers = append(a.closers, f)
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		opts.GraylogAddress = gl.Address
	}

	log, closer, err := logging.Setup(opts)
	if err != nil {
		return err
	}
	a.log = log
	a.closers = append(a.closers, closer)

	if configErr != nil {
		a.log.Debug().Err(configErr).Msg("Using default configuration")
	}

	if otelCfg := config.GetOTelConfig(); otelCfg.Enabled {
		if err := a.initOTel(otelCfg); err != nil {
			a.log.Warn().Err(err).Msg("Metrics export disabled")
		}
	}
	return nil
}

func (a *app) initOTel(cfg config.OTelConfig) error {
	f, err := logging.OpenLogFile(cfg.MetricsFile)
	if err != nil {
		return err
	}
	p, err := intOtel.New(intOtel.Config{
		Enabled:      true,
		ServiceName:  cfg.ServiceName,
		Interval:     cfg.Interval,
		MetricWriter: f,
	})
	if err != nil {
		f.Close()
		return err
	}
	a.closers = append(a.closers, f, p)
	a.log.Info().Str("file", cfg.MetricsFile).Msg("OTel metrics provider initialized")
	return nil
}

// openDB connects the settings and catalog database. A failure leaves both
// disabled rather than stopping the command.
func (a *app) openDB() {
	if a.db != nil {
		return
	}

	m := database.NewManager(a.log)
	if err := m.Connect(config.GetDBConfig()); err != nil {
		a.log.Warn().Err(err).Msg("Database unavailable, settings and catalog disabled")
		return
	}
	if err := m.Setup(); err != nil {
		a.log.Warn().Err(err).Msg("Database setup failed, settings and catalog disabled")
		m.Close()
		return
	}
	a.db = m
	a.closers = append(a.closers, m)

	a.settings = settings.NewStore(m.DB, a.log)
	if err := a.settings.SeedDefaults(config.GetString("telemetryDir")); err != nil {
		a.log.Warn().Err(err).Msg("Failed to seed default settings")
	}
	if config.GetBool("catalog.enabled") {
		a.catalog = catalog.New(m.DB, a.log)
	}
}

// service returns the capture service, connecting the database first.
func (a *app) service() *handlers.Service {
	if a.svc != nil {
		return a.svc
	}
	a.openDB()

	exportCfg := config.GetExportConfig()
	deps := handlers.Dependencies{
		Settings:        a.settings,
		Catalog:         a.catalog,
		TelemetryDir:    config.GetString("telemetryDir"),
		ExportDir:       exportCfg.OutputDir,
		Compress:        exportCfg.Compress,
		IdentityChannel: config.GetString("identityChannel"),
		Logger:          a.log,
	}
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		m := influx.NewManager(a.log, influxCfg)
		if err := m.Connect(context.Background()); err != nil {
			a.log.Warn().Err(err).Msg("InfluxDB export disabled")
		} else {
			deps.Influx = m
			a.closers = append(a.closers, m)
		}
	}
	a.svc = handlers.NewService(deps)
	return a.svc
}

func (a *app) close() {
	if a.svc != nil {
		a.svc.CloseAll()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Debug().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
