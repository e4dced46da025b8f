package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/robotwatch/internal/api"
	"codeberg.org/mutker/robotwatch/internal/clock"
	"codeberg.org/mutker/robotwatch/internal/config"
	"codeberg.org/mutker/robotwatch/internal/diagnosis"
	"codeberg.org/mutker/robotwatch/internal/logger"
	"codeberg.org/mutker/robotwatch/internal/metrics"
	"codeberg.org/mutker/robotwatch/internal/monitor"
	"codeberg.org/mutker/robotwatch/internal/notify"
	"codeberg.org/mutker/robotwatch/internal/pid"
	"codeberg.org/mutker/robotwatch/internal/report"
	"codeberg.org/mutker/robotwatch/internal/sampler"
	"codeberg.org/mutker/robotwatch/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

var (
	cfg     *config.Config
	pidFile string
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config, using built-in defaults: %v\n", err)
		cfg = config.Default()
	}

	logger.Init(cfg.LogLevel, logger.IsService(), logger.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 30,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Config rejected, running with built-in defaults")
	}
	logger.Debug().Msg("Config loaded")

	pidFile = cfg.PIDFile
	if pidFile == "" {
		pidFile = pid.DefaultPath()
	}
	if err := pid.Write(pidFile); err != nil {
		logger.Fatal().Err(err).Str("pid_file", pidFile).Msg("failed to write PID file")
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	cleanup()
}

func run(ctx context.Context) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	rules := diagnosis.DefaultRules()
	if cfg.RulesFile != "" {
		if rules, err = diagnosis.LoadRules(cfg.RulesFile); err != nil {
			logger.Warn().Err(err).Str("rules_file", cfg.RulesFile).Msg("Using built-in diagnostic rules")
		}
	}
	picker := diagnosis.RandomPicker{}
	engine := diagnosis.NewEngine(
		diagnosis.WithThresholds(cfg.Thresholds),
		diagnosis.WithWindow(cfg.SmoothingWindow),
		diagnosis.WithRules(rules),
		diagnosis.WithPicker(picker),
	)

	reports, err := report.NewFileWriter(cfg.ReportsDir, report.LogOptions{
		MaxSizeMB:  20,
		MaxBackups: 3,
		MaxAgeDays: 90,
	}, picker)
	if err != nil {
		return err
	}
	defer reports.Close()

	var sinks []notify.Sink
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(notify.TelegramOptions{
			Token:         cfg.Telegram.Token,
			ChatID:        cfg.Telegram.ChatID,
			RatePerSecond: cfg.Telegram.RatePerSecond,
		}, logger.Named("telegram"))
		if err != nil {
			logger.Warn().Err(err).Msg("Telegram sink disabled")
		} else {
			sinks = append(sinks, tg)
		}
	}
	center, err := notify.NewCenter(cfg.NotificationsDir, loc, logger.Named("notify"), sinks...)
	if err != nil {
		return err
	}
	defer center.Close()

	ledger, err := metrics.NewService(metrics.Config{
		Enabled:      cfg.Ledger.Enabled,
		DBPath:       cfg.Ledger.DBPath,
		BackupDir:    cfg.Ledger.BackupDir,
		BatchSize:    cfg.Ledger.BatchSize,
		BatchTimeout: cfg.LedgerBatchTimeout(),
	}, logger.Named("ledger"))
	if err != nil {
		logger.Warn().Err(err).Msg("Reading ledger unavailable, continuing without it")
		ledger = nil
	}
	if ledger != nil {
		defer func() {
			if err := ledger.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close reading ledger")
			}
		}()
	}

	mon, err := monitor.New(monitor.Options{
		Robots:              cfg.Robots,
		Interval:            cfg.TickInterval(),
		PowerOff:            cfg.PowerOffDuration(),
		DedupeWindow:        cfg.DedupeWindow(),
		Cooldown:            cfg.NotifyCooldown(),
		Location:            loc,
		ForceStopped:        cfg.ForceStopped,
		ResetReportsOnStart: cfg.ResetReportsOnStart,
	}, monitor.Deps{
		Clock:    clock.Wall(),
		Engine:   engine,
		Sampler:  sampler.New(sampler.DefaultParts, nil),
		Reports:  reports,
		Notifier: center,
		Ledger:   ledger,
		Recorder: telemetry.NewProm(nil),
		Logger:   logger.Named("monitor"),
	})
	if err != nil {
		return err
	}
	defer mon.Stop()

	if cfg.AutoStart {
		if err := mon.Start(); err != nil {
			logger.Warn().Err(err).Msg("Monitor not started")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(mon, center, ledger, logger.Named("api"))
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(handler, promhttp.Handler(), logger.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", cfg.ListenAddr).Msg("Control surface listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	if err := pid.Remove(pidFile); err != nil {
		logger.Error().Err(err).Msg("failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")
}
