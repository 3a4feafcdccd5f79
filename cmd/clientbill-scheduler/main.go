package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/clientbill/pkg/app"
	"github.com/platinummonkey/clientbill/pkg/automation"
	"github.com/platinummonkey/clientbill/pkg/config"
	"github.com/platinummonkey/clientbill/pkg/observability"
)

var (
	configFile = flag.String("config", "", "Path to a YAML config file (overrides CLIENTBILL_CONFIG_FILE)")
	runOnce    = flag.Bool("run-once", false, "Run the jobs once and exit (for backfills and testing)")
	job        = flag.String("job", "monthly", "Job to run with --run-once: monthly or overdue")
	monthFlag  = flag.String("month", "", "Month to process (YYYY-MM). If empty, uses the current month. Only used with --run-once")
)

func main() {
	flag.Parse()

	if *configFile != "" {
		os.Setenv("CLIENTBILL_CONFIG_FILE", *configFile)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", "clientbill-scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to open storage")
		os.Exit(1)
	}
	defer store.Close()

	components := app.Wire(ctx, cfg, app.Deps{
		Primary: store.DB.Primary(),
		Replica: store.DB.Replica(),
		Redis:   store.Redis,
		Metrics: app.NewMetrics(cfg),
		Logger:  logger,
	})
	defer components.Dispatcher.Shutdown(cfg.Server.ShutdownTimeout)

	loc := cfg.Location()

	if *runOnce {
		now := time.Now().In(loc)
		if *monthFlag != "" {
			month, err := time.ParseInLocation("2006-01", *monthFlag, loc)
			if err != nil {
				logger.WithError(err).Error("invalid month, expected YYYY-MM")
				os.Exit(1)
			}
			if month.Year() != now.Year() || month.Month() != now.Month() {
				now = month.AddDate(0, 1, 0).Add(-time.Second)
			}
		}

		run := components.Automation.RunAll
		if *job == "overdue" {
			run = components.Automation.RunAllOverdue
		}
		if !runJob(ctx, logger, *job, run, now) {
			os.Exit(1)
		}
		return
	}

	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.Automation.MonthlySchedule, func() {
		runJob(ctx, logger, "monthly", components.Automation.RunAll, time.Now().In(loc))
	})
	if err != nil {
		logger.WithError(err).Error("failed to schedule monthly automation")
		os.Exit(1)
	}

	_, err = c.AddFunc(cfg.Automation.OverdueSchedule, func() {
		runJob(ctx, logger, "overdue", components.Automation.RunAllOverdue, time.Now().In(loc))
	})
	if err != nil {
		logger.WithError(err).Error("failed to schedule overdue checks")
		os.Exit(1)
	}

	c.Start()
	logger.WithFields(map[string]interface{}{
		"monthly_schedule": cfg.Automation.MonthlySchedule,
		"overdue_schedule": cfg.Automation.OverdueSchedule,
		"timezone":         loc.String(),
	}).Info("clientbill scheduler started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down scheduler")

	// wait for running jobs before closing storage
	stopCtx := c.Stop()
	<-stopCtx.Done()
	cancel()

	logger.Info("scheduler stopped")
}

type runFunc func(ctx context.Context, now time.Time) ([]*automation.Report, error)

// runJob runs one automation pass over every active organization and reports whether all steps succeeded
func runJob(ctx context.Context, logger *observability.Logger, name string, run runFunc, now time.Time) bool {
	logger = logger.WithField("job", name)
	logger.Infof("starting %s automation for %s", name, now.Format("2006-01-02"))

	reports, err := run(ctx, now)
	if err != nil {
		logger.WithError(err).Error("automation run failed")
		return false
	}

	failed := 0
	for _, report := range reports {
		if !report.OK() {
			failed++
			logger.WithField("org_id", report.OrgID).WithError(report.Err()).Warn("automation finished with failed steps")
		}
	}
	logger.WithFields(map[string]interface{}{
		"orgs":   len(reports),
		"failed": failed,
	}).Info("automation run completed")
	return failed == 0
}
