/*
main.go - Application entry point

PURPOSE:
  Wires configuration, logging, storage, locking, metrics and the
  scheduling engine, then runs one of the commands below.

COMMANDS:
  serve                         HTTP API + background regeneration
  schedule --week YYYY-MM-DD    Regenerate one week from the command line
           [--dry-run]          Report without writing
  seed [--scenario ID]          Replace the store with a demo roster
       [--file roster.json]     ... or with a roster file

STARTUP SEQUENCE:
  1. config.Load (environment + optional .env)
  2. logging.New
  3. SQLite store at DB_PATH
  4. Week locker (Redis when REDIS_URL is set, in-process otherwise)
  5. Policy (POLICY_FILE or defaults) and engine options
  6. service.Scheduler

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the regeneration ticker (waits for an in-flight pass)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the store and the Redis client

ENVIRONMENT:
  See config/config.go for every key.

SEE ALSO:
  - api/server.go: Router configuration
  - api/regenerate.go: Background regeneration
  - service/scheduler.go: Week regeneration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/warp/visit-engine/api"
	"github.com/warp/visit-engine/calendar"
	"github.com/warp/visit-engine/config"
	"github.com/warp/visit-engine/factory"
	"github.com/warp/visit-engine/lock"
	"github.com/warp/visit-engine/logging"
	"github.com/warp/visit-engine/metrics"
	"github.com/warp/visit-engine/schedule"
	"github.com/warp/visit-engine/service"
	"github.com/warp/visit-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "visit-engine",
		Short:         "Hospice visit auto-scheduling and compliance engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// =============================================================================
// WIRING
// =============================================================================

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *sqlite.Store
	redis  *lock.RedisLocker
	clock  *calendar.SimulatedClock
	svc    *service.Scheduler
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "visit-engine")
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DBPath); cfg.DBPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, store: store}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.UsesRedis() {
		a.redis, err = lock.NewRedisLockerFromURL(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		locker = a.redis
	}

	policy, err := factory.NewPolicyFactory().LoadPolicyFile(cfg.PolicyFile)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load policy: %w", err)
	}

	loc, _ := cfg.Location()
	var clock calendar.Clock = calendar.SystemClock{Location: loc}
	if cfg.SimulatedClock {
		a.clock = calendar.NewSimulatedClock(clock)
		clock = a.clock
	}

	engine := schedule.NewEngine(
		schedule.WithPolicy(policy),
		schedule.WithClock(clock),
		schedule.WithReplaceStale(cfg.ReplaceStaleSuggestions),
	)
	a.svc = service.NewScheduler(store, engine,
		service.WithLocker(locker, cfg.LockTTL),
		service.WithMetrics(metrics.NewSchedulerMetrics(prometheus.DefaultRegisterer)),
		service.WithLogger(logger.Named("scheduler")),
	)

	logger.Info("initialized",
		zap.String("db", cfg.DBPath),
		zap.Bool("redis_locks", cfg.UsesRedis()),
		zap.String("policy_file", cfg.PolicyFile),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("simulated_clock", cfg.SimulatedClock),
		zap.String("today", engine.Today().String()),
	)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	a.logger.Sync()
}

// =============================================================================
// SERVE
// =============================================================================

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background regeneration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve()
		},
	}
}

func (a *app) serve() error {
	handler := api.NewHandler(a.svc, a.clock, a.logger.Named("http"))
	router := api.NewRouter(handler, api.RouterOptions{CORSOrigins: a.cfg.CORSOrigins})

	regen := api.NewRegenerationScheduler(a.svc, a.logger)
	regen.Enabled = a.cfg.RegenerateEnabled
	regen.Interval = a.cfg.RegenerateInterval
	regen.WeeksAhead = a.cfg.WeeksAhead
	regen.Start()
	defer regen.Stop()

	server := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	a.logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

// =============================================================================
// SCHEDULE
// =============================================================================

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Regenerate the suggestions for one week",
		RunE: func(cmd *cobra.Command, args []string) error {
			week, _ := cmd.Flags().GetString("week")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			start := a.svc.Today()
			if week != "" {
				if start, err = calendar.ParseDate(week); err != nil {
					return fmt.Errorf("--week: %w", err)
				}
			}
			regen, err := a.svc.RegenerateWeek(cmd.Context(), start, service.TriggerCLI, dryRun)
			if err != nil {
				return err
			}
			printRegeneration(cmd, regen)
			return nil
		},
	}
	cmd.Flags().String("week", "", "Any day of the week to regenerate (YYYY-MM-DD, default today)")
	cmd.Flags().Bool("dry-run", false, "Compute and report without writing visits")
	return cmd
}

func printRegeneration(cmd *cobra.Command, r *service.Regeneration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Week %s: %d proposed, %d removed, status %s\n",
		r.Result.Week, r.Run.Proposed, r.Run.Removed, r.Run.Status)
	for _, v := range r.Result.Proposed {
		staff := v.Staff
		if staff == "" {
			staff = "(unstaffed)"
		}
		fmt.Fprintf(out, "  %s  %-10s %-4s %-18s %s\n", v.Date, v.PatientID, v.Discipline, staff, v.Tags)
	}
	for _, d := range r.Result.Diagnostics {
		fmt.Fprintf(out, "  - %s\n", d)
	}
}

// =============================================================================
// SEED
// =============================================================================

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the store contents with a demo roster or a roster file",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, _ := cmd.Flags().GetString("scenario")
			file, _ := cmd.Flags().GetString("file")
			regenerate, _ := cmd.Flags().GetBool("schedule")

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var roster *factory.Roster
			if file != "" {
				roster, err = factory.LoadRosterFile(file)
			} else {
				roster, err = api.ScenarioRoster(scenario, a.svc.Today())
			}
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.svc.ImportRoster(ctx, roster, true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d staff, %d patients, %d visits\n",
				len(roster.Staff), len(roster.Patients), len(roster.Visits))

			if !regenerate {
				return nil
			}
			regen, err := a.svc.RegenerateWeek(ctx, a.svc.Today(), service.TriggerCLI, false)
			if err != nil {
				return err
			}
			printRegeneration(cmd, regen)
			return nil
		},
	}
	cmd.Flags().String("scenario", "weekly-board", "Demo scenario to load")
	cmd.Flags().String("file", "", "Roster JSON file (overrides --scenario)")
	cmd.Flags().Bool("schedule", true, "Regenerate the current week after seeding")
	return cmd
}
