// Command qaflow-worker runs the background pipeline: the scheduler tick
// (C10), run creator (C11), run orchestrator (C12), and execution worker
// (C13), plus the execution-level orphan-recovery pass and a health
// endpoint for the process as a whole.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qaflow/qaflow/pkg/airesolve"
	"github.com/qaflow/qaflow/pkg/artifacts"
	"github.com/qaflow/qaflow/pkg/browser"
	"github.com/qaflow/qaflow/pkg/config"
	"github.com/qaflow/qaflow/pkg/database"
	"github.com/qaflow/qaflow/pkg/execworker"
	"github.com/qaflow/qaflow/pkg/fixtures"
	"github.com/qaflow/qaflow/pkg/jobqueue"
	"github.com/qaflow/qaflow/pkg/preexec"
	"github.com/qaflow/qaflow/pkg/runcreator"
	"github.com/qaflow/qaflow/pkg/runorchestrator"
	"github.com/qaflow/qaflow/pkg/secrets"
	"github.com/qaflow/qaflow/pkg/store"
	"github.com/qaflow/qaflow/pkg/tick"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	healthPort := flag.String("health-port", getEnv("HEALTH_PORT", "8081"), "Port for the /healthz endpoint")
	claimedBy := flag.String("claimed-by", getEnv("HOSTNAME", "qaflow-worker"), "Identifier this process claims jobs under")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v (continuing with existing environment)", envPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("error closing database client", "error", err)
		}
	}()
	db := dbClient.DB()

	box, err := secrets.NewBox(os.Getenv(cfg.Secrets.MasterKeyEnv))
	if err != nil {
		log.Fatalf("failed to initialize secrets box: %v", err)
	}

	artifactStore, err := artifacts.NewStore(ctx, cfg.ArtifactStore,
		os.Getenv(cfg.ArtifactStore.AccessKeyEnv), os.Getenv(cfg.ArtifactStore.SecretKeyEnv))
	if err != nil {
		log.Fatalf("failed to initialize artifact store: %v", err)
	}

	fixtureClient := fixtures.NewClient(cfg.Fixtures, cfg.RateLimit)
	aiResolver := airesolve.NewResolver(cfg.AI, os.Getenv(cfg.AI.APIKeyEnv), cfg.RateLimit)

	// Stores.
	scheduleStore := store.NewScheduleStore(db)
	testRunStore := store.NewTestRunStore(db)
	testCaseStore := store.NewTestCaseStore(db)
	ticketStore := store.NewTicketStore(db)
	environmentStore := store.NewEnvironmentStore(db)
	executionStore := store.NewExecutionStore(db)
	dataKnowledgeStore := store.NewDataKnowledgeStore(db)
	selectorStore := store.NewSelectorKnowledgeStore(db)

	preexecSvc := preexec.NewService(dataKnowledgeStore, selectorStore, fixtureClient, cfg.Fixtures)
	runcreatorSvc := runcreator.NewService(scheduleStore, testRunStore, testCaseStore, ticketStore, environmentStore, executionStore, preexecSvc)

	browserPool := browser.NewPool()
	browserRunner := browser.NewRunner(browserPool, artifactStore, selectorStore, aiResolver, cfg.Browser)

	execQueue := jobqueue.New(db, "execution", *claimedBy)
	orchestratorSvc := runorchestrator.NewService(testRunStore, executionStore, testCaseStore, environmentStore, scheduleStore,
		execQueue, box, cfg.Queue.MaxConcurrentExecutions, cfg.Queue.MaxAttempts)
	execworkerSvc := execworker.NewService(executionStore, testCaseStore, environmentStore, ticketStore, browserRunner, box, cfg.Queue.HeartbeatInterval)

	tickSvc := tick.NewService(db, time.Duration(cfg.Scheduler.IntervalMS)*time.Millisecond)

	poolCfg := jobqueue.PoolConfig{
		WorkerCount:         cfg.Queue.WorkerCount,
		PollInterval:        cfg.Queue.PollInterval,
		PollIntervalJitter:  cfg.Queue.PollIntervalJitter,
		RetryBackoff:        cfg.Queue.JobTimeout,
		OrphanCheckInterval: cfg.Queue.OrphanDetectionInterval,
		OrphanThreshold:     cfg.Queue.OrphanThreshold,
		RetentionInterval:   24 * time.Hour,
		RetentionPeriod:     cfg.Queue.RetentionPeriod,
		ShutdownTimeout:     cfg.Queue.GracefulShutdownTimeout,
	}

	createPool := jobqueue.NewPool(db, "create_test_run", *claimedBy,
		jobqueue.HandlerFunc(func(ctx context.Context, _ *jobqueue.Job) error { return runcreatorSvc.Run(ctx) }), poolCfg)
	orchestratorPool := jobqueue.NewPool(db, "orchestrator", *claimedBy,
		jobqueue.HandlerFunc(func(ctx context.Context, _ *jobqueue.Job) error { return orchestratorSvc.Run(ctx) }), poolCfg)
	executionPool := jobqueue.NewPool(db, "execution", *claimedBy, execworkerSvc, poolCfg)

	// Pools run under a context that the shutdown signal does not cancel, so
	// Pool.Stop can let in-flight jobs finish.
	pools := []*jobqueue.Pool{createPool, orchestratorPool, executionPool}
	for _, p := range pools {
		p.Start(context.WithoutCancel(ctx))
	}

	go func() {
		if err := tickSvc.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("tick service stopped unexpectedly", "error", err)
		}
	}()

	go runOrphanRecoveryLoop(ctx, orchestratorSvc, cfg.Queue.OrphanDetectionInterval, cfg.Queue.OrphanThreshold)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		dbHealth, dbErr := database.Health(healthCtx, db)
		healthy := dbErr == nil
		for _, p := range pools {
			if !p.Health(healthCtx).IsHealthy {
				healthy = false
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(`{"database_status":"` + dbHealth.Status + `"}`))
	})

	healthServer := &http.Server{Addr: ":" + *healthPort, Handler: mux}
	go func() {
		slog.Info("health endpoint listening", "addr", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down qaflow-worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.GracefulShutdownTimeout)
	defer cancel()
	_ = healthServer.Shutdown(shutdownCtx)

	for _, p := range pools {
		p.Stop()
	}
}

// runOrphanRecoveryLoop periodically requeues RUNNING Executions whose
// heartbeat has gone stale (§4.4's implicit gap: nothing else ever
// re-dispatches a crashed worker's claimed Execution).
func runOrphanRecoveryLoop(ctx context.Context, svc *runorchestrator.Service, interval, threshold time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.RecoverOrphans(ctx, threshold); err != nil {
				slog.Error("execution orphan recovery failed", "error", err)
			}
		}
	}
}
