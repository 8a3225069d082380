// cmd/worker-manager/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"financing-workers/internal/approval"
	"financing-workers/internal/assignment"
	"financing-workers/internal/audit"
	awsclients "financing-workers/internal/common/aws"
	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/config"
	"financing-workers/internal/common/database"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/common/observability"
	"financing-workers/internal/investment"
	"financing-workers/internal/notify"
	"financing-workers/internal/permissions"
	"financing-workers/internal/profit"
	"financing-workers/internal/ratelimit"
	"financing-workers/internal/store"
	"financing-workers/pkg/registry"

	// Application workers (8)
	aar "financing-workers/internal/workers/application/auto-assign-reviewer"
	rar "financing-workers/internal/workers/application/reassign-reviewer"
	rsa "financing-workers/internal/workers/application/record-secondary-approval"
	rsb "financing-workers/internal/workers/application/resubmit-application"
	rva "financing-workers/internal/workers/application/review-application"
	sal "financing-workers/internal/workers/application/search-audit-log"
	sn "financing-workers/internal/workers/application/send-notification"
	vst "financing-workers/internal/workers/application/validate-status-transition"

	// Investment workers (3)
	dp "financing-workers/internal/workers/investment/distribute-profit"
	pi "financing-workers/internal/workers/investment/process-investment"
	ri "financing-workers/internal/workers/investment/reconcile-investment"
)

func main() {
	bootLog := logger.New("info", "console")
	defer bootLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Zeebe ---
	zeebe, err := camunda.NewClient(ctx, cfg.Camunda.BrokerAddress, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	if cfg.Store.Backend == "postgres" {
		err = database.Retry(ctx, "PostgreSQL connection", 15, 2*time.Second, log, func(ctx context.Context) error {
			if pg == nil {
				var err error
				if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
					return err
				}
			}
			return pg.Ping(ctx)
		})
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = database.Retry(ctx, "Redis connection", 10, 2*time.Second, log, rdb.Ping)
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch (audit) ---
	var auditSink audit.Sink = audit.NewLogSink(log)
	var esClient *database.ElasticsearchClient
	var auditSearch *audit.ElasticsearchSink
	if cfg.Audit.Enabled {
		err = database.Retry(ctx, "Elasticsearch connection", 15, 2*time.Second, log, func(ctx context.Context) error {
			if esClient == nil {
				var err error
				if esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch); err != nil {
					return err
				}
			}
			return esClient.Ping(ctx)
		})
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		esSink := audit.NewElasticsearchSink(esClient.Client, cfg.Audit.Index, 5*time.Second, log)
		if err := esSink.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("audit index setup failed", zap.Error(err))
		}
		auditSink = esSink
		auditSearch = esSink
		zapLog.Info("Elasticsearch audit sink ready", zap.String("index", cfg.Audit.Index))
	}

	// --- Document store ---
	var sqlConn *sql.DB
	if pg != nil {
		sqlConn = pg.DB
	}
	docs, err := store.New(ctx, cfg.Store, sqlConn, rdb.Client, log)
	if err != nil {
		zapLog.Fatal("store init failed", zap.Error(err))
	}
	zapLog.Info("Document store ready", zap.String("backend", cfg.Store.Backend))

	// --- Notifications ---
	notifier := newNotifier(ctx, cfg, log, zapLog)

	// --- Domain services ---
	hours, err := permissions.NewBusinessHours(
		cfg.Finance.BusinessHours.Timezone,
		cfg.Finance.BusinessHours.StartHour,
		cfg.Finance.BusinessHours.EndHour,
	)
	if err != nil {
		zapLog.Fatal("business hours config invalid", zap.Error(err))
	}

	assignments := assignment.NewService(docs, auditSink, log,
		assignment.WithDueIn(time.Duration(cfg.Finance.AssignmentDueHours)*time.Hour),
	)

	approvals := approval.NewService(docs, auditSink, notifier, approval.Config{
		BusinessHours:           hours,
		DualAuthorizationWindow: time.Duration(cfg.Finance.DualAuthorizationWindowHours) * time.Hour,
	}, log, approval.WithAssignments(assignments))

	reconcileAfter := time.Duration(cfg.Finance.ReconcileAfterSeconds) * time.Second
	processor := investment.NewProcessor(docs, log,
		investment.WithLocation(hours.Location),
		investment.WithReconcileAfter(reconcileAfter),
	)
	if jobTimeout := config.GetDuration(config.GetWorkerConfig(cfg, pi.TaskType).Timeout); reconcileAfter <= jobTimeout {
		zapLog.Warn("reconcile threshold does not exceed the process-investment job timeout",
			zap.Duration("reconcileAfter", reconcileAfter),
			zap.Duration("jobTimeout", jobTimeout),
		)
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		limiter = ratelimit.NewRedis(rdb.Client, cfg.Store.KeyPrefix+":rl", log)
	default:
		mem := ratelimit.NewMemory(
			ratelimit.WithShards(cfg.RateLimit.Shards),
			ratelimit.WithMaxKeysPerShard(cfg.RateLimit.MaxKeysPerShard),
		)
		go mem.Run(ctx, time.Minute)
		limiter = mem
	}

	calculator := profit.NewCalculator(profit.RatesFromConfig(
		cfg.Finance.ContractRates.MurabahaMarkup,
		cfg.Finance.ContractRates.IjaraLease,
	))

	// --- Activity registry ---
	activities, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		zapLog.Warn("activity registry not loaded, input schemas are not enforced",
			zap.String("path", cfg.RegistryPath), zap.Error(err))
	}
	activity := func(taskType string) *registry.Activity {
		if activities == nil {
			return nil
		}
		a, ok := activities.FindByTaskType(taskType)
		if !ok {
			zapLog.Warn("no registry entry for worker", zap.String("taskType", taskType))
			return nil
		}
		return a
	}
	timeout := func(taskType string, def time.Duration) time.Duration {
		if ms := config.GetWorkerConfig(cfg, taskType).Timeout; ms > 0 {
			return config.GetDuration(ms)
		}
		if a := activity(taskType); a != nil {
			if d, err := a.JobTimeout(); err == nil && d > 0 {
				return d
			}
		}
		return def
	}

	// --- START: Register workers ---
	var workers []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandler) {
		w := camunda.NewWorker(zeebe.Zeebe(), taskType, config.GetWorkerConfig(cfg, taskType), handler, obs, log)
		w.Start()
		workers = append(workers, w)
	}

	// --- 1. Application workers (8) ---
	{
		c := vst.LoadConfig()
		c.Timeout = timeout(vst.TaskType, c.Timeout)
		c.Activity = activity(vst.TaskType)
		start(vst.TaskType, vst.NewHandler(c, log).Handle)
	}
	{
		c := rva.LoadConfig()
		c.Timeout = timeout(rva.TaskType, c.Timeout)
		c.Activity = activity(rva.TaskType)
		start(rva.TaskType, rva.NewHandler(c, approvals, log).Handle)
	}
	{
		c := rsa.LoadConfig()
		c.Timeout = timeout(rsa.TaskType, c.Timeout)
		c.Activity = activity(rsa.TaskType)
		start(rsa.TaskType, rsa.NewHandler(c, approvals, log).Handle)
	}
	{
		c := rsb.LoadConfig()
		c.Timeout = timeout(rsb.TaskType, c.Timeout)
		c.Activity = activity(rsb.TaskType)
		start(rsb.TaskType, rsb.NewHandler(c, approvals, log).Handle)
	}
	{
		c := aar.LoadConfig()
		c.Timeout = timeout(aar.TaskType, c.Timeout)
		c.Activity = activity(aar.TaskType)
		start(aar.TaskType, aar.NewHandler(c, assignments, log).Handle)
	}
	{
		c := rar.LoadConfig()
		c.Timeout = timeout(rar.TaskType, c.Timeout)
		c.Activity = activity(rar.TaskType)
		start(rar.TaskType, rar.NewHandler(c, assignments, log).Handle)
	}
	if auditSearch != nil {
		c := sal.LoadConfig()
		c.Timeout = timeout(sal.TaskType, c.Timeout)
		c.Activity = activity(sal.TaskType)
		start(sal.TaskType, sal.NewHandler(c, auditSearch, docs, limiter, auditSink, log).Handle)
	} else {
		zapLog.Info("audit search worker not started, elasticsearch audit is disabled")
	}
	{
		c := sn.LoadConfig()
		c.Timeout = timeout(sn.TaskType, c.Timeout)
		c.Activity = activity(sn.TaskType)
		start(sn.TaskType, sn.NewHandler(c, notifier, docs, log).Handle)
	}

	// --- 2. Investment workers (3) ---
	{
		c := pi.LoadConfig()
		c.Timeout = timeout(pi.TaskType, c.Timeout)
		c.Rule = ratelimit.InvestRule(cfg.RateLimit.InvestMax, time.Duration(cfg.RateLimit.InvestWindow)*time.Second)
		c.Activity = activity(pi.TaskType)
		start(pi.TaskType, pi.NewHandler(c, processor, limiter, log).Handle)
	}
	{
		c := ri.LoadConfig()
		c.Timeout = timeout(ri.TaskType, c.Timeout)
		c.ReconcileAfter = reconcileAfter
		c.Activity = activity(ri.TaskType)
		start(ri.TaskType, ri.NewHandler(c, processor, log).Handle)
	}
	{
		c := dp.LoadConfig()
		c.Timeout = timeout(dp.TaskType, c.Timeout)
		c.Activity = activity(dp.TaskType)
		start(dp.TaskType, dp.NewHandler(c, calculator, log).Handle)
	}

	zapLog.Info("All workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true
		check := func(name string, ping func(context.Context) error) {
			if err := ping(checkCtx); err != nil {
				checks[name] = err.Error()
				ready = false
				return
			}
			checks[name] = "ok"
		}
		check("zeebe", zeebe.HealthCheck)
		check("redis", rdb.Ping)
		if pg != nil {
			check("postgres", pg.Ping)
		}
		if esClient != nil {
			check("elasticsearch", esClient.Ping)
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		writeStatus(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	server := &http.Server{Addr: cfg.App.HealthAddr, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.HealthAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Stop()
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// newNotifier builds SES and SNS clients for the enabled channels. A channel
// whose client cannot be built is disabled.
func newNotifier(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) *notify.Notifier {
	aws := cfg.Integrations.AWS

	var sesClient notify.SESService
	if aws.SES.Enabled && cfg.Notifications.Email.Enabled {
		c, err := awsclients.NewSESClient(ctx, aws.Region)
		if err != nil {
			zapLog.Error("SES client init failed, email disabled", zap.Error(err))
		} else {
			sesClient = c
		}
	}

	var snsClient notify.SNSService
	if aws.SNS.Enabled && cfg.Notifications.SMS.Enabled {
		c, err := awsclients.NewSNSClient(ctx, aws.Region)
		if err != nil {
			zapLog.Error("SNS client init failed, SMS disabled", zap.Error(err))
		} else {
			snsClient = c
		}
	}

	from := cfg.Notifications.Email.FromEmail
	if from == "" {
		from = aws.SES.FromEmail
	}

	return notify.NewNotifier(notify.Config{
		EmailEnabled: sesClient != nil,
		SMSEnabled:   snsClient != nil,
		FromEmail:    from,
		SMSSenderID:  aws.SNS.DefaultSMSSenderID,
	}, sesClient, snsClient, log)
}

func writeStatus(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
