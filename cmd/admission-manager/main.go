// cmd/admission-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"hostel-admissions/internal/accounts"
	"hostel-admissions/internal/common/auth"
	"hostel-admissions/internal/common/aws"
	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/common/config"
	"hostel-admissions/internal/common/database"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/common/observability"
	"hostel-admissions/internal/events"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/notify"
	"hostel-admissions/internal/reconcile"
	"hostel-admissions/internal/store/esindex"
	"hostel-admissions/internal/store/postgres"
	"hostel-admissions/internal/workers"

	// Application workers (6)
	fd "hostel-admissions/internal/workers/application/final-decision"
	fa "hostel-admissions/internal/workers/application/forward-application"
	pd "hostel-admissions/internal/workers/application/provisional-decision"
	ra "hostel-admissions/internal/workers/application/review-application"
	sam "hostel-admissions/internal/workers/application/send-applicant-message"
	sa "hostel-admissions/internal/workers/application/submit-application"

	// Interview workers (3)
	ci "hostel-admissions/internal/workers/interview/complete-interview"
	si "hostel-admissions/internal/workers/interview/schedule-interview"
	ui "hostel-admissions/internal/workers/interview/update-interview"

	// Data access workers (2)
	la "hostel-admissions/internal/workers/data-access/list-audit"
	rg "hostel-admissions/internal/workers/data-access/reconcile-guardian"
)

// retryWithBackoff runs operation until it succeeds, doubling the delay
// between attempts.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// timeoutFor returns the configured handler timeout for taskType, or def.
func timeoutFor(cfg *config.Config, taskType string, def time.Duration) time.Duration {
	if w, ok := cfg.Workers[taskType]; ok && w.Timeout > 0 {
		return config.GetDuration(w.Timeout)
	}
	return def
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console", "stdout")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})
	fatal := func(msg string, err error) {
		log.Error(msg, map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	log.Info("Starting admission manager", map[string]interface{}{"environment": cfg.App.Environment})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.Plaintext,
		RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		fatal("zeebe client failed", err)
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fatal("postgres config invalid", err)
	}
	defer pg.Close()
	if err := retryWithBackoff(func() error { return pg.Ping(ctx) }, 15, 2*time.Second, log, "PostgreSQL connection"); err != nil {
		fatal("postgres unreachable", err)
	}
	store := postgres.New(pg.DB)
	sources := store.Sources()
	log.Info("PostgreSQL connected", nil)

	var hooks []lifecycle.Hook
	var engineOpts []reconcile.Option

	// --- Redis guardian cache ---
	if cfg.Reconciliation.CacheTTL > 0 {
		rdb := database.NewRedis(cfg.Database.Redis)
		defer rdb.Close()
		if err := retryWithBackoff(func() error { return rdb.Ping(ctx) }, 10, 2*time.Second, log, "Redis connection"); err != nil {
			fatal("redis unreachable", err)
		}
		cache := reconcile.NewRedisCache(rdb.Client, time.Duration(cfg.Reconciliation.CacheTTL)*time.Second)
		engineOpts = append(engineOpts, reconcile.WithCache(cache))
		hooks = append(hooks, reconcile.NewCacheInvalidator(cache))
		log.Info("Redis guardian cache enabled", map[string]interface{}{"ttlSeconds": cfg.Reconciliation.CacheTTL})
	}

	// --- Elasticsearch application index ---
	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
		if err != nil {
			fatal("elasticsearch config invalid", err)
		}
		index := cfg.Database.Elasticsearch.ApplicationIndex
		err = retryWithBackoff(func() error {
			if err := es.Ping(ctx); err != nil {
				return err
			}
			return es.EnsureIndex(ctx, index, esindex.Mapping)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			fatal("elasticsearch unreachable", err)
		}
		appIndex := esindex.NewApplicationIndex(es.Client, index)
		hooks = append(hooks, esindex.NewIndexer(appIndex))
		if cfg.Reconciliation.ApplicationSource == config.ApplicationSourceElasticsearch {
			sources.Applications = appIndex
		}
		log.Info("Elasticsearch index ready", map[string]interface{}{
			"index":             index,
			"applicationSource": cfg.Reconciliation.ApplicationSource,
		})
	}

	// --- Notifications (SES / SNS) ---
	awsCfg := cfg.Integrations.AWS
	var (
		sesSvc notify.SESService
		snsSvc notify.SNSService
	)
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		clients, err := aws.NewClients(ctx, awsCfg.Region)
		if err != nil {
			fatal("aws config failed", err)
		}
		sesSvc, snsSvc = clients.SES, clients.SNS
	}
	dispatcher := notify.NewDispatcher(notify.Config{
		EmailEnabled: awsCfg.SES.Enabled,
		SMSEnabled:   awsCfg.SNS.Enabled,
		FromEmail:    awsCfg.SES.FromEmail,
		SenderID:     awsCfg.SNS.DefaultSMSSenderID,
		CountryCode:  cfg.Notifications.CountryCode,
		Timeout:      config.GetDuration(cfg.Notifications.Timeout),
	}, sesSvc, snsSvc, log)
	hooks = append(hooks, dispatcher)

	// --- Domain events (NATS) ---
	if cfg.Events.NATS.Enabled {
		var nc *nats.Conn
		err := retryWithBackoff(func() error {
			var err error
			nc, err = events.Connect(cfg.Events.NATS.URL, cfg.App.Name, log)
			return err
		}, 10, 2*time.Second, log, "NATS connection")
		if err != nil {
			fatal("nats unreachable", err)
		}
		defer nc.Drain()
		hooks = append(hooks, events.NewPublisher(nc, cfg.Events.NATS.SubjectPrefix))
	}

	// --- Lifecycle + accounts ---
	machineOpts := []lifecycle.Option{lifecycle.WithHooks(hooks...)}
	if kc := cfg.Auth.Keycloak; kc.URL != "" {
		idp := auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret, 0)
		materializer := accounts.NewMaterializer(idp, store, log, accounts.WithCredentialSender(dispatcher))
		machineOpts = append(machineOpts, lifecycle.WithMaterializer(materializer))
	} else {
		log.Warn("keycloak not configured; approvals will not create student accounts", nil)
	}
	machine := lifecycle.NewMachine(store, log, machineOpts...)
	engine := reconcile.NewEngine(sources, log, engineOpts...)

	// --- Workers ---
	rt := workers.Runtime{Logger: log, Observability: obs}
	handlers := registerHandlers(cfg, machine, engine, rt)

	var started []*camunda.CamundaWorker
	for _, r := range handlers {
		wc := workers.ConfigFor(cfg, r.taskType)
		if !wc.Enabled {
			log.Info("worker disabled", map[string]interface{}{"taskType": r.taskType})
			continue
		}
		started = append(started, camunda.StartWorker(zeebe.GetClient(), r.taskType,
			camunda.WorkerOptions{MaxJobsActive: wc.MaxJobsActive, Timeout: wc.Timeout}, r.handler, log))
	}
	log.Info("Workers registered", map[string]interface{}{"started": len(started), "known": len(handlers)})

	srv := newHealthServer(cfg.Server.Address, zeebe, pg, log)
	go srv.run()

	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range started {
		w.Stop()
	}
	if err := srv.shutdown(shutdownCtx); err != nil {
		log.Error("health server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Admission manager stopped gracefully", nil)
}

type registration struct {
	taskType string
	handler  camunda.JobHandler
}

func registerHandlers(cfg *config.Config, machine *lifecycle.Machine, engine *reconcile.Engine, rt workers.Runtime) []registration {
	saCfg := sa.LoadConfig()
	saCfg.Timeout = timeoutFor(cfg, sa.TaskType, saCfg.Timeout)
	raCfg := ra.LoadConfig()
	raCfg.Timeout = timeoutFor(cfg, ra.TaskType, raCfg.Timeout)
	faCfg := fa.LoadConfig()
	faCfg.Timeout = timeoutFor(cfg, fa.TaskType, faCfg.Timeout)
	pdCfg := pd.LoadConfig()
	pdCfg.Timeout = timeoutFor(cfg, pd.TaskType, pdCfg.Timeout)
	fdCfg := fd.LoadConfig()
	fdCfg.Timeout = timeoutFor(cfg, fd.TaskType, fdCfg.Timeout)
	samCfg := sam.LoadConfig()
	samCfg.Timeout = timeoutFor(cfg, sam.TaskType, samCfg.Timeout)
	siCfg := si.LoadConfig()
	siCfg.Timeout = timeoutFor(cfg, si.TaskType, siCfg.Timeout)
	ciCfg := ci.LoadConfig()
	ciCfg.Timeout = timeoutFor(cfg, ci.TaskType, ciCfg.Timeout)
	uiCfg := ui.LoadConfig()
	uiCfg.Timeout = timeoutFor(cfg, ui.TaskType, uiCfg.Timeout)
	laCfg := la.LoadConfig()
	laCfg.Timeout = timeoutFor(cfg, la.TaskType, laCfg.Timeout)
	rgCfg := rg.LoadConfig()
	rgCfg.Timeout = timeoutFor(cfg, rg.TaskType, rgCfg.Timeout)

	return []registration{
		{sa.TaskType, sa.NewHandler(saCfg, machine, rt)},
		{ra.TaskType, ra.NewHandler(raCfg, machine, rt)},
		{fa.TaskType, fa.NewHandler(faCfg, machine, rt)},
		{pd.TaskType, pd.NewHandler(pdCfg, machine, rt)},
		{fd.TaskType, fd.NewHandler(fdCfg, machine, rt)},
		{sam.TaskType, sam.NewHandler(samCfg, machine, rt)},
		{si.TaskType, si.NewHandler(siCfg, machine, rt)},
		{ci.TaskType, ci.NewHandler(ciCfg, machine, rt)},
		{ui.TaskType, ui.NewHandler(uiCfg, machine, rt)},
		{la.TaskType, la.NewHandler(laCfg, machine, rt)},
		{rg.TaskType, rg.NewHandler(rgCfg, engine, rt)},
	}
}
