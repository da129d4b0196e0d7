// Agent is the on-device session agent. It keeps the device's session alive against the remote
// authority and serves sign-in, role and session state to the local UI over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	authorityrpc "scheduling-platform/identity/internal/authority/rpc"
	"scheduling-platform/identity/internal/config"
	"scheduling-platform/identity/internal/device"
	healthhandler "scheduling-platform/identity/internal/health/handler"
	identityhandler "scheduling-platform/identity/internal/identity/handler"
	identityrpc "scheduling-platform/identity/internal/identity/rpc"
	identityservice "scheduling-platform/identity/internal/identity/service"
	"scheduling-platform/identity/internal/localstore"
	"scheduling-platform/identity/internal/logging"
	"scheduling-platform/identity/internal/platform/rpcjson"
	"scheduling-platform/identity/internal/policy/engine"
	"scheduling-platform/identity/internal/server"
	sessionhandler "scheduling-platform/identity/internal/session/handler"
	"scheduling-platform/identity/internal/session/repository"
	sessionservice "scheduling-platform/identity/internal/session/service"
	"scheduling-platform/identity/internal/telemetry"
	telemetryotel "scheduling-platform/identity/internal/telemetry/otel"
	"scheduling-platform/identity/internal/telemetry/producer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("config", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logging.Fatal("logger", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("component", "agent"))

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.OTLPInsecure,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("otel providers", zap.Error(err))
	}
	providers.SetGlobal()

	emitters := telemetry.Multi{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	var kafkaProducer *producer.KafkaProducer
	if brokers := cfg.TelemetryKafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer, err = producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic, logger)
		if err != nil {
			logger.Fatal("kafka producer", zap.Error(err))
		}
		emitters = append(emitters, kafkaProducer)
	}

	kv, err := localstore.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("device store", zap.Error(err), zap.String("driver", cfg.StoreDriver))
	}
	devices := device.NewProvider(kv, logger)
	id := devices.GetOrCreateDeviceID(ctx)
	logger.Info("device identity ready", zap.String("device_id", id.ID), zap.Bool("ephemeral", id.Ephemeral))

	creds := sessionservice.NewCredentials()
	conn, err := rpcjson.Dial(ctx, cfg.AuthorityAddr, rpcjson.DialOptions{
		Timeout: cfg.DialTimeout(),
		PerRPC:  creds,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("dial authority", zap.Error(err))
	}

	manager, err := sessionservice.NewManager(ctx, sessionservice.Options{
		Store:            repository.NewKVStore(kv),
		Devices:          devices,
		Authority:        authorityrpc.NewClient(conn, cfg.CallTimeout()),
		Runtime:          creds,
		Logger:           logger.With(zap.String("component", "session_manager")),
		Emitter:          emitters,
		Window:           cfg.Window(),
		ClientDescriptor: cfg.ClientDescriptor,
	})
	if err != nil {
		logger.Fatal("session manager", zap.Error(err))
	}

	policy, err := engine.NewOPAEvaluator(cfg.RolePolicyFile, logger)
	if err != nil {
		logger.Fatal("role policy", zap.Error(err))
	}

	auth := identityservice.NewAuthService(
		identityrpc.NewClient(conn, cfg.CallTimeout()),
		manager,
		sessionservice.NewRenewer(manager, cfg.Tick(), logger),
		policy,
		logger.With(zap.String("component", "auth_service")),
		emitters,
	)
	stopRenewal := auth.StartAutoRenewal(func(err error) {
		logger.Info("auto-renewal attempt failed", zap.Error(err))
	})

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.HTTPDeps{
			Health:   healthhandler.NewHandler(kv, policy, logger),
			Sessions: sessionhandler.NewHandler(manager, logger),
			Identity: identityhandler.NewHandler(auth, logger),
			Logger:   logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP API listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopRenewal()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// Let in-flight async events drain before the exporters close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		_ = kafkaProducer.Close()
	}
	_ = conn.Close()
	_ = kv.Close()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
