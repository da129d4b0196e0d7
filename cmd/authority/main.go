// Authority runs the development session authority and identity backend on one gRPC server.
// It is an in-memory stand-in for the hosted services the session agent talks to.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"scheduling-platform/identity/internal/authority/devauthority"
	"scheduling-platform/identity/internal/config"
	"scheduling-platform/identity/internal/identity/devbackend"
	"scheduling-platform/identity/internal/identity/domain"
	"scheduling-platform/identity/internal/logging"
	"scheduling-platform/identity/internal/security"
	"scheduling-platform/identity/internal/server"
	"scheduling-platform/identity/internal/telemetry"
	telemetryotel "scheduling-platform/identity/internal/telemetry/otel"
	"scheduling-platform/identity/internal/telemetry/producer"
)

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
	logger = logger.With(zap.String("component", "authority"))
	if err := devauthority.CheckEnvironment(cfg.IsProduction()); err != nil {
		logger.Fatal("startup", zap.Error(err), zap.String("env", cfg.Env))
	}

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "session-authority",
		Insecure:    cfg.OTLPInsecure,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("otel providers", zap.Error(err))
	}
	providers.SetGlobal()
	defer func() { _ = providers.Shutdown(context.Background()) }()

	emitters := telemetry.Multi{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if brokers := cfg.TelemetryKafkaBrokersList(); len(brokers) > 0 {
		kp, err := producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic, logger)
		if err != nil {
			logger.Fatal("kafka producer", zap.Error(err))
		}
		defer func() { _ = kp.Close() }()
		emitters = append(emitters, kp)
	}

	tokens, err := tokenProvider(cfg, logger)
	if err != nil {
		logger.Fatal("token provider", zap.Error(err))
	}
	authority := devauthority.New(tokens, 0, logger)
	identity := devbackend.New(security.NewHasher(cfg.BcryptCost), logger)
	seedAccount(ctx, cfg, identity, logger)

	lis, err := net.Listen("tcp", cfg.AuthorityListenAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	defer lis.Close()

	s := server.NewGRPCServer(server.GRPCOptions{
		Tokens:    tokens,
		Validator: authority.IsLive,
		Emitter:   emitters,
		Logger:    logger,
	})
	server.RegisterServices(s, server.Deps{Authority: authority, Identity: identity, Logger: logger})

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.AuthorityListenAddr))
		if err := s.Serve(lis); err != nil {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gRPC server")
	s.GracefulStop()
	time.Sleep(telemetry.ShutdownDrainDuration)
	logger.Info("gRPC server stopped")
}

// tokenProvider loads the signing keys. Missing keys fall back to the built-in development pair.
func tokenProvider(cfg *config.Config, logger *zap.Logger) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
		logger.Warn("JWT_PRIVATE_KEY/JWT_PUBLIC_KEY not set; using the built-in development key pair")
		priv, pub := security.TestKeyPEMs()
		cfg.JWTPrivateKey, cfg.JWTPublicKey = priv, pub
	}
	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, err
	}
	return security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
}

func seedAccount(ctx context.Context, cfg *config.Config, identity *devbackend.Backend, logger *zap.Logger) {
	if cfg.DevSeedEmail == "" || cfg.DevSeedPassword == "" {
		return
	}
	var roles []domain.Role
	for _, s := range cfg.DevSeedRoleList() {
		r, err := domain.ParseRole(s)
		if err != nil {
			logger.Warn("seed: skipping role", zap.String("role", s), zap.Error(err))
			continue
		}
		roles = append(roles, r)
	}
	acct, err := identity.Register(ctx, cfg.DevSeedEmail, cfg.DevSeedPassword, roles...)
	if err != nil {
		logger.Warn("seed: register account", zap.Error(err))
		return
	}
	logger.Info("seed: account registered", zap.String("account_id", acct.ID), zap.String("email", cfg.DevSeedEmail))
}
