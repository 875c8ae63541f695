package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/example/shopdash/gateway"
	"github.com/example/shopdash/pkg/backend"
	"github.com/example/shopdash/pkg/config"
	"github.com/example/shopdash/pkg/discovery"
	"github.com/example/shopdash/pkg/grpc"
	"github.com/example/shopdash/pkg/logger"
	"github.com/example/shopdash/pkg/metrics"
	"github.com/example/shopdash/pkg/notify"
	"github.com/example/shopdash/pkg/repository"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting dashboard gateway",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Gateway.Port),
		zap.String("host", cfg.Gateway.Host))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	ctx := context.Background()

	// Sessions and toasts live in Redis
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()
	if err := redisRepo.Ping(ctx); err != nil {
		log.Warn("Redis connection failed", zap.Error(err))
	} else {
		log.Info("Redis connected successfully")
	}
	inbox := repository.NewToastInbox(redisRepo, cfg.Session.ToastTTL, log)

	checks := map[string]grpc.Checker{"redis": redisRepo}
	deps := gateway.Deps{
		Sessions: redisRepo,
		Toasts:   inbox,
		Gatherer: reg,
	}

	// Audit trail is optional
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			log.Warn("MongoDB unavailable, mutations will not be audited", zap.Error(err))
		} else {
			defer mongoRepo.Close(context.Background())
			deps.Audit = mongoRepo
			checks["mongodb"] = mongoRepo
		}
	}

	// Saved filters are optional
	if cfg.MySQL.Host != "" {
		filterRepo, err := repository.NewFilterRepository(&cfg.MySQL)
		if err != nil {
			log.Warn("MySQL unavailable, saved filters disabled", zap.Error(err))
		} else if err := filterRepo.Migrate(); err != nil {
			log.Warn("Saved filter migration failed, saved filters disabled", zap.Error(err))
			filterRepo.Close()
		} else {
			defer filterRepo.Close()
			deps.Filters = filterRepo
		}
	}

	// Setup service discovery
	var sd *discovery.ServiceDiscovery
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd)
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
			sd = nil
		}
	}

	opts := []backend.Option{backend.WithLogger(log.Named("backend"))}
	if sd != nil && cfg.Backend.Service != "" {
		base, err := url.Parse(cfg.Backend.BaseURL)
		if err != nil {
			log.Fatal("Invalid backend base URL", zap.Error(err))
		}
		opts = append(opts, backend.WithResolver(discovery.NewBackendResolver(sd, cfg.Backend.Service, base.Path)))
		log.Info("Resolving backend through etcd", zap.String("service", cfg.Backend.Service))
	}
	deps.Backend = backend.New(cfg.Backend, opts...)
	checks["backend"] = deps.Backend

	// Views and toasts run on actors
	system := actor.NewActorSystem()
	deps.System = system

	gw := gateway.NewGateway(cfg, log, deps)
	dispatcher, err := notify.NewDispatcher(system, log, inbox)
	if err != nil {
		log.Fatal("Failed to start toast dispatcher", zap.Error(err))
	}
	gw.SetNotifier(dispatcher)

	health := grpc.NewHealthServer(log.Named("health"), 15*time.Second, checks)

	// Start servers in goroutines
	srvErr := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			srvErr <- err
		}
	}()
	if cfg.Gateway.GRPCPort > 0 {
		go func() {
			if err := health.Start(cfg.Gateway.Host, cfg.Gateway.GRPCPort); err != nil {
				srvErr <- err
			}
		}()
	}

	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Gateway.Port,
	}
	if sd != nil {
		if err := sd.Register(ctx, instance); err != nil {
			log.Warn("Failed to register gateway", zap.Error(err))
		} else {
			log.Info("Gateway registered in etcd", zap.String("address", instance.Addr()))
		}
	}

	log.Info("Gateway started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-srvErr:
		log.Error("Server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sd != nil {
		if err := sd.Deregister(shutdownCtx, instance); err != nil {
			log.Warn("Failed to deregister gateway", zap.Error(err))
		}
		sd.Close()
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Error("Gateway shutdown failed", zap.Error(err))
	}
	health.Stop()
	if err := dispatcher.Stop(); err != nil {
		log.Warn("Toast dispatcher did not drain", zap.Error(err))
	}
	system.Shutdown()

	log.Info("Gateway stopped")
}
