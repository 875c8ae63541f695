package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Checker reports whether one dependency is usable.
type Checker interface {
	Ping(ctx context.Context) error
}

type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthServer serves the standard gRPC health service. Every checker gets
// its own service name; the empty name is SERVING only while all of them
// pass.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checks   map[string]Checker
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func NewHealthServer(logger *zap.Logger, interval time.Duration, checks map[string]Checker) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		server:   srv,
		health:   hs,
		checks:   checks,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Probe runs every checker once and publishes the results.
func (s *HealthServer) Probe(ctx context.Context) bool {
	all := true
	for name, c := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, s.interval)
		err := c.Ping(cctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			all = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("Dependency unhealthy", zap.String("dependency", name), zap.Error(err))
		}
		s.health.SetServingStatus(name, status)
	}
	overall := healthpb.HealthCheckResponse_SERVING
	if !all {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	return all
}

// Serve probes on a ticker and serves on lis until Stop.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.Probe(context.Background())
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.Probe(context.Background())
			case <-s.stop:
				return
			}
		}
	}()

	s.logger.Info("Health service started", zap.String("address", lis.Addr().String()))
	return s.server.Serve(lis)
}

func (s *HealthServer) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.server.GracefulStop()
	})
}
