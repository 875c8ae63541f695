package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func dialHealth(t *testing.T, s *HealthServer) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestHealthReportsEachDependency(t *testing.T) {
	s := NewHealthServer(zaptest.NewLogger(t), time.Hour, map[string]Checker{
		"redis":   CheckFunc(func(context.Context) error { return nil }),
		"backend": CheckFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	client := dialHealth(t, s)
	ctx := context.Background()

	var resp *healthpb.HealthCheckResponse
	require.Eventually(t, func() bool {
		var err error
		resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "redis"})
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "backend"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestProbeRecovers(t *testing.T) {
	healthy := false
	s := NewHealthServer(zaptest.NewLogger(t), time.Hour, map[string]Checker{
		"mongo": CheckFunc(func(context.Context) error {
			if !healthy {
				return errors.New("down")
			}
			return nil
		}),
	})
	assert.False(t, s.Probe(context.Background()))
	healthy = true
	assert.True(t, s.Probe(context.Background()))
}
