package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/payportal/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeDB struct {
	fail atomic.Bool
}

func (f *fakeDB) PingContext(context.Context) error {
	if f.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestProbe_FlipsStatus(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	s := NewHealthServer("127.0.0.1:0", db, time.Second, logging.Nop())
	ctx := context.Background()

	if st, _ := s.Check(ctx, ""); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("want NOT_SERVING before first probe, got %v", st)
	}

	if st := s.Probe(ctx); st != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("want SERVING, got %v", st)
	}
	for _, svc := range []string{"", ServiceName} {
		if st, err := s.Check(ctx, svc); err != nil || st != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("Check(%q) = %v, %v", svc, st, err)
		}
	}

	db.fail.Store(true)
	s.Probe(ctx)
	if st, _ := s.Check(ctx, ServiceName); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("want NOT_SERVING after failed ping, got %v", st)
	}
}

func TestCheck_UnknownService(t *testing.T) {
	t.Parallel()

	s := NewHealthServer("127.0.0.1:0", &fakeDB{}, time.Second, logging.Nop())
	if _, err := s.Check(context.Background(), "nope"); err == nil {
		t.Fatal("expected NotFound for unknown service")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestRun_ServesHealthAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	srv := NewHealthServer(addr, &fakeDB{}, 50*time.Millisecond, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	deadline := time.Now().Add(3 * time.Second)
	for {
		cctx, ccancel := context.WithTimeout(ctx, 200*time.Millisecond)
		resp, err := client.Check(cctx, &healthpb.HealthCheckRequest{})
		ccancel()
		if err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never reported SERVING: %v %v", resp, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewHealthServer("127.0.0.1:99999", &fakeDB{}, time.Second, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
