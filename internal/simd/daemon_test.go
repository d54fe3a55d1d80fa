package simd

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestNewDaemonDefaults(t *testing.T) {
	daemon, err := NewDaemon(&stubEngine{}, zerolog.Nop(), Options{})
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}
	want := fmt.Sprintf("127.0.0.1:%d", DefaultPort)
	if got := daemon.bindAddr(); got != want {
		t.Fatalf("bindAddr() = %q, want %q", got, want)
	}

	if _, err := NewDaemon(nil, zerolog.Nop(), Options{}); err == nil {
		t.Fatal("NewDaemon(nil) should fail")
	}
}

// startDaemon serves d over an in-memory listener and returns a connected client.
func startDaemon(t *testing.T, d *Daemon) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Serve(ctx, lis)
	}()

	client, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve() did not return after cancellation")
		}
	})
	return client
}

func TestClientRoundTrip(t *testing.T) {
	d, err := NewDaemon(&stubEngine{}, zerolog.Nop(), Options{Version: "v-test"})
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}
	client := startDaemon(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := client.Simulate(ctx, testRequest())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if len(res.Signal) != 4 {
		t.Fatalf("signal has %d samples, want 4", len(res.Signal))
	}
	if res.Signal[2] != complex(2, -2) {
		t.Errorf("sample 2 = %v, want (2-2i)", res.Signal[2])
	}
	if res.Averages != 10 {
		t.Errorf("Averages = %d, want 10", res.Averages)
	}

	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Version != "v-test" || st.Simulations != 1 {
		t.Errorf("status = %+v, want version v-test and 1 simulation", st)
	}
}

func TestClientSeesRateLimit(t *testing.T) {
	d, err := NewDaemon(&stubEngine{}, zerolog.Nop(), Options{
		SimulateLimits: &Limits{Rate: 0.001, Burst: 1},
	})
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}
	client := startDaemon(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Simulate(ctx, testRequest()); err != nil {
		t.Fatalf("first Simulate() error = %v", err)
	}
	_, err = client.Simulate(ctx, testRequest())
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("second Simulate() code = %v, want ResourceExhausted", status.Code(err))
	}

	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", st.Rejected)
	}
	if len(st.Gates) != 2 || st.Gates[0].Method != SimulateMethod || st.Gates[0].Throttled != 1 {
		t.Errorf("Gates = %+v, want simulate gate with 1 throttled call", st.Gates)
	}
}

func TestRunReturnsOnCanceledContext(t *testing.T) {
	daemon, err := NewDaemon(&stubEngine{}, zerolog.Nop(), Options{Port: 50199})
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemon.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
