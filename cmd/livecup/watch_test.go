package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brewbean/livecup/internal/order"
	"github.com/brewbean/livecup/internal/server"
)

// lockedBuffer is written by command and hub goroutines while the test polls it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func restoreStdLogger(t *testing.T) {
	t.Helper()
	flags := log.Flags()
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
}

func startHub(t *testing.T) (*server.Server, context.CancelFunc, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := server.NewServer(server.Options{Logger: log.New(io.Discard, "", 0)})
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		defer close(served)
		srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-served
	})
	return srv, cancel, "ws://" + ln.Addr().String() + "/rtc"
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWatchJSONKeepsLogsOffStdout(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LIVECUP_HOME", t.TempDir())
	t.Setenv("LIVECUP_LOG_DIR", t.TempDir())
	restoreStdLogger(t)

	srv, stopHub, hubURL := startHub(t)

	stdout, stderr := &lockedBuffer{}, &lockedBuffer{}
	watch := newRootCommand()
	watch.SetOut(stdout)
	watch.SetErr(stderr)
	watch.SetArgs([]string{"watch", "--json", "--hub", hubURL, "--room", "cafe", "--identity", "viewer"})
	watched := make(chan error, 1)
	go func() { watched <- watch.Execute() }()

	eventually(t, "viewer to join", func() bool { return srv.Hub().ParticipantCount("cafe") == 1 })
	// The first view is printed once the projector is listening.
	eventually(t, "initial view", func() bool { return strings.Contains(stdout.String(), "\n") })

	var published bytes.Buffer
	publish := newRootCommand()
	publish.SetOut(&published)
	publish.SetErr(io.Discard)
	publish.SetArgs([]string{"publish", "--json", "--hub", hubURL, "--room", "cafe",
		"--name", "Sam", "--size", "large", "--milk", "oat", "--extra", "whip"})
	if err := publish.Execute(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !json.Valid(published.Bytes()) {
		t.Fatalf("publish --json output is not JSON: %q", published.String())
	}

	eventually(t, "order to be printed", func() bool { return strings.Contains(stdout.String(), `"Sam"`) })

	stopHub()
	select {
	case err := <-watched:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after the hub stopped")
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected the initial and the published view, got %q", stdout.String())
	}
	var last order.View
	for i, line := range lines {
		var view order.View
		if err := json.Unmarshal([]byte(line), &view); err != nil {
			t.Fatalf("stdout line %d is not a JSON view: %q (%v)", i+1, line, err)
		}
		last = view
	}
	if last.CustomerName != "Sam" || last.SizeClass != order.SizeLarge || !last.HasWhippedTopping {
		t.Fatalf("unexpected last view %+v", last)
	}
	if !strings.Contains(stderr.String(), "=== livecup watch starting") {
		t.Fatalf("expected log banner on stderr, got %q", stderr.String())
	}
}

func TestMetricsAddrFlagWinsOverDisabledMetrics(t *testing.T) {
	restoreStdLogger(t)
	var logs bytes.Buffer
	log.SetOutput(&logs)

	cmd := newWatchCommand()
	if addr := metricsAddr(cmd, false); addr != "" {
		t.Fatalf("expected no metrics address without the flag, got %q", addr)
	}
	if logs.Len() != 0 {
		t.Fatalf("expected no log without the flag, got %q", logs.String())
	}

	if err := cmd.Flags().Set("metrics-addr", "127.0.0.1:9464"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if addr := metricsAddr(cmd, false); addr != "127.0.0.1:9464" {
		t.Fatalf("expected explicit address to be used, got %q", addr)
	}
	if !strings.Contains(logs.String(), "LIVECUP_METRICS is false") {
		t.Fatalf("expected override to be logged, got %q", logs.String())
	}
}
