package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brewbean/livecup/internal/ledger"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"serve", "watch", "publish", "orders", "version"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
}

func TestPublishSaveRequiresCompleteOrder(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := execute(t, "publish", "--drink", "latte", "--size", "large", "--save")
	if !errors.Is(err, ledger.ErrIncompleteOrder) {
		t.Fatalf("expected ErrIncompleteOrder, got %v", err)
	}
	if !strings.Contains(err.Error(), "milk type, name") {
		t.Fatalf("expected missing fields in error, got %v", err)
	}
}

func TestOrdersListsEmptyLedger(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := execute(t, "orders", "--db", db)
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if !strings.Contains(out, "No orders saved.") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestOrdersUnknownID(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := execute(t, "orders", "--db", db, "missing-id")
	if !ledger.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "livecup orders") {
		t.Fatalf("expected a hint to list orders, got %v", err)
	}
}

func TestHealthURL(t *testing.T) {
	tests := map[string]string{
		"ws://127.0.0.1:7880/rtc":       "http://127.0.0.1:7880/healthz",
		"wss://hub.example.com/rtc?x=1": "https://hub.example.com/healthz",
		"http://localhost:7880/rtc":     "http://localhost:7880/healthz",
	}
	for in, want := range tests {
		got, err := healthURL(in)
		if err != nil {
			t.Fatalf("healthURL(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("healthURL(%q) = %q, want %q", in, got, want)
		}
	}
}
