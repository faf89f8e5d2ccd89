package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"

	"haggle.local/haggle-gateway/internal/broker"
	"haggle.local/haggle-gateway/internal/httpapi"
)

func newGateway(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	svc := broker.NewService(logger, broker.NewMemoryStore())
	ts := httptest.NewServer(httpapi.NewServer(logger, "127.0.0.1:0", svc).Handler)
	t.Cleanup(ts.Close)
	return ts
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestStartStepDump(t *testing.T) {
	ts := newGateway(t)

	out, err := runCLI(t, "",
		"start", "--server", ts.URL,
		"--session-id", "session_1",
		"--product-id", "42",
		"--name", "Tap repair",
		"--list-price", "1000",
		"--min-price", "800",
	)
	if err != nil {
		t.Fatalf("start: %v\n%s", err, out)
	}
	var started struct {
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &started); err != nil {
		t.Fatalf("decode start output: %v\n%s", err, out)
	}
	if started.SessionID != "session_1" || started.Status != "ongoing" {
		t.Fatalf("unexpected start output: %s", out)
	}

	out, err = runCLI(t, "", "step", "--server", ts.URL, "session_1", "I'll", "pay", "1000")
	if err != nil {
		t.Fatalf("step: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"accepted"`) {
		t.Fatalf("expected accepted status in output: %s", out)
	}

	out, err = runCLI(t, "", "dump", "--server", ts.URL, "session_1")
	if err != nil {
		t.Fatalf("dump: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"final_price": 1000`) {
		t.Fatalf("expected final price in dump: %s", out)
	}
}

func TestStepUnknownSession(t *testing.T) {
	ts := newGateway(t)

	_, err := runCLI(t, "", "step", "--server", ts.URL, "missing", "hello")
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 in error, got %v", err)
	}
}

func TestWatchUntilTerminal(t *testing.T) {
	ts := newGateway(t)

	if _, err := runCLI(t, "",
		"start", "--server", ts.URL,
		"--session-id", "session_1",
		"--name", "Tap repair",
		"--list-price", "1000",
		"--min-price", "800",
	); err != nil {
		t.Fatalf("start: %v", err)
	}

	out, err := runCLI(t, "I'll pay 1000\n", "watch", "--server", ts.URL, "session_1")
	if err != nil {
		t.Fatalf("watch: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Deal accepted") {
		t.Fatalf("expected acceptance reply, got: %s", out)
	}
	if !strings.Contains(out, "negotiation accepted at 1000.00") {
		t.Fatalf("expected terminal summary, got: %s", out)
	}
}
