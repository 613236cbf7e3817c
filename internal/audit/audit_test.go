package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// Tests use logger.Close() to drain entries instead of time.Sleep,
// ensuring deterministic behavior with the race detector.

func TestLogAndQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(100, &buf)

	logger.Log("run-1", "seed", StatusOK, 0, nil)
	logger.Log("run-1", "keygen", StatusOK, 0, map[string]string{"bits": "2048"})
	logger.Log("run-2", "seed", StatusFailed, -0x34, nil)

	// Close drains the channel and waits for the loop to finish.
	logger.Close()

	entries := logger.Query("run-1", "", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for run-1, got %d", len(entries))
	}
	if entries[0].Stage != "seed" || entries[1].Stage != "keygen" {
		t.Fatalf("entries out of order: %s, %s", entries[0].Stage, entries[1].Stage)
	}

	entries = logger.Query("", "seed", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 seed entries, got %d", len(entries))
	}

	// Safe to read buf now - processLoop has exited.
	if !strings.Contains(buf.String(), `"stage":"keygen"`) {
		t.Fatal("expected keygen in output")
	}
}

func TestOutputIsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(10, &buf)

	logger.Log("run-1", "verify", StatusFailed, -0x4380, nil)
	logger.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var e Entry
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Code != -0x4380 || e.Status != StatusFailed || e.RunID != "run-1" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestQueryLimit(t *testing.T) {
	logger := NewLogger(100, nil)

	for i := 0; i < 10; i++ {
		logger.Log("run-1", "sign", StatusOK, 0, map[string]string{"i": string(rune('0' + i))})
	}
	logger.Close()

	entries := logger.Query("", "", 3)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Metadata["i"] != "0" {
		t.Fatalf("expected oldest entry first, got %q", entries[0].Metadata["i"])
	}
}

func TestSubscribeReceivesEntries(t *testing.T) {
	logger := NewLogger(100, nil)
	defer logger.Close()

	sub := logger.Subscribe()
	defer logger.Unsubscribe(sub)

	logger.Log("run-1", "sign", StatusOK, 0, nil)

	select {
	case entry := <-sub.C:
		if entry.Stage != "sign" {
			t.Fatalf("expected sign, got %s", entry.Stage)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	logger := NewLogger(100, nil)
	defer logger.Close()

	sub := logger.Subscribe()
	logger.Unsubscribe(sub)
	logger.Unsubscribe(sub)

	// Channel should be closed
	_, ok := <-sub.C
	if ok {
		t.Fatal("expected closed channel")
	}
}

func TestLogEntryHasID(t *testing.T) {
	logger := NewLogger(100, nil)

	logger.Log("run-1", "cleanup", StatusOK, 0, nil)
	logger.Close()

	entries := logger.Query("", "", 0)
	if len(entries) != 1 {
		t.Fatal("expected 1 entry")
	}
	if entries[0].ID == "" {
		t.Fatal("entry should have an ID")
	}
}
