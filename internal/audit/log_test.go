package audit

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestLogEventAndList(t *testing.T) {
	ctx := context.Background()
	l, err := Open(filepath.Join(t.TempDir(), "audit", "audit.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	fixed := time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	events := []Event{
		{Actor: ActorPlanner, Type: "plan_generation_started", GoalID: 1, Payload: map[string]any{"run_id": "r1"}},
		{Actor: ActorPlanner, Type: "plan_persisted", GoalID: 1, Payload: map[string]any{"years": 3}},
		{Actor: ActorUser, Type: "key_result_updated", GoalID: 2},
	}
	for _, ev := range events {
		if err := l.LogEvent(ctx, ev); err != nil {
			t.Fatalf("LogEvent(%s): %v", ev.Type, err)
		}
	}

	all, err := l.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}

	goal1, err := l.List(ctx, 1)
	if err != nil {
		t.Fatalf("List(1): %v", err)
	}
	if len(goal1) != 2 || goal1[0].Type != "plan_generation_started" || goal1[1].Type != "plan_persisted" {
		t.Fatalf("goal 1 events = %+v", goal1)
	}
	if !goal1[0].TS.Equal(fixed) {
		t.Fatalf("ts = %v, want %v", goal1[0].TS, fixed)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(goal1[1].PayloadJSON), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["years"] != float64(3) {
		t.Fatalf("payload years = %v, want 3", payload["years"])
	}
	if all[2].PayloadJSON != "{}" {
		t.Fatalf("nil payload stored as %q, want {}", all[2].PayloadJSON)
	}
}

func TestLogEventRequiresType(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "audit.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	if err := l.LogEvent(context.Background(), Event{Actor: ActorUser}); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	if err := l.LogEvent(context.Background(), Event{Type: "x"}); err != nil {
		t.Fatalf("nil LogEvent: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
