package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/engine"
)

func TestHealthReporter_Report(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		now        time.Time
		stats      engine.Stats
		statsErr   error
		wantStatus HealthStatus
	}{
		{
			name:       "recent frame",
			now:        t0.Add(10 * time.Minute),
			stats:      engine.Stats{Entities: 90, LastFrame: t0.Add(9 * time.Minute)},
			wantStatus: HealthHealthy,
		},
		{
			name:       "quiet bus",
			now:        t0.Add(10 * time.Minute),
			stats:      engine.Stats{Entities: 90, LastFrame: t0.Add(time.Minute)},
			wantStatus: HealthDegraded,
		},
		{
			name:       "no frame yet within grace",
			now:        t0.Add(time.Minute),
			stats:      engine.Stats{Entities: 90},
			wantStatus: HealthHealthy,
		},
		{
			name:       "no frame since start",
			now:        t0.Add(6 * time.Minute),
			stats:      engine.Stats{Entities: 90},
			wantStatus: HealthDegraded,
		},
		{
			name:       "engine stopped",
			now:        t0,
			statsErr:   engine.ErrNotRunning,
			wantStatus: HealthUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, eng := newTestBridge(t, 0)
			eng.stats = tt.stats
			eng.statsErr = tt.statsErr

			now := t0
			h := NewHealthReporter(b, HealthConfig{
				Node:    "hpsu",
				Version: "test",
				Clock:   func() time.Time { return now },
			})
			now = tt.now

			msg := h.Report(context.Background())
			if msg.Status != tt.wantStatus {
				t.Errorf("Status = %s (%s), want %s", msg.Status, msg.Reason, tt.wantStatus)
			}
			if tt.statsErr == nil && (msg.Engine == nil || msg.Engine.Entities != 90) {
				t.Errorf("Engine = %+v, want entity count", msg.Engine)
			}
			if !msg.MQTTConnected {
				t.Error("MQTTConnected = false, want true")
			}
		})
	}
}

func TestHealthReporter_StartStop(t *testing.T) {
	b, client, eng := newTestBridge(t, 0)
	eng.stats = engine.Stats{Entities: 3, LastFrame: time.Now()}

	h := NewHealthReporter(b, HealthConfig{Node: "hpsu", Version: "test", Interval: time.Hour})
	h.Start(context.Background())
	h.Stop()
	h.Stop()

	pubs := client.GetPublished()
	if len(pubs) != 2 {
		t.Fatalf("published %d health messages, want 2", len(pubs))
	}

	var statuses []HealthStatus
	for _, p := range pubs {
		if p.Topic != "rotexcan/hpsu/health" || !p.Retained {
			t.Errorf("health message on %s retained=%v", p.Topic, p.Retained)
		}
		var msg HealthMessage
		if err := json.Unmarshal(p.Payload, &msg); err != nil {
			t.Fatalf("payload: %v", err)
		}
		statuses = append(statuses, msg.Status)
	}
	if statuses[0] != HealthHealthy || statuses[1] != HealthStopping {
		t.Errorf("statuses = %v, want [healthy stopping]", statuses)
	}
}
