package influxdb_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/rotex-can-core/internal/infrastructure/config"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "rotexcan-dev-token",
		Org:           "rotexcan",
		Bucket:        "heatpump",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip skips the test unless RUN_INTEGRATION is set and a server answers.
func connectOrSkip(t *testing.T) *influxdb.Client {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("RUN_INTEGRATION not set, skipping InfluxDB integration test")
	}
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *influxdb.Client

	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Writes on a nil client are dropped.
	c.WriteEntityValue("tv", "sensor", 1, time.Now())
	c.WriteFault("missing flow", time.Now())
}

func TestEntityPoint(t *testing.T) {
	ts := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		point    *write.Point
		wantLine string
	}{
		{
			name:     "sensor value",
			point:    influxdb.EntityPoint("tv", "sensor", 34.5, ts),
			wantLine: "heatpump,entity=tv,kind=sensor value=34.5",
		},
		{
			name:     "binary as float",
			point:    influxdb.EntityPoint("status_kompressor", "binary_sensor", 1, ts),
			wantLine: "heatpump,entity=status_kompressor,kind=binary_sensor value=1",
		},
		{
			name:     "fault",
			point:    influxdb.FaultPoint("missing flow", ts),
			wantLine: `heatpump_fault,fault=missing\ flow active=1i`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := write.PointToLineProtocol(tt.point, time.Second)
			if !strings.HasPrefix(line, tt.wantLine+" ") {
				t.Errorf("line = %q, want prefix %q", line, tt.wantLine)
			}
			if !strings.Contains(line, "1768035600") {
				t.Errorf("line = %q, want timestamp in seconds", line)
			}
		})
	}
}

func TestIntegration_WriteAndHealth(t *testing.T) {
	client := connectOrSkip(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	var writeErr error
	client.SetOnError(func(err error) { writeErr = err })

	client.WriteEntityValue("tv", "sensor", 35.2, time.Now())
	client.WriteFault("low temperature spread", time.Now())
	client.Flush()

	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}

func TestClose_StopsWrites(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
	client.Flush()
}
