package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// HealthStatus represents the operational status of the node.
type HealthStatus string

const (
	// HealthHealthy indicates frames are arriving and the loop answers.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the loop runs but the bus has gone quiet.
	HealthDegraded HealthStatus = "degraded"

	// HealthUnhealthy indicates the engine loop does not answer.
	HealthUnhealthy HealthStatus = "unhealthy"

	// HealthStopping is published once on shutdown.
	HealthStopping HealthStatus = "stopping"
)

const (
	defaultHealthInterval = 30 * time.Second

	// defaultStaleAfter is the silence after which the bus counts as quiet.
	defaultStaleAfter = 5 * time.Minute

	statsTimeout = 2 * time.Second
)

// HealthMessage is published retained to <prefix>/<node>/health.
type HealthMessage struct {
	Node          string        `json:"node"`
	Timestamp     time.Time     `json:"timestamp"`
	Status        HealthStatus  `json:"status"`
	Reason        string        `json:"reason,omitempty"`
	Version       string        `json:"version"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	MQTTConnected bool          `json:"mqtt_connected"`
	Dropped       uint64        `json:"dropped_messages"`
	Engine        *engineHealth `json:"engine,omitempty"`
}

type engineHealth struct {
	Entities     int       `json:"entities"`
	Due          int       `json:"due"`
	InFlight     string    `json:"in_flight,omitempty"`
	LastFrame    time.Time `json:"last_frame"`
	PendingTasks int       `json:"pending_tasks"`
	Optimized    bool      `json:"optimized_defrosting"`
	RestoreMode  string    `json:"restore_mode"`
}

// HealthConfig configures a HealthReporter.
type HealthConfig struct {
	// Node names the heat pump in health messages.
	Node string

	// Version is the software version.
	Version string

	// Interval between reports. Default: 30 seconds.
	Interval time.Duration

	// StaleAfter is the CAN silence reported as degraded. Default: 5 minutes.
	StaleAfter time.Duration

	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time
}

// HealthReporter publishes periodic health messages for a bridge.
type HealthReporter struct {
	bridge     *Bridge
	node       string
	version    string
	interval   time.Duration
	staleAfter time.Duration
	clock      func() time.Time
	startTime  time.Time

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a reporter publishing through b.
func NewHealthReporter(b *Bridge, cfg HealthConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	stale := cfg.StaleAfter
	if stale <= 0 {
		stale = defaultStaleAfter
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &HealthReporter{
		bridge:     b,
		node:       cfg.Node,
		version:    cfg.Version,
		interval:   interval,
		staleAfter: stale,
		clock:      clock,
		startTime:  clock(),
		done:       make(chan struct{}),
	}
}

// Start publishes one report immediately and then one per interval until
// ctx is cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		msg := h.message(nil, HealthStopping, "")
		if err := h.publish(msg); err != nil {
			h.bridge.logger.Warn("publishing stopping status", "error", err)
		}
	})
}

// PublishNow evaluates and publishes the current status.
func (h *HealthReporter) PublishNow(ctx context.Context) error {
	return h.publish(h.Report(ctx))
}

// Report evaluates the current status without publishing it.
func (h *HealthReporter) Report(ctx context.Context) HealthMessage {
	ctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	st, err := h.bridge.eng.Stats(ctx)
	if err != nil {
		return h.message(nil, HealthUnhealthy, "engine: "+err.Error())
	}
	eh := &engineHealth{
		Entities:     st.Entities,
		Due:          st.Due,
		InFlight:     st.InFlight,
		LastFrame:    st.LastFrame,
		PendingTasks: st.PendingTasks,
		Optimized:    st.Optimized,
		RestoreMode:  st.RestoreMode,
	}

	now := h.clock()
	since := h.startTime
	if !st.LastFrame.IsZero() {
		since = st.LastFrame
	}
	if now.Sub(since) > h.staleAfter {
		return h.message(eh, HealthDegraded, "no CAN frames received")
	}
	return h.message(eh, HealthHealthy, "")
}

func (h *HealthReporter) message(eh *engineHealth, status HealthStatus, reason string) HealthMessage {
	now := h.clock()
	return HealthMessage{
		Node:          h.node,
		Timestamp:     now.UTC(),
		Status:        status,
		Reason:        reason,
		Version:       h.version,
		UptimeSeconds: int64(now.Sub(h.startTime).Seconds()),
		MQTTConnected: h.bridge.client.IsConnected(),
		Dropped:       h.bridge.Dropped(),
		Engine:        eh,
	}
}

// publish bypasses the outbox so health still reaches the broker when the
// outbox is saturated.
func (h *HealthReporter) publish(msg HealthMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.bridge.client.Publish(h.bridge.topics.Health(), payload, h.bridge.qos, true)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(ctx); err != nil {
		h.bridge.logger.Warn("publishing initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(ctx); err != nil {
				h.bridge.logger.Warn("publishing health", "error", err)
			}
		}
	}
}
