package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/rotex-can-core/internal/engine"
	"github.com/nerrad567/rotex-can-core/internal/entity"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/mqtt"
)

// Bridge operation constants.
const (
	// defaultOutbox is the number of queued outbound messages.
	defaultOutbox = 256

	// commandTimeout bounds one inbound command on the engine loop.
	commandTimeout = 5 * time.Second

	// subscribeQoS is used for the set and command subscriptions.
	subscribeQoS = 1

	// Command names under <prefix>/<node>/command/.
	CommandCustom = "custom"
	CommandDHWRun = "dhw_run"
	CommandDump   = "dump"

	// EventFault is the event kind of fault confirmations.
	EventFault = "fault"
)

// MQTTClient is the subset of *mqtt.Client used by the bridge.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Engine is the operator surface of the polling engine.
type Engine interface {
	SetValue(ctx context.Context, name string, v entity.Value) error
	SendCustom(ctx context.Context, text string) error
	RunDHW(ctx context.Context) error
	Dump(ctx context.Context) ([]engine.Update, error)
	Stats(ctx context.Context) (engine.Stats, error)
}

// Logger is the structured logger used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a bridge.
type Options struct {
	// Client is the connected MQTT client. Required.
	Client MQTTClient

	// Topics is the topic builder of this node.
	Topics mqtt.Topics

	// Engine receives inbound writes and commands. Required.
	Engine Engine

	// QoS for outbound messages. Default: 0
	QoS byte

	// Outbox is the capacity of the outbound queue. Default: 256
	Outbox int

	// Logger is optional.
	Logger Logger
}

type outbound struct {
	topic    string
	payload  []byte
	retained bool
}

// Bridge publishes engine output to MQTT and forwards MQTT commands to the
// engine. It implements engine.Publisher.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	client MQTTClient
	topics mqtt.Topics
	eng    Engine
	qos    byte
	logger Logger

	outbox  chan outbound
	dropped atomic.Uint64

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New creates a bridge. Call Start to subscribe and begin publishing.
//
// Returns:
//   - *Bridge: Ready to start
//   - error: ErrMissingDependency if the client or engine is nil
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("%w: mqtt client", ErrMissingDependency)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("%w: engine", ErrMissingDependency)
	}
	size := opts.Outbox
	if size <= 0 {
		size = defaultOutbox
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		client:    opts.Client,
		topics:    opts.Topics,
		eng:       opts.Engine,
		qos:       opts.QoS,
		logger:    logger,
		outbox:    make(chan outbound, size),
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: cancel,
	}, nil
}

// Start subscribes to the set and command topics and starts the publish
// worker.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.client.Subscribe(b.topics.AllSets(), subscribeQoS, b.handleSet); err != nil {
		return fmt.Errorf("subscribe to sets: %w", err)
	}
	b.logger.Info("subscribed to sets", "topic", b.topics.AllSets())

	if err := b.client.Subscribe(b.topics.AllCommands(), subscribeQoS, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to commands", "topic", b.topics.AllCommands())

	b.startOnce.Do(func() {
		b.wg.Add(1)
		go b.publishLoop(ctx)
	})
	b.logger.Info("bridge started", "base", b.topics.Base())
	return nil
}

// Stop cancels in-flight commands and waits for the publish worker, which
// flushes whatever is still queued.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()
		b.wg.Wait()
		b.logger.Info("bridge stopped", "dropped", b.dropped.Load())
	})
}

// Dropped returns the number of outbound messages discarded because the
// outbox was full.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// PublishValue implements engine.Publisher.
func (b *Bridge) PublishValue(_ context.Context, u engine.Update) {
	payload, err := json.Marshal(u)
	if err != nil {
		b.logger.Error("encoding state", "entity", u.ID, "error", err)
		return
	}
	b.enqueue(outbound{topic: b.topics.State(u.ID), payload: payload, retained: true})
}

// PublishFault implements engine.Publisher.
func (b *Bridge) PublishFault(_ context.Context, f engine.FaultEvent) {
	payload, err := json.Marshal(f)
	if err != nil {
		b.logger.Error("encoding fault", "fault", string(f.Fault), "error", err)
		return
	}
	b.enqueue(outbound{topic: b.topics.Event(EventFault), payload: payload})
}

func (b *Bridge) enqueue(m outbound) {
	select {
	case b.outbox <- m:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("outbox full, message dropped", "topic", m.topic, "dropped", n)
	}
}

func (b *Bridge) publishLoop(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case m := <-b.outbox:
			b.send(m)
		case <-ctx.Done():
			b.drain()
			return
		case <-b.done:
			b.drain()
			return
		}
	}
}

func (b *Bridge) drain() {
	for {
		select {
		case m := <-b.outbox:
			b.send(m)
		default:
			return
		}
	}
}

func (b *Bridge) send(m outbound) {
	if err := b.client.Publish(m.topic, m.payload, b.qos, m.retained); err != nil {
		b.logger.Warn("publish failed", "topic", m.topic, "error", err)
	}
}

// handleSet forwards <prefix>/<node>/set/<entity_id> to the engine.
func (b *Bridge) handleSet(topic string, payload []byte) error {
	id := mqtt.LastSegment(topic)
	v, err := decodeSetPayload(payload)
	if err != nil {
		return fmt.Errorf("set %s: %w", id, err)
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := b.eng.SetValue(ctx, id, v); err != nil {
		return fmt.Errorf("set %s: %w", id, err)
	}
	b.logger.Info("value set", "entity", id, "value", v.String())
	return nil
}

// handleCommand dispatches <prefix>/<node>/command/<name>.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	name := mqtt.LastSegment(topic)

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	switch name {
	case CommandCustom:
		text, err := decodeCustomPayload(payload)
		if err != nil {
			return err
		}
		return b.eng.SendCustom(ctx, text)
	case CommandDHWRun:
		return b.eng.RunDHW(ctx)
	case CommandDump:
		_, err := b.eng.Dump(ctx)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}

type setMessage struct {
	Value json.RawMessage `json:"value"`
}

// decodeSetPayload accepts {"value": x}, a bare JSON scalar, or plain text.
// Plain text that parses as a number is a number, anything else an option
// token.
func decodeSetPayload(payload []byte) (entity.Value, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return entity.Value{}, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	if payload[0] == '{' {
		var msg setMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return entity.Value{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		if len(msg.Value) == 0 {
			return entity.Value{}, fmt.Errorf("%w: missing value", ErrInvalidPayload)
		}
		return decodeScalar(msg.Value)
	}

	if v, err := engine.DecodeValue(payload); err == nil {
		return v, nil
	}
	text := string(payload)
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return entity.Float(f), nil
	}
	return entity.String(text), nil
}

func decodeScalar(raw json.RawMessage) (entity.Value, error) {
	v, err := engine.DecodeValue(raw)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidValue) {
			return entity.Value{}, fmt.Errorf("%w: value must be a number, string or bool", ErrInvalidPayload)
		}
		return entity.Value{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return v, nil
}

// decodeCustomPayload accepts raw hex text or a JSON string.
func decodeCustomPayload(payload []byte) (string, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '"' {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return s, nil
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: empty command", ErrInvalidPayload)
	}
	return string(payload), nil
}
