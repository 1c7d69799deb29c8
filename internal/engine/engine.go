package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/rotex-can-core/internal/canbus"
	"github.com/nerrad567/rotex-can-core/internal/catalog"
	"github.com/nerrad567/rotex-can-core/internal/deferred"
	"github.com/nerrad567/rotex-can-core/internal/derived"
	"github.com/nerrad567/rotex-can-core/internal/entity"
	"github.com/nerrad567/rotex-can-core/internal/flags"
	"github.com/nerrad567/rotex-can-core/internal/infrastructure/config"
	"github.com/nerrad567/rotex-can-core/internal/mode"
	"github.com/nerrad567/rotex-can-core/internal/registry"
	"github.com/nerrad567/rotex-can-core/internal/regulator"
)

// Defaults for zero configuration values.
const (
	DefaultTick                = 50 * time.Millisecond
	DefaultSmoothingAlpha      = 0.2
	DefaultDHWBoostTemperature = 70.0
	DefaultDHWRestoreDelay     = 10 * time.Second
	DefaultRxBuffer            = 64
)

// dhwRestoreKey identifies the single pending DHW restore task.
const dhwRestoreKey = "dhw:restore"

// Logger defines the logging interface used by the engine.
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

// Options configures an Engine.
type Options struct {
	Config   config.EngineConfig
	Bus      canbus.Transport
	Entities []*entity.Entity

	// Flags persists optimized defrosting and the regulated setpoint.
	// Nil selects an in-memory store.
	Flags flags.Store

	// Translator renders option tokens; nil leaves them untranslated.
	Translator catalog.Translator

	// Publisher receives every committed value; nil discards them.
	Publisher Publisher

	// Metrics receives bus accounting; nil registers on a private registry.
	Metrics *Metrics

	Logger   Logger
	RxBuffer int

	// Clock returns the current time; nil selects time.Now.
	Clock func() time.Time
}

// change is one post-update notification waiting to be processed.
type change struct {
	ent      *entity.Entity
	current  entity.Value
	previous entity.Value
}

// command is an operator request executed on the loop goroutine.
type command struct {
	fn    func(ctx context.Context, now time.Time) error
	reply chan error
}

// Engine owns the registry and the control components.
//
// Thread Safety: HandleFrame, Tick and Init must only be called from one
// goroutine, normally Run's. The operator methods are safe for concurrent
// use while Run is active.
type Engine struct {
	cfg        config.EngineConfig
	bus        canbus.Transport
	reg        *registry.Registry
	queue      *deferred.Queue
	graph      *derived.Graph
	annotator  *derived.Annotator
	coord      *mode.Coordinator
	regulator  *regulator.Regulator
	flags      flags.Store
	translator catalog.Translator
	pub        Publisher
	metrics    *Metrics
	logger     Logger
	clock      func() time.Time
	rxBuffer   int

	changes       []change
	dhwRestore    float64
	lastErrorText string

	commands chan command
	done     chan struct{}
	doneOnce sync.Once
}

// New wires an engine around the given entities.
//
// Parameters:
//   - opts: bus, entities and collaborators; see Options for defaults
//
// Returns:
//   - *Engine: ready to Run
//   - error: registry.ErrDuplicateID for repeated entity ids, or a
//     derived formula registration error
func New(opts Options) (*Engine, error) {
	e := &Engine{
		cfg:        withDefaults(opts.Config),
		bus:        opts.Bus,
		queue:      deferred.NewQueue(),
		flags:      opts.Flags,
		translator: opts.Translator,
		pub:        opts.Publisher,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		clock:      opts.Clock,
		rxBuffer:   opts.RxBuffer,
		commands:   make(chan command),
		done:       make(chan struct{}),
	}
	if e.flags == nil {
		e.flags = flags.NewMemoryStore()
	}
	if e.pub == nil {
		e.pub = noopPublisher{}
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(prometheus.NewRegistry())
	}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.rxBuffer <= 0 {
		e.rxBuffer = DefaultRxBuffer
	}

	timeout := e.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = -1
	}
	e.reg = registry.New(registry.Options{
		Delay:    e.cfg.RequestDelay,
		Timeout:  timeout,
		Logger:   e.logger,
		Observer: e.metrics,
	})
	for _, ent := range opts.Entities {
		if err := e.reg.Add(ent); err != nil {
			return nil, err
		}
		ent.SetOnUpdate(e.onUpdate)
	}

	e.graph = derived.NewGraph(e.reg, e.queue, e.logger)
	if err := e.graph.Register(derived.Standard(e.cfg.SmoothingAlpha)...); err != nil {
		return nil, fmt.Errorf("registering formulas: %w", err)
	}
	e.annotator = derived.NewAnnotator(e.reg, derived.Thresholds{
		OffsetTV:        e.cfg.Offsets.TV,
		OffsetTVBH:      e.cfg.Offsets.TVBH,
		OffsetTR:        e.cfg.Offsets.TR,
		MaxSpreadTVBHTV: e.cfg.MaxSpread.TVBHTV,
		MaxSpreadTVBHTR: e.cfg.MaxSpread.TVBHTR,
	}, e.logger)

	dispatch := mode.DispatchFunc(e.dispatch)
	e.coord = mode.NewCoordinator(e.reg, dispatch, e.flags, e.logger)
	e.regulator = regulator.New(e.reg, dispatch, e.cfg.RegulatorInterval, e.logger)
	return e, nil
}

func withDefaults(cfg config.EngineConfig) config.EngineConfig {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.SmoothingAlpha <= 0 || cfg.SmoothingAlpha > 1 {
		cfg.SmoothingAlpha = DefaultSmoothingAlpha
	}
	if cfg.DHWBoostTemperature <= 0 {
		cfg.DHWBoostTemperature = DefaultDHWBoostTemperature
	}
	if cfg.DHWRestoreDelay <= 0 {
		cfg.DHWRestoreDelay = DefaultDHWRestoreDelay
	}
	return cfg
}

// Registry exposes the entity registry for read-only inspection before Run
// starts.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Init loads persisted state and publishes the local entities it restores.
// Run calls it before entering the loop.
func (e *Engine) Init(ctx context.Context) error {
	if err := e.coord.Load(ctx); err != nil {
		return fmt.Errorf("loading mode state: %w", err)
	}
	now := e.clock()

	if ent, ok := e.reg.Get(catalog.OptimizedDefrosting); ok {
		ent.Publish(onOff(e.coord.Optimized()), now)
	}
	if ent, ok := e.reg.Get(catalog.SupplySetpointRegulated); ok {
		v, found, err := e.flags.Get(ctx, flags.KeySupplySetpointRegulated)
		if err != nil {
			return fmt.Errorf("loading regulated setpoint: %w", err)
		}
		if found {
			ent.Publish(entity.Float(float64(v)/10), now)
		}
	}
	e.flush(ctx)
	return nil
}

// Run drives the loop until ctx is cancelled or the transport fails.
//
// Returns:
//   - error: nil on cancellation, ErrTransport if the bus stops
func (e *Engine) Run(ctx context.Context) error {
	defer e.doneOnce.Do(func() { close(e.done) })

	if err := e.Init(ctx); err != nil {
		return err
	}

	rxCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	frames := make(chan canbus.Frame, e.rxBuffer)
	rxErr := make(chan error, 1)
	go func() {
		rxErr <- e.bus.Receive(rxCtx, frames)
	}()

	ticker := time.NewTicker(e.cfg.Tick)
	defer ticker.Stop()

	e.logger.Info("engine started", "entities", e.reg.Len(), "tick", e.cfg.Tick)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return nil
		case f := <-frames:
			e.HandleFrame(ctx, f, e.clock())
		case cmd := <-e.commands:
			err := cmd.fn(ctx, e.clock())
			e.flush(ctx)
			cmd.reply <- err
		case <-ticker.C:
			e.Tick(ctx, e.clock())
		case err := <-rxErr:
			if ctx.Err() != nil {
				return nil
			}
			if err == nil {
				return ErrTransport
			}
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}
}

// HandleFrame routes one inbound frame and processes the resulting updates.
func (e *Engine) HandleFrame(ctx context.Context, f canbus.Frame, now time.Time) {
	e.reg.Route(f.ID, f.Data[:f.Len], now)
	e.flush(ctx)
}

// Tick runs one iteration of the control loop.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	e.queue.Run(now)
	e.flush(ctx)

	if _, err := e.reg.PollNext(ctx, e.bus, now); err != nil {
		e.logger.Warn("poll request failed", "error", err)
	}
	if _, ok := e.regulator.Tick(ctx, now); ok {
		e.metrics.RegulatorAdjusted()
	}
	e.metrics.SetDue(e.reg.DueCount(now))
	e.flush(ctx)
}

// dispatch writes v to the named entity on the bus.
func (e *Engine) dispatch(ctx context.Context, name string, v entity.Value) error {
	return e.reg.DispatchValue(ctx, e.bus, name, v)
}

func onOff(on bool) entity.Value {
	if on {
		return entity.String(catalog.OptionOn)
	}
	return entity.String(catalog.OptionOff)
}
