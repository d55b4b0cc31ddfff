package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/boot"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/intercore"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/sensors"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/storage"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

// ErrBootRequested is returned by Run when the bridge stopped because a boot
// request was pending.
var ErrBootRequested = errors.New("boot request pending")

// WithRecorder records every emitted frame to store under sessionID.
func WithRecorder(store storage.Store, sessionID int64) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.store = store
		o.sessionID = sessionID
	}
}

// WithSinks adds frame sinks next to the logging sink.
func WithSinks(sinks ...FrameSink) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.sinks = append(o.sinks, sinks...)
	}
}

// Orchestrator runs the bridge: the acquisition loop producing measurements,
// the output loop consuming them and emitting frames, and optionally the
// recorder writing frames to the flight log. The loops share nothing but the
// lock-free rings between them.
type Orchestrator struct {
	config *Config
	logger *slog.Logger

	acquisition *Acquisition
	output      *Output
	channel     *intercore.Channel

	store     storage.Store
	sessionID int64
	sinks     []FrameSink
	recorder  *Recorder
	frames    *recorderSink

	bootRequested atomic.Bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(config *Config, set *sensors.Set, clock timebase.Clock, requester boot.Requester, logger *slog.Logger, options ...func(*Orchestrator)) (*Orchestrator, error) {
	o := Orchestrator{
		config: config,
		logger: logger,
	}

	for _, option := range options {
		option(&o)
	}

	var err error
	if o.channel, err = intercore.NewChannel(config.Link.ChannelCapacity, clock); err != nil {
		return nil, fmt.Errorf("creating channel: %w", err)
	}

	if o.acquisition, err = NewAcquisition(config, set, o.channel, clock, logger); err != nil {
		return nil, err
	}

	sinks := append([]FrameSink{&logSink{logger: logger.With(slog.String("protocol", config.Link.Protocol.String()))}}, o.sinks...)
	if o.store != nil {
		ring, err := intercore.NewRing[scheduler.Frame](config.Link.FrameBuffer)
		if err != nil {
			return nil, fmt.Errorf("creating frame buffer: %w", err)
		}

		o.frames = &recorderSink{ring: ring}
		o.recorder = newRecorder(ring, o.store, o.sessionID, logger)
		sinks = append(sinks, o.frames)
	}

	if o.output, err = NewOutput(config, o.channel, requester, clock, logger, sinks...); err != nil {
		return nil, err
	}

	return &o, nil
}

// Run starts the loops and blocks until ctx is cancelled or a boot request
// stops the bridge, in which case ErrBootRequested is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, o.cancel = context.WithCancel(ctx)
	defer o.cancel()

	o.logger.Info("bridge started",
		slog.String("protocol", o.config.Link.Protocol.String()),
		slog.Int("channelCapacity", o.channel.Cap()))

	o.wg.Add(2)
	go o.runLoop(ctx, "acquisition", o.config.Link.AcquisitionPeriod.Duration(), func() bool {
		o.acquisition.Step()
		return false
	})
	go o.runLoop(ctx, "output", o.config.Link.OutputPeriod.Duration(), o.output.Step)

	var recorderDone chan struct{}
	stopRecorder := make(chan struct{})
	if o.recorder != nil {
		recorderDone = make(chan struct{})
		go o.runRecorder(ctx, stopRecorder, recorderDone)
	}

	o.wg.Wait()

	// The output loop has stopped pushing frames; let the recorder drain the
	// rest before returning.
	close(stopRecorder)
	if recorderDone != nil {
		<-recorderDone
	}

	o.logger.Info("bridge stopped",
		slog.String("dropped", humanize.Comma(int64(o.channel.Dropped()))),
		slog.String("vario", humanize.Comma(int64(o.output.Sent(scheduler.Vario)))),
		slog.String("gps", humanize.Comma(int64(o.output.Sent(scheduler.GPS)))))

	if o.bootRequested.Load() {
		return ErrBootRequested
	}
	return nil
}

func (o *Orchestrator) runLoop(ctx context.Context, name string, period time.Duration, step func() bool) {
	defer o.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	o.logger.Debug("loop started", slog.String("loop", name), slog.Duration("period", period))

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if step() {
				o.bootRequested.Store(true)
				o.cancel() // signal the other loops to stop
				return
			}
		}
	}
}

func (o *Orchestrator) runRecorder(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// Frames already emitted are stored even while the bridge shuts down.
	storeCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(o.config.Storage.RecorderPeriod.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			o.recorder.Flush(storeCtx)
			o.logger.Info("flight log closed",
				slog.Int64("session", o.sessionID),
				slog.String("stored", humanize.Comma(int64(o.recorder.stored))),
				slog.String("failed", humanize.Comma(int64(o.recorder.failed))),
				slog.String("dropped", humanize.Comma(int64(o.frames.dropped.Load()))))
			return

		case <-ticker.C:
			o.recorder.Flush(storeCtx)
		}
	}
}
