package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/boot"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/fusion"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/intercore"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/telemetry"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

// bootPollInterval is how often the output loop checks for a boot request.
const bootPollInterval = 100

// FrameSink receives every frame the scheduler emits. Sinks are called from
// the output loop and must not block.
type FrameSink interface {
	Emit(f scheduler.Frame)
}

// logSink writes frames to the log at debug level.
type logSink struct {
	logger *slog.Logger
}

func (s *logSink) Emit(f scheduler.Frame) {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := make([]any, 0, len(f.Fields)+2)
	attrs = append(attrs,
		slog.String("category", f.Category.String()),
		slog.Uint64("timestampMs", uint64(f.TimestampMs)))
	for _, field := range f.Fields {
		if field.Available {
			attrs = append(attrs, slog.Int(field.Kind.String(), int(field.Value)))
		}
	}
	if f.Category == scheduler.GPS {
		attrs = append(attrs, slog.String("altitudeSource", f.AltitudeSource.String()))
	}
	s.logger.Debug("frame", attrs...)
}

// recorderSink hands frames to the recorder goroutine. Frames are dropped
// when the recorder falls behind.
type recorderSink struct {
	ring    *intercore.Ring[scheduler.Frame]
	dropped atomic.Uint64
}

func (s *recorderSink) Emit(f scheduler.Frame) {
	if !s.ring.Push(f) {
		s.dropped.Add(1)
	}
}

// Output is the consumer side of the bridge: it drains the channel into the
// measurement store and emits the frames the scheduler decides are due. It is
// driven by a single goroutine.
type Output struct {
	in        *intercore.Channel
	store     *telemetry.Store
	scheduler *scheduler.Scheduler
	sinks     []FrameSink
	clock     timebase.Clock
	logger    *slog.Logger

	boot     boot.Requester
	bootGate *fusion.Gate

	summaryGate *fusion.Gate // Nil disables summaries
	drained     uint64
}

// NewOutput creates the output side reading from in.
func NewOutput(config *Config, in *intercore.Channel, requester boot.Requester, clock timebase.Clock, logger *slog.Logger, sinks ...FrameSink) (*Output, error) {
	store := telemetry.NewStore()

	sched, err := scheduler.New(store, config.Intervals.Intervals(), scheduler.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	if requester == nil {
		requester = boot.Never{}
	}

	o := Output{
		in:        in,
		store:     store,
		scheduler: sched,
		sinks:     sinks,
		clock:     clock,
		logger:    logger.With(slog.String("component", "output")),
		boot:      requester,
		bootGate:  fusion.NewGate(bootPollInterval),
	}
	if interval := config.Link.SummaryInterval.Milliseconds(); interval > 0 {
		o.summaryGate = fusion.NewGate(interval)
	}

	return &o, nil
}

// Step runs one iteration of the output loop. It returns true when a boot
// request is pending and the bridge must stop.
func (o *Output) Step() bool {
	o.drained += uint64(o.in.DrainTo(o.store))

	now := o.clock.Millis()
	if f, ok := o.scheduler.Tick(now); ok {
		for _, sink := range o.sinks {
			sink.Emit(f)
		}
	}

	if o.summaryGate != nil && o.summaryGate.Allow(now) {
		o.logSummary()
	}

	if o.bootGate.Allow(now) && o.boot.IsBootRequestPending() {
		o.logger.Info("boot request pending")
		return true
	}
	return false
}

// Sent returns the number of frames of c emitted so far.
func (o *Output) Sent(c scheduler.Category) uint64 {
	return o.scheduler.Sent(c)
}

// Store returns the measurement store owned by the output loop.
func (o *Output) Store() *telemetry.Store {
	return o.store
}

func (o *Output) logSummary() {
	attrs := []any{
		slog.String("received", humanize.Comma(int64(o.drained))),
		slog.String("dropped", humanize.Comma(int64(o.in.Dropped()))),
	}
	for c := 0; c < scheduler.NumCategories; c++ {
		attrs = append(attrs, slog.String(scheduler.Category(c).String(), humanize.Comma(int64(o.scheduler.Sent(scheduler.Category(c))))))
	}
	o.logger.Info("frames sent", attrs...)
}
