package app

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/scheduler"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/storage"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

// Violation is a frame sent sooner after the previous frame of its category
// than the category interval allows.
type Violation struct {
	Category    scheduler.Category
	TimestampMs uint32
	IntervalMs  uint32
}

// CategoryStats summarizes the frames of one category.
type CategoryStats struct {
	Count           int
	MinIntervalMs   uint32
	totalIntervalMs uint64
	lastMs          uint32
	AltitudeSources [3]int // Indexed by scheduler.AltitudeSource
}

// MeanIntervalMs returns the mean time between two frames, zero with fewer
// than two frames.
func (s *CategoryStats) MeanIntervalMs() float64 {
	if s.Count < 2 {
		return 0
	}
	return float64(s.totalIntervalMs) / float64(s.Count-1)
}

// Report accumulates the statistics of one recorded session.
type Report struct {
	Session    *storage.Session
	Intervals  scheduler.Intervals
	Frames     int
	Stats      [scheduler.NumCategories]CategoryStats
	Violations []Violation
}

// NewReport creates an empty report. The frame intervals are taken from the
// configuration recorded with the session, falling back to the defaults.
func NewReport(session *storage.Session) *Report {
	return &Report{
		Session:   session,
		Intervals: sessionIntervals(session),
	}
}

// Add accounts for the next frame of the session.
func (r *Report) Add(f *scheduler.Frame) {
	if int(f.Category) >= scheduler.NumCategories {
		return
	}

	r.Frames++
	s := &r.Stats[f.Category]

	if s.Count > 0 {
		interval := timebase.Since(f.TimestampMs, s.lastMs)
		if s.Count == 1 || interval < s.MinIntervalMs {
			s.MinIntervalMs = interval
		}
		s.totalIntervalMs += uint64(interval)

		if interval < r.Intervals.Of(f.Category) {
			r.Violations = append(r.Violations, Violation{
				Category:    f.Category,
				TimestampMs: f.TimestampMs,
				IntervalMs:  interval,
			})
		}
	}

	if f.Category == scheduler.GPS && int(f.AltitudeSource) < len(s.AltitudeSources) {
		s.AltitudeSources[f.AltitudeSource]++
	}

	s.lastMs = f.TimestampMs
	s.Count++
}

// Write prints the report. With verbose set every violation is listed.
func (r *Report) Write(w io.Writer, verbose bool) error {
	ew := &errWriter{w: w}

	if r.Session != nil {
		ew.printf("session %d  protocol %s  started %s (%s)\n",
			r.Session.ID,
			r.Session.Protocol,
			r.Session.StartTime.Local().Format(time.DateTime),
			humanize.Time(r.Session.StartTime))
	}
	ew.printf("frames %s\n\n", humanize.Comma(int64(r.Frames)))

	ew.printf("%-10s %10s %12s %12s %12s\n", "category", "frames", "interval", "min", "mean")
	for c := 0; c < scheduler.NumCategories; c++ {
		s := &r.Stats[c]
		ew.printf("%-10s %10s %10dms %10dms %10.1fms\n",
			scheduler.Category(c),
			humanize.Comma(int64(s.Count)),
			r.Intervals.Of(scheduler.Category(c)),
			s.MinIntervalMs,
			s.MeanIntervalMs())
	}

	gps := &r.Stats[scheduler.GPS]
	if gps.Count > 0 {
		ew.printf("\ngps altitude  baro %s  gps %s  none %s\n",
			humanize.Comma(int64(gps.AltitudeSources[scheduler.AltitudeBaro])),
			humanize.Comma(int64(gps.AltitudeSources[scheduler.AltitudeGPS])),
			humanize.Comma(int64(gps.AltitudeSources[scheduler.AltitudeNone])))
	}

	if len(r.Violations) == 0 {
		ew.printf("\nno interval violations\n")
		return ew.err
	}

	ew.printf("\n%s interval violations\n", humanize.Comma(int64(len(r.Violations))))
	if verbose {
		for _, v := range r.Violations {
			ew.printf("  %-10s at %dms after %dms (interval %dms)\n", v.Category, v.TimestampMs, v.IntervalMs, r.Intervals.Of(v.Category))
		}
	}
	return ew.err
}

// WriteSessions prints the list of recorded sessions.
func WriteSessions(w io.Writer, sessions []*storage.Session) error {
	ew := &errWriter{w: w}
	if len(sessions) == 0 {
		ew.printf("no sessions recorded\n")
		return ew.err
	}

	ew.printf("%6s  %-8s  %-19s  %s\n", "id", "protocol", "started", "")
	for _, s := range sessions {
		ew.printf("%6d  %-8s  %-19s  %s\n", s.ID, s.Protocol, s.StartTime.Local().Format(time.DateTime), humanize.Time(s.StartTime))
	}
	return ew.err
}

// sessionConfig is the part of the recorded bridge configuration the report
// needs.
type sessionConfig struct {
	Intervals struct {
		Voltage  string `json:"voltage"`
		Vario    string `json:"vario"`
		GPS      string `json:"gps"`
		Attitude string `json:"attitude"`
	} `json:"intervals"`
}

func sessionIntervals(session *storage.Session) scheduler.Intervals {
	intervals := scheduler.DefaultIntervals()
	if session == nil || session.Config == nil {
		return intervals
	}

	var c sessionConfig
	if err := json.Unmarshal([]byte(*session.Config), &c); err != nil {
		return intervals
	}

	for _, v := range []struct {
		s string
		d *time.Duration
	}{
		{c.Intervals.Voltage, &intervals.Voltage},
		{c.Intervals.Vario, &intervals.Vario},
		{c.Intervals.GPS, &intervals.GPS},
		{c.Intervals.Attitude, &intervals.Attitude},
	} {
		if d, err := time.ParseDuration(v.s); err == nil && d >= 0 && d < math.MaxUint32*time.Millisecond {
			*v.d = d
		}
	}
	return intervals
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
