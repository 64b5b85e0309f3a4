package pitch

import (
	"context"
	"log/slog"
	"time"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageNormalize   Stage = "normalize"
	StageMerge       Stage = "merge"
	StageInterpolate Stage = "interpolate"
	StageOverlay     Stage = "overlay"
	StagePrune       Stage = "prune"
	StageRescale     Stage = "rescale"
)

// Tracer is called at the end of every stage with the number of points going
// in and out of the stage.
type Tracer interface {
	Stage(stage Stage, in, out int, elapsed time.Duration)
}

// TracerFunc adapts a function to a Tracer.
type TracerFunc func(stage Stage, in, out int, elapsed time.Duration)

func (f TracerFunc) Stage(stage Stage, in, out int, elapsed time.Duration) {
	f(stage, in, out, elapsed)
}

// SlogTracer logs the stages at debug level.
type SlogTracer struct {
	Logger *slog.Logger
	Attrs  []slog.Attr // e.g. the track name
}

func (s SlogTracer) Stage(stage Stage, in, out int, elapsed time.Duration) {
	if s.Logger == nil {
		return
	}
	attrs := append([]slog.Attr{
		slog.String("stage", string(stage)),
		slog.Int("in", in),
		slog.Int("out", out),
		slog.Duration("elapsed", elapsed),
	}, s.Attrs...)
	s.Logger.LogAttrs(context.Background(), slog.LevelDebug, "pitch stage", attrs...)
}

type nopTracer struct{}

func (nopTracer) Stage(Stage, int, int, time.Duration) {}
