// Package importer converts decoded source projects into host projects: it
// rebuilds the musical time in host ticks and runs the pitch pipeline for
// every track.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/voxport/voxport"
	"github.com/voxport/voxport/config"
	"github.com/voxport/voxport/format"
	"github.com/voxport/voxport/format/ccs"
	"github.com/voxport/voxport/format/svp"
	"github.com/voxport/voxport/pitch"
)

type (
	Importer struct {
		cfg         config.Config
		logger      *slog.Logger
		expressions []voxport.ExpressionDescriptor
	}

	Option func(*Importer)

	// Result is an imported project, with the problems that did not stop the
	// import and some per track statistics.
	Result struct {
		Project  *voxport.Project
		Source   string
		Warnings []Warning
		Tracks   []TrackStats
	}

	TrackStats struct {
		Name        string
		Notes       int
		PitchPoints int // raw points in the source
		CurvePoints int // breakpoints of the pitd curve
	}

	// Warning is a recoverable problem: the curve (or the tempo table, when
	// Curve is empty) was skipped or replaced with a default.
	Warning struct {
		Track string
		Curve string
		Err   error
	}

	trackResult struct {
		track    voxport.Track
		part     *voxport.VoicePart
		stats    TrackStats
		warnings []Warning
	}
)

func (w Warning) Error() string {
	switch {
	case w.Track == "":
		return w.Err.Error()
	case w.Curve == "":
		return fmt.Sprintf("track %q: %v", w.Track, w.Err)
	}
	return fmt.Sprintf("track %q, curve %s: %v", w.Track, w.Curve, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// WithLogger sets the logger for the warnings and the pipeline stages. By
// default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) {
		im.logger = logger
	}
}

// WithExpressions replaces the expressions registered in the imported
// projects. Curves whose expression is missing are dropped with a warning.
func WithExpressions(descs ...voxport.ExpressionDescriptor) Option {
	return func(im *Importer) {
		im.expressions = slices.Clone(descs)
		if im.expressions == nil {
			im.expressions = []voxport.ExpressionDescriptor{}
		}
	}
}

func New(cfg config.Config, opts ...Option) *Importer {
	im := &Importer{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// DecoderFor picks the decoder by the file extension.
func DecoderFor(path string) (format.Decoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svp", ".json":
		return svp.Decoder{}, nil
	case ".ccs":
		return ccs.Decoder{}, nil
	}
	return nil, fmt.Errorf("%w: %v", format.ErrUnknownFormat, path)
}

// ImportFile decodes and imports the file at path. The project is named
// after the file.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	dec, err := DecoderFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", path, err)
	}
	defer f.Close()
	src, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", path, err)
	}
	if src.Name == "" {
		_, name := filepath.Split(path)
		src.Name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	res, err := im.Import(ctx, src)
	if err != nil {
		return nil, err
	}
	res.Source = path
	return res, nil
}

// Import converts src into a host project. The tracks are converted in
// parallel; the project is assembled in source order once all of them are
// done, so the result does not depend on the scheduling. The only error is
// the cancellation of ctx: everything else ends up in Result.Warnings.
func (im *Importer) Import(ctx context.Context, src *format.Project) (*Result, error) {
	tpq := src.TicksPerQuarter
	if tpq <= 0 {
		tpq = im.cfg.ExternalTicksPerQuarter
	}
	res := &Result{}
	tempo, err := voxport.NewTempoMap(src.Tempos, tpq)
	if err != nil {
		res.warn(im.logger, Warning{Err: err})
	}
	ratio := float64(tpq) / float64(im.cfg.Resolution)
	project := voxport.NewProject()
	project.Name = src.Name
	project.Resolution = im.cfg.Resolution
	if im.expressions != nil {
		project.Expressions = nil
		for _, d := range im.expressions {
			project.RegisterExpression(d)
		}
	}
	project.Tempos = project.Tempos[:0]
	for _, t := range tempo.Tempos() {
		pos := int64(float64(t.Position) / ratio)
		if n := len(project.Tempos); n > 0 && project.Tempos[n-1].Position == pos {
			project.Tempos[n-1].BPM = t.BPM
			continue
		}
		project.Tempos = append(project.Tempos, voxport.Tempo{Position: pos, BPM: t.BPM})
	}
	project.TimeSignatures = timeSignatures(src.TimeSignatures)
	pitd, pitdErr := project.Expression(voxport.PITD)

	results := make([]trackResult, len(src.Tracks))
	g, gctx := errgroup.WithContext(ctx)
	workers := im.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i := range src.Tracks {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := im.convertTrack(&src.Tracks[i], tempo, tpq, ratio)
			if r.part != nil && len(r.pitch) > 0 {
				if pitdErr != nil {
					r.warnings = append(r.warnings, Warning{Track: r.track.Name, Curve: voxport.PITD, Err: pitdErr})
				} else {
					writeCurve(r.part.Curve(pitd), pitd, r.pitch)
					r.stats.CurvePoints = len(r.part.FindCurve(voxport.PITD).Xs)
				}
			}
			results[i] = r.trackResult
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("import canceled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("import canceled: %w", err)
	}

	for _, r := range results {
		trackNo := len(project.Tracks)
		r.track.TrackNo = trackNo
		project.Tracks = append(project.Tracks, r.track)
		if r.part != nil {
			r.part.TrackNo = trackNo
			project.Parts = append(project.Parts, r.part)
		}
		for _, w := range r.warnings {
			res.warn(im.logger, w)
		}
		res.Tracks = append(res.Tracks, r.stats)
	}
	res.Project = project
	im.logger.Info("imported project", "name", project.Name, "tracks", len(project.Tracks), "parts", len(project.Parts), "warnings", len(res.Warnings))
	return res, nil
}

func (r *Result) warn(logger *slog.Logger, w Warning) {
	logger.Warn("import warning", "track", w.Track, "curve", w.Curve, "err", w.Err)
	r.Warnings = append(r.Warnings, w)
}

type convertedTrack struct {
	trackResult
	pitch []voxport.CurvePoint
}

func (im *Importer) convertTrack(t *format.Track, tempo *voxport.TempoMap, tpq int64, ratio float64) convertedTrack {
	ret := convertedTrack{trackResult: trackResult{
		track: voxport.Track{Name: t.Name, Mute: t.Mute},
		stats: TrackStats{Name: t.Name, Notes: len(t.Notes), PitchPoints: len(t.PitchDelta.Points) / 2},
	}}
	part := &voxport.VoicePart{Name: t.Name}
	for _, n := range t.Notes {
		if n.Onset < 0 || n.Duration <= 0 {
			continue
		}
		pos := int(float64(n.Onset) / ratio)
		end := int(float64(n.End()) / ratio)
		if end <= pos {
			end = pos + 1
		}
		part.Notes = append(part.Notes, voxport.Note{Position: pos, Duration: end - pos, Tone: n.Key, Lyric: n.Lyric})
	}
	if len(part.Notes) == 0 {
		return ret
	}
	slices.SortStableFunc(part.Notes, func(a, b voxport.Note) int { return a.Position - b.Position })
	part.UpdateDuration()
	ret.part = part

	p := pitch.Pipeline{
		SamplingInterval: im.cfg.SamplingIntervalFor(tpq),
		Epsilon:          im.cfg.Epsilon,
		TickRatio:        ratio,
		Overlay:          im.cfg.Overlay,
		Tracer:           pitch.SlogTracer{Logger: im.logger, Attrs: []slog.Attr{slog.String("track", t.Name)}},
	}
	pts, err := p.Transform(pitch.Input{
		Raw:          t.PitchDelta.Points,
		Mode:         t.PitchDelta.Mode,
		Notes:        t.VibratoNotes(),
		Tempo:        tempo,
		Envelope:     t.VibratoEnv.Points,
		EnvelopeMode: t.VibratoEnv.Mode,
		Voice:        t.VoiceVibrato,
	})
	if err != nil {
		ret.warnings = append(ret.warnings, Warning{Track: t.Name, Curve: voxport.PITD, Err: err})
		return ret
	}
	ret.pitch = pts
	return ret
}

// writeCurve writes the points as a polyline, each point anchored to the
// previous one.
func writeCurve(c *voxport.Curve, desc voxport.ExpressionDescriptor, pts []voxport.CurvePoint) {
	prev := voxport.CurvePoint{Tick: pts[0].Tick, Value: desc.Clamp(pts[0].Value)}
	for _, pt := range pts {
		v := desc.Clamp(pt.Value)
		c.Set(pt.Tick, v, prev.Tick, prev.Value)
		prev = voxport.CurvePoint{Tick: pt.Tick, Value: v}
	}
}

// timeSignatures sorts the signatures by bar, dropping invalid ones, and
// makes sure bar 0 has one. Of several signatures on a bar the last one wins.
func timeSignatures(src []voxport.TimeSignature) []voxport.TimeSignature {
	var ret []voxport.TimeSignature
	for _, s := range src {
		if s.BarPosition < 0 || s.BeatPerBar <= 0 || s.BeatUnit <= 0 || s.BeatUnit&(s.BeatUnit-1) != 0 {
			continue
		}
		ret = append(ret, s)
	}
	slices.SortStableFunc(ret, func(a, b voxport.TimeSignature) int { return a.BarPosition - b.BarPosition })
	deduped := ret[:0]
	for _, s := range ret {
		if n := len(deduped); n > 0 && deduped[n-1].BarPosition == s.BarPosition {
			deduped[n-1] = s
			continue
		}
		deduped = append(deduped, s)
	}
	ret = deduped
	if len(ret) == 0 || ret[0].BarPosition > 0 {
		ret = append([]voxport.TimeSignature{{BarPosition: 0, BeatPerBar: 4, BeatUnit: 4}}, ret...)
	}
	return ret
}
