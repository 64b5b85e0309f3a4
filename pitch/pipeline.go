// Package pitch turns the raw pitch deviation points of an imported track
// into a host-native curve: the points are merged, resampled, optionally
// overlaid with vibrato, pruned and finally rescaled to host ticks.
package pitch

import (
	"fmt"
	"math"
	"time"

	"github.com/viterin/vek"
	"golang.org/x/exp/slices"

	"github.com/voxport/voxport"
	"github.com/voxport/voxport/points"
	"github.com/voxport/voxport/vibrato"
)

// DefaultSamplingInterval is the resampling interval in external ticks: a
// hundredth of a quarter note in a 1470000 ticks per quarter unit.
const DefaultSamplingInterval = 14700

// valueScale converts the raw values (cents) into semitones and back.
const valueScale = 100

// OverlayMode decides which notes get their vibrato added to the curve.
type OverlayMode string

const (
	// OverlayAuto applies the vibrato of a note if the note says so, or,
	// when the note does not say, if any vibrato parameter is set on the
	// note or on the voice.
	OverlayAuto OverlayMode = "auto"
	// OverlayAlways applies the vibrato of every note.
	OverlayAlways OverlayMode = "always"
	// OverlayNever leaves the carrier curve as is.
	OverlayNever OverlayMode = "never"
)

type (
	// Pipeline holds the settings of the curve transformation. The zero
	// value is usable: unset fields take their defaults. A Pipeline holds no
	// state between calls and can be shared between goroutines.
	Pipeline struct {
		// SamplingInterval is the resampling interval, in external ticks.
		SamplingInterval int64
		// Epsilon is the prune threshold, in semitones.
		Epsilon float64
		// TickRatio is the number of external ticks per host tick.
		TickRatio float64
		Overlay   OverlayMode
		Tracer    Tracer
	}

	// Input is everything the pipeline needs to transform the pitch curve of
	// a single track. Raw and Envelope are flat arrays of alternating
	// (tick, value) pairs in external ticks; Raw values are in cents.
	Input struct {
		Raw          []float64
		Mode         points.Mode
		Notes        []vibrato.Note
		Tempo        *voxport.TempoMap
		Envelope     []float64
		EnvelopeMode points.Mode
		Voice        vibrato.Params
	}
)

func (p *Pipeline) interval() int64 {
	if p.SamplingInterval <= 0 {
		return DefaultSamplingInterval
	}
	return p.SamplingInterval
}

func (p *Pipeline) epsilon() float64 {
	if p.Epsilon <= 0 {
		return points.DefaultEpsilon
	}
	return p.Epsilon
}

func (p *Pipeline) ratio() float64 {
	if p.TickRatio <= 0 {
		return 1
	}
	return p.TickRatio
}

func (p *Pipeline) tracer() Tracer {
	if p.Tracer == nil {
		return nopTracer{}
	}
	return p.Tracer
}

// Transform runs the whole pipeline and returns the curve in host ticks and
// cents, sorted by tick with unique ticks. An empty or malformed (odd length)
// raw array yields no points and no error; non-finite numbers in the raw
// points or in the envelope yield an error wrapping
// voxport.ErrInvalidCurveData.
func (p *Pipeline) Transform(in Input) ([]voxport.CurvePoint, error) {
	carrier, err := p.Carrier(in)
	if err != nil || len(carrier) == 0 {
		return nil, err
	}
	tr := p.tracer()
	if p.Overlay != OverlayNever && in.Tempo != nil && len(in.Notes) > 0 {
		env, err := p.envelope(in)
		if err != nil {
			return nil, err
		}
		start, n := time.Now(), len(carrier)
		carrier = p.overlay(carrier, in, env)
		tr.Stage(StageOverlay, n, len(carrier), time.Since(start))
	}
	start, n := time.Now(), len(carrier)
	carrier = points.Prune(carrier, p.epsilon())
	tr.Stage(StagePrune, n, len(carrier), time.Since(start))
	start, n = time.Now(), len(carrier)
	ret := p.rescale(carrier)
	tr.Stage(StageRescale, n, len(ret), time.Since(start))
	return ret, nil
}

// Carrier runs the first stages of the pipeline: the raw points are
// normalized to semitones, merged and resampled. The result is in external
// ticks.
func (p *Pipeline) Carrier(in Input) ([]points.Point, error) {
	tr := p.tracer()
	start := time.Now()
	raw, err := points.FromFlat(in.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: pitch: %v", voxport.ErrInvalidCurveData, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	raw = points.WithValues(raw, vek.DivNumber(points.Values(raw), valueScale))
	tr.Stage(StageNormalize, len(in.Raw), len(raw), time.Since(start))
	start = time.Now()
	merged := points.Merge(raw)
	tr.Stage(StageMerge, len(raw), len(merged), time.Since(start))
	start = time.Now()
	dense := points.Interpolate(merged, in.Mode, p.interval())
	tr.Stage(StageInterpolate, len(merged), len(dense), time.Since(start))
	return dense, nil
}

func (p *Pipeline) envelope(in Input) ([]points.Point, error) {
	env, err := points.FromFlat(in.Envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: vibrato envelope: %v", voxport.ErrInvalidCurveData, err)
	}
	return points.Interpolate(points.Merge(env), in.EnvelopeMode, p.interval()), nil
}

// overlay adds the vibrato of the enabled notes to the carrier. Each sample
// gets the vibrato of at most one note: the latest starting note containing
// the sample.
func (p *Pipeline) overlay(carrier []points.Point, in Input, env []points.Point) []points.Point {
	synth := vibrato.NewSynthesizer(in.Tempo, in.Voice, env)
	var (
		voices []*vibrato.Voice
		starts []int64
		reach  []int64 // furthest end tick of voices[0..i]
	)
	notes := slices.Clone(in.Notes)
	slices.SortStableFunc(notes, func(a, b vibrato.Note) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	for _, n := range notes {
		if n.Length <= 0 {
			continue
		}
		if p.Overlay != OverlayAlways && !synth.Enabled(n) {
			continue
		}
		end := n.Start + n.Length
		if k := len(reach); k > 0 {
			end = max(end, reach[k-1])
		}
		voices = append(voices, synth.Voice(n))
		starts = append(starts, n.Start)
		reach = append(reach, end)
	}
	if len(voices) == 0 {
		return carrier
	}
	ret := make([]points.Point, len(carrier))
	for k, pt := range carrier {
		ret[k] = pt
		i, found := slices.BinarySearch(starts, pt.Tick)
		if found {
			for i+1 < len(starts) && starts[i+1] == pt.Tick {
				i++
			}
		} else {
			i--
		}
		for ; i >= 0 && reach[i] > pt.Tick; i-- {
			if voices[i].Contains(pt.Tick) {
				ret[k].Value += voices[i].At(pt.Tick)
				break
			}
		}
	}
	return ret
}

func (p *Pipeline) rescale(pts []points.Point) []voxport.CurvePoint {
	ratio := p.ratio()
	values := vek.MulNumber(points.Values(pts), valueScale)
	ret := make([]voxport.CurvePoint, 0, len(pts))
	for i, pt := range pts {
		cp := voxport.CurvePoint{
			Tick:  int(float64(pt.Tick) / ratio),
			Value: int(math.Round(values[i])),
		}
		if n := len(ret); n > 0 && ret[n-1].Tick == cp.Tick {
			ret[n-1] = cp
			continue
		}
		ret = append(ret, cp)
	}
	return ret
}
