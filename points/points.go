// Package points implements the transformations of point streams: ordered
// sequences of (tick, value) control points, e.g. the pitch deviation curve
// of an imported track.
package points

import (
	"fmt"
	"math"

	"github.com/viterin/vek"
	"golang.org/x/exp/slices"
)

// DefaultEpsilon is the threshold below which Prune considers two values
// equal.
const DefaultEpsilon = 1e-5

// MaxSegmentSamples bounds the number of samples Interpolate inserts between
// two points; longer segments get a coarser interval.
const MaxSegmentSamples = 500

type (
	// Point is a single control point. Tick is in whatever unit the producer
	// uses; the functions of this package never rescale it.
	Point struct {
		Tick  int64
		Value float64
	}

	// Mode selects the interpolation kernel. ModeLinear interpolates
	// linearly; any other mode uses the cosine ease-in-out kernel.
	Mode string
)

const (
	ModeLinear Mode = "linear"
	ModeCosine Mode = "cosine"
)

// Kernel returns the interpolation kernel of the mode: a function mapping the
// normalized position t in [0, 1] within a segment to the normalized value.
func (m Mode) Kernel() func(t float64) float64 {
	if m == ModeLinear {
		return func(t float64) float64 { return t }
	}
	return func(t float64) float64 { return 0.5 - 0.5*math.Cos(math.Pi*t) }
}

// FromFlat interprets a flat array as alternating (tick, value) pairs. Ticks
// are truncated to integers. A flat array with odd length is malformed and
// yields no points. Non-finite numbers yield an error.
func FromFlat(flat []float64) ([]Point, error) {
	for i, v := range flat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite number %v at index %d", v, i)
		}
	}
	if len(flat)%2 != 0 {
		return nil, nil
	}
	ret := make([]Point, len(flat)/2)
	for i := range ret {
		ret[i] = Point{Tick: int64(flat[2*i]), Value: flat[2*i+1]}
	}
	return ret, nil
}

// Values returns the values of the points in a new slice.
func Values(points []Point) []float64 {
	ret := make([]float64, len(points))
	for i, p := range points {
		ret[i] = p.Value
	}
	return ret
}

// WithValues returns a copy of points with the values replaced by values,
// which should have the same length.
func WithValues(points []Point, values []float64) []Point {
	ret := make([]Point, len(points))
	for i, p := range points {
		ret[i] = Point{Tick: p.Tick, Value: values[i]}
	}
	return ret
}

// Merge replaces every group of points sharing a tick with a single point
// having the mean value of the group. The result is sorted by tick and has
// unique ticks.
func Merge(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b Point) int {
		switch {
		case a.Tick < b.Tick:
			return -1
		case a.Tick > b.Tick:
			return 1
		}
		return 0
	})
	ret := make([]Point, 0, len(sorted))
	values := make([]float64, 0, 4)
	for i := 0; i < len(sorted); {
		j := i
		values = values[:0]
		for ; j < len(sorted) && sorted[j].Tick == sorted[i].Tick; j++ {
			values = append(values, sorted[j].Value)
		}
		value := values[0]
		if len(values) > 1 {
			value = vek.Mean(values)
		}
		ret = append(ret, Point{Tick: sorted[i].Tick, Value: value})
		i = j
	}
	return ret
}

// Interpolate resamples the points: the original points are kept, and
// between every two consecutive points, samples are inserted at the ticks
// p[i].Tick + k*interval that lie strictly between them. Segments that would
// need more than MaxSegmentSamples samples use the interval
// ceil(Δtick/MaxSegmentSamples) instead. Pairs that do not advance in time
// get no samples. Fewer than two points are returned unchanged.
func Interpolate(points []Point, mode Mode, interval int64) []Point {
	if len(points) < 2 {
		return points
	}
	interval = max(interval, 1)
	kernel := mode.Kernel()
	ret := make([]Point, 0, len(points))
	ret = append(ret, points[0])
	for i := 0; i+1 < len(points); i++ {
		p0, p1 := points[i], points[i+1]
		ret = appendSegment(ret, p0, p1, kernel, interval)
		ret = append(ret, p1)
	}
	return ret
}

func appendSegment(dst []Point, p0, p1 Point, kernel func(float64) float64, interval int64) []Point {
	dt := p1.Tick - p0.Tick
	if dt <= 0 {
		return dst
	}
	step := interval
	// (dt-1)/step samples lie strictly inside the segment
	if (dt-1)/step > MaxSegmentSamples {
		step = max((dt+MaxSegmentSamples-1)/MaxSegmentSamples, 1)
	}
	dv := p1.Value - p0.Value
	for t := p0.Tick + step; t < p1.Tick; t += step {
		x := float64(t-p0.Tick) / float64(dt)
		dst = append(dst, Point{Tick: t, Value: p0.Value + dv*kernel(x)})
	}
	return dst
}

// Prune drops redundant points: a point is kept if it is the first one or if
// its value differs by more than epsilon from the previously kept point.
// Prune is idempotent.
func Prune(points []Point, epsilon float64) []Point {
	if len(points) == 0 {
		return nil
	}
	ret := make([]Point, 0, len(points))
	ret = append(ret, points[0])
	last := points[0].Value
	for _, p := range points[1:] {
		if math.Abs(p.Value-last) > epsilon {
			ret = append(ret, p)
			last = p.Value
		}
	}
	return ret
}

// At samples the points at tick, interpolating linearly between the
// bracketing points and holding the edge values outside them. The points
// should be sorted with unique ticks. ok is false if there are no points.
func At(points []Point, tick int64) (value float64, ok bool) {
	if len(points) == 0 {
		return 0, false
	}
	i, found := slices.BinarySearchFunc(points, tick, func(p Point, tick int64) int {
		switch {
		case p.Tick < tick:
			return -1
		case p.Tick > tick:
			return 1
		}
		return 0
	})
	switch {
	case found:
		return points[i].Value, true
	case i == 0:
		return points[0].Value, true
	case i == len(points):
		return points[len(points)-1].Value, true
	}
	p0, p1 := points[i-1], points[i]
	t := float64(tick-p0.Tick) / float64(p1.Tick-p0.Tick)
	return p0.Value + t*(p1.Value-p0.Value), true
}
