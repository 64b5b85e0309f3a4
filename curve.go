package voxport

import (
	"math"

	"golang.org/x/exp/slices"
)

type (
	// CurvePoint is a single breakpoint of a Curve, in host ticks.
	CurvePoint struct {
		Tick  int
		Value int
	}

	// Curve is a sparse breakpoint curve, e.g. the pitch deviation of a voice
	// part. The breakpoints are kept sorted by tick, with at most one
	// breakpoint per tick. Between two adjacent breakpoints the curve is
	// linear; outside the breakpoints it holds the nearest edge value.
	//
	// Curve does not clamp: whoever writes values is expected to clamp them
	// to [Min, Max] of the expression first, see ExpressionDescriptor.Clamp.
	Curve struct {
		Abbr string
		Min  int
		Max  int
		Xs   []int `yaml:",flow"`
		Ys   []int `yaml:",flow"`
	}
)

// NewCurve returns an empty curve for the given expression.
func NewCurve(desc ExpressionDescriptor) *Curve {
	return &Curve{Abbr: desc.Abbr, Min: desc.Min, Max: desc.Max}
}

// Len returns the number of breakpoints.
func (c *Curve) Len() int {
	return len(c.Xs)
}

// IsEmpty reports if the curve has no breakpoints.
func (c *Curve) IsEmpty() bool {
	return len(c.Xs) == 0
}

// Points returns the breakpoints in increasing tick order.
func (c *Curve) Points() []CurvePoint {
	ret := make([]CurvePoint, len(c.Xs))
	for i := range c.Xs {
		ret[i] = CurvePoint{Tick: c.Xs[i], Value: c.Ys[i]}
	}
	return ret
}

// Copy makes a deep copy of a Curve.
func (c *Curve) Copy() *Curve {
	xs := make([]int, len(c.Xs))
	copy(xs, c.Xs)
	ys := make([]int, len(c.Ys))
	copy(ys, c.Ys)
	return &Curve{Abbr: c.Abbr, Min: c.Min, Max: c.Max, Xs: xs, Ys: ys}
}

// Set writes the breakpoint (tick, value). The anchor is the point the
// segment ending at tick starts from: it is inserted if there is no
// breakpoint at anchorTick yet, and every breakpoint strictly between the
// anchor and tick is removed, so that the curve is linear over the span.
//
// Callers writing a polyline should write the points in increasing tick
// order, anchoring each point to the previous one; the first point is
// anchored to itself.
func (c *Curve) Set(tick, value, anchorTick, anchorValue int) {
	if anchorTick != tick {
		if _, found := c.search(anchorTick); !found {
			c.insert(anchorTick, anchorValue)
		}
		lo, hi := min(anchorTick, tick), max(anchorTick, tick)
		from, _ := c.search(lo + 1)
		to, _ := c.search(hi)
		if from < to {
			c.Xs = slices.Delete(c.Xs, from, to)
			c.Ys = slices.Delete(c.Ys, from, to)
		}
	}
	c.insert(tick, value)
}

func (c *Curve) search(tick int) (int, bool) {
	return slices.BinarySearch(c.Xs, tick)
}

func (c *Curve) insert(tick, value int) {
	i, found := c.search(tick)
	if found {
		c.Ys[i] = value
		return
	}
	c.Xs = slices.Insert(c.Xs, i, tick)
	c.Ys = slices.Insert(c.Ys, i, value)
}

// Query returns the value of the curve at tick, interpolating linearly
// between the bracketing breakpoints and rounding to the nearest integer. ok
// is false if the curve has no breakpoints.
func (c *Curve) Query(tick int) (value int, ok bool) {
	if len(c.Xs) == 0 {
		return 0, false
	}
	i, found := c.search(tick)
	switch {
	case found:
		return c.Ys[i], true
	case i == 0:
		return c.Ys[0], true
	case i == len(c.Xs):
		return c.Ys[len(c.Ys)-1], true
	}
	x0, x1 := c.Xs[i-1], c.Xs[i]
	y0, y1 := c.Ys[i-1], c.Ys[i]
	t := float64(tick-x0) / float64(x1-x0)
	return int(math.Round(float64(y0) + t*float64(y1-y0))), true
}

// ValueOr is like Query, but returns def on an empty curve.
func (c *Curve) ValueOr(tick, def int) int {
	if v, ok := c.Query(tick); ok {
		return v
	}
	return def
}
