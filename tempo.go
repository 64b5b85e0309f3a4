package voxport

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

const (
	// DefaultBPM is used when a project has no usable tempo information.
	DefaultBPM = 120.0

	// DefaultResolution is the number of host ticks per quarter note.
	DefaultResolution = 480
)

type (
	// Tempo is a point where the tempo changes. Position is given in the tick
	// unit of whoever owns the tempo list: the external unit when building a
	// TempoMap from an imported file, host ticks when stored in a Project.
	Tempo struct {
		Position int64   `yaml:"position"`
		BPM      float64 `yaml:"bpm"`
	}

	// TempoMap converts between tick positions and elapsed seconds. The map
	// is piecewise constant: the tempo active at tick t is the last
	// breakpoint whose Position <= t. A TempoMap is immutable after
	// construction and safe for concurrent use.
	TempoMap struct {
		tempos          []Tempo
		starts          []float64 // elapsed seconds at each breakpoint
		ticksPerQuarter float64
	}
)

// NewTempoMap builds a TempoMap from a list of tempo breakpoints, given in a
// unit of ticksPerQuarter ticks per quarter note. The breakpoints are sorted;
// if several share a position, the last one wins. If the first breakpoint is
// not at tick 0, one is synthesized at 0 with the tempo of the first
// breakpoint.
//
// If the list is empty or contains a non-positive BPM or a negative position,
// NewTempoMap returns a map with the single breakpoint {0, 120} together with
// an error wrapping ErrInvalidTempoData; the returned map is always usable.
func NewTempoMap(tempos []Tempo, ticksPerQuarter int64) (*TempoMap, error) {
	if ticksPerQuarter <= 0 {
		return DefaultTempoMap(DefaultResolution), fmt.Errorf("%w: ticks per quarter must be positive, got %v", ErrInvalidTempoData, ticksPerQuarter)
	}
	if len(tempos) == 0 {
		return DefaultTempoMap(ticksPerQuarter), fmt.Errorf("%w: no tempos", ErrInvalidTempoData)
	}
	sorted := make([]Tempo, len(tempos))
	copy(sorted, tempos)
	slices.SortStableFunc(sorted, func(a, b Tempo) int {
		switch {
		case a.Position < b.Position:
			return -1
		case a.Position > b.Position:
			return 1
		}
		return 0
	})
	deduped := sorted[:0]
	for _, t := range sorted {
		if t.Position < 0 {
			return DefaultTempoMap(ticksPerQuarter), fmt.Errorf("%w: negative tempo position %v", ErrInvalidTempoData, t.Position)
		}
		if !(t.BPM > 0) || math.IsInf(t.BPM, 0) {
			return DefaultTempoMap(ticksPerQuarter), fmt.Errorf("%w: bpm %v at position %v", ErrInvalidTempoData, t.BPM, t.Position)
		}
		if n := len(deduped); n > 0 && deduped[n-1].Position == t.Position {
			deduped[n-1] = t
			continue
		}
		deduped = append(deduped, t)
	}
	if deduped[0].Position > 0 {
		deduped = append([]Tempo{{Position: 0, BPM: deduped[0].BPM}}, deduped...)
	}
	return newTempoMap(deduped, ticksPerQuarter), nil
}

// DefaultTempoMap returns a map with the single breakpoint {0, 120}.
func DefaultTempoMap(ticksPerQuarter int64) *TempoMap {
	return newTempoMap([]Tempo{{Position: 0, BPM: DefaultBPM}}, ticksPerQuarter)
}

func newTempoMap(tempos []Tempo, ticksPerQuarter int64) *TempoMap {
	m := &TempoMap{
		tempos:          tempos,
		starts:          make([]float64, len(tempos)),
		ticksPerQuarter: float64(ticksPerQuarter),
	}
	for i := 1; i < len(tempos); i++ {
		prev := tempos[i-1]
		m.starts[i] = m.starts[i-1] + m.secondsPerTick(prev.BPM)*float64(tempos[i].Position-prev.Position)
	}
	return m
}

func (m *TempoMap) secondsPerTick(bpm float64) float64 {
	return 60 / bpm / m.ticksPerQuarter
}

// Tempos returns a copy of the breakpoints of the map.
func (m *TempoMap) Tempos() []Tempo {
	ret := make([]Tempo, len(m.tempos))
	copy(ret, m.tempos)
	return ret
}

// TicksPerQuarter returns the tick resolution the map was built with.
func (m *TempoMap) TicksPerQuarter() int64 {
	return int64(m.ticksPerQuarter)
}

func (m *TempoMap) activeIndex(tick int64) int {
	i, found := slices.BinarySearchFunc(m.tempos, tick, func(t Tempo, tick int64) int {
		switch {
		case t.Position < tick:
			return -1
		case t.Position > tick:
			return 1
		}
		return 0
	})
	if found {
		return i
	}
	if i == 0 {
		return 0 // ticks before 0 use the first tempo
	}
	return i - 1
}

// Active returns the breakpoint in effect at tick.
func (m *TempoMap) Active(tick int64) Tempo {
	return m.tempos[m.activeIndex(tick)]
}

// TickToSeconds returns the seconds elapsed from tick 0 to tick.
func (m *TempoMap) TickToSeconds(tick int64) float64 {
	i := m.activeIndex(tick)
	t := m.tempos[i]
	return m.starts[i] + m.secondsPerTick(t.BPM)*float64(tick-t.Position)
}

// DurationSeconds returns the seconds between two ticks, spanning as many
// tempo changes as necessary. The result is negative if to < from.
func (m *TempoMap) DurationSeconds(from, to int64) float64 {
	return m.TickToSeconds(to) - m.TickToSeconds(from)
}

// SecondsToTick returns the tick reached after the given number of seconds
// from tick 0, rounded to the nearest tick. Seconds beyond the last
// breakpoint are extrapolated with the last tempo, saturating at
// math.MaxInt64; negative seconds map to tick 0.
func (m *TempoMap) SecondsToTick(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	remaining := seconds
	for i := 1; i < len(m.tempos); i++ {
		prev := m.tempos[i-1]
		segment := m.secondsPerTick(prev.BPM) * float64(m.tempos[i].Position-prev.Position)
		if remaining < segment {
			return saturatedAdd(prev.Position, remaining/m.secondsPerTick(prev.BPM))
		}
		remaining -= segment
	}
	last := m.tempos[len(m.tempos)-1]
	return saturatedAdd(last.Position, remaining/m.secondsPerTick(last.BPM))
}

// saturatedAdd returns pos plus the rounded ticks, saturating at
// math.MaxInt64.
func saturatedAdd(pos int64, ticks float64) int64 {
	ticks = math.Round(ticks)
	if !(ticks < math.MaxInt64) {
		return math.MaxInt64
	}
	if t := int64(ticks); t <= math.MaxInt64-pos {
		return pos + t
	}
	return math.MaxInt64
}
