package vibrato

import (
	"math"

	"github.com/voxport/voxport"
	"github.com/voxport/voxport/points"
)

type (
	// Note is the part of a note that the vibrato needs: its range in ticks
	// (in the same unit as the TempoMap), its own parameters and an optional
	// switch. If Enabled is nil, the vibrato is enabled when any parameter is
	// set on the note or on the voice.
	Note struct {
		Start   int64
		Length  int64
		Params  Params
		Enabled *bool
	}

	// Synthesizer computes vibrato contributions for the notes of one track.
	// It holds no state besides its inputs and can be shared between
	// goroutines.
	Synthesizer struct {
		tempo    *voxport.TempoMap
		voice    Params
		envelope []points.Point
	}

	// Voice is the vibrato of a single note, with the parameters resolved and
	// the note boundaries converted to seconds.
	Voice struct {
		Params   Resolved
		start    float64 // seconds where the oscillation starts
		end      float64 // seconds where the note ends
		from, to int64
		synth    *Synthesizer
	}
)

// NewSynthesizer returns a synthesizer using the tempo map to convert ticks to
// seconds, the voice level parameters as the second fallback tier and an
// envelope curve scaling the depth. The envelope should be sorted with
// unique ticks, on the same tick grid as the carrier; an empty envelope
// scales by 1.
func NewSynthesizer(tempo *voxport.TempoMap, voice Params, envelope []points.Point) *Synthesizer {
	return &Synthesizer{tempo: tempo, voice: voice, envelope: envelope}
}

// Enabled reports if the vibrato of the note should be applied.
func (s *Synthesizer) Enabled(n Note) bool {
	if n.Enabled != nil {
		return *n.Enabled
	}
	return n.Params.Any() || s.voice.Any()
}

// Voice resolves the parameters of a note and precomputes its time range.
func (s *Synthesizer) Voice(n Note) *Voice {
	p := Resolve(n.Params, s.voice)
	noteStart := s.tempo.TickToSeconds(n.Start)
	return &Voice{
		Params: p,
		start:  noteStart + p.Start,
		end:    s.tempo.TickToSeconds(n.Start + n.Length),
		from:   n.Start,
		to:     n.Start + n.Length,
		synth:  s,
	}
}

// Contribution returns the vibrato of the note at tick. It is 0 outside the
// note.
func (s *Synthesizer) Contribution(n Note, tick int64) float64 {
	return s.Voice(n).At(tick)
}

// EnvelopeAt returns the envelope scale at tick.
func (s *Synthesizer) EnvelopeAt(tick int64) float64 {
	if v, ok := points.At(s.envelope, tick); ok {
		return v
	}
	return 1
}

// Contains reports if tick is inside the note.
func (v *Voice) Contains(tick int64) bool {
	return tick >= v.from && tick < v.to
}

// At returns the pitch deviation in semitones that the vibrato adds at tick.
func (v *Voice) At(tick int64) float64 {
	if !v.Contains(tick) {
		return 0
	}
	t := v.synth.tempo.TickToSeconds(tick)
	rel := t - v.start
	if rel < 0 || t >= v.end {
		return 0
	}
	ramp := 1.0
	if v.Params.EaseIn > 0 && rel < v.Params.EaseIn {
		ramp = rel / v.Params.EaseIn
	}
	if remaining := v.end - t; v.Params.EaseOut > 0 && remaining < v.Params.EaseOut {
		ramp = min(ramp, remaining/v.Params.EaseOut)
	}
	return v.Params.Depth * ramp * v.synth.EnvelopeAt(tick) *
		math.Sin(2*math.Pi*v.Params.Frequency*rel+v.Params.Phase)
}
