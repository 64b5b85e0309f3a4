package voxport

import (
	"golang.org/x/exp/slices"
)

type (
	// Project is the host-native representation of an imported file: the
	// tempo and time signature tables, the expressions known to the project,
	// and the tracks with their voice parts. All positions are in host ticks,
	// Resolution ticks per quarter note.
	Project struct {
		Name           string
		Resolution     int
		Tempos         []Tempo
		TimeSignatures []TimeSignature
		Expressions    map[string]ExpressionDescriptor
		Tracks         []Track
		Parts          []*VoicePart
	}

	// TimeSignature starts at the bar BarPosition (counted from 0) and lasts
	// until the next time signature.
	TimeSignature struct {
		BarPosition int `yaml:"bar_position"`
		BeatPerBar  int `yaml:"beat_per_bar"`
		BeatUnit    int `yaml:"beat_unit"`
	}

	// VoicePart is a block of notes on a track. Note positions are relative
	// to the part Position; so are the curve ticks. Curves are created
	// lazily, one per expression abbreviation, see Curve.
	VoicePart struct {
		TrackNo  int
		Name     string
		Position int
		Duration int
		Notes    []Note
		Curves   []*Curve
	}

	// Note is a single sung note. Tone is a MIDI note number.
	Note struct {
		Position int    `yaml:"position"`
		Duration int    `yaml:"duration"`
		Tone     int    `yaml:"tone"`
		Lyric    string `yaml:"lyric"`
	}
)

// NewProject returns an empty project with the default resolution, a single
// 120 BPM tempo, 4/4 time and the default expressions registered.
func NewProject() *Project {
	p := &Project{
		Resolution:     DefaultResolution,
		Tempos:         []Tempo{{Position: 0, BPM: DefaultBPM}},
		TimeSignatures: []TimeSignature{{BarPosition: 0, BeatPerBar: 4, BeatUnit: 4}},
	}
	for _, d := range DefaultExpressions() {
		p.RegisterExpression(d)
	}
	return p
}

// Copy makes a deep copy of a Project.
func (p *Project) Copy() *Project {
	ret := &Project{
		Name:           p.Name,
		Resolution:     p.Resolution,
		Tempos:         slices.Clone(p.Tempos),
		TimeSignatures: slices.Clone(p.TimeSignatures),
		Tracks:         slices.Clone(p.Tracks),
		Parts:          make([]*VoicePart, len(p.Parts)),
	}
	if p.Expressions != nil {
		ret.Expressions = make(map[string]ExpressionDescriptor, len(p.Expressions))
		for k, v := range p.Expressions {
			ret.Expressions[k] = v
		}
	}
	for i, part := range p.Parts {
		ret.Parts[i] = part.Copy()
	}
	return ret
}

// PartsForTrack returns the parts placed on the given track, in order.
func (p *Project) PartsForTrack(trackNo int) []*VoicePart {
	var ret []*VoicePart
	for _, part := range p.Parts {
		if part.TrackNo == trackNo {
			ret = append(ret, part)
		}
	}
	return ret
}

// End returns the tick where a note ends, relative to its part.
func (n Note) End() int {
	return n.Position + n.Duration
}

// End returns the absolute tick where the part ends.
func (v *VoicePart) End() int {
	return v.Position + v.Duration
}

// Curve returns the curve of the part for the expression, creating it if the
// part has none yet.
func (v *VoicePart) Curve(desc ExpressionDescriptor) *Curve {
	if c := v.FindCurve(desc.Abbr); c != nil {
		return c
	}
	c := NewCurve(desc)
	v.Curves = append(v.Curves, c)
	return c
}

// FindCurve returns the curve with the given abbreviation, or nil if the part
// has none.
func (v *VoicePart) FindCurve(abbr string) *Curve {
	for _, c := range v.Curves {
		if c.Abbr == abbr {
			return c
		}
	}
	return nil
}

// UpdateDuration sets Duration to cover all the notes of the part.
func (v *VoicePart) UpdateDuration() {
	end := 0
	for _, n := range v.Notes {
		end = max(end, n.End())
	}
	v.Duration = end
}

// Copy makes a deep copy of a VoicePart.
func (v *VoicePart) Copy() *VoicePart {
	curves := make([]*Curve, len(v.Curves))
	for i, c := range v.Curves {
		curves[i] = c.Copy()
	}
	return &VoicePart{
		TrackNo:  v.TrackNo,
		Name:     v.Name,
		Position: v.Position,
		Duration: v.Duration,
		Notes:    slices.Clone(v.Notes),
		Curves:   curves,
	}
}
