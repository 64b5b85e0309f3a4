// Package vibrato computes the pitch oscillation that vibrato adds on top of
// a carrier pitch curve.
package vibrato

// Attribute names of the vibrato parameters in note and voice records.
const (
	AttrStart     = "tF0VbrStart" // seconds from the note start
	AttrEaseIn    = "tF0VbrLeft"  // seconds
	AttrEaseOut   = "tF0VbrRight" // seconds
	AttrDepth     = "dF0Vbr"      // semitones
	AttrFrequency = "fF0Vbr"      // Hz
	AttrPhase     = "pF0Vbr"      // radians
)

// Values used when neither the note nor the voice sets a parameter.
const (
	DefaultStart     = 0.25
	DefaultEaseIn    = 0.2
	DefaultEaseOut   = 0.2
	DefaultDepth     = 1.0
	DefaultFrequency = 5.5
	DefaultPhase     = 0.0
)

type (
	// Params are the vibrato parameters of a note or of a voice. A nil field
	// is unset and falls back to the next level, see Resolve.
	Params struct {
		Start     *float64 `json:"tF0VbrStart,omitempty" yaml:"tF0VbrStart,omitempty"`
		EaseIn    *float64 `json:"tF0VbrLeft,omitempty" yaml:"tF0VbrLeft,omitempty"`
		EaseOut   *float64 `json:"tF0VbrRight,omitempty" yaml:"tF0VbrRight,omitempty"`
		Depth     *float64 `json:"dF0Vbr,omitempty" yaml:"dF0Vbr,omitempty"`
		Frequency *float64 `json:"fF0Vbr,omitempty" yaml:"fF0Vbr,omitempty"`
		Phase     *float64 `json:"pF0Vbr,omitempty" yaml:"pF0Vbr,omitempty"`
	}

	// Resolved are the effective parameters after the fallback: every field
	// is set.
	Resolved struct {
		Start     float64
		EaseIn    float64
		EaseOut   float64
		Depth     float64
		Frequency float64
		Phase     float64
	}
)

// Defaults returns the parameters used when nothing else is set.
func Defaults() Resolved {
	return Resolved{
		Start:     DefaultStart,
		EaseIn:    DefaultEaseIn,
		EaseOut:   DefaultEaseOut,
		Depth:     DefaultDepth,
		Frequency: DefaultFrequency,
		Phase:     DefaultPhase,
	}
}

// ParamsFromAttributes picks the vibrato parameters out of an attribute map.
// Attributes missing from the map stay unset.
func ParamsFromAttributes(attrs map[string]float64) Params {
	get := func(name string) *float64 {
		if v, ok := attrs[name]; ok {
			return &v
		}
		return nil
	}
	return Params{
		Start:     get(AttrStart),
		EaseIn:    get(AttrEaseIn),
		EaseOut:   get(AttrEaseOut),
		Depth:     get(AttrDepth),
		Frequency: get(AttrFrequency),
		Phase:     get(AttrPhase),
	}
}

// Any reports if at least one parameter is set.
func (p Params) Any() bool {
	return p.Start != nil || p.EaseIn != nil || p.EaseOut != nil ||
		p.Depth != nil || p.Frequency != nil || p.Phase != nil
}

// Resolve returns the effective parameters of a note: each parameter is
// taken from the note if set there, else from the voice, else from Defaults.
func Resolve(note, voice Params) Resolved {
	d := Defaults()
	return Resolved{
		Start:     pick(note.Start, voice.Start, d.Start),
		EaseIn:    pick(note.EaseIn, voice.EaseIn, d.EaseIn),
		EaseOut:   pick(note.EaseOut, voice.EaseOut, d.EaseOut),
		Depth:     pick(note.Depth, voice.Depth, d.Depth),
		Frequency: pick(note.Frequency, voice.Frequency, d.Frequency),
		Phase:     pick(note.Phase, voice.Phase, d.Phase),
	}
}

func pick(note, voice *float64, fallback float64) float64 {
	if note != nil {
		return *note
	}
	if voice != nil {
		return *voice
	}
	return fallback
}
