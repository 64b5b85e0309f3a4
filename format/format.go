// Package format defines the raw records the file decoders produce: the
// project, its tracks and notes, and the flat point arrays of the curves, all
// in the tick unit of the source file.
package format

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/voxport/voxport"
	"github.com/voxport/voxport/points"
	"github.com/voxport/voxport/vibrato"
)

// DefaultLyric replaces empty lyrics.
const DefaultLyric = "la"

var (
	// ErrUnknownFormat is returned when no decoder handles a file.
	ErrUnknownFormat = errors.New("unknown file format")
	// ErrMalformed is returned by the decoders when the container could be
	// read but does not look like a project.
	ErrMalformed = errors.New("malformed project file")
)

type (
	// Project is a decoded source file. Tempo positions are in source ticks,
	// TicksPerQuarter per quarter note; time signatures are positioned by bar.
	Project struct {
		Name            string
		TicksPerQuarter int64
		Tempos          []voxport.Tempo
		TimeSignatures  []voxport.TimeSignature
		Tracks          []Track
	}

	Track struct {
		Name  string
		Mute  bool
		Notes []Note
		// PitchDelta is the pitch deviation in cents, on top of the note
		// pitches.
		PitchDelta Curve
		// VibratoEnv scales the depth of the vibrato, 1 being neutral.
		VibratoEnv Curve
		// VoiceVibrato are the vibrato settings of the voice, used for the
		// notes that do not set their own.
		VoiceVibrato vibrato.Params
	}

	Note struct {
		Onset    int64
		Duration int64
		Key      int
		Lyric    string
		// Attributes are the numeric note attributes of the source file,
		// among them the vibrato parameters, see vibrato.ParamsFromAttributes.
		Attributes map[string]float64
		// VibratoEnabled forces the vibrato of the note on or off. When nil,
		// the vibrato is on if any vibrato parameter is given.
		VibratoEnabled *bool
	}

	// Curve is a flat array of alternating (tick, value) pairs, interpolated
	// with Mode between the pairs.
	Curve struct {
		Mode   points.Mode
		Points []float64
	}

	// Decoder reads a whole source file.
	Decoder interface {
		Decode(r io.Reader) (*Project, error)
	}

	// DecoderFunc adapts a function to a Decoder.
	DecoderFunc func(r io.Reader) (*Project, error)
)

func (f DecoderFunc) Decode(r io.Reader) (*Project, error) {
	return f(r)
}

// Lyric normalizes a lyric to Unicode NFC and trims the surrounding white
// space; an empty lyric becomes DefaultLyric.
func Lyric(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return DefaultLyric
	}
	return s
}

// End returns the tick where the note ends.
func (n Note) End() int64 {
	return n.Onset + n.Duration
}

// VibratoNotes returns the notes of the track as inputs for the vibrato
// synthesizer.
func (t *Track) VibratoNotes() []vibrato.Note {
	ret := make([]vibrato.Note, len(t.Notes))
	for i, n := range t.Notes {
		ret[i] = vibrato.Note{
			Start:   n.Onset,
			Length:  n.Duration,
			Params:  vibrato.ParamsFromAttributes(n.Attributes),
			Enabled: n.VibratoEnabled,
		}
	}
	return ret
}

// NumNotes returns the total number of notes in the project.
func (p *Project) NumNotes() int {
	ret := 0
	for _, t := range p.Tracks {
		ret += len(t.Notes)
	}
	return ret
}
