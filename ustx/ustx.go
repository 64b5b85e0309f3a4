// Package ustx reads and writes OpenUtau project files (.ustx), YAML documents
// holding the tempo and time signature tables, the expressions, the tracks
// and the voice parts with their notes and curves.
package ustx

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/voxport/voxport"
)

// Version is the ustx_version written to the documents.
const Version = "0.6"

// ErrNotUstx is returned by Read for documents without a ustx_version.
var ErrNotUstx = errors.New("not a ustx document")

type (
	document struct {
		Name           string                  `yaml:"name"`
		Comment        string                  `yaml:"comment"`
		OutputDir      string                  `yaml:"output_dir"`
		CacheDir       string                  `yaml:"cache_dir"`
		UstxVersion    string                  `yaml:"ustx_version"`
		Resolution     int                     `yaml:"resolution"`
		BPM            float64                 `yaml:"bpm"`
		BeatPerBar     int                     `yaml:"beat_per_bar"`
		BeatUnit       int                     `yaml:"beat_unit"`
		Expressions    map[string]expression   `yaml:"expressions"`
		TimeSignatures []voxport.TimeSignature `yaml:"time_signatures"`
		Tempos         []tempo                 `yaml:"tempos"`
		Tracks         []track                 `yaml:"tracks"`
		VoiceParts     []voicePart             `yaml:"voice_parts"`
		WaveParts      []struct{}              `yaml:"wave_parts"`
	}

	expression struct {
		Name    string `yaml:"name"`
		Abbr    string `yaml:"abbr"`
		Type    string `yaml:"type"`
		Min     int    `yaml:"min"`
		Max     int    `yaml:"max"`
		Default int    `yaml:"default_value"`
		IsFlag  bool   `yaml:"is_flag"`
		Flag    string `yaml:"flag,omitempty"`
	}

	tempo struct {
		Position int64   `yaml:"position"`
		BPM      float64 `yaml:"bpm"`
	}

	track struct {
		Singer    string  `yaml:"singer,omitempty"`
		TrackName string  `yaml:"track_name"`
		Mute      bool    `yaml:"mute"`
		Solo      bool    `yaml:"solo"`
		Volume    float64 `yaml:"volume"`
		Pan       float64 `yaml:"pan"`
	}

	voicePart struct {
		Name     string  `yaml:"name"`
		Comment  string  `yaml:"comment"`
		TrackNo  int     `yaml:"track_no"`
		Position int     `yaml:"position"`
		Duration int     `yaml:"duration"`
		Notes    []note  `yaml:"notes"`
		Curves   []curve `yaml:"curves"`
	}

	note struct {
		Position int         `yaml:"position"`
		Duration int         `yaml:"duration"`
		Tone     int         `yaml:"tone"`
		Lyric    string      `yaml:"lyric"`
		Pitch    notePitch   `yaml:"pitch"`
		Vibrato  noteVibrato `yaml:"vibrato"`
		Exprs    []struct{}  `yaml:"note_expressions"`
		Phonemes []struct{}  `yaml:"phoneme_expressions"`
	}

	notePitch struct {
		Data      []pitchPoint `yaml:"data"`
		SnapFirst bool         `yaml:"snap_first"`
	}

	pitchPoint struct {
		X     float64 `yaml:"x"`
		Y     float64 `yaml:"y"`
		Shape string  `yaml:"shape"`
	}

	noteVibrato struct {
		Length float64 `yaml:"length"`
		Period float64 `yaml:"period"`
		Depth  float64 `yaml:"depth"`
		In     float64 `yaml:"in"`
		Out    float64 `yaml:"out"`
		Shift  float64 `yaml:"shift"`
		Drift  float64 `yaml:"drift"`
	}

	curve struct {
		Xs   []int  `yaml:"xs,flow"`
		Ys   []int  `yaml:"ys,flow"`
		Abbr string `yaml:"abbr"`
	}
)

// Write encodes the project as a ustx document. The vibrato and the pitch
// bends of the notes are left flat: the imported pitch lives in the pitd
// curve.
func Write(w io.Writer, p *voxport.Project) error {
	doc := document{
		Name:           p.Name,
		OutputDir:      "Vocal",
		CacheDir:       "UCache",
		UstxVersion:    Version,
		Resolution:     p.Resolution,
		BPM:            voxport.DefaultBPM,
		BeatPerBar:     4,
		BeatUnit:       4,
		Expressions:    map[string]expression{},
		TimeSignatures: p.TimeSignatures,
		WaveParts:      []struct{}{},
	}
	if len(p.Tempos) > 0 {
		doc.BPM = p.Tempos[0].BPM
	}
	if len(p.TimeSignatures) > 0 {
		doc.BeatPerBar, doc.BeatUnit = p.TimeSignatures[0].BeatPerBar, p.TimeSignatures[0].BeatUnit
	}
	for abbr, d := range p.Expressions {
		typ := "Numerical"
		if d.IsCurve {
			typ = "Curve"
		}
		doc.Expressions[abbr] = expression{Name: d.Name, Abbr: d.Abbr, Type: typ, Min: d.Min, Max: d.Max, Default: d.Default}
	}
	for _, t := range p.Tempos {
		doc.Tempos = append(doc.Tempos, tempo{Position: t.Position, BPM: t.BPM})
	}
	for _, t := range p.Tracks {
		doc.Tracks = append(doc.Tracks, track{Singer: t.Singer, TrackName: t.Name, Mute: t.Mute})
	}
	for _, part := range p.Parts {
		vp := voicePart{
			Name:     part.Name,
			TrackNo:  part.TrackNo,
			Position: part.Position,
			Duration: part.Duration,
			Notes:    []note{},
			Curves:   []curve{},
		}
		for _, n := range part.Notes {
			vp.Notes = append(vp.Notes, note{
				Position: n.Position,
				Duration: n.Duration,
				Tone:     n.Tone,
				Lyric:    n.Lyric,
				Pitch: notePitch{
					Data:      []pitchPoint{{X: -25, Y: 0, Shape: "io"}, {X: 25, Y: 0, Shape: "io"}},
					SnapFirst: true,
				},
				Vibrato:  noteVibrato{Length: 0, Period: 175, Depth: 25, In: 10, Out: 10},
				Exprs:    []struct{}{},
				Phonemes: []struct{}{},
			})
		}
		for _, c := range part.Curves {
			if c.IsEmpty() {
				continue
			}
			vp.Curves = append(vp.Curves, curve{Xs: c.Xs, Ys: c.Ys, Abbr: c.Abbr})
		}
		doc.VoiceParts = append(doc.VoiceParts, vp)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("could not encode ustx: %w", err)
	}
	return enc.Close()
}

// Read decodes a ustx document. Curves whose abbreviation is not among the
// expressions of the document are dropped; their abbreviations are returned
// in an error wrapping voxport.ErrMissingExpression, together with the
// project.
func Read(r io.Reader) (*voxport.Project, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("could not decode ustx: %w", err)
	}
	if doc.UstxVersion == "" {
		return nil, ErrNotUstx
	}
	p := &voxport.Project{
		Name:           doc.Name,
		Resolution:     doc.Resolution,
		TimeSignatures: doc.TimeSignatures,
		Expressions:    map[string]voxport.ExpressionDescriptor{},
	}
	if p.Resolution <= 0 {
		p.Resolution = voxport.DefaultResolution
	}
	for abbr, e := range doc.Expressions {
		p.Expressions[abbr] = voxport.ExpressionDescriptor{Name: e.Name, Abbr: e.Abbr, Min: e.Min, Max: e.Max, Default: e.Default, IsCurve: e.Type == "Curve"}
	}
	for _, t := range doc.Tempos {
		p.Tempos = append(p.Tempos, voxport.Tempo{Position: t.Position, BPM: t.BPM})
	}
	if len(p.Tempos) == 0 {
		p.Tempos = []voxport.Tempo{{Position: 0, BPM: doc.BPM}}
	}
	for i, t := range doc.Tracks {
		p.Tracks = append(p.Tracks, voxport.Track{TrackNo: i, Name: t.TrackName, Singer: t.Singer, Mute: t.Mute})
	}
	var missing []string
	for _, vp := range doc.VoiceParts {
		part := &voxport.VoicePart{TrackNo: vp.TrackNo, Name: vp.Name, Position: vp.Position, Duration: vp.Duration}
		for _, n := range vp.Notes {
			part.Notes = append(part.Notes, voxport.Note{Position: n.Position, Duration: n.Duration, Tone: n.Tone, Lyric: n.Lyric})
		}
		for _, c := range vp.Curves {
			desc, err := p.Expression(c.Abbr)
			if err != nil || len(c.Xs) != len(c.Ys) {
				missing = append(missing, c.Abbr)
				continue
			}
			curve := part.Curve(desc)
			for i := range c.Xs {
				curve.Set(c.Xs[i], c.Ys[i], c.Xs[i], c.Ys[i])
			}
		}
		p.Parts = append(p.Parts, part)
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return p, fmt.Errorf("%w: dropped curves %v", voxport.ErrMissingExpression, missing)
	}
	return p, nil
}
