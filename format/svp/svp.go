// Package svp decodes Synthesizer V style project files: a JSON document with
// the tempo and meter tables, and per track the notes of the main group, the
// pitch deviation and vibrato envelope parameters and the voice defaults.
package svp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/voxport/voxport"
	"github.com/voxport/voxport/format"
	"github.com/voxport/voxport/points"
	"github.com/voxport/voxport/vibrato"
)

// TicksPerQuarter is the time resolution of the format.
const TicksPerQuarter = 1470000

type (
	document struct {
		Version int     `json:"version" yaml:"version"`
		Time    times   `json:"time" yaml:"time"`
		Tracks  []track `json:"tracks" yaml:"tracks"`
	}

	times struct {
		Meter []meter `json:"meter" yaml:"meter"`
		Tempo []tempo `json:"tempo" yaml:"tempo"`
	}

	meter struct {
		Index       int `json:"index" yaml:"index"`
		Numerator   int `json:"numerator" yaml:"numerator"`
		Denominator int `json:"denominator" yaml:"denominator"`
	}

	tempo struct {
		Position int64   `json:"position" yaml:"position"`
		BPM      float64 `json:"bpm" yaml:"bpm"`
	}

	track struct {
		Name      string `json:"name" yaml:"name"`
		MainRef   ref    `json:"mainRef" yaml:"mainRef"`
		MainGroup group  `json:"mainGroup" yaml:"mainGroup"`
		Mixer     mixer  `json:"mixer" yaml:"mixer"`
	}

	ref struct {
		Voice map[string]interface{} `json:"voice" yaml:"voice"`
	}

	mixer struct {
		Mute bool `json:"mute" yaml:"mute"`
	}

	group struct {
		Notes      []note     `json:"notes" yaml:"notes"`
		Parameters parameters `json:"parameters" yaml:"parameters"`
	}

	note struct {
		Onset      int64                  `json:"onset" yaml:"onset"`
		Duration   int64                  `json:"duration" yaml:"duration"`
		Lyrics     string                 `json:"lyrics" yaml:"lyrics"`
		Pitch      int                    `json:"pitch" yaml:"pitch"`
		Attributes map[string]interface{} `json:"attributes" yaml:"attributes"`
	}

	parameters struct {
		PitchDelta curve `json:"pitchDelta" yaml:"pitchDelta"`
		VibratoEnv curve `json:"vibratoEnv" yaml:"vibratoEnv"`
	}

	curve struct {
		Mode   string    `json:"mode" yaml:"mode"`
		Points []float64 `json:"points" yaml:"points"`
	}
)

// Decoder decodes svp files. The zero value is ready to use.
type Decoder struct{}

// Decode reads a whole svp document. Files saved by the editor end with a NUL
// byte, which is ignored.
func (Decoder) Decode(r io.Reader) (*format.Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read svp: %w", err)
	}
	data = bytes.TrimRight(data, "\x00")
	var doc document
	if errJSON := json.Unmarshal(data, &doc); errJSON != nil {
		doc = document{}
		if errYaml := yaml.Unmarshal(data, &doc); errYaml != nil {
			return nil, fmt.Errorf("the project could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if doc.Version == 0 && len(doc.Tracks) == 0 && len(doc.Time.Tempo) == 0 {
		return nil, fmt.Errorf("%w: no version, tempos or tracks", format.ErrMalformed)
	}
	return doc.project(), nil
}

func (d *document) project() *format.Project {
	ret := &format.Project{TicksPerQuarter: TicksPerQuarter}
	for _, t := range d.Time.Tempo {
		ret.Tempos = append(ret.Tempos, voxport.Tempo{Position: t.Position, BPM: t.BPM})
	}
	for _, m := range d.Time.Meter {
		ret.TimeSignatures = append(ret.TimeSignatures, voxport.TimeSignature{BarPosition: m.Index, BeatPerBar: m.Numerator, BeatUnit: m.Denominator})
	}
	for i, t := range d.Tracks {
		ft := format.Track{
			Name:         t.Name,
			Mute:         t.Mixer.Mute,
			PitchDelta:   t.MainGroup.Parameters.PitchDelta.toFormat(),
			VibratoEnv:   t.MainGroup.Parameters.VibratoEnv.toFormat(),
			VoiceVibrato: vibrato.ParamsFromAttributes(numeric(t.MainRef.Voice)),
		}
		if ft.Name == "" {
			ft.Name = fmt.Sprintf("Track %d", i+1)
		}
		for _, n := range t.MainGroup.Notes {
			ft.Notes = append(ft.Notes, format.Note{
				Onset:      n.Onset,
				Duration:   n.Duration,
				Key:        n.Pitch,
				Lyric:      format.Lyric(n.Lyrics),
				Attributes: numeric(n.Attributes),
			})
		}
		ret.Tracks = append(ret.Tracks, ft)
	}
	return ret
}

func (c curve) toFormat() format.Curve {
	return format.Curve{Mode: points.Mode(c.Mode), Points: c.Points}
}

// numeric keeps the number valued attributes; the others (arrays of phoneme
// durations, strings) are not used by the importer.
func numeric(attrs map[string]interface{}) map[string]float64 {
	if len(attrs) == 0 {
		return nil
	}
	ret := make(map[string]float64, len(attrs))
	for k, v := range attrs {
		switch x := v.(type) {
		case float64:
			ret[k] = x
		case int:
			ret[k] = float64(x)
		}
	}
	return ret
}
