package svp_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/voxport/voxport"
	"github.com/voxport/voxport/format"
	"github.com/voxport/voxport/format/svp"
	"github.com/voxport/voxport/points"
)

const project = `{
  "version": 153,
  "time": {
    "meter": [{"index": 0, "numerator": 3, "denominator": 4}],
    "tempo": [{"position": 0, "bpm": 120.0}, {"position": 5880000, "bpm": 90.0}]
  },
  "tracks": [
    {
      "name": "Lead",
      "mainRef": {"voice": {"dF0Vbr": 0.5, "vocalModeParams": {}}},
      "mainGroup": {
        "notes": [
          {"onset": 0, "duration": 1470000, "lyrics": "", "pitch": 60, "attributes": {"tF0VbrStart": 0.1, "dur": [0.5, 1.0]}},
          {"onset": 1470000, "duration": 735000, "lyrics": "a", "pitch": 62, "attributes": {}}
        ],
        "parameters": {
          "pitchDelta": {"mode": "cubic", "points": [0, 0, 735000, 50.5]},
          "vibratoEnv": {"mode": "linear", "points": []}
        }
      },
      "mixer": {"mute": true}
    },
    {"mainGroup": {"notes": []}}
  ]
}` + "\x00"

func TestDecode(t *testing.T) {
	p, err := svp.Decoder{}.Decode(strings.NewReader(project))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.TicksPerQuarter != svp.TicksPerQuarter {
		t.Errorf("got resolution %v", p.TicksPerQuarter)
	}
	if expected := []voxport.Tempo{{Position: 0, BPM: 120}, {Position: 5880000, BPM: 90}}; !reflect.DeepEqual(p.Tempos, expected) {
		t.Errorf("got tempos %v, expected %v", p.Tempos, expected)
	}
	if expected := []voxport.TimeSignature{{BarPosition: 0, BeatPerBar: 3, BeatUnit: 4}}; !reflect.DeepEqual(p.TimeSignatures, expected) {
		t.Errorf("got time signatures %v, expected %v", p.TimeSignatures, expected)
	}
	if len(p.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %v", len(p.Tracks))
	}
	lead := p.Tracks[0]
	if lead.Name != "Lead" || !lead.Mute {
		t.Errorf("wrong track header: %q mute %v", lead.Name, lead.Mute)
	}
	if p.Tracks[1].Name != "Track 2" {
		t.Errorf("unnamed track got name %q", p.Tracks[1].Name)
	}
	expectedNotes := []format.Note{
		{Onset: 0, Duration: 1470000, Key: 60, Lyric: "la", Attributes: map[string]float64{"tF0VbrStart": 0.1}},
		{Onset: 1470000, Duration: 735000, Key: 62, Lyric: "a"},
	}
	if !reflect.DeepEqual(lead.Notes, expectedNotes) {
		t.Errorf("got notes %+v, expected %+v", lead.Notes, expectedNotes)
	}
	if expected := (format.Curve{Mode: "cubic", Points: []float64{0, 0, 735000, 50.5}}); !reflect.DeepEqual(lead.PitchDelta, expected) {
		t.Errorf("got pitch delta %+v", lead.PitchDelta)
	}
	if lead.VibratoEnv.Mode != points.ModeLinear {
		t.Errorf("got vibrato envelope mode %q", lead.VibratoEnv.Mode)
	}
	if d := lead.VoiceVibrato.Depth; d == nil || *d != 0.5 {
		t.Errorf("voice vibrato depth not decoded: %+v", lead.VoiceVibrato)
	}
}

func TestDecodeYAML(t *testing.T) {
	doc := `
version: 1
time:
  tempo:
  - {position: 0, bpm: 150}
tracks:
- name: Y
  mainGroup:
    notes:
    - {onset: 0, duration: 100, lyrics: na, pitch: 64}
`
	p, err := svp.Decoder{}.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(p.Tracks) != 1 || len(p.Tracks[0].Notes) != 1 || p.Tracks[0].Notes[0].Lyric != "na" {
		t.Fatalf("unexpected project %+v", p)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := (svp.Decoder{}).Decode(strings.NewReader("{}")); !errors.Is(err, format.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := (svp.Decoder{}).Decode(strings.NewReader("{{{ not: [a project")); err == nil {
		t.Fatal("expected an error on garbage")
	}
}
