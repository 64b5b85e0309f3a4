package importer_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/voxport/voxport"
	"github.com/voxport/voxport/config"
	"github.com/voxport/voxport/format"
	"github.com/voxport/voxport/importer"
	"github.com/voxport/voxport/points"
)

func source() *format.Project {
	return &format.Project{
		Name:            "test",
		TicksPerQuarter: 1470000,
		Tempos:          []voxport.Tempo{{Position: 0, BPM: 120}, {Position: 2940000, BPM: 60}},
		TimeSignatures:  []voxport.TimeSignature{{BarPosition: 4, BeatPerBar: 3, BeatUnit: 4}},
		Tracks: []format.Track{
			{
				Name: "lead",
				Notes: []format.Note{
					{Onset: 2940000, Duration: 1470000, Key: 62, Lyric: "b"},
					{Onset: 1470000, Duration: 1470000, Key: 60, Lyric: "a"},
				},
				// climbs to 50 semitones, far beyond the pitd range
				PitchDelta: format.Curve{Mode: points.ModeLinear, Points: []float64{0, 0, 2940000, 5000}},
			},
			{Name: "empty"},
			{
				Name:       "broken",
				Notes:      []format.Note{{Onset: 0, Duration: 1470000, Key: 64, Lyric: "c"}},
				PitchDelta: format.Curve{Points: []float64{0, 0, 100, math.NaN()}},
			},
		},
	}
}

func TestImport(t *testing.T) {
	res, err := importer.New(config.Default()).Import(context.Background(), source())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	p := res.Project
	if p.Resolution != 480 || p.Name != "test" {
		t.Errorf("wrong header: %v %q", p.Resolution, p.Name)
	}
	if expected := []voxport.Tempo{{Position: 0, BPM: 120}, {Position: 960, BPM: 60}}; !reflect.DeepEqual(p.Tempos, expected) {
		t.Errorf("got tempos %v, expected %v", p.Tempos, expected)
	}
	expectedSignatures := []voxport.TimeSignature{{BarPosition: 0, BeatPerBar: 4, BeatUnit: 4}, {BarPosition: 4, BeatPerBar: 3, BeatUnit: 4}}
	if !reflect.DeepEqual(p.TimeSignatures, expectedSignatures) {
		t.Errorf("got time signatures %v, expected %v", p.TimeSignatures, expectedSignatures)
	}
	if len(p.Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %v", len(p.Tracks))
	}
	for i, name := range []string{"lead", "empty", "broken"} {
		if p.Tracks[i].Name != name || p.Tracks[i].TrackNo != i {
			t.Errorf("track %d: got %+v", i, p.Tracks[i])
		}
	}
	// the empty track has no part
	if len(p.Parts) != 2 || p.Parts[0].TrackNo != 0 || p.Parts[1].TrackNo != 2 {
		t.Fatalf("unexpected parts %+v", p.Parts)
	}
	lead := p.Parts[0]
	expectedNotes := []voxport.Note{{Position: 480, Duration: 480, Tone: 60, Lyric: "a"}, {Position: 960, Duration: 480, Tone: 62, Lyric: "b"}}
	if !reflect.DeepEqual(lead.Notes, expectedNotes) {
		t.Errorf("got notes %+v, expected %+v", lead.Notes, expectedNotes)
	}
	if lead.Duration != 1440 {
		t.Errorf("got part duration %v", lead.Duration)
	}
	curve := lead.FindCurve(voxport.PITD)
	if curve == nil || curve.IsEmpty() {
		t.Fatal("lead has no pitch curve")
	}
	for i, x := range curve.Xs {
		if i > 0 && x <= curve.Xs[i-1] {
			t.Fatalf("curve ticks not increasing: %v", curve.Xs)
		}
		if y := curve.Ys[i]; y < -1200 || y > 1200 {
			t.Fatalf("value %v at %v outside the pitd range", y, x)
		}
	}
	if v, _ := curve.Query(0); v != 0 {
		t.Errorf("curve starts at %v", v)
	}
	if v, _ := curve.Query(960); v != 1200 {
		t.Errorf("curve should be clamped to 1200 at the end, got %v", v)
	}
	if p.Parts[1].FindCurve(voxport.PITD) != nil {
		t.Error("broken track should have no curve")
	}
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], voxport.ErrInvalidCurveData) || res.Warnings[0].Track != "broken" {
		t.Errorf("unexpected warnings %v", res.Warnings)
	}
	if s := res.Tracks[0]; s.Notes != 2 || s.PitchPoints != 2 || s.CurvePoints != len(curve.Xs) {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestImportIsDeterministic(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 1
	a, err := importer.New(cfg).Import(context.Background(), source())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	cfg.Workers = 8
	b, err := importer.New(cfg).Import(context.Background(), source())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !reflect.DeepEqual(a.Project, b.Project) {
		t.Fatal("the result depends on the number of workers")
	}
}

func TestImportRecoversTempo(t *testing.T) {
	src := source()
	src.Tempos = nil
	res, err := importer.New(config.Default()).Import(context.Background(), src)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !errors.Is(res.Warnings[0], voxport.ErrInvalidTempoData) {
		t.Fatalf("expected a tempo warning first, got %v", res.Warnings)
	}
	if expected := []voxport.Tempo{{Position: 0, BPM: 120}}; !reflect.DeepEqual(res.Project.Tempos, expected) {
		t.Fatalf("got tempos %v", res.Project.Tempos)
	}
}

func TestImportWithoutPitchExpression(t *testing.T) {
	dyn := voxport.ExpressionDescriptor{Name: "dynamics", Abbr: voxport.DYN, Min: -240, Max: 120, IsCurve: true}
	res, err := importer.New(config.Default(), importer.WithExpressions(dyn)).Import(context.Background(), source())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	p := res.Project
	if _, err := p.Expression(voxport.PITD); !errors.Is(err, voxport.ErrMissingExpression) {
		t.Fatalf("pitd should not be registered, got %v", err)
	}
	if len(p.Parts) != 2 || len(p.Parts[0].Notes) != 2 {
		t.Fatalf("the notes should still be imported, got %+v", p.Parts)
	}
	for _, part := range p.Parts {
		if len(part.Curves) != 0 {
			t.Errorf("part %q should have no curves, got %v", part.Name, part.Curves)
		}
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("expected two warnings, got %v", res.Warnings)
	}
	if w := res.Warnings[0]; w.Track != "lead" || w.Curve != voxport.PITD || !errors.Is(w, voxport.ErrMissingExpression) {
		t.Errorf("unexpected first warning %v", w)
	}
	if w := res.Warnings[1]; w.Track != "broken" || !errors.Is(w, voxport.ErrInvalidCurveData) {
		t.Errorf("unexpected second warning %v", w)
	}
	if s := res.Tracks[0]; s.PitchPoints != 2 || s.CurvePoints != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestImportClampsToRegisteredRange(t *testing.T) {
	pitd := voxport.ExpressionDescriptor{Name: "pitch deviation", Abbr: voxport.PITD, Min: -600, Max: 600, IsCurve: true}
	res, err := importer.New(config.Default(), importer.WithExpressions(pitd)).Import(context.Background(), source())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	curve := res.Project.Parts[0].FindCurve(voxport.PITD)
	if curve == nil || curve.Max != 600 {
		t.Fatalf("unexpected curve %+v", curve)
	}
	if v, _ := curve.Query(960); v != 600 {
		t.Errorf("curve should be clamped to 600 at the end, got %v", v)
	}
}

func TestImportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := importer.New(config.Default()).Import(ctx, source()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.svp")
	doc := `{"version": 1, "time": {"tempo": [{"position": 0, "bpm": 120}]},
"tracks": [{"name": "v", "mainGroup": {"notes": [{"onset": 0, "duration": 1470000, "lyrics": "a", "pitch": 60}]}}]}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("could not write the project: %v", err)
	}
	res, err := importer.New(config.Default()).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if res.Project.Name != "song" || res.Source != path || len(res.Project.Parts) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := importer.DecoderFor("song.mid"); !errors.Is(err, format.ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}
