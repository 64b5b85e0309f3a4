package vibrato_test

import (
	"math"
	"testing"

	"github.com/voxport/voxport"
	"github.com/voxport/voxport/points"
	"github.com/voxport/voxport/vibrato"
)

const ticksPerQuarter = 480 // at 120 BPM: 960 ticks per second

func f(v float64) *float64 { return &v }

func newSynth(t *testing.T, voice vibrato.Params, env []points.Point) *vibrato.Synthesizer {
	t.Helper()
	tempo, err := voxport.NewTempoMap([]voxport.Tempo{{Position: 0, BPM: 120}}, ticksPerQuarter)
	if err != nil {
		t.Fatalf("NewTempoMap failed: %v", err)
	}
	return vibrato.NewSynthesizer(tempo, voice, env)
}

func TestResolveFallsBackPerField(t *testing.T) {
	note := vibrato.Params{Depth: f(2)}
	voice := vibrato.Params{Depth: f(3), Frequency: f(7)}
	got := vibrato.Resolve(note, voice)
	expected := vibrato.Defaults()
	expected.Depth = 2
	expected.Frequency = 7
	if got != expected {
		t.Fatalf("got %+v, expected %+v", got, expected)
	}
}

func TestResolveDefaults(t *testing.T) {
	got := vibrato.Resolve(vibrato.Params{}, vibrato.Params{})
	expected := vibrato.Resolved{Start: 0.25, EaseIn: 0.2, EaseOut: 0.2, Depth: 1, Frequency: 5.5, Phase: 0}
	if got != expected {
		t.Fatalf("got %+v, expected %+v", got, expected)
	}
}

func TestResolveKeepsExplicitZero(t *testing.T) {
	got := vibrato.Resolve(vibrato.Params{Start: f(0)}, vibrato.Params{Start: f(1)})
	if got.Start != 0 {
		t.Fatalf("explicit zero on the note should win, got %v", got.Start)
	}
}

func TestParamsFromAttributes(t *testing.T) {
	p := vibrato.ParamsFromAttributes(map[string]float64{
		vibrato.AttrDepth: 0.5,
		vibrato.AttrPhase: 1,
		"unrelated":       9,
	})
	if p.Depth == nil || *p.Depth != 0.5 || p.Phase == nil || *p.Phase != 1 {
		t.Fatalf("unexpected params %+v", p)
	}
	if p.Start != nil || p.EaseIn != nil || p.EaseOut != nil || p.Frequency != nil {
		t.Fatalf("missing attributes should stay unset: %+v", p)
	}
	if !p.Any() || (vibrato.Params{}).Any() {
		t.Fatal("Any reports wrong presence")
	}
}

func TestEnabled(t *testing.T) {
	yes, no := true, false
	bare := newSynth(t, vibrato.Params{}, nil)
	withVoice := newSynth(t, vibrato.Params{Depth: f(1)}, nil)
	cases := []struct {
		name  string
		synth *vibrato.Synthesizer
		note  vibrato.Note
		want  bool
	}{
		{"nothing set", bare, vibrato.Note{}, false},
		{"note params", bare, vibrato.Note{Params: vibrato.Params{Frequency: f(6)}}, true},
		{"voice params", withVoice, vibrato.Note{}, true},
		{"forced on", bare, vibrato.Note{Enabled: &yes}, true},
		{"forced off", withVoice, vibrato.Note{Enabled: &no, Params: vibrato.Params{Depth: f(1)}}, false},
	}
	for _, c := range cases {
		if got := c.synth.Enabled(c.note); got != c.want {
			t.Errorf("%v: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestContributionIsZeroOutsideVibrato(t *testing.T) {
	s := newSynth(t, vibrato.Params{}, nil)
	note := vibrato.Note{Start: 960, Length: 960} // from 1 s to 2 s
	for _, tick := range []int64{0, 959, 960, 1100, 1199, 1920, 3000} {
		if v := s.Contribution(note, tick); v != 0 {
			t.Errorf("tick %d: expected no vibrato, got %v", tick, v)
		}
	}
}

func TestContributionOscillates(t *testing.T) {
	// no ramps, 1 Hz, start right at the note: sin(2*pi*t)
	s := newSynth(t, vibrato.Params{}, nil)
	note := vibrato.Note{Start: 0, Length: 9600, Params: vibrato.Params{
		Start: f(0), EaseIn: f(0), EaseOut: f(0), Frequency: f(1), Depth: f(2),
	}}
	cases := []struct {
		tick int64
		want float64
	}{{0, 0}, {240, 2}, {480, 0}, {720, -2}}
	for _, c := range cases {
		if got := s.Contribution(note, c.tick); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("tick %d: got %v, want %v", c.tick, got, c.want)
		}
	}
}

func TestContributionRamps(t *testing.T) {
	s := newSynth(t, vibrato.Params{}, nil)
	// phase pi/2 makes the oscillation a cosine, 1 at every whole second
	note := vibrato.Note{Start: 0, Length: 9600, Params: vibrato.Params{
		Start: f(0), EaseIn: f(2), EaseOut: f(2), Frequency: f(1), Depth: f(1), Phase: f(math.Pi / 2),
	}}
	cases := []struct {
		tick int64
		want float64
	}{
		{960, 0.5},  // 1 s into a 2 s ease in
		{4800, 1},   // 5 s: steady
		{8640, 0.5}, // 9 s: 1 s before the end, halfway through ease out
	}
	for _, c := range cases {
		if got := s.Contribution(note, c.tick); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("tick %d: got %v, want %v", c.tick, got, c.want)
		}
	}
}

func TestContributionFollowsEnvelope(t *testing.T) {
	env := []points.Point{{Tick: 0, Value: 0}, {Tick: 9600, Value: 1}}
	s := newSynth(t, vibrato.Params{}, env)
	note := vibrato.Note{Start: 0, Length: 9600, Params: vibrato.Params{
		Start: f(0), EaseIn: f(0), EaseOut: f(0), Frequency: f(1), Depth: f(1), Phase: f(math.Pi / 2),
	}}
	if got := s.Contribution(note, 4800); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("envelope should halve the depth at 5 s, got %v", got)
	}
	if got := s.EnvelopeAt(20000); got != 1 {
		t.Fatalf("envelope should hold the last value, got %v", got)
	}
	if got := newSynth(t, vibrato.Params{}, nil).EnvelopeAt(0); got != 1 {
		t.Fatalf("missing envelope should scale by 1, got %v", got)
	}
}
