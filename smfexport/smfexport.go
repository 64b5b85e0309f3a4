// Package smfexport writes a host project as a standard MIDI file: a
// conductor track with the tempo and meter changes, and one track per voice
// part with the lyrics, the notes and the pitch deviation curve rendered as
// pitch bend.
package smfexport

import (
	"fmt"
	"io"
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/exp/slices"
	"golang.org/x/text/transform"

	"github.com/voxport/voxport"
)

type Options struct {
	// BendRange is the pitch bend range in semitones, announced to the
	// receiver with RPN 0. Deviations beyond the range saturate.
	BendRange int
	// BendStep is the distance between pitch bend samples, in ticks.
	BendStep int
	// Lyrics re-encodes the lyric events, e.g. to Shift_JIS for older
	// Japanese software. Nil writes UTF-8.
	Lyrics   transform.Transformer
	Velocity uint8
}

const (
	orderNoteOff = iota
	orderMeta
	orderControl
	orderNoteOn
)

type event struct {
	tick  int
	order int
	msg   []byte
}

func (o Options) withDefaults() Options {
	if o.BendRange <= 0 {
		o.BendRange = 2
	}
	if o.BendStep <= 0 {
		o.BendStep = 5
	}
	if o.Velocity == 0 {
		o.Velocity = 100
	}
	return o
}

// Write encodes the project as a format 1 SMF at the project resolution.
func Write(w io.Writer, p *voxport.Project, opts Options) error {
	opts = opts.withDefaults()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(uint16(p.Resolution))
	if err := s.Add(conductor(p)); err != nil {
		return fmt.Errorf("could not add conductor track: %w", err)
	}
	for i, part := range p.Parts {
		tr, err := partTrack(p, part, channel(i), opts)
		if err != nil {
			return fmt.Errorf("part %q: %w", part.Name, err)
		}
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("could not add track for part %q: %w", part.Name, err)
		}
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("could not write smf: %w", err)
	}
	return nil
}

// channel skips the GM percussion channel.
func channel(part int) uint8 {
	ch := uint8(part % 15)
	if ch >= 9 {
		ch++
	}
	return ch
}

func conductor(p *voxport.Project) smf.Track {
	var events []event
	if p.Name != "" {
		events = append(events, event{0, orderMeta, smf.MetaTrackSequenceName(p.Name)})
	}
	for _, t := range p.Tempos {
		events = append(events, event{int(t.Position), orderMeta, smf.MetaTempo(t.BPM)})
	}
	for _, ts := range p.TimeSignatures {
		events = append(events, event{BarTick(p, ts.BarPosition), orderMeta, smf.MetaMeter(uint8(ts.BeatPerBar), uint8(ts.BeatUnit))})
	}
	return track(events)
}

func partTrack(p *voxport.Project, part *voxport.VoicePart, ch uint8, opts Options) (smf.Track, error) {
	name := part.Name
	if part.TrackNo >= 0 && part.TrackNo < len(p.Tracks) && p.Tracks[part.TrackNo].Name != "" {
		name = p.Tracks[part.TrackNo].Name
	}
	events := []event{
		{0, orderMeta, smf.MetaTrackSequenceName(name)},
		// RPN 0: pitch bend sensitivity
		{0, orderControl, midi.ControlChange(ch, 101, 0)},
		{0, orderControl, midi.ControlChange(ch, 100, 0)},
		{0, orderControl, midi.ControlChange(ch, 6, uint8(opts.BendRange))},
		{0, orderControl, midi.ControlChange(ch, 38, 0)},
	}
	for _, n := range part.Notes {
		if n.Tone < 0 || n.Tone > 127 || n.Duration <= 0 {
			continue
		}
		start := part.Position + n.Position
		lyric := n.Lyric
		if opts.Lyrics != nil {
			s, _, err := transform.String(opts.Lyrics, lyric)
			if err != nil {
				return nil, fmt.Errorf("could not encode lyric %q: %w", lyric, err)
			}
			lyric = s
		}
		events = append(events,
			event{start, orderMeta, smf.MetaLyric(lyric)},
			event{start, orderNoteOn, midi.NoteOn(ch, uint8(n.Tone), opts.Velocity)},
			event{start + n.Duration, orderNoteOff, midi.NoteOff(ch, uint8(n.Tone))},
		)
	}
	if c := part.FindCurve(voxport.PITD); c != nil && !c.IsEmpty() {
		last := math.MinInt
		bend := func(tick, cents int) {
			v := BendValue(cents, opts.BendRange)
			if v == last {
				return
			}
			events = append(events, event{part.Position + tick, orderControl, midi.Pitchbend(ch, int16(v))})
			last = v
		}
		first, end := c.Xs[0], c.Xs[len(c.Xs)-1]
		for tick := first; tick < end; tick += opts.BendStep {
			v, _ := c.Query(tick)
			bend(tick, v)
		}
		bend(end, c.Ys[len(c.Ys)-1])
		bend(max(end+1, part.Duration), 0)
	}
	return track(events), nil
}

// BendValue converts cents to a 14 bit signed pitch bend value for the given
// bend range in semitones.
func BendValue(cents, bendRange int) int {
	v := int(math.Round(float64(cents) / float64(bendRange*100) * 8192))
	return min(max(v, -8192), 8191)
}

// BarTick returns the tick where a bar starts.
func BarTick(p *voxport.Project, bar int) int {
	tick := 0
	beats, unit := 4, 4
	for b := 0; b < bar; b++ {
		for _, ts := range p.TimeSignatures {
			if ts.BarPosition <= b && ts.BeatPerBar > 0 && ts.BeatUnit > 0 {
				beats, unit = ts.BeatPerBar, ts.BeatUnit
			}
		}
		tick += p.Resolution * 4 * beats / unit
	}
	return tick
}

func track(events []event) smf.Track {
	slices.SortStableFunc(events, func(a, b event) int {
		if a.tick != b.tick {
			return a.tick - b.tick
		}
		return a.order - b.order
	})
	var tr smf.Track
	at := 0
	for _, e := range events {
		tr.Add(uint32(e.tick-at), e.msg)
		at = e.tick
	}
	tr.Close(0)
	return tr
}
