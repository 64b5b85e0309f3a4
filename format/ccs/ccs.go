// Package ccs decodes CeVIO Creative Studio project files (.ccs). Only the
// song units are read: their tempo, beat and score tables. The timeline of a
// ccs file starts with a fixed one measure lead-in, which is cut off.
package ccs

import (
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/exp/slices"

	"github.com/voxport/voxport"
	"github.com/voxport/voxport/format"
)

const (
	// TicksPerQuarter is the resolution of the Clock attributes.
	TicksPerQuarter = 960

	category       = "SingerSong"
	leadInMeasures = 1
)

type (
	scenario struct {
		Units  []unit  `xml:"Sequence>Scene>Units>Unit"`
		Groups []group `xml:"Sequence>Scene>Groups>Group"`
	}

	unit struct {
		Category string `xml:"Category,attr"`
		Group    string `xml:"Group,attr"`
		Song     song   `xml:"Song"`
	}

	group struct {
		ID       string `xml:"Id,attr"`
		Category string `xml:"Category,attr"`
		Name     string `xml:"Name,attr"`
		IsMuted  bool   `xml:"IsMuted,attr"`
	}

	song struct {
		Tempos []sound    `xml:"Tempo>Sound"`
		Beats  []beatTime `xml:"Beat>Time"`
		Notes  []note     `xml:"Score>Note"`
	}

	sound struct {
		Clock int64   `xml:"Clock,attr"`
		Tempo float64 `xml:"Tempo,attr"`
	}

	beatTime struct {
		Clock    int64 `xml:"Clock,attr"`
		Beats    int   `xml:"Beats,attr"`
		BeatType int   `xml:"BeatType,attr"`
	}

	note struct {
		Clock       int64  `xml:"Clock,attr"`
		Duration    int64  `xml:"Duration,attr"`
		PitchStep   int    `xml:"PitchStep,attr"`
		PitchOctave int    `xml:"PitchOctave,attr"`
		Lyric       string `xml:"Lyric,attr"`
	}
)

// Decoder decodes ccs files. The zero value is ready to use.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (*format.Project, error) {
	var doc scenario
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("could not parse ccs: %w", err)
	}
	var units []unit
	for _, u := range doc.Units {
		if u.Category == category {
			units = append(units, u)
		}
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no song units in the scene", format.ErrMalformed)
	}

	signatures := []voxport.TimeSignature{{BarPosition: 0, BeatPerBar: 4, BeatUnit: 4}}
	for _, u := range units {
		if s := timeSignatures(u.Song.Beats); len(s) > 0 {
			signatures = s
			break
		}
	}
	tempos := []voxport.Tempo{{Position: 0, BPM: voxport.DefaultBPM}}
	for _, u := range units {
		if len(u.Song.Tempos) > 0 {
			tempos = tempos[:0]
			for _, s := range u.Song.Tempos {
				tempos = append(tempos, voxport.Tempo{Position: s.Clock, BPM: s.Tempo})
			}
			break
		}
	}
	slices.SortStableFunc(tempos, func(a, b voxport.Tempo) int { return cmpInt64(a.Position, b.Position) })
	prefix := barTick(signatures, leadInMeasures)

	ret := &format.Project{
		TicksPerQuarter: TicksPerQuarter,
		Tempos:          cutTempos(tempos, prefix),
		TimeSignatures:  cutSignatures(signatures, leadInMeasures),
	}
	for i, u := range units {
		t := format.Track{Name: fmt.Sprintf("Track %d", i+1)}
		for _, g := range doc.Groups {
			if g.ID == u.Group && g.Category == category {
				if g.Name != "" {
					t.Name = g.Name
				}
				t.Mute = g.IsMuted
				break
			}
		}
		for _, n := range u.Song.Notes {
			onset := n.Clock - prefix
			if onset < 0 || n.Duration <= 0 {
				continue
			}
			t.Notes = append(t.Notes, format.Note{
				Onset:    onset,
				Duration: n.Duration,
				Key:      n.PitchStep + (n.PitchOctave+1)*12,
				Lyric:    format.Lyric(n.Lyric),
			})
		}
		ret.Tracks = append(ret.Tracks, t)
	}
	return ret, nil
}

// timeSignatures converts the clock positioned beat table to bar positions.
// A signature that starts in the middle of a bar starts a new bar.
func timeSignatures(times []beatTime) []voxport.TimeSignature {
	times = slices.Clone(times)
	slices.SortStableFunc(times, func(a, b beatTime) int { return cmpInt64(a.Clock, b.Clock) })
	var ret []voxport.TimeSignature
	var clock int64
	bar, beats, beatType := 0, 4, 4
	for _, t := range times {
		if t.Beats <= 0 || t.BeatType <= 0 {
			continue
		}
		length := barLength(beats, beatType)
		bar += int((t.Clock - clock + length - 1) / length)
		clock = t.Clock
		beats, beatType = t.Beats, t.BeatType
		if n := len(ret); n > 0 && ret[n-1].BarPosition == bar {
			ret = ret[:n-1]
		}
		ret = append(ret, voxport.TimeSignature{BarPosition: bar, BeatPerBar: beats, BeatUnit: beatType})
	}
	return ret
}

func barLength(beats, beatType int) int64 {
	return int64(TicksPerQuarter * 4 * beats / beatType)
}

// barTick returns the clock where the bar starts.
func barTick(signatures []voxport.TimeSignature, bar int) int64 {
	var tick int64
	beats, beatType := 4, 4
	for b := 0; b < bar; b++ {
		for _, s := range signatures {
			if s.BarPosition <= b {
				beats, beatType = s.BeatPerBar, s.BeatUnit
			}
		}
		tick += barLength(beats, beatType)
	}
	return tick
}

// cutTempos removes the lead-in from the tempo table; the tempo in effect at
// the end of the lead-in moves to tick 0.
func cutTempos(tempos []voxport.Tempo, prefix int64) []voxport.Tempo {
	var ret []voxport.Tempo
	for _, t := range tempos {
		pos := t.Position - prefix
		if pos <= 0 {
			ret = []voxport.Tempo{{Position: 0, BPM: t.BPM}}
			continue
		}
		ret = append(ret, voxport.Tempo{Position: pos, BPM: t.BPM})
	}
	return ret
}

func cutSignatures(signatures []voxport.TimeSignature, bars int) []voxport.TimeSignature {
	var ret []voxport.TimeSignature
	for _, s := range signatures {
		s.BarPosition -= bars
		if s.BarPosition <= 0 {
			s.BarPosition = 0
			ret = []voxport.TimeSignature{s}
			continue
		}
		ret = append(ret, s)
	}
	return ret
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
