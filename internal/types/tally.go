package types

import "fmt"

// ChannelCount is the number of camera channels a device drives.
const ChannelCount = 3

// LineCount is the number of managed output lines (ChannelCount x 2 kinds).
const LineCount = ChannelCount * 2

// Kind distinguishes the two output lines of a camera channel.
type Kind uint8

const (
	KindPreview Kind = iota
	KindProgram
)

func (k Kind) String() string {
	switch k {
	case KindPreview:
		return "preview"
	case KindProgram:
		return "program"
	default:
		return "unknown"
	}
}

// Line addresses one output line by channel and kind. Channel is zero based.
type Line struct {
	Channel int
	Kind    Kind
}

// Valid reports whether the line is one of the six managed lines.
func (l Line) Valid() bool {
	return l.Channel >= 0 && l.Channel < ChannelCount && l.Kind <= KindProgram
}

// Index returns the position of the line in a LineStates array.
func (l Line) Index() int {
	return l.Channel*2 + int(l.Kind)
}

func (l Line) String() string {
	return fmt.Sprintf("cam%d-%s", l.Channel+1, l.Kind)
}

// AllLines lists the six managed lines in LineStates order.
func AllLines() []Line {
	lines := make([]Line, 0, LineCount)
	for ch := 0; ch < ChannelCount; ch++ {
		lines = append(lines, Line{Channel: ch, Kind: KindPreview}, Line{Channel: ch, Kind: KindProgram})
	}
	return lines
}

// LineStates holds the resolved on/off state of every line, indexed by Line.Index.
type LineStates [LineCount]bool

// Get returns the state of a line; invalid lines read as off.
func (s LineStates) Get(l Line) bool {
	if !l.Valid() {
		return false
	}
	return s[l.Index()]
}

// Set stores the state of a line; invalid lines are ignored.
func (s *LineStates) Set(l Line, on bool) {
	if !l.Valid() {
		return
	}
	s[l.Index()] = on
}

// ProtocolKey returns the tally message key for a camera label and line kind.
func ProtocolKey(label string, kind Kind) string {
	return label + "-" + kind.String()
}
