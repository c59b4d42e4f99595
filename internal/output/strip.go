package output

import (
	"fmt"

	"github.com/KevinKickass/OpenTallyCore/internal/types"
)

const (
	// StripPixels is the physical strip length; slots 6 and 7 stay dark.
	StripPixels = 8
	// DefaultBrightness matches the factory setting of the tally strip.
	DefaultBrightness = 10
)

// Color is one GRBW pixel before brightness scaling.
type Color struct {
	R, G, B, W uint8
}

var (
	ColorOff     = Color{}
	ColorProgram = Color{R: 255}
	ColorPreview = Color{G: 255}
)

// Strip renders lines on an addressable strip. Writes are staged in memory
// and only reach the device on Flush.
type Strip struct {
	dev        PixelDevice
	brightness uint8
	staged     [StripPixels]Color
	dirty      bool
}

// NewStrip wraps a pixel device. The first Flush always writes a frame.
func NewStrip(dev PixelDevice, brightness uint8) *Strip {
	return &Strip{dev: dev, brightness: brightness, dirty: true}
}

// Slot returns the pixel index for a line: program of camera n at 2n, preview at 2n+1.
func Slot(line types.Line) (int, bool) {
	if !line.Valid() {
		return 0, false
	}
	slot := line.Channel * 2
	if line.Kind == types.KindPreview {
		slot++
	}
	return slot, true
}

func (s *Strip) Set(line types.Line, on bool) error {
	slot, ok := Slot(line)
	if !ok {
		return nil
	}
	c := ColorOff
	if on {
		c = ColorProgram
		if line.Kind == types.KindPreview {
			c = ColorPreview
		}
	}
	if s.staged[slot] != c {
		s.staged[slot] = c
		s.dirty = true
	}
	return nil
}

// Staged returns the pixel colours that the next Flush will send.
func (s *Strip) Staged() [StripPixels]Color {
	return s.staged
}

// Flush writes the staged frame in a single device call.
func (s *Strip) Flush() error {
	if !s.dirty {
		return nil
	}
	if _, err := s.dev.Write(s.Frame()); err != nil {
		return fmt.Errorf("strip write: %w", err)
	}
	s.dirty = false
	return nil
}

// Frame encodes the staged pixels as GRBW bytes with brightness applied.
func (s *Strip) Frame() []byte {
	frame := make([]byte, 0, StripPixels*4)
	for _, c := range s.staged {
		frame = append(frame, s.scale(c.G), s.scale(c.R), s.scale(c.B), s.scale(c.W))
	}
	return frame
}

func (s *Strip) scale(v uint8) uint8 {
	return uint8((uint16(v) * (uint16(s.brightness) + 1)) >> 8)
}

func (s *Strip) Name() string { return "pixel-strip" }

// Close blanks the strip and releases the device if it is closable.
func (s *Strip) Close() error {
	s.staged = [StripPixels]Color{}
	s.dirty = true
	err := s.Flush()
	if c, ok := s.dev.(interface{ Close() error }); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
