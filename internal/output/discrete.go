package output

import (
	"fmt"

	"github.com/KevinKickass/OpenTallyCore/internal/types"
)

// Discrete maps each line 1:1 onto a digital output. With invert set, the
// requested state is XORed before writing, for active-low relay boards.
type Discrete struct {
	pins    [types.LineCount]Pin
	invert  bool
	flusher Flusher
}

// NewDiscrete builds a discrete backend. pins is indexed by types.Line.Index;
// a nil entry leaves that line unwired.
func NewDiscrete(pins [types.LineCount]Pin, invert bool) *Discrete {
	return &Discrete{pins: pins, invert: invert}
}

func (d *Discrete) Set(line types.Line, on bool) error {
	if !line.Valid() {
		return nil
	}
	pin := d.pins[line.Index()]
	if pin == nil {
		return nil
	}
	if err := pin.Out(on != d.invert); err != nil {
		return fmt.Errorf("write %s: %w", line, err)
	}
	return nil
}

// SetFlusher attaches a pin group that buffers writes, such as a Modbus coil
// bank. Flush then commits the group in one go.
func (d *Discrete) SetFlusher(f Flusher) { d.flusher = f }

func (d *Discrete) Flush() error {
	if d.flusher == nil {
		return nil
	}
	if err := d.flusher.Flush(); err != nil {
		return fmt.Errorf("flush outputs: %w", err)
	}
	return nil
}

func (d *Discrete) Name() string {
	if d.invert {
		return "discrete-inverted"
	}
	return "discrete"
}

// Close releases pins that implement io.Closer.
func (d *Discrete) Close() error {
	var firstErr error
	for _, pin := range d.pins {
		if c, ok := pin.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
