package output

import "github.com/KevinKickass/OpenTallyCore/internal/types"

// Backend drives the six tally lines. Exactly one backend is active per boot.
type Backend interface {
	// Set stages the state of a line. Lines the backend does not manage are a no-op.
	Set(line types.Line, on bool) error
	// Flush makes staged changes visible. Backends that write through return nil.
	Flush() error
	// Name identifies the backend in logs and status output.
	Name() string
	Close() error
}

// Pin is a single digital output.
type Pin interface {
	Out(high bool) error
}

// Flusher commits pin writes that were buffered by Out.
type Flusher interface {
	Flush() error
}

// PixelDevice accepts a full strip frame, channel bytes in wire order.
type PixelDevice interface {
	Write(frame []byte) (int, error)
}

// Reset forces every managed line off and flushes once.
func Reset(b Backend) error {
	var firstErr error
	for _, line := range types.AllLines() {
		if err := b.Set(line, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := b.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Apply writes all six states and flushes once, so strip observers see one transition.
func Apply(b Backend, states types.LineStates) error {
	var firstErr error
	for _, line := range types.AllLines() {
		if err := b.Set(line, states.Get(line)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := b.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
