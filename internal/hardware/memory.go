package hardware

import (
	"encoding/hex"

	"go.uber.org/zap"
)

// LogPin stands in for a GPIO line on hosts without one.
type LogPin struct {
	name   string
	logger *zap.Logger
	high   bool
}

func NewLogPin(name string, logger *zap.Logger) *LogPin {
	return &LogPin{name: name, logger: logger}
}

func (p *LogPin) Out(high bool) error {
	p.high = high
	p.logger.Debug("Pin write", zap.String("pin", p.name), zap.Bool("high", high))
	return nil
}

// High returns the last written level.
func (p *LogPin) High() bool { return p.high }

// LogPixels stands in for a pixel strip on hosts without one.
type LogPixels struct {
	logger *zap.Logger
	last   []byte
}

func NewLogPixels(logger *zap.Logger) *LogPixels {
	return &LogPixels{logger: logger}
}

func (p *LogPixels) Write(frame []byte) (int, error) {
	p.last = append(p.last[:0], frame...)
	p.logger.Debug("Strip frame", zap.String("grbw", hex.EncodeToString(frame)))
	return len(frame), nil
}
