package hardware

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// IIOResetSensor reads a raw ADC channel exposed by the Linux IIO subsystem,
// e.g. /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type IIOResetSensor struct {
	path string
}

func NewIIOResetSensor(path string) *IIOResetSensor {
	return &IIOResetSensor{path: path}
}

func (s *IIOResetSensor) Sample() (int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.path, err)
	}
	level, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return level, nil
}
