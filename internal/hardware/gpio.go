package hardware

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// GPIOPin is a digital output line. It satisfies output.Pin.
type GPIOPin struct {
	pin gpio.PinIO
}

// OpenGPIOPin looks a pin up by its board name (e.g. "GPIO17").
func OpenGPIOPin(name string) (*GPIOPin, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return &GPIOPin{pin: pin}, nil
}

func (p *GPIOPin) Out(high bool) error {
	return p.pin.Out(gpio.Level(high))
}

func (p *GPIOPin) String() string {
	return p.pin.Name()
}

// GPIOResetSensor reads a digital reset button as a full-scale analog level.
type GPIOResetSensor struct {
	pin gpio.PinIO
}

// FullScale is the level reported for a pressed button.
const FullScale = 1023

func OpenGPIOResetSensor(name string) (*GPIOResetSensor, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure %s as input: %w", name, err)
	}
	return &GPIOResetSensor{pin: pin}, nil
}

func (s *GPIOResetSensor) Sample() (int, error) {
	if s.pin.Read() == gpio.High {
		return FullScale, nil
	}
	return 0, nil
}
