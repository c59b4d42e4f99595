package hardware

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
)

// SPIStrip drives a WS281x/SK6812 strip through an SPI MOSI line.
// Frames are handed to the encoder unchanged, in the strip's wire order.
type SPIStrip struct {
	port spi.PortCloser
	dev  *nrzled.Dev
}

func OpenSPIStrip(portName string, pixels, channels int) (*SPIStrip, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open spi port %q: %w", portName, err)
	}

	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: pixels,
		Channels:  channels,
		Freq:      800 * physic.KiloHertz,
	})
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to initialise strip: %w", err)
	}

	return &SPIStrip{port: port, dev: dev}, nil
}

func (s *SPIStrip) Write(frame []byte) (int, error) {
	return s.dev.Write(frame)
}

func (s *SPIStrip) Close() error {
	if err := s.dev.Halt(); err != nil {
		s.port.Close()
		return err
	}
	return s.port.Close()
}
