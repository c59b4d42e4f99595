package system

import (
	"fmt"
	"io"
	"sync"

	"github.com/KevinKickass/OpenTallyCore/internal/config"
	"github.com/KevinKickass/OpenTallyCore/internal/display"
	"github.com/KevinKickass/OpenTallyCore/internal/hardware"
	"github.com/KevinKickass/OpenTallyCore/internal/modbus"
	"github.com/KevinKickass/OpenTallyCore/internal/network"
	"github.com/KevinKickass/OpenTallyCore/internal/output"
	"github.com/KevinKickass/OpenTallyCore/internal/storage"
	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"go.uber.org/zap"
)

// OutputFactory builds the output backend selected by the stored record.
type OutputFactory interface {
	NewBackend(usePixelStrip, invert bool) (output.Backend, error)
}

// Hardware bundles the process-wide peripherals. They outlive soft restarts;
// everything built from them is recreated per boot cycle.
type Hardware struct {
	Medium      storage.Medium
	Radio       network.Radio
	Display     display.Display
	ResetSensor storage.ResetSensor
	Outputs     OutputFactory

	closers []io.Closer
}

// Close releases peripherals opened by OpenHardware.
func (hw *Hardware) Close() error {
	var firstErr error
	for i := len(hw.closers) - 1; i >= 0; i-- {
		if err := hw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenHardware opens the drivers named in the configuration.
func OpenHardware(cfg *config.Config, logger *zap.Logger) (*Hardware, error) {
	hw := &Hardware{}

	medium, err := storage.NewFileMedium(cfg.Storage.Path, cfg.Storage.RegionSize)
	if err != nil {
		return nil, err
	}
	hw.Medium = medium

	switch cfg.Network.Driver {
	case "nmcli":
		hw.Radio = network.NewNMCLIRadio(cfg.Network.Interface, logger.Named("radio"))
	default:
		hw.Radio = network.NewStaticRadio(cfg.Network.StaticNetworks, logger.Named("radio"))
	}

	switch cfg.Display.Driver {
	case "serial":
		d, err := display.OpenSerialDisplay(cfg.Display.Port, cfg.Display.BaudRate)
		if err != nil {
			hw.Close()
			return nil, err
		}
		hw.Display = d
		hw.closers = append(hw.closers, d)
	default:
		hw.Display = display.NewLogDisplay(logger)
	}

	switch cfg.Reset.Driver {
	case "gpio":
		sensor, err := hardware.OpenGPIOResetSensor(cfg.Reset.Pin)
		if err != nil {
			hw.Close()
			return nil, err
		}
		hw.ResetSensor = sensor
	case "iio":
		hw.ResetSensor = hardware.NewIIOResetSensor(cfg.Reset.IIOPath)
	}

	outputs := &configOutputs{cfg: cfg.Outputs, logger: logger.Named("outputs")}
	hw.Outputs = outputs
	hw.closers = append(hw.closers, outputs)

	return hw, nil
}

// configOutputs opens backends from the outputs configuration section.
type configOutputs struct {
	cfg    config.OutputsConfig
	logger *zap.Logger

	mu     sync.Mutex
	modbus *modbus.Client
}

func (o *configOutputs) NewBackend(usePixelStrip, invert bool) (output.Backend, error) {
	if usePixelStrip {
		return o.newStrip()
	}
	return o.newDiscrete(invert)
}

func (o *configOutputs) newStrip() (output.Backend, error) {
	var dev output.PixelDevice
	switch o.cfg.Strip.Driver {
	case "spi":
		strip, err := hardware.OpenSPIStrip(o.cfg.Strip.SPIPort, o.cfg.Strip.Pixels, o.cfg.Strip.Channels)
		if err != nil {
			return nil, err
		}
		dev = strip
	default:
		dev = hardware.NewLogPixels(o.logger)
	}
	return output.NewStrip(dev, uint8(o.cfg.Strip.Brightness)), nil
}

func (o *configOutputs) newDiscrete(invert bool) (output.Backend, error) {
	var pins [types.LineCount]output.Pin

	var bank *modbus.CoilBank
	if o.cfg.Discrete.Driver == "modbus" {
		bank = modbus.NewCoilBank(o.modbusClient(), uint8(o.cfg.Discrete.Modbus.UnitID), o.cfg.Discrete.Modbus.Timeout)
	}

	for _, line := range types.AllLines() {
		names := o.cfg.Discrete.Preview
		if line.Kind == types.KindProgram {
			names = o.cfg.Discrete.Program
		}
		if line.Channel >= len(names) || names[line.Channel] == "" {
			continue
		}
		name := names[line.Channel]

		pin, err := o.openPin(line, name, bank)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", line, err)
		}
		pins[line.Index()] = pin
	}

	d := output.NewDiscrete(pins, invert)
	if bank != nil {
		d.SetFlusher(bank)
	}
	return d, nil
}

func (o *configOutputs) openPin(line types.Line, name string, bank *modbus.CoilBank) (output.Pin, error) {
	switch o.cfg.Discrete.Driver {
	case "gpio":
		return hardware.OpenGPIOPin(name)
	case "modbus":
		return bank.Coil(name)
	default:
		return hardware.NewLogPin(line.String()+"/"+name, o.logger), nil
	}
}

func (o *configOutputs) modbusClient() *modbus.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.modbus == nil {
		o.modbus = modbus.NewClient(o.cfg.Discrete.Modbus.Address, o.cfg.Discrete.Modbus.Timeout)
	}
	return o.modbus
}

func (o *configOutputs) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.modbus == nil {
		return nil
	}
	return o.modbus.Close()
}
