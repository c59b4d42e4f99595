package display

import (
	"fmt"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// clearScreen is the form feed understood by serial character panels.
const clearScreen = "\f"

// SerialDisplay drives a character panel attached to a UART.
type SerialDisplay struct {
	mu   sync.Mutex
	port serial.Port
}

func OpenSerialDisplay(portName string, baudRate int) (*SerialDisplay, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open display port %s: %w", portName, err)
	}
	return &SerialDisplay{port: port}, nil
}

func (d *SerialDisplay) Show(screen Screen) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	text := clearScreen + strings.Join(Render(screen), "\r\n")
	if _, err := d.port.Write([]byte(text)); err != nil {
		return fmt.Errorf("display write: %w", err)
	}
	return nil
}

func (d *SerialDisplay) Close() error {
	return d.port.Close()
}
