package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// InitHost loads the periph host drivers once per process.
func InitHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostErr = fmt.Errorf("failed to initialise host drivers: %w", err)
		}
	})
	return hostErr
}
