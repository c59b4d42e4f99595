package modbus

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"
)

// CoilBank stages relay states for one unit and writes them on Flush. Adjacent
// coils go out in a single 0x0F request, so a full update of a contiguous
// relay block costs one exchange and an unresponsive board one timeout.
type CoilBank struct {
	client  *Client
	unitID  uint8
	timeout time.Duration

	mu      sync.Mutex
	pending map[uint16]bool
}

func NewCoilBank(client *Client, unitID uint8, timeout time.Duration) *CoilBank {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CoilBank{
		client:  client,
		unitID:  unitID,
		timeout: timeout,
		pending: make(map[uint16]bool),
	}
}

// Coil returns the relay at a configured address ("16", "0x10").
func (b *CoilBank) Coil(address string) (*Coil, error) {
	n, err := strconv.ParseUint(address, 0, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid coil address %q: %w", address, err)
	}
	return &Coil{bank: b, address: uint16(n)}, nil
}

func (b *CoilBank) stage(address uint16, on bool) {
	b.mu.Lock()
	b.pending[address] = on
	b.mu.Unlock()
}

// Flush writes every staged coil. The whole flush shares one timeout. On
// failure the staged states are kept for the next flush.
func (b *CoilBank) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	for _, run := range b.runs() {
		var err error
		if len(run.values) == 1 {
			err = b.client.WriteSingleCoil(ctx, b.unitID, run.start, run.values[0])
		} else {
			err = b.client.WriteMultipleCoils(ctx, b.unitID, run.start, run.values)
		}
		if err != nil {
			return fmt.Errorf("coils %d-%d: %w", run.start, int(run.start)+len(run.values)-1, err)
		}
		for i := range run.values {
			delete(b.pending, run.start+uint16(i))
		}
	}
	return nil
}

type coilRun struct {
	start  uint16
	values []bool
}

// runs groups the staged coils into runs of consecutive addresses.
func (b *CoilBank) runs() []coilRun {
	addrs := make([]uint16, 0, len(b.pending))
	for addr := range b.pending {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)

	var runs []coilRun
	for _, addr := range addrs {
		n := len(runs)
		if n > 0 {
			last := &runs[n-1]
			if int(last.start)+len(last.values) == int(addr) && len(last.values) < maxCoilsPerWrite {
				last.values = append(last.values, b.pending[addr])
				continue
			}
		}
		runs = append(runs, coilRun{start: addr, values: []bool{b.pending[addr]}})
	}
	return runs
}

// Coil is one relay output on a Modbus board. It satisfies output.Pin; Out
// only stages the level until the bank is flushed.
type Coil struct {
	bank    *CoilBank
	address uint16
}

func (c *Coil) Out(high bool) error {
	c.bank.stage(c.address, high)
	return nil
}

func (c *Coil) String() string {
	return fmt.Sprintf("coil %d", c.address)
}
