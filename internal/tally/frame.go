package tally

import (
	"encoding/json"
	"fmt"

	"github.com/KevinKickass/OpenTallyCore/internal/types"
)

// ProbeByte opens a liveness probe. No JSON object can start with it.
const ProbeByte = 'P'

// Acknowledgements sent back on the control channel.
const (
	AckConnect = "Connected"
	AckProbe   = "A"
)

// IsProbe reports whether a text frame is a liveness probe.
func IsProbe(payload []byte) bool {
	return len(payload) > 0 && payload[0] == ProbeByte
}

// ParseFrame resolves a tally message against the configured labels. Only a
// key whose value is exactly the JSON integer 1 turns its line on; missing
// keys, other numbers and other value types leave it off.
func ParseFrame(payload []byte, labels [types.ChannelCount]string) (types.LineStates, error) {
	var states types.LineStates

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return states, fmt.Errorf("%w: %v", types.ErrMessageParse, err)
	}
	if doc == nil {
		return states, fmt.Errorf("%w: not an object", types.ErrMessageParse)
	}

	for _, line := range types.AllLines() {
		raw, ok := doc[types.ProtocolKey(labels[line.Channel], line.Kind)]
		if !ok {
			continue
		}
		var value int64
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		states.Set(line, value == 1)
	}
	return states, nil
}
