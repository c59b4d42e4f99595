package display

import (
	"fmt"
	"strings"

	"github.com/KevinKickass/OpenTallyCore/internal/types"
)

// Notices shown on the status display.
const (
	NoticeConnected    = "Connected!"
	NoticeDisconnected = "Disconnected"
	NoticeSettingMode  = "Setting mode..."
	NoticeWasReset     = "Was reset"
	NoticeWiped        = "Settings wiped, power cycle"
)

// Screen is one full frame of the status display.
type Screen struct {
	Labels  [types.ChannelCount]string
	Address string
	// Notice may span rows separated by "\n".
	Notice string
	// Lines is set when the screen reports resolved tally states.
	Lines *types.LineStates
}

// Display is a write-only text surface.
type Display interface {
	Show(screen Screen) error
}

// Render lays a screen out as text rows.
func Render(s Screen) []string {
	rows := []string{fmt.Sprintf("T: %s", strings.Join(s.Labels[:], "-"))}
	if s.Address != "" {
		rows = append(rows, s.Address)
	}
	if s.Notice != "" {
		rows = append(rows, strings.Split(s.Notice, "\n")...)
	}
	if s.Lines != nil {
		for ch := 0; ch < types.ChannelCount; ch++ {
			prog := s.Lines.Get(types.Line{Channel: ch, Kind: types.KindProgram})
			prev := s.Lines.Get(types.Line{Channel: ch, Kind: types.KindPreview})
			rows = append(rows, fmt.Sprintf("T%d - Prog: %d Prev %d", ch+1, bit(prog), bit(prev)))
		}
	}
	return rows
}

func bit(on bool) int {
	if on {
		return 1
	}
	return 0
}
