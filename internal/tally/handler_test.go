package tally

import (
	"errors"
	"testing"

	"github.com/KevinKickass/OpenTallyCore/internal/display"
	"github.com/KevinKickass/OpenTallyCore/internal/output"
	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var camLabels = [types.ChannelCount]string{"CAM1", "CAM2", "CAM3"}

type fakePin struct {
	high   bool
	writes int
}

func (p *fakePin) Out(high bool) error {
	p.high = high
	p.writes++
	return nil
}

type fakePixels struct {
	frames [][]byte
}

func (d *fakePixels) Write(frame []byte) (int, error) {
	d.frames = append(d.frames, append([]byte(nil), frame...))
	return len(frame), nil
}

type fakeReplier struct {
	sent []string
}

func (r *fakeReplier) SendText(conn uuid.UUID, text string) error {
	r.sent = append(r.sent, text)
	return nil
}

type fakeDisplay struct {
	screens []display.Screen
}

func (d *fakeDisplay) Show(s display.Screen) error {
	d.screens = append(d.screens, s)
	return nil
}

func (d *fakeDisplay) last() display.Screen {
	return d.screens[len(d.screens)-1]
}

type discreteRig struct {
	pins    [types.LineCount]*fakePin
	handler *Handler
	replier *fakeReplier
	display *fakeDisplay
}

func newDiscreteRig(t *testing.T, invert bool) *discreteRig {
	t.Helper()
	rig := &discreteRig{replier: &fakeReplier{}, display: &fakeDisplay{}}
	var pins [types.LineCount]output.Pin
	for i := range rig.pins {
		rig.pins[i] = &fakePin{}
		pins[i] = rig.pins[i]
	}
	backend := output.NewDiscrete(pins, invert)
	rig.handler = NewHandler(camLabels, "10.0.0.7", backend, rig.display, rig.replier, zaptest.NewLogger(t))
	return rig
}

func (r *discreteRig) level(ch int, kind types.Kind) bool {
	return r.pins[types.Line{Channel: ch, Kind: kind}.Index()].high
}

func text(payload string) types.Event {
	return types.Event{Kind: types.EventText, Conn: uuid.New(), Payload: []byte(payload)}
}

func TestParseFrame_ValueSemantics(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"-1", false},
		{"0", false},
		{"1", true},
		{"2", false},
		{`"1"`, false},
		{"1.0", false},
		{"true", false},
		{"null", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			states, err := ParseFrame([]byte(`{"CAM2-program":`+tt.value+`}`), camLabels)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			line := types.Line{Channel: 1, Kind: types.KindProgram}
			if states.Get(line) != tt.want {
				t.Fatalf("got %v, want %v", states.Get(line), tt.want)
			}
			for _, other := range types.AllLines() {
				if other != line && states.Get(other) {
					t.Errorf("%s turned on", other)
				}
			}
		})
	}
}

func TestParseFrame_SubsetOfKeys(t *testing.T) {
	states, err := ParseFrame([]byte(`{"CAM1-preview":1,"CAM3-program":1,"CAM3-preview":2,"OTHER-program":1}`), camLabels)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := types.LineStates{}
	want.Set(types.Line{Channel: 0, Kind: types.KindPreview}, true)
	want.Set(types.Line{Channel: 2, Kind: types.KindProgram}, true)
	if states != want {
		t.Fatalf("got %v, want %v", states, want)
	}
}

func TestParseFrame_Malformed(t *testing.T) {
	for _, payload := range []string{"", "{", "[1,2]", "null", `"CAM1-program"`, "42"} {
		if _, err := ParseFrame([]byte(payload), camLabels); !errors.Is(err, types.ErrMessageParse) {
			t.Errorf("%q: got %v", payload, err)
		}
	}
}

func TestHandler_ConnectAndDisconnectForceOff(t *testing.T) {
	rig := newDiscreteRig(t, false)

	rig.handler.HandleEvent(text(`{"CAM1-program":1,"CAM2-preview":1,"CAM3-program":1}`))
	if !rig.level(0, types.KindProgram) {
		t.Fatalf("setup: line not on")
	}

	rig.handler.HandleEvent(types.Event{Kind: types.EventConnected, Conn: uuid.New()})
	for _, line := range types.AllLines() {
		if rig.level(line.Channel, line.Kind) {
			t.Errorf("%s still on after connect", line)
		}
	}
	if len(rig.replier.sent) != 1 || rig.replier.sent[0] != AckConnect {
		t.Fatalf("connect replies %v", rig.replier.sent)
	}
	if rig.display.last().Notice != display.NoticeConnected {
		t.Fatalf("display notice %q", rig.display.last().Notice)
	}

	rig.handler.HandleEvent(text(`{"CAM2-program":1}`))
	rig.handler.HandleEvent(types.Event{Kind: types.EventDisconnected, Conn: uuid.New()})
	if rig.handler.States() != (types.LineStates{}) {
		t.Fatalf("states after disconnect %v", rig.handler.States())
	}
	if rig.level(1, types.KindProgram) {
		t.Fatalf("line on after disconnect")
	}
	if rig.display.last().Notice != display.NoticeDisconnected {
		t.Fatalf("display notice %q", rig.display.last().Notice)
	}
}

func TestHandler_ProbeLeavesOutputsAlone(t *testing.T) {
	rig := newDiscreteRig(t, false)
	rig.handler.HandleEvent(text(`{"CAM3-preview":1}`))
	before := rig.handler.States()
	writes := rig.pins[0].writes

	rig.handler.HandleEvent(text("P"))

	if rig.handler.States() != before {
		t.Fatalf("probe changed states")
	}
	if rig.pins[0].writes != writes {
		t.Fatalf("probe wrote to a pin")
	}
	if len(rig.replier.sent) != 1 || rig.replier.sent[0] != AckProbe {
		t.Fatalf("probe replies %v", rig.replier.sent)
	}
}

func TestHandler_MalformedMessageKeepsState(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rig := newDiscreteRig(t, false)
	rig.handler.logger = zap.New(core)

	rig.handler.HandleEvent(text(`{"CAM1-program":1}`))
	before := rig.handler.States()

	rig.handler.HandleEvent(text(`{"CAM1-program":`))

	if rig.handler.States() != before {
		t.Fatalf("malformed message changed state")
	}
	if !rig.level(0, types.KindProgram) {
		t.Fatalf("line dropped by malformed message")
	}
	if logs.FilterMessage("Tally message dropped").Len() != 1 {
		t.Fatalf("drop not logged")
	}
	if _, dropped := rig.handler.Stats(); dropped != 1 {
		t.Fatalf("dropped %d", dropped)
	}
}

func TestHandler_Cam1Scenario(t *testing.T) {
	rig := newDiscreteRig(t, false)

	rig.handler.HandleEvent(types.Event{Kind: types.EventConnected, Conn: uuid.New()})
	rig.handler.HandleEvent(text(`{"CAM1-program":1,"CAM1-preview":0}`))

	if !rig.level(0, types.KindProgram) {
		t.Errorf("CAM1 program off")
	}
	if rig.level(0, types.KindPreview) {
		t.Errorf("CAM1 preview on")
	}
	for ch := 1; ch < types.ChannelCount; ch++ {
		if rig.level(ch, types.KindProgram) || rig.level(ch, types.KindPreview) {
			t.Errorf("channel %d affected", ch+1)
		}
	}

	screen := rig.display.last()
	if screen.Lines == nil || !screen.Lines.Get(types.Line{Channel: 0, Kind: types.KindProgram}) {
		t.Fatalf("display not updated with line states")
	}
	if screen.Address != "10.0.0.7" || screen.Labels != camLabels {
		t.Fatalf("display header %+v", screen)
	}
}

func TestHandler_InvertedDiscreteWritesLow(t *testing.T) {
	rig := newDiscreteRig(t, true)
	rig.handler.HandleEvent(text(`{"CAM1-program":1}`))

	if rig.level(0, types.KindProgram) {
		t.Fatalf("ON should drive the line low when inverted")
	}
	if !rig.level(0, types.KindPreview) {
		t.Fatalf("OFF should drive the line high when inverted")
	}
}

func TestHandler_StripFlushesOncePerMessage(t *testing.T) {
	dev := &fakePixels{}
	strip := output.NewStrip(dev, output.DefaultBrightness)
	h := NewHandler(camLabels, "", strip, nil, nil, zaptest.NewLogger(t))

	h.HandleEvent(text(`{"CAM1-program":1,"CAM2-preview":1}`))
	if len(dev.frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(dev.frames))
	}

	staged := strip.Staged()
	if staged[0] == output.ColorOff || staged[3] == output.ColorOff {
		t.Fatalf("slots not lit: %v", staged)
	}
}

func TestHandler_BinaryIgnored(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rig := newDiscreteRig(t, false)
	rig.handler.logger = zap.New(core)
	rig.handler.HandleEvent(text(`{"CAM2-preview":1}`))
	before := rig.handler.States()

	rig.handler.HandleEvent(types.Event{Kind: types.EventBinary, Payload: []byte{'{', '}', 0x00}})

	if rig.handler.States() != before {
		t.Fatalf("binary frame changed state")
	}
	entries := logs.FilterMessage("Binary frame ignored").All()
	if len(entries) != 1 || entries[0].ContextMap()["length"] != int64(3) {
		t.Fatalf("binary frame not logged with its length: %v", entries)
	}
	if logs.FilterMessage("Binary frame dump").Len() != 1 {
		t.Fatalf("debug dump missing")
	}
}
