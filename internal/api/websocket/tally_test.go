package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KevinKickass/OpenTallyCore/internal/display"
	"github.com/KevinKickass/OpenTallyCore/internal/output"
	"github.com/KevinKickass/OpenTallyCore/internal/tally"
	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

type levelPin struct{ high bool }

func (p *levelPin) Out(high bool) error {
	p.high = high
	return nil
}

// startTally runs the hub with the real tally handler on discrete outputs.
func startTally(t *testing.T) (*tally.Handler, *httptest.Server) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	var pins [types.LineCount]output.Pin
	for i := range pins {
		pins[i] = &levelPin{}
	}

	hub := NewHub(logger)
	labels := [types.ChannelCount]string{"CAM1", "CAM2", "CAM3"}
	handler := tally.NewHandler(labels, "127.0.0.1", output.NewDiscrete(pins, false),
		display.NewLogDisplay(logger), hub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx, handler)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return handler, srv
}

func expectText(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}

// send writes a frame and waits until the hub has handled it, using the
// liveness exchange queued behind it.
func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	for _, msg := range []string{frame, "P"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write %q: %v", msg, err)
		}
	}
	expectText(t, conn, tally.AckProbe)
}

func TestTally_MalformedFrameKeepsConnection(t *testing.T) {
	handler, srv := startTally(t)
	conn := dial(t, srv)
	defer conn.Close()
	expectText(t, conn, tally.AckConnect)

	send(t, conn, `{"CAM1-program":1}`)
	send(t, conn, `{"CAM2-program":1`)

	cam1 := types.Line{Channel: 0, Kind: types.KindProgram}
	if !handler.States().Get(cam1) {
		t.Fatalf("malformed frame changed state: %v", handler.States())
	}
	applied, dropped := handler.Stats()
	if applied != 1 || dropped != 1 {
		t.Fatalf("applied %d dropped %d", applied, dropped)
	}
}

func TestTally_LastWriteWinsAcrossClients(t *testing.T) {
	handler, srv := startTally(t)

	first := dial(t, srv)
	defer first.Close()
	expectText(t, first, tally.AckConnect)
	second := dial(t, srv)
	defer second.Close()
	expectText(t, second, tally.AckConnect)

	send(t, first, `{"CAM1-program":1,"CAM1-preview":0}`)
	send(t, second, `{"CAM2-preview":1}`)

	var want types.LineStates
	want.Set(types.Line{Channel: 1, Kind: types.KindPreview}, true)
	if got := handler.States(); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}
