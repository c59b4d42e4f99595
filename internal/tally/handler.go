package tally

import (
	"sync"

	"github.com/KevinKickass/OpenTallyCore/internal/display"
	"github.com/KevinKickass/OpenTallyCore/internal/output"
	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Replier sends a text frame back to one connection.
type Replier interface {
	SendText(conn uuid.UUID, text string) error
}

// Handler reflects tally state received on the control channel onto the
// active output backend. HandleEvent must be called from one goroutine; the
// state snapshot may be read from any.
type Handler struct {
	labels  [types.ChannelCount]string
	address string
	backend output.Backend
	display display.Display
	replier Replier
	logger  *zap.Logger

	mu       sync.RWMutex
	states   types.LineStates
	messages uint64
	dropped  uint64
}

func NewHandler(
	labels [types.ChannelCount]string,
	address string,
	backend output.Backend,
	disp display.Display,
	replier Replier,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		labels:  labels,
		address: address,
		backend: backend,
		display: disp,
		replier: replier,
		logger:  logger.Named("tally"),
	}
}

// HandleEvent processes one socket event.
func (h *Handler) HandleEvent(event types.Event) {
	switch event.Kind {
	case types.EventConnected:
		h.Reset()
		h.reply(event.Conn, AckConnect)
		h.show(display.Screen{Notice: display.NoticeConnected})

	case types.EventDisconnected:
		h.Reset()
		h.show(display.Screen{Notice: display.NoticeDisconnected})

	case types.EventText:
		h.handleText(event)

	case types.EventBinary:
		h.logger.Info("Binary frame ignored",
			zap.String("remote_addr", event.RemoteAddr),
			zap.Int("length", len(event.Payload)),
			zap.Error(types.ErrUnsupportedBinary))
		if ce := h.logger.Check(zapcore.DebugLevel, "Binary frame dump"); ce != nil {
			ce.Write(zap.String("dump", spew.Sdump(event.Payload)))
		}
	}
}

func (h *Handler) handleText(event types.Event) {
	if IsProbe(event.Payload) {
		h.reply(event.Conn, AckProbe)
		return
	}

	states, err := ParseFrame(event.Payload, h.labels)
	if err != nil {
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		h.logger.Warn("Tally message dropped",
			zap.String("remote_addr", event.RemoteAddr),
			zap.Int("length", len(event.Payload)),
			zap.Error(err))
		return
	}

	h.apply(states)
	h.mu.Lock()
	h.messages++
	h.mu.Unlock()
	h.show(display.Screen{Lines: &states})
}

// Reset forces all six lines off.
func (h *Handler) Reset() {
	h.apply(types.LineStates{})
}

func (h *Handler) apply(states types.LineStates) {
	if err := output.Apply(h.backend, states); err != nil {
		h.logger.Error("Failed to drive outputs",
			zap.String("backend", h.backend.Name()),
			zap.Error(err))
	}

	h.mu.Lock()
	h.states = states
	h.mu.Unlock()
}

func (h *Handler) reply(conn uuid.UUID, text string) {
	if h.replier == nil {
		return
	}
	if err := h.replier.SendText(conn, text); err != nil {
		h.logger.Debug("Reply not sent", zap.String("text", text), zap.Error(err))
	}
}

func (h *Handler) show(screen display.Screen) {
	if h.display == nil {
		return
	}
	screen.Labels = h.labels
	screen.Address = h.address
	if err := h.display.Show(screen); err != nil {
		h.logger.Debug("Status display write failed", zap.Error(err))
	}
}

// States returns the last applied line states.
func (h *Handler) States() types.LineStates {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.states
}

// Stats reports how many tally messages were applied and how many were
// dropped as malformed. Connect and disconnect resets are not counted.
func (h *Handler) Stats() (applied, dropped uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.messages, h.dropped
}

// Labels returns the camera labels the handler matches against.
func (h *Handler) Labels() [types.ChannelCount]string {
	return h.labels
}
