package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenTallyCore/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// submission holds the decoded /setap query.
type submission struct {
	record   storage.Record
	extraTag string
	hasExtra bool
}

// GET /settings
func (s *Server) settings(c *gin.Context) {
	sendPage(c, http.StatusOK, "Wi-Fi Settings", settingsForm(s.device.ScannedNetworks()))
}

// GET /setap
func (s *Server) setAP(c *gin.Context) {
	sub := s.readSubmission(c)
	rec := sub.record

	if rec.NetworkName == "" {
		sendPage(c, http.StatusBadRequest, "Wi-Fi Settings", setupFailedBody("A network name is required."))
		return
	}
	if sub.hasExtra {
		s.logger.Debug("Fourth camera label discarded", zap.String("tally4", sub.extraTag))
	}

	if err := s.device.Store().Save(rec); err != nil {
		s.logger.Error("Failed to persist settings", zap.Error(err))
		sendPage(c, http.StatusInternalServerError, "Wi-Fi Settings",
			setupFailedBody("Settings could not be saved. The device was not restarted."))
		return
	}

	s.logger.Info("Settings saved, restarting",
		zap.String("ssid", rec.NetworkName),
		zap.Strings("labels", rec.CameraLabels[:]),
		zap.Bool("use_pixel_strip", rec.UsePixelStrip),
		zap.Bool("invert_discrete_outputs", rec.InvertDiscreteOutputs))

	sendPage(c, http.StatusOK, "Wi-Fi Settings", setupCompleteBody(rec.NetworkName))
	s.device.RequestRestart()
}

func (s *Server) readSubmission(c *gin.Context) submission {
	value := func(key string) (string, bool) {
		return c.GetQuery(key)
	}
	if s.device.Config().Provisioning.LegacyDecode {
		raw := c.Request.URL.RawQuery
		value = func(key string) (string, bool) {
			v, ok := rawQueryValue(raw, key)
			return legacyDecode(v), ok
		}
	}
	text := func(key string) string {
		v, _ := value(key)
		return v
	}
	flag := func(key string) bool {
		_, ok := value(key)
		return ok
	}

	var sub submission
	sub.record = storage.Record{
		NetworkName:   text("ssid"),
		NetworkSecret: text("pass"),
		CameraLabels: [3]string{
			text("tally1"),
			text("tally2"),
			text("tally3"),
		},
		UsePixelStrip:         flag("useStrip"),
		InvertDiscreteOutputs: flag("useInvert"),
	}
	sub.extraTag, sub.hasExtra = value("tally4")
	return sub
}

// Any other path while provisioning
func (s *Server) apInfo(c *gin.Context) {
	sendPage(c, http.StatusOK, "AP mode", apInfoBody)
}
