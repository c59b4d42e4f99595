package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenTallyCore/internal/display"
	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /
func (s *Server) staInfo(c *gin.Context) {
	sendPage(c, http.StatusOK, "STA mode", staInfoBody)
}

// GET /reset
func (s *Server) resetSettings(c *gin.Context) {
	if err := s.device.Store().Wipe(); err != nil {
		s.logger.Error("Failed to wipe settings", zap.Error(err))
		sendPage(c, http.StatusInternalServerError, "Reset Wi-Fi Settings",
			setupFailedBody("Settings could not be wiped."))
		return
	}

	s.logger.Warn("Settings wiped, waiting for power cycle")
	s.device.ShowNotice(display.NoticeWiped)
	sendPage(c, http.StatusOK, "Reset Wi-Fi Settings", resetBody)
}

// GET /status
func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.device.Status())
}

func (s *Server) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeNotFound,
		"no such endpoint", gin.H{"path": c.Request.URL.Path}))
}
