package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/screenshots"
	"github.com/zfogg/hushmap/internal/util"
)

type logScreenshotRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	DeviceID  string `json:"device_id" binding:"max=255"`
	UserAgent string `json:"user_agent" binding:"max=512"`
}

// LogScreenshot records a screenshot the client saw the caller take
// POST /api/v2/screenshot/log
func (h *Handlers) LogScreenshot(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req logScreenshotRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID != userID {
		util.RespondForbidden(c, "user id does not match the authenticated user")
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.Request.UserAgent()
	}
	status, err := h.screenshots.Log(c.Request.Context(), screenshots.Attempt{
		UserID:    userID,
		DeviceID:  req.DeviceID,
		IPAddress: c.ClientIP(),
		UserAgent: userAgent,
	})
	if err != nil {
		respondError(c, err, "screenshot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}

// ScreenshotStatus reports whether the caller is locked out for screenshots
// GET /api/v2/screenshot/status
func (h *Handlers) ScreenshotStatus(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	status, err := h.screenshots.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "screenshot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}
