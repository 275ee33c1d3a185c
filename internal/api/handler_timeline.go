package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repair-tracker-backend/internal/timeline"
)

type timelineResponse struct {
	DeviceID      string                `json:"device_id"`
	Entries       []timeline.Entry      `json:"entries"`
	FailedSources []timeline.SourceType `json:"failed_sources"`
	Partial       bool                  `json:"partial"`
}

// GetTimeline handles GET /api/devices/:id/timeline. Sources that could not
// be read are listed in failed_sources; the request still succeeds.
func (h *Handler) GetTimeline(c *gin.Context) {
	tl, err := h.cfg.Timelines.Build(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	entries := tl.Entries
	if entries == nil {
		entries = []timeline.Entry{}
	}
	failed := tl.FailedSources
	if failed == nil {
		failed = []timeline.SourceType{}
	}
	c.JSON(http.StatusOK, timelineResponse{
		DeviceID:      tl.DeviceID,
		Entries:       entries,
		FailedSources: failed,
		Partial:       tl.Partial(),
	})
}
