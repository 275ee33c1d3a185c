package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repair-tracker-backend/internal/repair"
	"repair-tracker-backend/internal/timeline"
)

type statusResponse struct {
	Status   string `json:"status"`
	Label    string `json:"label"`
	Progress int    `json:"progress"`
	Closed   bool   `json:"closed"`
}

// GetStatuses handles GET /api/statuses.
func (h *Handler) GetStatuses(c *gin.Context) {
	statuses := repair.AllStatuses()
	out := make([]statusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, statusResponse{
			Status:   string(s),
			Label:    s.Label(),
			Progress: s.Progress(),
			Closed:   s.Closed(),
		})
	}
	c.JSON(http.StatusOK, out)
}

type eventTypeResponse struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// GetEventTypes handles GET /api/event-types.
func (h *Handler) GetEventTypes(c *gin.Context) {
	types := timeline.SourceTypes()
	out := make([]eventTypeResponse, 0, len(types))
	for _, t := range types {
		p := t.Presentation()
		out = append(out, eventTypeResponse{Type: string(t), Label: p.Label, Icon: p.Icon})
	}
	c.JSON(http.StatusOK, out)
}
