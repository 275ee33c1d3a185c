package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"repair-tracker-backend/internal/countdown"
	"repair-tracker-backend/internal/repair"
)

type countdownResponse struct {
	DeviceID           string    `json:"device_id"`
	ExpectedReturnDate time.Time `json:"expected_return_date"`
	LocalReturnDate    string    `json:"local_return_date"`
	Text               string    `json:"text"`
	Units              []string  `json:"units"`
	Band               string    `json:"band"`
	Class              string    `json:"class"`
	Color              string    `json:"color"`
	DotVisible         *bool     `json:"dot_visible,omitempty"`
	At                 time.Time `json:"at"`
}

func (h *Handler) newCountdownResponse(deviceID string, target time.Time, r countdown.Reading, at time.Time) countdownResponse {
	units := r.Units
	if units == nil {
		units = []string{}
	}
	return countdownResponse{
		DeviceID:           deviceID,
		ExpectedReturnDate: target,
		LocalReturnDate:    h.local(target),
		Text:               r.Text,
		Units:              units,
		Band:               r.Band.String(),
		Class:              r.Band.Class(),
		Color:              r.Band.Color(),
		At:                 at,
	}
}

func (h *Handler) returnDate(c *gin.Context) (repair.Device, time.Time, bool) {
	d, err := h.cfg.Devices.GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return repair.Device{}, time.Time{}, false
	}
	if d.ExpectedReturnDate == nil {
		h.abortWithError(c, fmt.Errorf("%w: device %s has no expected return date", repair.ErrNotFound, d.ID))
		return repair.Device{}, time.Time{}, false
	}
	return d, *d.ExpectedReturnDate, true
}

// GetCountdown handles GET /api/devices/:id/countdown.
func (h *Handler) GetCountdown(c *gin.Context) {
	d, target, ok := h.returnDate(c)
	if !ok {
		return
	}
	now := h.cfg.Clock.Now()
	c.JSON(http.StatusOK, h.newCountdownResponse(d.ID, target, countdown.Render(target, now), now))
}

// StreamCountdown handles GET /api/devices/:id/countdown/stream. A
// "countdown" server-sent event is written on every tick and blink until the
// client goes away.
func (h *Handler) StreamCountdown(c *gin.Context) {
	d, target, ok := h.returnDate(c)
	if !ok {
		return
	}

	live := countdown.NewLive(h.cfg.Clock, h.cfg.Ticker, h.cfg.StreamBuffer)
	defer live.Stop()
	live.Follow(d.ID, target)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case f, ok := <-live.Frames():
			if !ok {
				return false
			}
			resp := h.newCountdownResponse(f.DeviceID, target, f.Reading, f.At)
			visible := f.DotVisible
			resp.DotVisible = &visible
			c.SSEvent("countdown", resp)
			return true
		}
	})
}
