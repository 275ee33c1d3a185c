package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"repair-tracker-backend/internal/countdown"
	"repair-tracker-backend/internal/model"
	"repair-tracker-backend/internal/repair"
	"repair-tracker-backend/internal/timeline"
)

// DeviceReader loads a device with its transition history.
type DeviceReader interface {
	GetDevice(ctx context.Context, id string) (repair.Device, error)
}

// Transitioner applies status changes.
type Transitioner interface {
	Transition(ctx context.Context, deviceID string, newStatus repair.Status, performedBy, signature string) (repair.Transition, error)
}

// SubscriptionStore persists push subscriptions.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
}

type HandlerConfig struct {
	Logger        *slog.Logger
	Clock         clockwork.Clock
	Ticker        countdown.Ticker
	Devices       DeviceReader
	Machine       Transitioner
	Timelines     timeline.Builder
	Subscriptions SubscriptionStore
	Webpush       *webpush.Options
	// Location is used for the local_* fields of responses.
	Location     *time.Location
	StreamBuffer int
}

func (cfg *HandlerConfig) Validate() error {
	if cfg.Devices == nil || cfg.Machine == nil || cfg.Timelines == nil || cfg.Subscriptions == nil {
		return errors.New("devices, machine, timelines and subscriptions are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Ticker == nil {
		cfg.Ticker = countdown.NewClockTicker(cfg.Clock)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.StreamBuffer <= 0 {
		cfg.StreamBuffer = 4
	}
	return nil
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	log *slog.Logger
	cfg HandlerConfig
}

// NewHandler creates a new API handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{log: cfg.Logger.With("component", "api"), cfg: cfg}, nil
}

// errorStatus maps a domain error to an HTTP status and a short reason.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, repair.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, repair.ErrPermission):
		return http.StatusForbidden, "permission"
	case errors.Is(err, repair.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repair.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	status, _ := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) local(t time.Time) string {
	return t.In(h.cfg.Location).Format(time.DateTime)
}
