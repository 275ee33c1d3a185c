package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"repair-tracker-backend/internal/metrics"
	"repair-tracker-backend/internal/mw"
	"repair-tracker-backend/internal/repair"
	"repair-tracker-backend/internal/stage"
)

type transitionResponse struct {
	ID          string    `json:"id"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	Timestamp   time.Time `json:"timestamp"`
	PerformedBy string    `json:"performed_by"`
	Signature   string    `json:"signature"`
}

func newTransitionResponse(t repair.Transition) transitionResponse {
	return transitionResponse{
		ID:          t.ID,
		FromStatus:  string(t.FromStatus),
		ToStatus:    string(t.ToStatus),
		Timestamp:   t.Timestamp,
		PerformedBy: t.PerformedBy,
		Signature:   t.Signature,
	}
}

type deviceResponse struct {
	ID                 string               `json:"id"`
	CustomerID         string               `json:"customer_id"`
	Brand              string               `json:"brand"`
	Model              string               `json:"model"`
	SerialNumber       string               `json:"serial_number"`
	Status             string               `json:"status"`
	StatusLabel        string               `json:"status_label"`
	Progress           int                  `json:"progress"`
	AssignedTo         string               `json:"assigned_to,omitempty"`
	ExpectedReturnDate *time.Time           `json:"expected_return_date"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	Transitions        []transitionResponse `json:"transitions"`
}

// GetDevice handles GET /api/devices/:id.
func (h *Handler) GetDevice(c *gin.Context) {
	d, err := h.cfg.Devices.GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	status := d.CurrentStatus()
	resp := deviceResponse{
		ID:                 d.ID,
		CustomerID:         d.CustomerID,
		Brand:              d.Brand,
		Model:              d.Model,
		SerialNumber:       d.SerialNumber,
		Status:             string(status),
		StatusLabel:        status.Label(),
		Progress:           status.Progress(),
		AssignedTo:         d.AssignedTo,
		ExpectedReturnDate: d.ExpectedReturnDate,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		Transitions:        make([]transitionResponse, 0, len(d.Transitions)),
	}
	for _, t := range d.Transitions {
		resp.Transitions = append(resp.Transitions, newTransitionResponse(t))
	}
	c.JSON(http.StatusOK, resp)
}

type postTransitionRequest struct {
	Status    string `json:"status" binding:"required"`
	Signature string `json:"signature"`
}

// PostTransition handles POST /api/devices/:id/transitions. The actor is
// taken from the X-Actor-ID header.
func (h *Handler) PostTransition(c *gin.Context) {
	var req postTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.TransitionRejections.WithLabelValues("validation").Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	t, err := h.cfg.Machine.Transition(c.Request.Context(), c.Param("id"), repair.Status(req.Status), mw.ActorID(c), req.Signature)
	if err != nil {
		_, reason := errorStatus(err)
		metrics.TransitionRejections.WithLabelValues(reason).Inc()
		h.abortWithError(c, err)
		return
	}

	metrics.Transitions.WithLabelValues(string(t.ToStatus)).Inc()
	c.JSON(http.StatusCreated, newTransitionResponse(t))
}

type metricResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Text   string `json:"text"`
	Millis *int64 `json:"ms"`
}

func newMetricResponse(m stage.Metric) metricResponse {
	return metricResponse{From: string(m.From), To: string(m.To), Text: m.Text(), Millis: m.Millis()}
}

type durationsResponse struct {
	DeviceID   string         `json:"device_id"`
	Technician metricResponse `json:"technician"`
	Handover   metricResponse `json:"handover"`
}

// GetDurations handles GET /api/devices/:id/durations.
func (h *Handler) GetDurations(c *gin.Context) {
	d, err := h.cfg.Devices.GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	report := stage.NewReport(d.Transitions)
	c.JSON(http.StatusOK, durationsResponse{
		DeviceID:   d.ID,
		Technician: newMetricResponse(report.Technician),
		Handover:   newMetricResponse(report.Handover),
	})
}
