package reports

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides the HTTP endpoint for report generation.
type Handler struct {
	service *Service
	logger  *slog.Logger
	notify  func(*Report)
}

// NewHandler creates a reports handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// OnGenerated registers a callback invoked after each successful report.
// Used to push report events to websocket subscribers.
func (h *Handler) OnGenerated(fn func(*Report)) {
	h.notify = fn
}

// RegisterRoutes sets up report routes on the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/report", h.Generate)
}

// Generate handles POST /api/report.
func (h *Handler) Generate(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be valid JSON",
		})
		return
	}

	report, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidReport) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": err.Error(),
			})
			return
		}
		h.logger.Error("report generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "report_error",
			"message": "Failed to generate report",
		})
		return
	}

	if h.notify != nil {
		h.notify(report)
	}

	c.JSON(http.StatusOK, gin.H{
		"report_data": report,
		"status":      "success",
	})
}
