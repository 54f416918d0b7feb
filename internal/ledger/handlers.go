package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fakelens/fakelens/internal/detector"
)

// maxRecordsPage caps the records listing.
const maxRecordsPage = 50

// Handler provides the HTTP endpoints for the ledger.
type Handler struct {
	ledger *Ledger
	logger *slog.Logger
}

// NewHandler creates a ledger handler.
func NewHandler(ledger *Ledger, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, logger: logger}
}

// RegisterRoutes sets up ledger routes on the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/blockchain/records", h.GetRecords)
	r.GET("/stats", h.GetStats)
}

// GetRecords handles GET /api/blockchain/records.
func (h *Handler) GetRecords(c *gin.Context) {
	limit := maxRecordsPage
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		if n < limit {
			limit = n
		}
	}

	records, err := h.ledger.Latest(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list ledger records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "ledger_error",
			"message": "Failed to retrieve records",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   len(records),
	})
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.ledger.Stats(c.Request.Context(),
		detector.RiskThresholdHigh, detector.RiskThresholdMedium)
	if err != nil {
		h.logger.Error("failed to aggregate ledger stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "stats_error",
			"message": "Failed to compute statistics",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
