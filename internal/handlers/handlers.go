package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"folio/internal/service"
)

// SeriesProvider hands out the latest completed valuation run.
type SeriesProvider interface {
	Latest() (*service.Result, bool)
}

type Handler struct {
	runner SeriesProvider
	log    *logrus.Logger
}

func NewHandler(runner SeriesProvider, log *logrus.Logger) *Handler {
	return &Handler{runner: runner, log: log}
}

// GetSeries serves the full daily snapshot series of the latest completed run.
// Until the first run finishes there is nothing coherent to serve, so 503.
func (h *Handler) GetSeries(c *gin.Context) {
	res, ok := h.runner.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no completed valuation run yet"})
		return
	}
	c.Header("X-Valuation-Run", res.RunID)
	c.JSON(http.StatusOK, res.Series)
}
