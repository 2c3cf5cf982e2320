package handlers

import (
	"time"

	"github.com/acme/supportlens/internal/services"
	"github.com/acme/supportlens/pkg/response"
	"github.com/gin-gonic/gin"
)

// CostHandler exposes the cost reporting endpoint.
type CostHandler struct {
	costService *services.CostService
}

func NewCostHandler(costService *services.CostService) *CostHandler {
	return &CostHandler{costService: costService}
}

// Report returns period-bucketed spend plus a per-model breakdown.
// Query params: start_date, end_date (2006-01-02), group_by (day|week|month).
func (h *CostHandler) Report(c *gin.Context) {
	var start, end time.Time

	if startStr := c.Query("start_date"); startStr != "" {
		parsed, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			response.BadRequest(c, "start_date must be formatted as 2006-01-02")
			return
		}
		start = parsed
	}
	if endStr := c.Query("end_date"); endStr != "" {
		parsed, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			response.BadRequest(c, "end_date must be formatted as 2006-01-02")
			return
		}
		// Include the whole end day
		end = parsed.Add(24*time.Hour - time.Second)
	}

	report, err := h.costService.GetCostReport(start, end, c.Query("group_by"))
	if err != nil {
		response.ServerError(c, "failed to build cost report: "+err.Error())
		return
	}

	response.Success(c, report)
}
