package handler

import (
	"github.com/gin-gonic/gin"

	"coachportal/internal/service"
	"coachportal/pkg/response"
)

// DashboardHandler serves landing-page summaries.
type DashboardHandler struct {
	dashboardSvc service.DashboardService
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(dashboardSvc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// Admin GET /api/v1/dashboard/admin
func (h *DashboardHandler) Admin(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	result, err := h.dashboardSvc.Admin(c.Request.Context(), sess)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Student GET /api/v1/dashboard/student
func (h *DashboardHandler) Student(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	result, err := h.dashboardSvc.Student(c.Request.Context(), sess)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}
