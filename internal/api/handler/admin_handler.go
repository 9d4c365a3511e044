package handler

import (
	"github.com/gin-gonic/gin"

	"coachportal/internal/service"
	"coachportal/pkg/response"
)

// AdminHandler serves admin lookups.
type AdminHandler struct {
	directorySvc service.DirectoryService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(directorySvc service.DirectoryService) *AdminHandler {
	return &AdminHandler{directorySvc: directorySvc}
}

// First returns the default coach.
// GET /api/v1/admins/first
func (h *AdminHandler) First(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	admin, err := h.directorySvc.FirstAdmin(c.Request.Context(), sess)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, admin)
}

// Get returns an admin with their email.
// GET /api/v1/admins/:id
func (h *AdminHandler) Get(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	admin, err := h.directorySvc.GetAdmin(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, admin)
}
