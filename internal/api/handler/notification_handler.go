package handler

import (
	"github.com/gin-gonic/gin"

	"coachportal/internal/dto"
	"coachportal/internal/service"
	"coachportal/pkg/response"
)

// NotificationHandler re-sends emails on request.
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// SendInvitation POST /api/v1/notifications/invitation
func (h *NotificationHandler) SendInvitation(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.SendInvitationEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	result, err := h.notificationSvc.SendInvitationEmail(c.Request.Context(), sess, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// SendNote POST /api/v1/notifications/note
func (h *NotificationHandler) SendNote(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.SendNoteNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	result, err := h.notificationSvc.SendNoteNotification(c.Request.Context(), sess, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}
