package handler

import (
	"github.com/gin-gonic/gin"

	"coachportal/internal/dto"
	"coachportal/internal/service"
	"coachportal/pkg/response"
)

// InvitationHandler serves the invitation lifecycle.
type InvitationHandler struct {
	invitationSvc service.InvitationService
}

// NewInvitationHandler creates an InvitationHandler.
func NewInvitationHandler(invitationSvc service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationSvc: invitationSvc}
}

// Create invites a student by email.
// POST /api/v1/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	inv, err := h.invitationSvc.Create(c.Request.Context(), sess, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, inv, inv.Warning)
}

// List returns invitations, newest first.
// GET /api/v1/invitations?mine=true
func (h *InvitationHandler) List(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.InvitationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c)
		return
	}

	list, err := h.invitationSvc.List(c.Request.Context(), sess, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, list)
}

// Resend restarts the validity window and emails the link again.
// POST /api/v1/invitations/:id/resend
func (h *InvitationHandler) Resend(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	inv, err := h.invitationSvc.Resend(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKWithWarning(c, inv, inv.Warning)
}

// Withdraw deletes a pending invitation.
// DELETE /api/v1/invitations/:id
func (h *InvitationHandler) Withdraw(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	if err := h.invitationSvc.Withdraw(c.Request.Context(), sess, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// Validate reports whether a token can still be redeemed. Public.
// GET /api/v1/invitations/validate/:token
func (h *InvitationHandler) Validate(c *gin.Context) {
	result, err := h.invitationSvc.Validate(c.Request.Context(), c.Param("token"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// Accept redeems an invitation and creates the student account. Public.
// POST /api/v1/invitations/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req dto.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	result, err := h.invitationSvc.Redeem(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result, "")
}
