package handler

import "coachportal/internal/service"

// Handler aggregates every HTTP handler.
type Handler struct {
	Auth         *AuthHandler
	Invitation   *InvitationHandler
	Student      *StudentHandler
	Note         *NoteHandler
	Admin        *AdminHandler
	Dashboard    *DashboardHandler
	Notification *NotificationHandler
}

// NewHandler creates the Handler aggregate.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Invitation:   NewInvitationHandler(svc.Invitation),
		Student:      NewStudentHandler(svc.Directory, svc.Ledger),
		Note:         NewNoteHandler(svc.Note),
		Admin:        NewAdminHandler(svc.Directory),
		Dashboard:    NewDashboardHandler(svc.Dashboard),
		Notification: NewNotificationHandler(svc.Notification),
	}
}
