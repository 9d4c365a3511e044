package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coachportal/config"
	"coachportal/internal/api/handler"
	"coachportal/internal/api/middleware"
	"coachportal/internal/model"
	"coachportal/internal/service"
	"coachportal/pkg/jwt"
	"coachportal/pkg/metrics"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators the router wires into middleware. Blacklist
// and Limiter may be nil when Redis is unavailable.
type Deps struct {
	JWT       *jwt.Manager
	Gate      service.AccessGate
	Blacklist middleware.Blacklist
	Limiter   middleware.RateLimiter
	Logger    *zap.Logger
}

// Setup builds the Gin engine.
func Setup(cfg *config.Config, h *handler.Handler, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(strings.HasPrefix(cfg.Server.BaseURL, "https://")))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	loginLimit := middleware.RateLimit(d.Limiter, cfg.RateLimit.LoginPerMinute, time.Minute)
	inviteLimit := middleware.RateLimit(d.Limiter, cfg.RateLimit.InvitePerMinute, time.Minute)
	admin := middleware.RoleAuth(d.Gate, model.RoleAdmin)
	student := middleware.RoleAuth(d.Gate, model.RoleStudent)

	v1 := r.Group("/api/v1")
	{
		// public
		auth := v1.Group("/auth")
		{
			auth.POST("/login", loginLimit, h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/reset-password", loginLimit, h.Auth.RequestPasswordReset)
			auth.POST("/update-password", loginLimit, h.Auth.UpdatePassword)
		}
		v1.GET("/invitations/validate/:token", inviteLimit, h.Invitation.Validate)
		v1.POST("/invitations/accept", inviteLimit, h.Invitation.Accept)

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(d.JWT, d.Blacklist, d.Logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			invitations := authorized.Group("/invitations", admin)
			{
				invitations.POST("", h.Invitation.Create)
				invitations.GET("", h.Invitation.List)
				invitations.POST("/:id/resend", h.Invitation.Resend)
				invitations.DELETE("/:id", h.Invitation.Withdraw)
			}

			// Student reads are open to admins and the student themselves;
			// the service layer enforces ownership.
			students := authorized.Group("/students")
			{
				students.GET("", admin, h.Student.List)
				students.GET("/export", admin, h.Student.Export)
				students.GET("/:id", h.Student.Get)
				students.GET("/:id/sessions", h.Student.GetSessions)
				students.PUT("/:id/sessions", admin, h.Student.AllocateSessions)
			}

			notes := authorized.Group("/notes")
			{
				notes.POST("", h.Note.Create)
				notes.GET("", h.Note.List)
				notes.GET("/:id", h.Note.Get)
				notes.PUT("/:id", h.Note.Update)
				notes.DELETE("/:id", h.Note.Delete)
				notes.PUT("/:id/read", h.Note.MarkRead)
			}

			admins := authorized.Group("/admins")
			{
				admins.GET("/first", h.Admin.First)
				admins.GET("/:id", h.Admin.Get)
			}

			dashboard := authorized.Group("/dashboard")
			{
				dashboard.GET("/admin", admin, h.Dashboard.Admin)
				dashboard.GET("/student", student, h.Dashboard.Student)
			}

			notifications := authorized.Group("/notifications")
			{
				notifications.POST("/invitation", admin, h.Notification.SendInvitation)
				notifications.POST("/note", h.Notification.SendNote)
			}
		}
	}

	return r
}
