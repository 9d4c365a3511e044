package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coachportal/internal/service"
	apperr "coachportal/pkg/errors"
	"coachportal/pkg/response"
)

// Context keys set by middleware.JWTAuth.
const (
	ctxAccountID = "user_id"
	ctxTokenJTI  = "token_jti"
	ctxTokenExp  = "token_exp"
)

// MustGetSession builds the caller's Session from the Gin context.
// When JWTAuth did not run it writes a 401 and returns false; callers
// should return immediately.
func MustGetSession(c *gin.Context) (*service.Session, bool) {
	id := c.GetString(ctxAccountID)
	if id == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return nil, false
	}
	sess := &service.Session{AccountID: id, TokenID: c.GetString(ctxTokenJTI)}
	if exp, ok := c.Get(ctxTokenExp); ok {
		sess.ExpiresAt, _ = exp.(time.Time)
	}
	return sess, true
}

// handleError maps a service error to the response envelope.
func handleError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, apperr.ErrValidation):
		response.BadRequest(c, 10001, msg)
	case errors.Is(err, apperr.ErrUnauthenticated):
		response.Unauthorized(c, 10002, msg)
	case errors.Is(err, apperr.ErrForbidden):
		response.Forbidden(c, 10003, msg)
	case errors.Is(err, apperr.ErrNotFound):
		response.NotFound(c, 20001, msg)
	case errors.Is(err, apperr.ErrExpired):
		response.Error(c, http.StatusGone, 20002, msg)
	case errors.Is(err, apperr.ErrAlreadyAccepted):
		response.Error(c, http.StatusConflict, 20003, msg)
	case errors.Is(err, apperr.ErrInvalidRange):
		response.Error(c, http.StatusUnprocessableEntity, 20004, msg)
	case errors.Is(err, apperr.ErrUpstream):
		// Store and provider messages are passed through as-is.
		response.Error(c, http.StatusInternalServerError, 50200, msg)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

func badRequest(c *gin.Context) {
	response.BadRequest(c, 10001, "invalid request parameters")
}
