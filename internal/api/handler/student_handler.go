package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"coachportal/internal/dto"
	"coachportal/internal/service"
	"coachportal/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StudentHandler serves the student roster and session ledgers.
type StudentHandler struct {
	directorySvc service.DirectoryService
	ledgerSvc    service.LedgerService
}

// NewStudentHandler creates a StudentHandler.
func NewStudentHandler(directorySvc service.DirectoryService, ledgerSvc service.LedgerService) *StudentHandler {
	return &StudentHandler{directorySvc: directorySvc, ledgerSvc: ledgerSvc}
}

// List returns every student with their balance.
// GET /api/v1/students
func (h *StudentHandler) List(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	list, err := h.directorySvc.ListStudents(c.Request.Context(), sess)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, list)
}

// Get returns one student.
// GET /api/v1/students/:id
func (h *StudentHandler) Get(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	student, err := h.directorySvc.GetStudent(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, student)
}

// Export downloads the roster as an Excel workbook.
// GET /api/v1/students/export
func (h *StudentHandler) Export(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	buf, filename, err := h.directorySvc.ExportStudents(c.Request.Context(), sess)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetSessions reads a student's session ledger.
// GET /api/v1/students/:id/sessions
func (h *StudentHandler) GetSessions(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	ledger, err := h.ledgerSvc.Read(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, ledger)
}

// AllocateSessions overwrites a student's session counters.
// PUT /api/v1/students/:id/sessions
func (h *StudentHandler) AllocateSessions(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.AllocateSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	ledger, err := h.ledgerSvc.Allocate(c.Request.Context(), sess, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, ledger)
}
