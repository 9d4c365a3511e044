package handler

import (
	"github.com/gin-gonic/gin"

	"coachportal/internal/dto"
	"coachportal/internal/service"
	"coachportal/pkg/response"
)

// NoteHandler serves the note exchange.
type NoteHandler struct {
	noteSvc service.NoteService
}

// NewNoteHandler creates a NoteHandler.
func NewNoteHandler(noteSvc service.NoteService) *NoteHandler {
	return &NoteHandler{noteSvc: noteSvc}
}

// Create writes a note to the other party.
// POST /api/v1/notes
func (h *NoteHandler) Create(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	note, err := h.noteSvc.Create(c.Request.Context(), sess, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, note, note.Warning)
}

// List returns notes, newest first.
// GET /api/v1/notes?direction=from_student&student_id=&page=&page_size=
func (h *NoteHandler) List(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.NoteListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c)
		return
	}

	notes, total, err := h.noteSvc.List(c.Request.Context(), sess, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, notes, total, req.GetPage(), req.GetPageSize())
}

// Get returns one note.
// GET /api/v1/notes/:id
func (h *NoteHandler) Get(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	note, err := h.noteSvc.Get(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, note)
}

// Update edits a note. Author only.
// PUT /api/v1/notes/:id
func (h *NoteHandler) Update(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	var req dto.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	note, err := h.noteSvc.Update(c.Request.Context(), sess, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKWithWarning(c, note, note.Warning)
}

// Delete removes a note.
// DELETE /api/v1/notes/:id
func (h *NoteHandler) Delete(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	if err := h.noteSvc.Delete(c.Request.Context(), sess, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// MarkRead marks a note read. Recipient only.
// PUT /api/v1/notes/:id/read
func (h *NoteHandler) MarkRead(c *gin.Context) {
	sess, ok := MustGetSession(c)
	if !ok {
		return
	}

	if err := h.noteSvc.MarkRead(c.Request.Context(), sess, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}
