package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"coachportal/internal/dto"
	"coachportal/internal/service"
	apperr "coachportal/pkg/errors"
	"coachportal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	logoutSess    *service.Session
	logoutReq     *dto.LogoutRequest
	logoutErr     error
	meResult      *dto.UserResponse
	meErr         error
	changeErr     error
	resetErr      error
	updateResult  *dto.UpdatePasswordResponse
	updateErr     error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Refresh(_ context.Context, _ *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, sess *service.Session, req *dto.LogoutRequest) error {
	m.logoutSess, m.logoutReq = sess, req
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ *service.Session) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ *service.Session, _ *dto.ChangePasswordRequest) error {
	return m.changeErr
}
func (m *mockAuthService) RequestPasswordReset(_ context.Context, _ *dto.ResetPasswordRequest) error {
	return m.resetErr
}
func (m *mockAuthService) UpdatePassword(_ context.Context, _ *dto.UpdatePasswordRequest) (*dto.UpdatePasswordResponse, error) {
	return m.updateResult, m.updateErr
}

// ── Mock InvitationService ──

type mockInvitationService struct {
	createResult   *dto.InvitationResponse
	createErr      error
	resendResult   *dto.InvitationResponse
	resendErr      error
	withdrawErr    error
	listResult     []dto.InvitationResponse
	listReq        *dto.InvitationListRequest
	listErr        error
	validateResult *dto.InvitationValidateResponse
	validateErr    error
	redeemResult   *dto.AcceptInvitationResponse
	redeemErr      error
}

func (m *mockInvitationService) Create(_ context.Context, _ *service.Session, _ *dto.CreateInvitationRequest) (*dto.InvitationResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockInvitationService) Resend(_ context.Context, _ *service.Session, _ string) (*dto.InvitationResponse, error) {
	return m.resendResult, m.resendErr
}
func (m *mockInvitationService) Withdraw(_ context.Context, _ *service.Session, _ string) error {
	return m.withdrawErr
}
func (m *mockInvitationService) List(_ context.Context, _ *service.Session, req *dto.InvitationListRequest) ([]dto.InvitationResponse, error) {
	m.listReq = req
	return m.listResult, m.listErr
}
func (m *mockInvitationService) Validate(_ context.Context, _ string) (*dto.InvitationValidateResponse, error) {
	return m.validateResult, m.validateErr
}
func (m *mockInvitationService) Redeem(_ context.Context, _ *dto.AcceptInvitationRequest) (*dto.AcceptInvitationResponse, error) {
	return m.redeemResult, m.redeemErr
}

// ── Mock LedgerService ──

type mockLedgerService struct {
	allocateReq    *dto.AllocateSessionsRequest
	allocateResult *dto.LedgerResponse
	allocateErr    error
	readResult     *dto.LedgerResponse
	readErr        error
}

func (m *mockLedgerService) Allocate(_ context.Context, _ *service.Session, _ string, req *dto.AllocateSessionsRequest) (*dto.LedgerResponse, error) {
	m.allocateReq = req
	return m.allocateResult, m.allocateErr
}
func (m *mockLedgerService) Read(_ context.Context, _ *service.Session, _ string) (*dto.LedgerResponse, error) {
	return m.readResult, m.readErr
}

// ── Mock DirectoryService ──

type mockDirectoryService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockDirectoryService) ListStudents(_ context.Context, _ *service.Session) ([]dto.StudentResponse, error) {
	return nil, m.err
}
func (m *mockDirectoryService) GetStudent(_ context.Context, _ *service.Session, _ string) (*dto.StudentResponse, error) {
	return nil, m.err
}
func (m *mockDirectoryService) ExportStudents(_ context.Context, _ *service.Session) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockDirectoryService) FirstAdmin(_ context.Context, _ *service.Session) (*dto.FirstAdminResponse, error) {
	return &dto.FirstAdminResponse{ID: "admin-1"}, m.err
}
func (m *mockDirectoryService) GetAdmin(_ context.Context, _ *service.Session, _ string) (*dto.AdminResponse, error) {
	return nil, m.err
}

// ── Mock NoteService ──

type mockNoteService struct {
	createResult *dto.NoteResponse
	createErr    error
	listReq      *dto.NoteListRequest
	listResult   []dto.NoteResponse
	listTotal    int64
	listErr      error
	updateResult *dto.NoteResponse
	updateErr    error
	deleteErr    error
	markReadErr  error
}

func (m *mockNoteService) Create(_ context.Context, _ *service.Session, _ *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockNoteService) CreateNote(_ context.Context, _ *service.Session, _ service.NoteParams) (*dto.NoteResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockNoteService) Get(_ context.Context, _ *service.Session, _ string) (*dto.NoteResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockNoteService) List(_ context.Context, _ *service.Session, req *dto.NoteListRequest) ([]dto.NoteResponse, int64, error) {
	m.listReq = req
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockNoteService) Update(_ context.Context, _ *service.Session, _ string, _ *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	return m.updateResult, m.updateErr
}
func (m *mockNoteService) Delete(_ context.Context, _ *service.Session, _ string) error {
	return m.deleteErr
}
func (m *mockNoteService) MarkRead(_ context.Context, _ *service.Session, _ string) error {
	return m.markReadErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

var testExpiry = time.Now().Add(15 * time.Minute)

func setAuth(c *gin.Context) {
	c.Set("user_id", "test-user-id")
	c.Set("token_jti", "test-jti")
	c.Set("token_exp", testExpiry)
}

func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func serve(method, route, target string, body io.Reader, h gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r := gin.New()
	r.Handle(method, route, h)
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func intPtr(i int) *int { return &i }

// ═══════════════════════════════════════════════════════════
// Error mapping
// ═══════════════════════════════════════════════════════════

func TestHandleError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"validation", apperr.Validation("missing required field: email"), http.StatusBadRequest, 10001},
		{"unauthenticated", service.ErrNotAuthenticated, http.StatusUnauthorized, 10002},
		{"forbidden", service.ErrNoPermission, http.StatusForbidden, 10003},
		{"not found", service.ErrNoteNotFound, http.StatusNotFound, 20001},
		{"expired", service.ErrInvitationExpired, http.StatusGone, 20002},
		{"already accepted", service.ErrInvitationAccepted, http.StatusConflict, 20003},
		{"invalid range", service.ErrSessionsOutOfRange, http.StatusUnprocessableEntity, 20004},
		{"upstream", apperr.Upstream("create note", errors.New("connection refused")), http.StatusInternalServerError, 50200},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			handleError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode || resp.Success {
				t.Errorf("code = %d, want %d", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleError_UpstreamMessageVerbatim(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	handleError(c, apperr.Upstream("create note", errors.New("connection refused")))

	if got := parseResponse(w).Error; got != "create note: connection refused" {
		t.Errorf("error = %q", got)
	}
}

func TestMustGetSession(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if _, ok := MustGetSession(c); ok || w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	setAuth(c)
	sess, ok := MustGetSession(c)
	if !ok || sess.AccountID != "test-user-id" || sess.TokenID != "test-jti" || !sess.ExpiresAt.Equal(testExpiry) {
		t.Fatalf("unexpected session %+v", sess)
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900},
	})

	w := serve("POST", "/auth/login", "/auth/login",
		jsonBody(dto.LoginRequest{Email: "sam@example.com", Password: "Password123"}), h.Login)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); !resp.Success || resp.Code != 0 {
		t.Errorf("unexpected envelope %+v", resp)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	w := serve("POST", "/auth/login", "/auth/login", bytes.NewReader([]byte("invalid json")), h.Login)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidEmail(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	w := serve("POST", "/auth/login", "/auth/login",
		jsonBody(dto.LoginRequest{Email: "not-an-email", Password: "x"}), h.Login)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})
	w := serve("POST", "/auth/login", "/auth/login",
		jsonBody(dto.LoginRequest{Email: "sam@example.com", Password: "wrong"}), h.Login)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10002 {
		t.Errorf("expected code 10002, got %d", resp.Code)
	}
}

func TestAuthHandler_RefreshToken_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	w := serve("POST", "/auth/refresh", "/auth/refresh", jsonBody(map[string]string{}), h.RefreshToken)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Logout_PassesSession(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)
	w := serve("POST", "/auth/logout", "/auth/logout",
		jsonBody(dto.LogoutRequest{RefreshToken: "r"}), withAuth(h.Logout))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.logoutSess == nil || mock.logoutSess.TokenID != "test-jti" || mock.logoutReq.RefreshToken != "r" {
		t.Errorf("unexpected logout call: %+v %+v", mock.logoutSess, mock.logoutReq)
	}
}

func TestAuthHandler_GetCurrentUser_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	w := serve("GET", "/auth/me", "/auth/me", nil, h.GetCurrentUser)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_ChangePassword_WrongCurrent(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{changeErr: service.ErrWrongPassword})
	w := serve("PUT", "/auth/password", "/auth/password",
		jsonBody(dto.ChangePasswordRequest{CurrentPassword: "Old12345", NewPassword: "New12345"}), withAuth(h.ChangePassword))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_UpdatePassword_ExpiredLink(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{updateErr: service.ErrInvalidResetToken})
	w := serve("POST", "/auth/update-password", "/auth/update-password",
		jsonBody(dto.UpdatePasswordRequest{Token: "t", Password: "New12345"}), h.UpdatePassword)

	if w.Code != http.StatusGone {
		t.Errorf("expected 410, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// InvitationHandler
// ═══════════════════════════════════════════════════════════

func TestInvitationHandler_Create_WithWarning(t *testing.T) {
	h := NewInvitationHandler(&mockInvitationService{
		createResult: &dto.InvitationResponse{ID: "inv-1", Email: "new@example.com", Warning: "record saved, notification failed"},
	})
	w := serve("POST", "/invitations", "/invitations",
		jsonBody(dto.CreateInvitationRequest{Email: "new@example.com"}), withAuth(h.Create))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	resp := parseResponse(w)
	if !resp.Success || resp.Warning != "record saved, notification failed" {
		t.Errorf("unexpected envelope %+v", resp)
	}
	if bytes.Contains(w.Body.Bytes(), []byte(`"Warning"`)) {
		t.Error("warning must not leak into data")
	}
}

func TestInvitationHandler_List_BindsMine(t *testing.T) {
	mock := &mockInvitationService{}
	h := NewInvitationHandler(mock)
	w := serve("GET", "/invitations", "/invitations?mine=true", nil, withAuth(h.List))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.listReq == nil || !mock.listReq.Mine {
		t.Error("mine=true must reach the service")
	}
}

func TestInvitationHandler_Accept_Errors(t *testing.T) {
	req := dto.AcceptInvitationRequest{
		Token: "tok", Email: "new@example.com", Password: "Password123", FirstName: "New", LastName: "Student",
	}
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"expired", service.ErrInvitationExpired, http.StatusGone},
		{"accepted", service.ErrInvitationAccepted, http.StatusConflict},
		{"unknown token", service.ErrInvitationNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewInvitationHandler(&mockInvitationService{redeemErr: tt.err})
			w := serve("POST", "/invitations/accept", "/invitations/accept", jsonBody(req), h.Accept)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestInvitationHandler_Accept_MissingName(t *testing.T) {
	h := NewInvitationHandler(&mockInvitationService{})
	w := serve("POST", "/invitations/accept", "/invitations/accept",
		jsonBody(dto.AcceptInvitationRequest{Token: "tok", Email: "new@example.com", Password: "Password123"}), h.Accept)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestInvitationHandler_Validate(t *testing.T) {
	h := NewInvitationHandler(&mockInvitationService{
		validateResult: &dto.InvitationValidateResponse{Email: "new@example.com", Status: "pending", Valid: true},
	})
	w := serve("GET", "/invitations/validate/:token", "/invitations/validate/tok", nil, h.Validate)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// StudentHandler
// ═══════════════════════════════════════════════════════════

func TestStudentHandler_AllocateSessions(t *testing.T) {
	mock := &mockLedgerService{allocateResult: &dto.LedgerResponse{UserID: "s1", TotalSessions: 5, UsedSessions: 3, RemainingSessions: 2}}
	h := NewStudentHandler(&mockDirectoryService{}, mock)
	w := serve("PUT", "/students/:id/sessions", "/students/s1/sessions",
		jsonBody(dto.AllocateSessionsRequest{TotalSessions: intPtr(5), UsedSessions: intPtr(3)}), withAuth(h.AllocateSessions))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if *mock.allocateReq.TotalSessions != 5 || *mock.allocateReq.UsedSessions != 3 {
		t.Errorf("unexpected request %+v", mock.allocateReq)
	}
}

func TestStudentHandler_AllocateSessions_ZeroIsAllowed(t *testing.T) {
	mock := &mockLedgerService{allocateResult: &dto.LedgerResponse{}}
	h := NewStudentHandler(&mockDirectoryService{}, mock)
	w := serve("PUT", "/students/:id/sessions", "/students/s1/sessions",
		bytes.NewReader([]byte(`{"total_sessions":0,"used_sessions":0}`)), withAuth(h.AllocateSessions))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestStudentHandler_AllocateSessions_OutOfRange(t *testing.T) {
	h := NewStudentHandler(&mockDirectoryService{}, &mockLedgerService{allocateErr: service.ErrSessionsOutOfRange})
	w := serve("PUT", "/students/:id/sessions", "/students/s1/sessions",
		jsonBody(dto.AllocateSessionsRequest{TotalSessions: intPtr(2), UsedSessions: intPtr(3)}), withAuth(h.AllocateSessions))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestStudentHandler_Export(t *testing.T) {
	h := NewStudentHandler(&mockDirectoryService{buf: bytes.NewBufferString("xlsx"), filename: "students-20260101.xlsx"}, &mockLedgerService{})
	w := serve("GET", "/students/export", "/students/export", nil, withAuth(h.Export))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename*=UTF-8''students-20260101.xlsx" {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestStudentHandler_Export_Forbidden(t *testing.T) {
	h := NewStudentHandler(&mockDirectoryService{err: service.ErrRoleRequired}, &mockLedgerService{})
	w := serve("GET", "/students/export", "/students/export", nil, withAuth(h.Export))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// NoteHandler
// ═══════════════════════════════════════════════════════════

func TestNoteHandler_List_Paginated(t *testing.T) {
	mock := &mockNoteService{
		listResult: []dto.NoteResponse{{ID: "n1"}, {ID: "n2"}},
		listTotal:  45,
	}
	h := NewNoteHandler(mock)
	w := serve("GET", "/notes", "/notes?direction=from_student&page=2&page_size=20", nil, withAuth(h.List))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.listReq.Direction != "from_student" || mock.listReq.GetPage() != 2 {
		t.Errorf("unexpected request %+v", mock.listReq)
	}

	var body struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Pagination.Total != 45 || body.Data.Pagination.TotalPages != 3 {
		t.Errorf("unexpected pagination %+v", body.Data.Pagination)
	}
}

func TestNoteHandler_List_BadDirection(t *testing.T) {
	h := NewNoteHandler(&mockNoteService{})
	w := serve("GET", "/notes", "/notes?direction=sideways", nil, withAuth(h.List))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestNoteHandler_Update_Forbidden(t *testing.T) {
	h := NewNoteHandler(&mockNoteService{updateErr: service.ErrNoPermission})
	w := serve("PUT", "/notes/:id", "/notes/n1",
		jsonBody(dto.UpdateNoteRequest{Title: "t", Content: "c"}), withAuth(h.Update))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestNoteHandler_Delete_NotFound(t *testing.T) {
	h := NewNoteHandler(&mockNoteService{deleteErr: service.ErrNoteNotFound})
	w := serve("DELETE", "/notes/:id", "/notes/n1", nil, withAuth(h.Delete))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AdminHandler
// ═══════════════════════════════════════════════════════════

func TestAdminHandler_First(t *testing.T) {
	h := NewAdminHandler(&mockDirectoryService{})
	w := serve("GET", "/admins/first", "/admins/first", nil, withAuth(h.First))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
