package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"coachportal/config"
	"coachportal/internal/model"
	"coachportal/internal/notify"
	"coachportal/internal/repository"
	"coachportal/pkg/jwt"
	"coachportal/pkg/redis"
)

// ── Mock AccountRepository ──

type mockAccountRepo struct {
	accounts  map[string]*model.Account
	seq       int
	deleteErr error
	onDelete  func(id string)
	onCreate  func(a *model.Account)
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[string]*model.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, a *model.Account) error {
	if m.onCreate != nil {
		m.onCreate(a)
	}
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"}
		}
	}
	if a.ID == "" {
		m.seq++
		a.ID = fmt.Sprintf("acc-%d", m.seq)
	}
	a.CreatedAt = time.Now()
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.Email == strings.ToLower(email) {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) ListByIDs(_ context.Context, ids []string) ([]model.Account, error) {
	var result []model.Account
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAccountRepo) UpdatePassword(_ context.Context, id, hash string) error {
	a, ok := m.accounts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (m *mockAccountRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.accounts, id)
	if m.onDelete != nil {
		m.onDelete(id)
	}
	return nil
}

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	profiles  map[string]*model.Profile
	createErr error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (m *mockProfileRepo) Create(_ context.Context, p *model.Profile) error {
	if m.createErr != nil {
		return m.createErr
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.profiles[p.ID] = p
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) FirstByRole(ctx context.Context, role model.Role) (*model.Profile, error) {
	list, _ := m.ListByRole(ctx, role)
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[len(list)-1], nil
}

// ListByRole returns newest first.
func (m *mockProfileRepo) ListByRole(_ context.Context, role model.Role) ([]model.Profile, error) {
	var result []model.Profile
	for _, p := range m.profiles {
		if p.Role == role {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockProfileRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	list, _ := m.ListByRole(ctx, role)
	return int64(len(list)), nil
}

// ── Mock InvitationRepository ──

type mockInvitationRepo struct {
	invitations map[string]*model.Invitation
	seq         int
	// onLock runs inside GetByTokenForUpdate to simulate a concurrent writer.
	onLock func(inv *model.Invitation)
}

func newMockInvitationRepo() *mockInvitationRepo {
	return &mockInvitationRepo{invitations: make(map[string]*model.Invitation)}
}

func (m *mockInvitationRepo) Create(_ context.Context, inv *model.Invitation) error {
	for _, existing := range m.invitations {
		if existing.Token == inv.Token {
			return &pgconn.PgError{Code: "23505", ConstraintName: "invitations_token_key"}
		}
	}
	if inv.ID == "" {
		m.seq++
		inv.ID = fmt.Sprintf("inv-%d", m.seq)
	}
	m.invitations[inv.ID] = inv
	return nil
}

func (m *mockInvitationRepo) GetByID(_ context.Context, id string) (*model.Invitation, error) {
	if inv, ok := m.invitations[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInvitationRepo) GetByToken(_ context.Context, token string) (*model.Invitation, error) {
	for _, inv := range m.invitations {
		if inv.Token == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInvitationRepo) GetByTokenForUpdate(ctx context.Context, token string) (*model.Invitation, error) {
	if m.onLock != nil {
		for _, inv := range m.invitations {
			if inv.Token == token {
				m.onLock(inv)
				break
			}
		}
	}
	return m.GetByToken(ctx, token)
}

func (m *mockInvitationRepo) List(_ context.Context, f *repository.InvitationListFilters) ([]model.Invitation, error) {
	var result []model.Invitation
	for _, inv := range m.invitations {
		if f != nil && f.AdminID != "" && inv.AdminID != f.AdminID {
			continue
		}
		result = append(result, *inv)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockInvitationRepo) UpdateWindow(_ context.Context, inv *model.Invitation) error {
	stored, ok := m.invitations[inv.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Token = inv.Token
	stored.CreatedAt = inv.CreatedAt
	stored.ExpiresAt = inv.ExpiresAt
	return nil
}

func (m *mockInvitationRepo) MarkAccepted(_ context.Context, id string) error {
	inv, ok := m.invitations[id]
	if !ok || inv.IsAccepted {
		return gorm.ErrRecordNotFound
	}
	inv.IsAccepted = true
	return nil
}

func (m *mockInvitationRepo) DeletePending(_ context.Context, id string) error {
	inv, ok := m.invitations[id]
	if !ok || inv.IsAccepted {
		return gorm.ErrRecordNotFound
	}
	delete(m.invitations, id)
	return nil
}

func (m *mockInvitationRepo) CountPending(_ context.Context) (int64, error) {
	var n int64
	for _, inv := range m.invitations {
		if !inv.IsAccepted {
			n++
		}
	}
	return n, nil
}

// ── Mock SessionLedgerRepository ──

type mockLedgerRepo struct {
	ledgers   map[string]*model.SessionLedger // key: user_id
	upsertErr error
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{ledgers: make(map[string]*model.SessionLedger)}
}

func (m *mockLedgerRepo) GetByUserID(_ context.Context, userID string) (*model.SessionLedger, error) {
	if l, ok := m.ledgers[userID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLedgerRepo) Upsert(_ context.Context, l *model.SessionLedger) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *l
	m.ledgers[l.UserID] = &cp
	return nil
}

func (m *mockLedgerRepo) ListByUserIDs(_ context.Context, ids []string) ([]model.SessionLedger, error) {
	var result []model.SessionLedger
	for _, id := range ids {
		if l, ok := m.ledgers[id]; ok {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockLedgerRepo) SumTotalSessions(_ context.Context) (int64, error) {
	var total int64
	for _, l := range m.ledgers {
		total += int64(l.TotalSessions)
	}
	return total, nil
}

// ── Mock NoteRepository ──

type mockNoteRepo struct {
	notes map[string]*model.Note
	seq   int
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[string]*model.Note)}
}

func (m *mockNoteRepo) Create(_ context.Context, n *model.Note) error {
	m.seq++
	if n.ID == "" {
		n.ID = fmt.Sprintf("note-%d", m.seq)
	}
	// Strictly increasing timestamps keep ordering deterministic.
	n.CreatedAt = time.Unix(int64(m.seq), 0)
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

func (m *mockNoteRepo) GetByID(_ context.Context, id string) (*model.Note, error) {
	if n, ok := m.notes[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNoteRepo) UpdateContent(_ context.Context, n *model.Note) error {
	stored, ok := m.notes[n.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Title, stored.Content = n.Title, n.Content
	return nil
}

func (m *mockNoteRepo) MarkRead(_ context.Context, id string) error {
	n, ok := m.notes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.IsRead = true
	return nil
}

func (m *mockNoteRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.notes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *mockNoteRepo) List(_ context.Context, f *repository.NoteListFilters, offset, limit int) ([]model.Note, int64, error) {
	var result []model.Note
	for _, n := range m.notes {
		if f != nil && f.StudentID != "" && n.UserID != f.StudentID {
			continue
		}
		if f != nil && f.CreatedByStudent != nil && n.CreatedByStudent != *f.CreatedByStudent {
			continue
		}
		result = append(result, *n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockNoteRepo) Count(ctx context.Context, f *repository.NoteListFilters) (int64, error) {
	_, total, err := m.List(ctx, f, 0, 0)
	return total, err
}

// ── Fake TokenStore ──

type fakeTokenStore struct {
	blacklist map[string]bool
	resets    map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{blacklist: make(map[string]bool), resets: make(map[string]string)}
}

func (f *fakeTokenStore) BlacklistToken(_ context.Context, jti string, _ time.Duration) error {
	f.blacklist[jti] = true
	return nil
}

func (f *fakeTokenStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.blacklist[jti], nil
}

func (f *fakeTokenStore) StoreResetToken(_ context.Context, hash, accountID string, _ time.Duration) error {
	f.resets[hash] = accountID
	return nil
}

func (f *fakeTokenStore) ConsumeResetToken(_ context.Context, hash string) (string, error) {
	id, ok := f.resets[hash]
	if !ok {
		return "", redis.ErrResetTokenNotFound
	}
	delete(f.resets, hash)
	return id, nil
}

// ── Recording Notifier ──

type sentMail struct {
	kind    notify.Kind
	to      string
	payload notify.Payload
}

type recordingNotifier struct {
	sent []sentMail
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, kind notify.Kind, to string, p notify.Payload) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.sent = append(r.sent, sentMail{kind: kind, to: to, payload: p})
	return fmt.Sprintf("msg-%d", len(r.sent)), nil
}

func (r *recordingNotifier) last() sentMail {
	if len(r.sent) == 0 {
		return sentMail{}
	}
	return r.sent[len(r.sent)-1]
}

// ── Test environment ──

const testPassword = "Password123"

type testEnv struct {
	cfg         *config.Config
	svc         *Service
	accounts    *mockAccountRepo
	profiles    *mockProfileRepo
	invitations *mockInvitationRepo
	ledgers     *mockLedgerRepo
	notes       *mockNoteRepo
	tokens      *fakeTokenStore
	notifier    *recordingNotifier
	jwtMgr      *jwt.Manager

	clock time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, func(*config.Config) {})
}

func newTestEnvWithConfig(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: "https://portal.example"},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-at-least-16",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
			PasswordResetTTL:        time.Hour,
		},
		Mail: config.MailConfig{AdminDisplayName: "Your Career Coach"},
	}
	mutate(cfg)

	env := &testEnv{
		cfg:         cfg,
		accounts:    newMockAccountRepo(),
		profiles:    newMockProfileRepo(),
		invitations: newMockInvitationRepo(),
		ledgers:     newMockLedgerRepo(),
		notes:       newMockNoteRepo(),
		tokens:      newFakeTokenStore(),
		notifier:    &recordingNotifier{},
		jwtMgr:      jwt.NewManager(&cfg.Auth),
		clock:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	env.accounts.onDelete = func(id string) {
		delete(env.profiles.profiles, id)
		delete(env.ledgers.ledgers, id)
	}

	repo := &repository.Repository{
		Account:    env.accounts,
		Profile:    env.profiles,
		Invitation: env.invitations,
		Ledger:     env.ledgers,
		Note:       env.notes,
	}
	env.svc = NewService(cfg, repo, env.jwtMgr, env.tokens, env.notifier, zap.NewNop())
	env.svc.Identity.(*identityProvider).cost = bcrypt.MinCost
	return env
}

func (e *testEnv) addProfile(t *testing.T, role model.Role, first, last string) *model.Profile {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	account := &model.Account{
		Email:        strings.ToLower(first) + "@example.com",
		PasswordHash: string(hash),
	}
	if err := e.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	// Distinct, increasing creation times make "first admin" deterministic.
	e.clock = e.clock.Add(time.Minute)
	p := &model.Profile{
		ID:         account.ID,
		FirstName:  first,
		LastName:   last,
		Role:       role,
		Timestamps: model.Timestamps{CreatedAt: e.clock},
	}
	e.profiles.profiles[p.ID] = p
	return p
}

func (e *testEnv) addAdmin(t *testing.T, first string) *model.Profile {
	return e.addProfile(t, model.RoleAdmin, first, "Coach")
}

func (e *testEnv) addStudent(t *testing.T, first string) *model.Profile {
	return e.addProfile(t, model.RoleStudent, first, "Student")
}

func sessionFor(p *model.Profile) *Session {
	return &Session{AccountID: p.ID, TokenID: "jti-" + p.ID, ExpiresAt: time.Now().Add(time.Hour)}
}
