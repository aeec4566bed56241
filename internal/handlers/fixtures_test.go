package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/auth"
	"github.com/smartassist/apiserver/internal/services"
	"github.com/smartassist/apiserver/internal/storage"
	"github.com/smartassist/apiserver/internal/store"
	"github.com/smartassist/apiserver/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryUsers struct {
	mu     sync.Mutex
	users  map[int]types.User
	nextID int
	err    error
}

func (m *memoryUsers) FindUserByID(ctx context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.User{}, m.err
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryUsers) FindUserByEmail(ctx context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.User{}, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryUsers) List(ctx context.Context, limit, offset int) ([]types.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]types.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *memoryUsers) Create(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUsers) Update(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUsers) UpdateRole(ctx context.Context, id int, role types.Role) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return u, nil
}

func (m *memoryUsers) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type memoryFAQs struct {
	faqs map[int]types.FAQ
}

func (m *memoryFAQs) GetByID(ctx context.Context, id int) (types.FAQ, error) {
	if f, ok := m.faqs[id]; ok {
		return f, nil
	}
	return types.FAQ{}, store.ErrNotFound
}

func (m *memoryFAQs) ListActive(ctx context.Context, category string) ([]types.FAQ, error) {
	var out []types.FAQ
	for id := 1; id <= len(m.faqs); id++ {
		if f, ok := m.faqs[id]; ok && f.IsActive && (category == "" || f.Category == category) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryFAQs) SearchActive(ctx context.Context, keyword string, limit int) ([]types.FAQ, error) {
	var out []types.FAQ
	for id := 1; id <= len(m.faqs); id++ {
		f, ok := m.faqs[id]
		if ok && f.IsActive && strings.Contains(strings.ToLower(f.Question), keyword) && len(out) < limit {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryFAQs) Create(ctx context.Context, faq types.FAQ) (types.FAQ, error) {
	faq.ID = len(m.faqs) + 1
	faq.IsActive = true
	m.faqs[faq.ID] = faq
	return faq, nil
}

func (m *memoryFAQs) Update(ctx context.Context, faq types.FAQ) (types.FAQ, error) {
	if _, ok := m.faqs[faq.ID]; !ok {
		return types.FAQ{}, store.ErrNotFound
	}
	m.faqs[faq.ID] = faq
	return faq, nil
}

func (m *memoryFAQs) Deactivate(ctx context.Context, id int) error {
	f, ok := m.faqs[id]
	if !ok {
		return store.ErrNotFound
	}
	f.IsActive = false
	m.faqs[id] = f
	return nil
}

type memoryChats struct {
	logs []types.ChatLog
}

func (m *memoryChats) Create(ctx context.Context, log types.ChatLog) (types.ChatLog, error) {
	log.ID = len(m.logs) + 1
	m.logs = append(m.logs, log)
	return log, nil
}

func (m *memoryChats) SetRating(ctx context.Context, id, rating int) error {
	if id < 1 || id > len(m.logs) {
		return store.ErrNotFound
	}
	m.logs[id-1].Rating = &rating
	return nil
}

func (m *memoryChats) ListByUser(ctx context.Context, userID, limit, offset int) ([]types.ChatLog, error) {
	var out []types.ChatLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if l := m.logs[i]; l.UserID != nil && *l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memoryResumes struct {
	resumes map[int]types.Resume
}

func (m *memoryResumes) Create(ctx context.Context, resume types.Resume) (types.Resume, error) {
	resume.ID = len(m.resumes) + 1
	m.resumes[resume.ID] = resume
	return resume, nil
}

func (m *memoryResumes) GetByID(ctx context.Context, id int) (types.Resume, error) {
	if r, ok := m.resumes[id]; ok {
		return r, nil
	}
	return types.Resume{}, store.ErrNotFound
}

func (m *memoryResumes) ListByUser(ctx context.Context, userID, limit, offset int) ([]types.Resume, error) {
	out := []types.Resume{}
	for id := len(m.resumes); id >= 1; id-- {
		if r, ok := m.resumes[id]; ok && r.UserID == userID && offset == 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryResumes) Delete(ctx context.Context, id int) error {
	if _, ok := m.resumes[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.resumes, id)
	return nil
}

type memoryObjects struct {
	objects map[string][]byte
}

func (m *memoryObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type memorySymptoms struct {
	checks []types.SymptomCheck
}

func (m *memorySymptoms) Create(ctx context.Context, check types.SymptomCheck) (types.SymptomCheck, error) {
	check.ID = len(m.checks) + 1
	m.checks = append(m.checks, check)
	return check, nil
}

func (m *memorySymptoms) ListByUser(ctx context.Context, userID, limit, offset int) ([]types.SymptomCheck, error) {
	var out []types.SymptomCheck
	for i := len(m.checks) - 1; i >= 0; i-- {
		if c := m.checks[i]; c.UserID != nil && *c.UserID == userID && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

// scriptedAnswerer returns a fixed analysis, or err when set.
type scriptedAnswerer struct {
	answer string
	err    error
}

func (a *scriptedAnswerer) Empty() bool { return false }

func (a *scriptedAnswerer) Generate(ctx context.Context, prompt string) (string, string, error) {
	if a.err != nil {
		return "", "", a.err
	}
	return a.answer, "stub", nil
}

type decisionCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *decisionCounter) RecordAuthDecision(guard, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[guard+":"+outcome]++
}

type testAPI struct {
	router    *chi.Mux
	users     *memoryUsers
	faqs      *memoryFAQs
	chats     *memoryChats
	symptoms  *memorySymptoms
	analyst   *scriptedAnswerer
	objects   *memoryObjects
	tokens    *auth.TokenService
	decisions *decisionCounter
}

const testPassword = "Sup3r!secret"

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	passwords, err := auth.NewPasswordManager(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "handler-test-secret"})
	require.NoError(t, err)

	api := &testAPI{
		users:     &memoryUsers{users: map[int]types.User{}},
		faqs:      &memoryFAQs{faqs: map[int]types.FAQ{}},
		chats:     &memoryChats{},
		symptoms:  &memorySymptoms{},
		analyst:   &scriptedAnswerer{answer: "Probably a mild cold. Self-care and rest."},
		objects:   &memoryObjects{objects: map[string][]byte{}},
		tokens:    tokens,
		decisions: &decisionCounter{counts: map[string]int{}},
	}

	guard := auth.NewGuard(auth.NewResolver(tokens, api.users, logger))
	mw := NewAuthMiddleware(guard, api.decisions, logger)

	accounts := services.NewAccountService(api.users, passwords, tokens, nil, nil, logger)
	faqService := services.NewFAQService(api.faqs, nil, 0, 0)
	chatbot := services.NewChatbotService(api.chats, faqService, nil, logger)
	symptoms := services.NewSymptomService(api.symptoms, api.analyst, logger)
	resumes := services.NewResumeService(
		&memoryResumes{resumes: map[int]types.Resume{}},
		api.objects,
		services.UploadPolicy{MaxBytes: 1 << 10},
		logger,
	)
	accounts.SetResumePurger(resumes)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz(nil))
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) { AuthRouter(r, accounts, mw, nil, logger) })
		r.Route("/admin", func(r chi.Router) { AdminRouter(r, accounts, mw, logger) })
		r.Route("/faqs", func(r chi.Router) { FAQRouter(r, faqService, mw, logger) })
		r.Route("/chatbot", func(r chi.Router) { ChatbotRouter(r, chatbot, mw, logger) })
		r.Route("/symptoms", func(r chi.Router) { SymptomRouter(r, symptoms, mw, logger) })
		r.Route("/resumes", func(r chi.Router) { ResumeRouter(r, resumes, mw, 1<<10, logger) })
	})
	api.router = router
	return api
}

// seedUser stores a user directly and returns it with a valid token.
func (a *testAPI) seedUser(t *testing.T, email string, role types.Role) (types.User, string) {
	t.Helper()
	user, err := a.users.Create(context.Background(), types.User{Email: email, Name: "Seeded", Role: role})
	require.NoError(t, err)
	token, err := a.tokens.IssueUserToken(user.ID, user.Email, user.Role)
	require.NoError(t, err)
	return user, token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[ErrorResponse](t, rec).Error
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}
