package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/smartassist/apiserver/internal/events"
	"github.com/smartassist/apiserver/internal/storage"
	"github.com/smartassist/apiserver/internal/store"
	"github.com/smartassist/apiserver/types"
)

type memoryUsers struct {
	mu     sync.Mutex
	users  map[int]types.User
	nextID int
	err    error
}

func newMemoryUsers(users ...types.User) *memoryUsers {
	m := &memoryUsers{users: map[int]types.User{}, nextID: 1}
	for _, u := range users {
		m.users[u.ID] = u
		if u.ID >= m.nextID {
			m.nextID = u.ID + 1
		}
	}
	return m
}

func (m *memoryUsers) FindUserByID(ctx context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.User{}, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
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
	if offset >= len(all) {
		return []types.User{}, len(all), nil
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
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUsers) Update(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	for _, u := range m.users {
		if u.ID != user.ID && u.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
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

type recordedEvent struct {
	Type   events.Type
	UserID int
}

type eventRecorder struct {
	events []recordedEvent
}

func (r *eventRecorder) Emit(ctx context.Context, eventType events.Type, user types.User) {
	r.events = append(r.events, recordedEvent{Type: eventType, UserID: user.ID})
}

type loginCounter map[string]int

func (c loginCounter) RecordLogin(outcome string) {
	c[outcome]++
}

type memoryFAQs struct {
	faqs     map[int]types.FAQ
	searches []string
	err      error
}

func newMemoryFAQs(faqs ...types.FAQ) *memoryFAQs {
	m := &memoryFAQs{faqs: map[int]types.FAQ{}}
	for _, f := range faqs {
		m.faqs[f.ID] = f
	}
	return m
}

func (m *memoryFAQs) GetByID(ctx context.Context, id int) (types.FAQ, error) {
	f, ok := m.faqs[id]
	if !ok {
		return types.FAQ{}, store.ErrNotFound
	}
	return f, nil
}

func (m *memoryFAQs) ListActive(ctx context.Context, category string) ([]types.FAQ, error) {
	var out []types.FAQ
	for _, f := range m.sorted() {
		if f.IsActive && (category == "" || f.Category == category) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryFAQs) SearchActive(ctx context.Context, keyword string, limit int) ([]types.FAQ, error) {
	m.searches = append(m.searches, keyword)
	if m.err != nil {
		return nil, m.err
	}
	var out []types.FAQ
	for _, f := range m.sorted() {
		if f.IsActive && bytes.Contains(bytes.ToLower([]byte(f.Question)), []byte(keyword)) {
			out = append(out, f)
			if len(out) == limit {
				break
			}
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

func (m *memoryFAQs) sorted() []types.FAQ {
	out := make([]types.FAQ, 0, len(m.faqs))
	for _, f := range m.faqs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
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
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryResumes struct {
	resumes map[int]types.Resume
	nextID  int
	err     error
}

func newMemoryResumes() *memoryResumes {
	return &memoryResumes{resumes: map[int]types.Resume{}, nextID: 1}
}

func (m *memoryResumes) Create(ctx context.Context, resume types.Resume) (types.Resume, error) {
	if m.err != nil {
		return types.Resume{}, m.err
	}
	resume.ID = m.nextID
	m.nextID++
	m.resumes[resume.ID] = resume
	return resume, nil
}

func (m *memoryResumes) GetByID(ctx context.Context, id int) (types.Resume, error) {
	r, ok := m.resumes[id]
	if !ok {
		return types.Resume{}, store.ErrNotFound
	}
	return r, nil
}

func (m *memoryResumes) ListByUser(ctx context.Context, userID, limit, offset int) ([]types.Resume, error) {
	var out []types.Resume
	for id := m.nextID - 1; id >= 1; id-- {
		if r, ok := m.resumes[id]; ok && r.UserID == userID {
			out = append(out, r)
		}
	}
	if offset >= len(out) {
		return []types.Resume{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
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
	types   map[string]string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
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
	if _, ok := m.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

type memorySymptoms struct {
	checks []types.SymptomCheck
	err    error
	limits []int
}

func (m *memorySymptoms) Create(ctx context.Context, check types.SymptomCheck) (types.SymptomCheck, error) {
	if m.err != nil {
		return types.SymptomCheck{}, m.err
	}
	check.ID = len(m.checks) + 1
	m.checks = append(m.checks, check)
	return check, nil
}

func (m *memorySymptoms) ListByUser(ctx context.Context, userID, limit, offset int) ([]types.SymptomCheck, error) {
	m.limits = append(m.limits, limit)
	var out []types.SymptomCheck
	for i := len(m.checks) - 1; i >= 0; i-- {
		if c := m.checks[i]; c.UserID != nil && *c.UserID == userID {
			out = append(out, c)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
