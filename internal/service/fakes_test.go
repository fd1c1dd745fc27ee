package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/course-marketplace/internal/mail"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/oauth"
	"github.com/iliyamo/course-marketplace/internal/repository"
)

type memUsers struct {
	mu   sync.Mutex
	rows map[string]model.User
}

func newMemUsers() *memUsers { return &memUsers{rows: map[string]model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, r := range m.rows {
		if r.Email == u.Email || r.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	if u.StatusAccount == "" {
		u.StatusAccount = model.StatusActive
	}
	u.CreatedAt = time.Now()
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, r := range m.rows {
		if r.Email == email {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memUsers) List(_ context.Context, p model.Page) ([]model.PublicUser, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PublicUser{}
	for _, r := range m.rows {
		out = append(out, r.Public())
	}
	return out, len(out), nil
}

func (m *memUsers) update(id string, fn func(u *model.User) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || !fn(&r) {
		return repository.ErrNotFound
	}
	m.rows[id] = r
	return nil
}

func (m *memUsers) SetEmailVerifyToken(_ context.Context, id string, token *string) error {
	return m.update(id, func(u *model.User) bool { u.EmailVerifyToken = token; return true })
}

func (m *memUsers) SetForgotPasswordToken(_ context.Context, id string, token *string) error {
	return m.update(id, func(u *model.User) bool { u.ForgotPasswordToken = token; return true })
}

func (m *memUsers) ConsumeEmailVerifyToken(_ context.Context, id, token string) error {
	return m.update(id, func(u *model.User) bool {
		if u.EmailVerifyToken == nil || *u.EmailVerifyToken != token {
			return false
		}
		u.Verify, u.EmailVerifyToken = model.Verified, nil
		return true
	})
}

func (m *memUsers) ConsumeForgotPasswordToken(_ context.Context, id, token, hash string) error {
	return m.update(id, func(u *model.User) bool {
		if u.ForgotPasswordToken == nil || *u.ForgotPasswordToken != token {
			return false
		}
		u.PasswordHash, u.ForgotPasswordToken = hash, nil
		return true
	})
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	return m.update(id, func(u *model.User) bool { u.PasswordHash = hash; return true })
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, p repository.ProfileUpdate) error {
	return m.update(id, func(u *model.User) bool {
		setIf(&u.Name, p.Name)
		if p.Gender != nil {
			u.Gender = p.Gender
		}
		if p.Bio != nil {
			u.Bio = p.Bio
		}
		return true
	})
}

func (m *memUsers) SetStatus(_ context.Context, id string, s model.AccountStatus) error {
	return m.update(id, func(u *model.User) bool { u.StatusAccount = s; return true })
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memSessions struct {
	mu   sync.Mutex
	rows map[string]model.RefreshToken
}

func newMemSessions() *memSessions { return &memSessions{rows: map[string]model.RefreshToken{}} }

func (m *memSessions) Create(_ context.Context, t model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[t.TokenHash]; ok {
		return repository.ErrDuplicate
	}
	m.rows[t.TokenHash] = t
	return nil
}

func (m *memSessions) DeleteByHash(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[hash]
	delete(m.rows, hash)
	return ok, nil
}

func (m *memSessions) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, r := range m.rows {
		if r.UserID == userID {
			delete(m.rows, h)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) PurgeExpired(_ context.Context, userID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, r := range m.rows {
		if r.UserID == userID && r.ExpiresAt.Before(now) {
			delete(m.rows, h)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// plainHasher keeps tests fast; bcrypt itself is covered in utils.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (plainHasher) Compare(p, h string) bool      { return h == "h:"+p }

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (c *captureMailer) Send(_ context.Context, m mail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return c.err
}

type fakeGoogle struct {
	profile *oauth.Profile
	err     error
}

func (f fakeGoogle) AuthCodeURL(state string) string { return "https://accounts.test/auth?state=" + state }

func (f fakeGoogle) Profile(context.Context, string) (*oauth.Profile, error) {
	return f.profile, f.err
}

type memStates map[string]bool

func (m memStates) Put(_ context.Context, s string) error { m[s] = true; return nil }

func (m memStates) Consume(_ context.Context, s string) (bool, error) {
	ok := m[s]
	delete(m, s)
	return ok, nil
}

var errBoom = errors.New("boom")
