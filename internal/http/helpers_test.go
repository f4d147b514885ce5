package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bizcard/internal/domain"
	"bizcard/internal/repository"
	"bizcard/internal/service"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	usersByAuth  map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
		usersByAuth:  make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	// Mismo criterio que users_email_idx: solo los emails presentes son únicos.
	if _, taken := m.usersByEmail[user.Email]; user.Email != "" && taken {
		return repository.ErrDuplicate
	}
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[user.Email] = user.ID
	}
	if user.AuthProvider != "" && user.AuthSubject != "" {
		m.usersByAuth[user.AuthProvider+"|"+user.AuthSubject] = user.ID
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) GetByAuth(_ context.Context, provider, subject string) (domain.User, error) {
	id, ok := m.usersByAuth[provider+"|"+subject]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) VerifyEmail(_ context.Context, id string, verifiedAt time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailVerifiedAt = &verifiedAt
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) LinkOAuth(_ context.Context, id, provider, subject string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.AuthProvider = provider
	user.AuthSubject = subject
	m.usersByID[id] = user
	m.usersByAuth[provider+"|"+subject] = id
	return nil
}

type mockEmailSender struct {
	lastTo      string
	lastCode    string
	lastExpires time.Time
	err         error
}

func (m *mockEmailSender) SendVerificationOTP(_ context.Context, toEmail string, code string, expiresAt time.Time) error {
	m.lastTo = toEmail
	m.lastCode = code
	m.lastExpires = expiresAt
	return m.err
}

type mockCardRepo struct {
	mu    sync.Mutex
	cards map[string]domain.BusinessCard
}

func newMockCardRepo() *mockCardRepo {
	return &mockCardRepo{cards: map[string]domain.BusinessCard{}}
}

func (m *mockCardRepo) taken(userID, name, excludeID string) bool {
	for _, c := range m.cards {
		if c.UserID == userID && c.Name == name && c.ID != excludeID {
			return true
		}
	}
	return false
}

func (m *mockCardRepo) Create(_ context.Context, card domain.BusinessCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(card.UserID, card.Name, "") {
		return repository.ErrDuplicate
	}
	m.cards[card.ID] = card
	return nil
}

func (m *mockCardRepo) GetByID(_ context.Context, id string) (domain.BusinessCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[id]
	if !ok {
		return domain.BusinessCard{}, pgx.ErrNoRows
	}
	return card, nil
}

func (m *mockCardRepo) ListByUserID(_ context.Context, userID string) ([]domain.BusinessCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.BusinessCard{}
	for _, c := range m.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCardRepo) FindByName(_ context.Context, userID, name, excludeID string) (*domain.BusinessCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.UserID == userID && c.Name == name && c.ID != excludeID {
			found := c
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockCardRepo) Update(_ context.Context, card domain.BusinessCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.cards[card.ID]
	if !ok || current.UserID != card.UserID {
		return pgx.ErrNoRows
	}
	if m.taken(card.UserID, card.Name, card.ID) {
		return repository.ErrDuplicate
	}
	m.cards[card.ID] = card
	return nil
}

func (m *mockCardRepo) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.cards[id]
	if !ok || current.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.cards, id)
	return nil
}

const testOAuthSecret = "auth-server-secret"

// testServer arma el router completo sobre repositorios en memoria.
type testServer struct {
	router *gin.Engine
	jwt    *service.JWTService
	cards  *mockCardRepo
	users  *mockUserRepo
	sender *mockEmailSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	users := newMockUserRepo()
	cards := newMockCardRepo()
	sender := &mockEmailSender{}
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, service.NewMemoryRefreshTokenStore())
	userSvc := service.NewUserService(logger, users, sender, nil, nil, nil)
	cardSvc := service.NewCardService(logger, cards, nil, nil, "https://cards.example.com")

	router := NewRouter(
		logger,
		jwtSvc,
		NewUserHandler(logger, userSvc, jwtSvc),
		NewCardHandler(logger, cardSvc),
		NewPublicCardHandler(logger, cardSvc, 128),
		NewHealthHandler(logger, nil),
		RouterOptions{
			Limits:      RateLimits{RPS: 1000, Burst: 1000, AuthRPS: 1000, AuthBurst: 1000},
			OAuthSecret: testOAuthSecret,
		},
	)
	return &testServer{router: router, jwt: jwtSvc, cards: cards, users: users, sender: sender}
}

func (s *testServer) tokenFor(t *testing.T, userID string) string {
	t.Helper()
	pair, err := s.jwt.GeneratePair(context.Background(), userID)
	require.NoError(t, err)
	return pair.AccessToken
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	return performRequestWithHeaders(r, method, path, nil, body)
}

func performAuthedRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return performRequestWithHeaders(r, method, path, headers, body)
}

// performOAuthLogin llama POST /auth/oauth como lo haría el servidor de autenticación.
func performOAuthLogin(r http.Handler, secret string, body any) *httptest.ResponseRecorder {
	headers := map[string]string{}
	if secret != "" {
		headers[TrustedCallerHeader] = secret
	}
	return performRequestWithHeaders(r, http.MethodPost, "/auth/oauth", headers, body)
}

func performRequestWithHeaders(r http.Handler, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "decode body %q", rec.Body.String())
}
