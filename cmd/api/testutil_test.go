package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bazaar/internal/auth"
	"bazaar/internal/catalog"
	"bazaar/internal/ratelimiter"
	"bazaar/internal/rbac"
	"bazaar/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// usersStub implements the Users store with overridable function fields so
// each test only wires what it needs.
type usersStub struct {
	registerWithBusinessFn func(ctx context.Context, user *store.User, businessName string) error
	createFn               func(ctx context.Context, user *store.User) error
	getByIDFn              func(ctx context.Context, id int64) (*store.User, error)
	getByUsernameFn        func(ctx context.Context, username string) (*store.User, error)
	listByBusinessFn       func(ctx context.Context, businessID int64) ([]store.User, error)
	updateFn               func(ctx context.Context, user *store.User) error
	deleteFn               func(ctx context.Context, id, businessID int64) error
	saveRefreshTokenFn     func(ctx context.Context, userID int64, token string) error
	getRefreshTokenFn      func(ctx context.Context, userID int64) (string, error)
	deleteRefreshTokenFn   func(ctx context.Context, userID int64) error
}

func (s *usersStub) RegisterWithBusiness(ctx context.Context, user *store.User, businessName string) error {
	if s.registerWithBusinessFn == nil {
		return nil
	}
	return s.registerWithBusinessFn(ctx, user, businessName)
}

func (s *usersStub) Create(ctx context.Context, user *store.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, user)
}

func (s *usersStub) GetByID(ctx context.Context, id int64) (*store.User, error) {
	if s.getByIDFn == nil {
		return nil, store.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s *usersStub) GetByUsername(ctx context.Context, username string) (*store.User, error) {
	if s.getByUsernameFn == nil {
		return nil, store.ErrNotFound
	}
	return s.getByUsernameFn(ctx, username)
}

func (s *usersStub) ListByBusiness(ctx context.Context, businessID int64) ([]store.User, error) {
	if s.listByBusinessFn == nil {
		return nil, nil
	}
	return s.listByBusinessFn(ctx, businessID)
}

func (s *usersStub) Update(ctx context.Context, user *store.User) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, user)
}

func (s *usersStub) Delete(ctx context.Context, id, businessID int64) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id, businessID)
}

func (s *usersStub) SaveRefreshToken(ctx context.Context, userID int64, token string) error {
	if s.saveRefreshTokenFn == nil {
		return nil
	}
	return s.saveRefreshTokenFn(ctx, userID, token)
}

func (s *usersStub) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	if s.getRefreshTokenFn == nil {
		return "", store.ErrNotFound
	}
	return s.getRefreshTokenFn(ctx, userID)
}

func (s *usersStub) DeleteRefreshToken(ctx context.Context, userID int64) error {
	if s.deleteRefreshTokenFn == nil {
		return nil
	}
	return s.deleteRefreshTokenFn(ctx, userID)
}

type businessesStub struct {
	getByIDFn func(ctx context.Context, id int64) (*store.Business, error)
}

func (s *businessesStub) GetByID(ctx context.Context, id int64) (*store.Business, error) {
	if s.getByIDFn == nil {
		return nil, store.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

type productsStub struct {
	createFn         func(ctx context.Context, p *store.Product) error
	getByIDFn        func(ctx context.Context, id int64) (*store.Product, error)
	listPublicFn     func(ctx context.Context, f store.ProductFilter, limit, offset int) ([]store.Product, int, error)
	listByBusinessFn func(ctx context.Context, businessID int64, f store.ProductFilter, limit, offset int) ([]store.Product, int, error)
	updateFn         func(ctx context.Context, p *store.Product) error
	approveFn        func(ctx context.Context, id, approverID int64) error
	deleteFn         func(ctx context.Context, id, businessID int64) error
	statusCountsFn   func(ctx context.Context, businessID int64) (map[catalog.Status]int, error)
}

func (s *productsStub) Create(ctx context.Context, p *store.Product) error {
	if s.createFn == nil {
		p.ID = 1
		p.Reference = "TESTREF1"
		return nil
	}
	return s.createFn(ctx, p)
}

func (s *productsStub) GetByID(ctx context.Context, id int64) (*store.Product, error) {
	if s.getByIDFn == nil {
		return nil, store.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s *productsStub) ListPublic(ctx context.Context, f store.ProductFilter, limit, offset int) ([]store.Product, int, error) {
	if s.listPublicFn == nil {
		return nil, 0, nil
	}
	return s.listPublicFn(ctx, f, limit, offset)
}

func (s *productsStub) ListByBusiness(ctx context.Context, businessID int64, f store.ProductFilter, limit, offset int) ([]store.Product, int, error) {
	if s.listByBusinessFn == nil {
		return nil, 0, nil
	}
	return s.listByBusinessFn(ctx, businessID, f, limit, offset)
}

func (s *productsStub) Update(ctx context.Context, p *store.Product) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, p)
}

func (s *productsStub) Approve(ctx context.Context, id, approverID int64) error {
	if s.approveFn == nil {
		return nil
	}
	return s.approveFn(ctx, id, approverID)
}

func (s *productsStub) Delete(ctx context.Context, id, businessID int64) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id, businessID)
}

func (s *productsStub) StatusCounts(ctx context.Context, businessID int64) (map[catalog.Status]int, error) {
	if s.statusCountsFn == nil {
		return map[catalog.Status]int{}, nil
	}
	return s.statusCountsFn(ctx, businessID)
}

type chatStub struct {
	createFn     func(ctx context.Context, entry *store.ChatEntry) error
	listByUserFn func(ctx context.Context, userID int64, limit, offset int) ([]store.ChatEntry, int, error)
}

func (s *chatStub) Create(ctx context.Context, entry *store.ChatEntry) error {
	if s.createFn == nil {
		entry.ID = 1
		entry.Timestamp = time.Now()
		return nil
	}
	return s.createFn(ctx, entry)
}

func (s *chatStub) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]store.ChatEntry, int, error) {
	if s.listByUserFn == nil {
		return nil, 0, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

type mailerStub struct {
	sent int
}

func (m *mailerStub) Send(templateFile, username, email string, data any) (int, error) {
	m.sent++
	return 200, nil
}

type assistantStub struct {
	replyFn func(ctx context.Context, message string) (string, error)
}

func (a *assistantStub) Reply(ctx context.Context, message string) (string, error) {
	if a.replyFn == nil {
		return "stub reply", nil
	}
	return a.replyFn(ctx, message)
}

func newTestStorage() store.Storage {
	return store.Storage{
		Users:      &usersStub{},
		Businesses: &businessesStub{},
		Products:   &productsStub{},
		Chat:       &chatStub{},
	}
}

func newTestApplication(t *testing.T, st store.Storage) *application {
	t.Helper()

	return &application{
		config: config{
			addr: ":0",
			env:  "test",
			auth: authConfig{
				basic: basicConfig{user: "admin", pass: "admin"},
				token: tokenConfig{
					refreshSecret:   "test-refresh-secret",
					secret:          "test-secret",
					accessTokenExp:  time.Minute * 15,
					refreshTokenExp: time.Hour,
					iss:             "bazaar",
				},
			},
			rateLimiter: ratelimiter.Config{Enabled: false},
		},
		store:         st,
		logger:        zap.NewNop().Sugar(),
		mailer:        &mailerStub{},
		assistant:     &assistantStub{},
		authenticator: auth.NewJWTAuthenticator("test-secret", "test-refresh-secret", "bazaar", "bazaar", time.Minute*15, time.Hour),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(100, time.Second),
	}
}

func testUser(id, businessID int64, role rbac.Role) *store.User {
	return &store.User{
		ID:       id,
		Username: "user" + string(role),
		Email:    string(role) + "@acme.test",
		Role:     role,
		Business: &store.Business{ID: businessID, Name: "Acme"},
	}
}

// bearerFor mints a real access token for the user so requests travel the
// full middleware chain.
func bearerFor(t *testing.T, app *application, user *store.User) string {
	t.Helper()

	token, err := app.authenticator.GenerateAccessToken(user.ID, user.BusinessID(), string(user.Role))
	require.NoError(t, err)
	return "Bearer " + token
}

func executeRequest(app *application, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	app.mount().ServeHTTP(rr, req)
	return rr
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(dst))
}
