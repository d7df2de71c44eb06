package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/maharaja-pos/api/internal/auth"
	"github.com/maharaja-pos/api/internal/enum"
	"github.com/maharaja-pos/api/internal/handler"
	"github.com/maharaja-pos/api/internal/middleware"
	"github.com/maharaja-pos/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// --- Mock store ---

type mockAuthStore struct {
	userByUsername map[string]store.User
	userByID       map[uuid.UUID]store.User
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		userByUsername: make(map[string]store.User),
		userByID:       make(map[uuid.UUID]store.User),
	}
}

func (m *mockAuthStore) addUser(u store.User) {
	m.userByUsername[u.Username] = u
	m.userByID[u.ID] = u
}

func (m *mockAuthStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	u, ok := m.userByUsername[username]
	if !ok {
		return store.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (store.User, error) {
	u, ok := m.userByID[id]
	if !ok {
		return store.User{}, pgx.ErrNoRows
	}
	return u, nil
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func makeTestUser(t *testing.T, role string) store.User {
	t.Helper()
	return store.User{
		ID:             uuid.New(),
		Username:       "ravi",
		Email:          pgtype.Text{String: "ravi@test.com", Valid: true},
		HashedPassword: hashPassword(t, "correct-password"),
		Role:           role,
	}
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func authedJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func tokenFor(t *testing.T, userID uuid.UUID, username, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, username, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func getJSON(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func middlewareAuth() func(http.Handler) http.Handler {
	return middleware.Authenticate(testSecret)
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// --- Login tests ---

func TestLogin_ValidCredentials(t *testing.T) {
	st := newMockAuthStore()
	user := makeTestUser(t, enum.RoleWaiter)
	st.addUser(user)

	h := handler.NewAuthHandler(st, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "ravi",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}

	userResp, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatal("expected user object in response")
	}
	if userResp["username"] != "ravi" {
		t.Errorf("user username: got %v, want ravi", userResp["username"])
	}
	if userResp["role"] != "waiter" {
		t.Errorf("user role: got %v, want waiter", userResp["role"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	st := newMockAuthStore()
	st.addUser(makeTestUser(t, enum.RoleWaiter))

	h := handler.NewAuthHandler(st, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "ravi",
		"password": "wrong-password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	st := newMockAuthStore()
	h := handler.NewAuthHandler(st, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "nobody",
		"password": "password",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	st := newMockAuthStore()
	h := handler.NewAuthHandler(st, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "ravi",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	st := newMockAuthStore()
	user := makeTestUser(t, enum.RoleReception)
	st.addUser(user)

	h := handler.NewAuthHandler(st, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	refreshToken, err := auth.GenerateRefreshToken(testSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := postJSON(t, r, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	st := newMockAuthStore()
	h := handler.NewAuthHandler(st, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rr := postJSON(t, r, "/auth/refresh", map[string]string{
		"refresh_token": "not-a-valid-token",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_UserDeleted(t *testing.T) {
	st := newMockAuthStore()
	refreshToken, err := auth.GenerateRefreshToken(testSecret, uuid.New())
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	h := handler.NewAuthHandler(st, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rr := postJSON(t, r, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

// --- Me tests ---

func TestMe_ReturnsProfile(t *testing.T) {
	st := newMockAuthStore()
	user := makeTestUser(t, enum.RoleChef)
	st.addUser(user)

	h := handler.NewAuthHandler(st, testSecret)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middlewareAuth())
		r.Get("/auth/me", h.Me)
	})

	token := tokenFor(t, user.ID, user.Username, user.Role)
	rr := authedJSON(t, r, "GET", "/auth/me", token, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["username"] != "ravi" {
		t.Errorf("username: got %v, want ravi", resp["username"])
	}
	if resp["role"] != "chef" {
		t.Errorf("role: got %v, want chef", resp["role"])
	}
}

// --- Access token validation ---

func TestLogin_ReturnsValidAccessToken(t *testing.T) {
	st := newMockAuthStore()
	user := makeTestUser(t, enum.RoleWaiter)
	st.addUser(user)

	h := handler.NewAuthHandler(st, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"username": "ravi",
		"password": "correct-password",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	resp := decodeResponse(t, rr)
	accessToken, ok := resp["access_token"].(string)
	if !ok || accessToken == "" {
		t.Fatal("expected non-empty access_token string")
	}

	claims, err := auth.ValidateToken(testSecret, accessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims user ID: got %v, want %v", claims.UserID, user.ID)
	}
	if claims.Username != user.Username {
		t.Errorf("claims username: got %v, want %v", claims.Username, user.Username)
	}
	if claims.Role != user.Role {
		t.Errorf("claims role: got %v, want %v", claims.Role, user.Role)
	}
}
