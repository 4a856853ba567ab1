package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/DAN1X27/messenger-service-sub000/internal/config"
	"github.com/DAN1X27/messenger-service-sub000/internal/db"
	"github.com/DAN1X27/messenger-service-sub000/internal/moderation"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
	"github.com/DAN1X27/messenger-service-sub000/internal/session"
	"github.com/DAN1X27/messenger-service-sub000/internal/ws"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer abc":     "abc",
		"Basic abc":      "",
		"Bearer":         "",
		"Bearer  spaced": "spaced",
	}
	for header, expect := range cases {
		if got := bearerToken(header); got != expect {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, expect)
		}
	}
}

func TestStatusForCode(t *testing.T) {
	cases := map[string]int{
		"invalid_token":              http.StatusUnauthorized,
		"authentication_failed":      http.StatusUnauthorized,
		"not_member":                 http.StatusForbidden,
		"not_owner":                  http.StatusForbidden,
		"blocked":                    http.StatusForbidden,
		"target_is_private":          http.StatusForbidden,
		"cannot_ban_privileged_user": http.StatusForbidden,
		"not_found":                  http.StatusNotFound,
		"invite_not_found":           http.StatusNotFound,
		"not_banned":                 http.StatusNotFound,
		"already_member":             http.StatusConflict,
		"email_taken":                http.StatusConflict,
		"something_else":             http.StatusInternalServerError,
	}
	for code, expect := range cases {
		if got := statusForCode(code); got != expect {
			t.Fatalf("statusForCode(%q) = %d, want %d", code, got, expect)
		}
	}
}

func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("MESSENGER_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("no test database configured")
		return nil
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("test database unreachable: %v", err)
		return nil
	}
	return pool
}

func newTestServer(t *testing.T, pool *pgxpool.Pool) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		HTTPAddr:         ":0",
		JWTSecret:        "test-secret",
		JWTIssuer:        "test-issuer",
		AccessTokenTTL:   15 * time.Minute,
		InviteTTL:        time.Hour,
		ModerationLogTTL: time.Hour,
		TempUserTTL:      time.Hour,
	}
	log := zerolog.Nop()
	store := repository.NewStore(pool)
	sessions := session.NewManager(store.Queries, nil, cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	hub := ws.NewHub(log)
	wsHandler := ws.NewHandler(hub, sessions, store.Queries, nil, log)

	svcCfg := moderation.Config{InviteTTL: cfg.InviteTTL, ModerationLogTTL: cfg.ModerationLogTTL}
	channels := moderation.NewChannelService(store, hub, nil, svcCfg)
	groups := moderation.NewGroupService(store, hub, nil, svcCfg)
	chats := moderation.NewChatService(store, hub, nil)
	friends := moderation.NewFriendService(store, hub)
	users := moderation.NewUserService(store, sessions, nil, cfg.JWTSecret, cfg.JWTIssuer, cfg.TempUserTTL)

	server := NewServer(cfg, users, channels, groups, chats, friends, sessions, nil, wsHandler, log)
	app := httptest.NewServer(server.Router())
	t.Cleanup(app.Close)
	return app
}

func doReq(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func registerAndLogin(t *testing.T, app *httptest.Server, name string) (userID, token string) {
	t.Helper()
	email := name + "." + time.Now().Format("150405.000000000") + "@example.local"
	resp := doReq(t, http.MethodPost, app.URL+"/auth/register", "", map[string]string{
		"email":       email,
		"password":    "dev-password",
		"displayName": name,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var registered struct {
		User              struct{ ID string }
		ConfirmationToken string `json:"confirmationToken"`
	}
	decodeBody(t, resp, &registered)

	resp = doReq(t, http.MethodPost, app.URL+"/auth/confirm", "", map[string]string{
		"token": registered.ConfirmationToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodPost, app.URL+"/auth/login", "", map[string]string{
		"email":    email,
		"password": "dev-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var login struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, resp, &login)
	return login.User.ID, login.AccessToken
}

func TestAuthRequired(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	app := newTestServer(t, pool)

	resp := doReq(t, http.MethodGet, app.URL+"/auth/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodGet, app.URL+"/channels/", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestChannelFlow(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	app := newTestServer(t, pool)

	_, ownerToken := registerAndLogin(t, app, "owner")
	memberID, memberToken := registerAndLogin(t, app, "member")

	resp := doReq(t, http.MethodPost, app.URL+"/channels/", ownerToken, map[string]any{
		"name": "announcements",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create channel: expected 201, got %d", resp.StatusCode)
	}
	var ch struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &ch)

	resp = doReq(t, http.MethodPost, app.URL+"/channels/"+ch.ID+"/join", memberToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: expected 200, got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodPost, app.URL+"/channels/"+ch.ID+"/join", memberToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double join: expected 409, got %d", resp.StatusCode)
	}

	// Members cannot post; that is an admin surface.
	resp = doReq(t, http.MethodPost, app.URL+"/channels/"+ch.ID+"/posts", memberToken, map[string]string{"body": "hi"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member post: expected 403, got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodPost, app.URL+"/channels/"+ch.ID+"/posts", ownerToken, map[string]string{"body": "welcome"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("owner post: expected 201, got %d", resp.StatusCode)
	}

	// Members cannot ban either.
	resp = doReq(t, http.MethodPost, app.URL+"/channels/"+ch.ID+"/bans/"+memberID, memberToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member ban: expected 403, got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodPost, app.URL+"/channels/"+ch.ID+"/bans/"+memberID, ownerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner ban: expected 200, got %d", resp.StatusCode)
	}

	// The banned member lost access.
	resp = doReq(t, http.MethodGet, app.URL+"/channels/"+ch.ID+"/posts", memberToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("banned member posts: expected 403, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	app := newTestServer(t, pool)

	_, token := registerAndLogin(t, app, "revoked")

	resp := doReq(t, http.MethodGet, app.URL+"/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me before logout: expected 200, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodPost, app.URL+"/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	// The JWT is still within its validity window but the session row is revoked.
	resp = doReq(t, http.MethodGet, app.URL+"/auth/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", resp.StatusCode)
	}
}
