package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/johndosdos/anonbox/internal/auth"
	"github.com/johndosdos/anonbox/internal/handler"
	"github.com/johndosdos/anonbox/internal/inbox"
	"github.com/johndosdos/anonbox/internal/model"
	"github.com/johndosdos/anonbox/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiResponse decodes both handler.Response and handler.MessagesResponse.
type apiResponse struct {
	Success             bool            `json:"success"`
	Message             string          `json:"message"`
	Messages            []model.Message `json:"messages"`
	IsAcceptingMessages *bool           `json:"isAcceptingMessages"`
}

type testServer struct {
	router http.Handler
	store  *memory.Store
}

func newTestServer(t *testing.T, limiter func(http.Handler) http.Handler) *testServer {
	t.Helper()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.New(memory.WithClock(func() time.Time {
		at = at.Add(time.Second)
		return at
	}))
	svc := inbox.NewService(store, inbox.NewSchemaValidator(0))

	return &testServer{
		router: NewRouter(RouterOpts{Inbox: svc, JWTSecret: testSecret, SendLimiter: limiter}),
		store:  store,
	}
}

func (s *testServer) createUser(t *testing.T, username string) string {
	t.Helper()

	u, err := s.store.CreateUser(context.Background(), model.CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)

	token, err := auth.MakeJWT(u.ID, "anonbox", testSecret, time.Minute)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, body, token string) (int, apiResponse) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestRouter_FullCycle(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.createUser(t, "alice")

	code, resp := srv.do(t, http.MethodPost, "/api/send-message", `{"username":"alice","content":"hi"}`, "")
	assert.Equal(t, http.StatusCreated, code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Message sent successfully", resp.Message)

	code, _ = srv.do(t, http.MethodPost, "/api/send-message", `{"username":"alice","content":"hello"}`, "")
	require.Equal(t, http.StatusCreated, code)

	code, resp = srv.do(t, http.MethodGet, "/api/get-messages", "", token)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "hello", resp.Messages[0].Content)
	assert.Equal(t, "hi", resp.Messages[1].Content)

	code, resp = srv.do(t, http.MethodPost, "/api/accept-messages", `{"acceptMessages":false}`, token)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.IsAcceptingMessages)
	assert.False(t, *resp.IsAcceptingMessages)

	code, resp = srv.do(t, http.MethodPost, "/api/send-message", `{"username":"alice","content":"x"}`, "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "User is not accepting messages", resp.Message)

	code, resp = srv.do(t, http.MethodGet, "/api/accept-messages", "", token)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.IsAcceptingMessages)
	assert.False(t, *resp.IsAcceptingMessages)

	code, resp = srv.do(t, http.MethodGet, "/api/get-messages", "", token)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Messages, 2)

	code, resp = srv.do(t, http.MethodDelete, "/api/delete-message/"+resp.Messages[1].ID.String(), "", token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Message deleted successfully", resp.Message)

	code, resp = srv.do(t, http.MethodGet, "/api/get-messages", "", token)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "hello", resp.Messages[0].Content)
}

func TestRouter_Errors(t *testing.T) {
	srv := newTestServer(t, nil)
	aliceToken := srv.createUser(t, "alice")
	bobToken := srv.createUser(t, "bob")

	code, _ := srv.do(t, http.MethodPost, "/api/send-message", `{"username":"bob","content":"for bob"}`, "")
	require.Equal(t, http.StatusCreated, code)
	_, bobs := srv.do(t, http.MethodGet, "/api/get-messages", "", bobToken)
	require.Len(t, bobs.Messages, 1)
	bobMessageID := bobs.Messages[0].ID.String()

	orphanToken, err := auth.MakeJWT(uuid.New(), "anonbox", testSecret, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		token       string
		wantCode    int
		wantMessage string
	}{
		{"send_malformed_body", http.MethodPost, "/api/send-message", `{"username":`, "", http.StatusBadRequest, "Invalid request body"},
		{"send_unknown_user", http.MethodPost, "/api/send-message", `{"username":"nobody","content":"hi"}`, "", http.StatusNotFound, "User not found"},
		{"send_empty_content", http.MethodPost, "/api/send-message", `{"username":"alice","content":""}`, "", http.StatusBadRequest, "Invalid username or message content"},
		{"send_missing_username", http.MethodPost, "/api/send-message", `{"content":"hi"}`, "", http.StatusBadRequest, "Invalid username or message content"},
		{"list_without_session", http.MethodGet, "/api/get-messages", "", "", http.StatusUnauthorized, "Not Authenticated"},
		{"list_bad_token", http.MethodGet, "/api/get-messages", "", "garbage", http.StatusUnauthorized, "Not Authenticated"},
		{"list_deleted_user", http.MethodGet, "/api/get-messages", "", orphanToken, http.StatusNotFound, "User not found"},
		{"delete_malformed_id", http.MethodDelete, "/api/delete-message/xyz", "", aliceToken, http.StatusBadRequest, "Invalid message ID format"},
		{"delete_malformed_id_without_session", http.MethodDelete, "/api/delete-message/xyz", "", "", http.StatusBadRequest, "Invalid message ID format"},
		{"delete_without_session", http.MethodDelete, "/api/delete-message/" + bobMessageID, "", "", http.StatusUnauthorized, "Not Authenticated"},
		{"delete_other_owner", http.MethodDelete, "/api/delete-message/" + bobMessageID, "", aliceToken, http.StatusNotFound, "Message not found or already deleted"},
		{"accept_get_without_session", http.MethodGet, "/api/accept-messages", "", "", http.StatusUnauthorized, "Not Authenticated"},
		{"accept_set_without_session", http.MethodPost, "/api/accept-messages", `{"acceptMessages":true}`, "", http.StatusUnauthorized, "Not Authenticated"},
		{"accept_set_missing_field", http.MethodPost, "/api/accept-messages", `{}`, aliceToken, http.StatusBadRequest, "Invalid request body"},
		{"accept_set_deleted_user", http.MethodPost, "/api/accept-messages", `{"acceptMessages":true}`, orphanToken, http.StatusNotFound, "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := srv.do(t, tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, tt.wantCode, code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantMessage, resp.Message)
		})
	}

	_, bobs = srv.do(t, http.MethodGet, "/api/get-messages", "", bobToken)
	assert.Len(t, bobs.Messages, 1)
}

func TestRouter_EmptyInbox(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.createUser(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/get-messages", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"messages":[]}`, rec.Body.String())
}

func TestRouter_SendKeepsPlainText(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.createUser(t, "alice")

	code, _ := srv.do(t, http.MethodPost, "/api/send-message", `{"username":"alice","content":"Tom & Jerry say \"hi\""}`, "")
	require.Equal(t, http.StatusCreated, code)

	_, resp := srv.do(t, http.MethodGet, "/api/get-messages", "", token)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, `Tom & Jerry say "hi"`, resp.Messages[0].Content)
}

func TestRouter_BearerHeader(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.createUser(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/accept-messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SendLimiter(t *testing.T) {
	calls := 0
	limiter := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls > 1 {
				handler.WriteError(w, http.StatusTooManyRequests, "Too many requests. Try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	srv := newTestServer(t, limiter)
	token := srv.createUser(t, "alice")

	code, _ := srv.do(t, http.MethodPost, "/api/send-message", `{"username":"alice","content":"one"}`, "")
	assert.Equal(t, http.StatusCreated, code)

	code, resp := srv.do(t, http.MethodPost, "/api/send-message", `{"username":"alice","content":"two"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.False(t, resp.Success)

	code, _ = srv.do(t, http.MethodGet, "/api/get-messages", "", token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, calls)
}

func TestRouter_Healthz(t *testing.T) {
	srv := newTestServer(t, nil)

	code, resp := srv.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
}
