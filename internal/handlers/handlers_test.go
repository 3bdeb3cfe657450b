package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/config"
	"blog/internal/db"
	"blog/internal/handlers"
	"blog/internal/models"
)

type envelope struct {
	OK      bool            `json:"ok"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID        string `json:"_id"`
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Removed   bool   `json:"removed"`
	} `json:"user"`
}

type post struct {
	ID        string   `json:"_id"`
	UserID    string   `json:"userId"`
	FirstName string   `json:"firstName"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Comments  []string `json:"comments"`
	UpVotes   []string `json:"upVotes"`
	Removed   bool     `json:"removed"`
}

var testCORS = config.CORS{
	AllowedOrigin:  "http://localhost:3000",
	AllowedMethods: []string{"GET", "POST", "OPTIONS", "PUT", "PATCH", "DELETE"},
	AllowedHeaders: []string{"Content-Type", "Authorization"},
}

func newServer(t *testing.T) (*httptest.Server, *auth.Manager) {
	t.Helper()
	s, err := db.OpenStore(filepath.Join(t.TempDir(), "blog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewManager([]byte("test-secret"), 24*time.Hour)
	svc := blog.NewService(s, s, tokens, auth.Hasher{Cost: bcrypt.MinCost}, logger)
	srv := httptest.NewServer(handlers.New(svc, tokens, logger).Routes(testCORS))
	t.Cleanup(srv.Close)
	return srv, tokens
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func register(t *testing.T, srv *httptest.Server, email, first string) session {
	t.Helper()
	code, env := do(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "p", "firstName": first, "lastName": "B",
	})
	if code != http.StatusCreated || !env.OK {
		t.Fatalf("register %s: %d %+v", email, code, env)
	}
	var s session
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return s
}

func TestAuthFlow(t *testing.T) {
	srv, tokens := newServer(t)

	reg := register(t, srv, "a@x.com", "A")
	if reg.Token == "" || reg.User.Email != "a@x.com" || reg.User.FirstName != "A" {
		t.Fatalf("unexpected register payload: %+v", reg)
	}

	code, env := do(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@x.com", "password": "p", "firstName": "A", "lastName": "B",
	})
	if code != http.StatusBadRequest || env.OK || env.Message == "" {
		t.Fatalf("duplicate register: %d %+v", code, env)
	}

	code, env = do(t, srv, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "p"})
	if code != http.StatusOK || !env.OK {
		t.Fatalf("login: %d %+v", code, env)
	}
	var login session
	if err := json.Unmarshal(env.Data, &login); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, err := tokens.Verify(login.Token)
	if err != nil || id.UserID != reg.User.ID {
		t.Fatalf("login token encodes %q, want %q (%v)", id.UserID, reg.User.ID, err)
	}

	code, env = do(t, srv, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "bad"})
	if code != http.StatusUnauthorized || env.OK {
		t.Fatalf("wrong password: %d %+v", code, env)
	}

	code, env = do(t, srv, http.MethodGet, "/auth/protection", login.Token, nil)
	if code != http.StatusOK || !bytes.Contains(env.Data, []byte(reg.User.ID)) {
		t.Fatalf("protection: %d %s", code, env.Data)
	}
}

func TestAuthGate(t *testing.T) {
	srv, _ := newServer(t)

	code, env := do(t, srv, http.MethodGet, "/user/me", "", nil)
	if code != http.StatusForbidden || env.OK {
		t.Fatalf("missing header: %d %+v", code, env)
	}

	code, _ = do(t, srv, http.MethodGet, "/user/me", "not-a-token", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", code)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/user/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong scheme: %d", resp.StatusCode)
	}

	expired := auth.NewManager([]byte("test-secret"), time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	old, err := expired.Issue("someone")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	code, _ = do(t, srv, http.MethodGet, "/user/me", old, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expired token: %d", code)
	}
}

func TestUserEndpoints(t *testing.T) {
	srv, _ := newServer(t)
	s := register(t, srv, "a@x.com", "A")

	code, env := do(t, srv, http.MethodGet, "/user/me", s.Token, nil)
	if code != http.StatusOK || !bytes.Contains(env.Data, []byte(`"email":"a@x.com"`)) {
		t.Fatalf("me: %d %s", code, env.Data)
	}
	if bytes.Contains(env.Data, []byte("password")) {
		t.Fatalf("profile leaks password: %s", env.Data)
	}

	code, env = do(t, srv, http.MethodPut, "/user/edit", s.Token, map[string]string{"firstName": "X"})
	if code != http.StatusOK || !bytes.Contains(env.Data, []byte(`"firstName":"X"`)) || !bytes.Contains(env.Data, []byte(`"lastName":"B"`)) {
		t.Fatalf("edit: %d %s", code, env.Data)
	}

	code, env = do(t, srv, http.MethodDelete, "/user/remove", s.Token, nil)
	if code != http.StatusOK || !bytes.Contains(env.Data, []byte(`"removed":true`)) {
		t.Fatalf("remove: %d %s", code, env.Data)
	}
	code, _ = do(t, srv, http.MethodDelete, "/user/remove", s.Token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("second remove: %d", code)
	}
	code, _ = do(t, srv, http.MethodGet, "/post", s.Token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("list as removed user: %d", code)
	}
}

func TestPostScenario(t *testing.T) {
	srv, _ := newServer(t)
	u := register(t, srv, "u@x.com", "Una")
	v := register(t, srv, "v@x.com", "Vic")

	code, env := do(t, srv, http.MethodPost, "/post", u.Token, map[string]string{"title": "T", "content": "C"})
	if code != http.StatusCreated {
		t.Fatalf("create post: %d %+v", code, env)
	}
	var created post
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.UserID != u.User.ID || created.FirstName != "Una" || created.Comments == nil || created.UpVotes == nil {
		t.Fatalf("unexpected post: %+v", created)
	}

	code, _ = do(t, srv, http.MethodPost, "/post", u.Token, map[string]string{"title": "T"})
	if code != http.StatusBadRequest {
		t.Fatalf("post without content: %d", code)
	}

	code, env = do(t, srv, http.MethodGet, "/post/"+created.ID, v.Token, nil)
	var got post
	_ = json.Unmarshal(env.Data, &got)
	if code != http.StatusOK || got.FirstName != "Una" {
		t.Fatalf("get as V: %d %+v", code, got)
	}

	code, env = do(t, srv, http.MethodPost, "/comment/"+created.ID, v.Token, map[string]string{"content": "hi"})
	if code != http.StatusCreated || !bytes.Contains(env.Data, []byte(`"firstName":"Vic"`)) {
		t.Fatalf("comment: %d %s", code, env.Data)
	}
	code, _ = do(t, srv, http.MethodPost, "/comment/missing", v.Token, map[string]string{"content": "hi"})
	if code != http.StatusNotFound {
		t.Fatalf("comment on missing post: %d", code)
	}

	code, env = do(t, srv, http.MethodPost, "/post/vote/"+created.ID, v.Token, nil)
	if code != http.StatusOK || env.Message != "post upvoted" {
		t.Fatalf("vote: %d %+v", code, env)
	}
	code, _ = do(t, srv, http.MethodPost, "/post/vote/"+created.ID, v.Token, nil)
	if code != http.StatusConflict {
		t.Fatalf("second vote: %d", code)
	}
	code, _ = do(t, srv, http.MethodPost, "/post/vote/missing", v.Token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("vote on missing post: %d", code)
	}

	code, env = do(t, srv, http.MethodGet, "/post/me", u.Token, nil)
	var mine []post
	_ = json.Unmarshal(env.Data, &mine)
	if code != http.StatusOK || len(mine) != 1 || len(mine[0].Comments) != 1 || len(mine[0].UpVotes) != 1 {
		t.Fatalf("own posts: %d %s", code, env.Data)
	}
	code, env = do(t, srv, http.MethodGet, "/post/me", v.Token, nil)
	if code != http.StatusOK || string(env.Data) != "[]" {
		t.Fatalf("V own posts: %d %s", code, env.Data)
	}

	code, _ = do(t, srv, http.MethodDelete, "/post/"+created.ID, v.Token, nil)
	if code != http.StatusForbidden {
		t.Fatalf("delete by non-owner: %d", code)
	}

	code, env = do(t, srv, http.MethodDelete, "/post/"+created.ID, u.Token, nil)
	var removed post
	_ = json.Unmarshal(env.Data, &removed)
	if code != http.StatusOK || !removed.Removed || len(removed.Comments) != 1 {
		t.Fatalf("delete by owner: %d %s", code, env.Data)
	}

	code, _ = do(t, srv, http.MethodGet, "/post/"+created.ID, v.Token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", code)
	}
	code, env = do(t, srv, http.MethodGet, "/post", v.Token, nil)
	if code != http.StatusOK || string(env.Data) != "[]" {
		t.Fatalf("list after delete: %d %s", code, env.Data)
	}
}

func TestGetPostIncludesComments(t *testing.T) {
	srv, _ := newServer(t)
	u := register(t, srv, "u@x.com", "Una")
	v := register(t, srv, "v@x.com", "Vic")

	_, env := do(t, srv, http.MethodPost, "/post", u.Token, map[string]string{"title": "T", "content": "C"})
	var created post
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, text := range []string{"nice", "again"} {
		if code, env := do(t, srv, http.MethodPost, "/comment/"+created.ID, v.Token, map[string]string{"content": text}); code != http.StatusCreated {
			t.Fatalf("comment %q: %d %s", text, code, env.Data)
		}
	}

	code, env := do(t, srv, http.MethodGet, "/post/"+created.ID, u.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("get post: %d %s", code, env.Data)
	}
	var got struct {
		ID        string `json:"_id"`
		FirstName string `json:"firstName"`
		Comments  []struct {
			ID        string    `json:"_id"`
			PostID    string    `json:"postId"`
			FirstName string    `json:"firstName"`
			Content   string    `json:"content"`
			CreatedAt time.Time `json:"createdAt"`
		} `json:"comments"`
	}
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode post: %v %s", err, env.Data)
	}
	if got.ID != created.ID || got.FirstName != "Una" || len(got.Comments) != 2 {
		t.Fatalf("unexpected post: %s", env.Data)
	}
	first, second := got.Comments[0], got.Comments[1]
	if first.Content != "nice" || second.Content != "again" {
		t.Fatalf("comment order: %s", env.Data)
	}
	if first.ID == "" || first.PostID != created.ID || first.FirstName != "Vic" || first.CreatedAt.IsZero() {
		t.Fatalf("comment fields: %+v", first)
	}

	// Listings keep plain comment ids.
	_, env = do(t, srv, http.MethodGet, "/post/me", u.Token, nil)
	var mine []post
	if err := json.Unmarshal(env.Data, &mine); err != nil || len(mine) != 1 || mine[0].Comments[0] != first.ID {
		t.Fatalf("own posts: %v %s", err, env.Data)
	}
}

func TestMalformedBody(t *testing.T) {
	srv, _ := newServer(t)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/auth/register", bytes.NewBufferString("{"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body: %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newServer(t)

	// Browsers send the requested headers lowercased and sorted.
	for _, headers := range []string{"authorization", "authorization,content-type"} {
		req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/post", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", headers)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("preflight %q: %v", headers, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("preflight %q status: %d", headers, resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Fatalf("preflight %q: allow origin = %q", headers, got)
		}
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/user/me", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plain OPTIONS: %d", resp.StatusCode)
	}
}

func TestRecoverReturnsEnvelope(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handlers.WithRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.OK || env.Message == "" {
		t.Fatalf("body = %s (%v)", rec.Body.String(), err)
	}
}

type stubVerifier struct{ id models.Identity }

func (s stubVerifier) Verify(string) (models.Identity, error) { return s.id, nil }

func TestRequireAuthAttachesIdentity(t *testing.T) {
	h := handlers.New(nil, stubVerifier{id: models.Identity{UserID: "u-42"}}, nil)
	var seen models.Identity
	gate := h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	gate(rec, req)
	if rec.Code != http.StatusNoContent || seen.UserID != "u-42" {
		t.Fatalf("code=%d identity=%+v", rec.Code, seen)
	}
}
