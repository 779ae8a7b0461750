package server

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convolab/config"
	"convolab/internal/handler"
	"convolab/internal/llm"
	"convolab/internal/repository"
	"convolab/internal/services"
	"convolab/internal/transport/httpdto"
	"convolab/pkg/logger"
)

const (
	selectByEmail = `SELECT id, username, email, password FROM users WHERE email = \$1`
	selectByID    = `SELECT id, username, email, password FROM users WHERE id = \$1`
	insertUser    = `INSERT INTO users \(username, email, password\) VALUES \(\$1, \$2, \$3\) RETURNING id`
)

type testEnv struct {
	server *Server
	mock   sqlmock.Sqlmock
	db     *sql.DB
}

func newTestEnv(t *testing.T, llmURL string, llmTimeout time.Duration) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		AppPort:   "0",
		GinMode:   TestMode,
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
		LLM: config.LLMConfig{
			APIKey:  "gsk-test",
			APIURL:  llmURL,
			Model:   "test-model",
			Timeout: llmTimeout,
		},
	}
	l := logger.NewNop()

	client, err := llm.NewClient(cfg.LLM)
	require.NoError(t, err)

	authService := services.NewAuthService(repository.NewUserRepository(db), cfg)
	chatService := services.NewChatService(client, l)

	s := New(cfg, l)
	s.SetupRoutes(&Handlers{
		Root: handler.NewRootHandler(db),
		Auth: handler.NewAuthHandler(authService),
		Chat: handler.NewChatHandler(chatService),
	}, authService, nil)

	return &testEnv{server: s, mock: mock, db: db}
}

func (e *testEnv) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":` + mustJSON(content) + `}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid", time.Second)

	w := env.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Welcome to Convo Lab AI Backend"}`, w.Body.String())

	w = env.do(http.MethodHead, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid", time.Second)

	env.mock.ExpectPing()
	w := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	env.mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	w = env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSignupTwiceWithSameEmail(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid", time.Second)
	body := `{"username":"ann","email":"a@x.com","password":"pw"}`

	env.mock.ExpectQuery(selectByEmail).WithArgs("a@x.com").WillReturnError(sql.ErrNoRows)
	env.mock.ExpectQuery(insertUser).
		WithArgs("ann", "a@x.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	w := env.do(http.MethodPost, "/signup", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":1,"username":"ann","email":"a@x.com"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	env.mock.ExpectQuery(selectByEmail).WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password"}).
			AddRow(int64(1), "ann", "a@x.com", "$2a$10$hash"))

	w = env.do(http.MethodPost, "/signup", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errBody httpdto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	assert.Equal(t, "Email already exists", errBody.Detail)

	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSignup_ConstraintViolationIsDuplicate(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid", time.Second)

	env.mock.ExpectQuery(selectByEmail).WithArgs("a@x.com").WillReturnError(sql.ErrNoRows)
	env.mock.ExpectQuery(insertUser).
		WithArgs("ann", "a@x.com", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	w := env.do(http.MethodPost, "/signup", `{"username":"ann","email":"a@x.com","password":"pw"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email already exists")
}

func TestSignup_StorageFaultIsOpaque500(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid", time.Second)

	env.mock.ExpectQuery(selectByEmail).WithArgs("a@x.com").WillReturnError(sql.ErrConnDone)

	w := env.do(http.MethodPost, "/signup", `{"username":"ann","email":"a@x.com","password":"pw"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal Server Error","code":"INTERNAL_ERROR"}`, w.Body.String())
}

func TestSignup_SchemaValidation(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid", time.Second)

	for _, body := range []string{
		`{"email":"a@x.com","password":"pw"}`,
		`{"username":"ann","email":"not-an-email","password":"pw"}`,
		`{"username":"ann","email":"a@x.com"}`,
		`not json`,
	} {
		w := env.do(http.MethodPost, "/signup", body, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, body)
	}
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSignup_OverlongPasswordIsRejected(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid", time.Second)

	body := `{"username":"ann","email":"a@x.com","password":"` + strings.Repeat("p", 73) + `"}`
	w := env.do(http.MethodPost, "/signup", body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"detail":"invalid request","code":"INVALID_REQUEST"}`, w.Body.String())
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAsk_ReturnsCompletion(t *testing.T) {
	srv := completionServer(t, "Hello! How can I help?")
	env := newTestEnv(t, srv.URL, time.Second)

	w := env.do(http.MethodPost, "/ask", `{"prompt":"hello"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"Hello! How can I help?"}`, w.Body.String())
}

func TestAsk_TimeoutAnswersWithApology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	env := newTestEnv(t, srv.URL, 50*time.Millisecond)

	w := env.do(http.MethodPost, "/ask", `{"prompt":"hello"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"Error connecting to AI. Please try again."}`, w.Body.String())
}

func TestAsk_EmptyPromptIsAllowed(t *testing.T) {
	srv := completionServer(t, "ok")
	env := newTestEnv(t, srv.URL, time.Second)

	w := env.do(http.MethodPost, "/ask", `{"prompt":""}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/ask", `{}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid", time.Second)

	env.mock.ExpectQuery(selectByEmail).WithArgs("a@x.com").WillReturnError(sql.ErrNoRows)
	var storedHash string
	env.mock.ExpectQuery(insertUser).
		WithArgs("ann", "a@x.com", hashCapture{&storedHash}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	w := env.do(http.MethodPost, "/signup", `{"username":"ann","email":"a@x.com","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, storedHash)

	env.mock.ExpectQuery(selectByEmail).WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password"}).
			AddRow(int64(1), "ann", "a@x.com", storedHash))
	w = env.do(http.MethodPost, "/login", `{"email":"a@x.com","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login httpdto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, int64(1), login.User.ID)

	env.mock.ExpectQuery(selectByID).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password"}).
			AddRow(int64(1), "ann", "a@x.com", storedHash))
	w = env.do(http.MethodGet, "/me", "", http.Header{"Authorization": {"Bearer " + login.AccessToken}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"username":"ann","email":"a@x.com"}`, w.Body.String())

	w = env.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env.mock.ExpectQuery(selectByEmail).WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password"}).
			AddRow(int64(1), "ann", "a@x.com", storedHash))
	w = env.do(http.MethodPost, "/login", `{"email":"a@x.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
}

// hashCapture matches any bcrypt hash argument and records it.
type hashCapture struct{ dst *string }

func (h hashCapture) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "$2") {
		return false
	}
	*h.dst = s
	return true
}
