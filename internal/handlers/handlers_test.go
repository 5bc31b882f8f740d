package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"community-budget/internal/advisor"
	"community-budget/internal/auth"
	"community-budget/internal/chat"
	"community-budget/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

// stubGenerator stands in for the LLM.
type stubGenerator struct {
	mu      sync.Mutex
	fail    bool
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, _ []advisor.Turn, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.fail {
		return "", advisor.ErrUnavailable
	}
	return "generated reply", nil
}

func (g *stubGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// APITestSuite drives the full router against an in-memory database.
type APITestSuite struct {
	suite.Suite
	db     *storage.DB
	gen    *stubGenerator
	router http.Handler
	ctx    context.Context
}

func (suite *APITestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	log := zaptest.NewLogger(suite.T())
	suite.gen = &stubGenerator{}
	engine := chat.NewEngine(db, advisor.New(suite.gen, time.Second, log), nil, log)
	h := NewHandlers(db, engine, Options{JWTSecret: []byte("test-secret"), SessionTTL: time.Hour}, log)

	mux := http.NewServeMux()
	h.Register(mux)
	suite.router = h.RequestLogger(mux)
}

func (suite *APITestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *APITestSuite) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) decodeBody(w *httptest.ResponseRecorder, v any) {
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}

func (suite *APITestSuite) message(w *httptest.ResponseRecorder) string {
	var body map[string]any
	suite.decodeBody(w, &body)
	msg, _ := body["message"].(string)
	return msg
}

func (suite *APITestSuite) createUser(name, username, password string) {
	w := suite.do("POST", "/user", map[string]string{"name": name, "username": username, "password": password})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
}

func (suite *APITestSuite) login(username, password string) *http.Cookie {
	w := suite.do("POST", "/auth/login", map[string]string{"username": username, "password": password})
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	suite.T().Fatal("login did not set a session cookie")
	return nil
}

func (suite *APITestSuite) createProject(title, owner string, budget float64) {
	w := suite.do("POST", "/project", map[string]any{
		"title": title, "description": "test project", "budget": budget, "created_by": owner,
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
}

func (suite *APITestSuite) TestUserLifecycle() {
	suite.createUser("Alice Doe", "alice", "secret")

	w := suite.do("POST", "/user", map[string]string{"name": "Other", "username": "alice", "password": "x"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "Username already exists", suite.message(w))

	w = suite.do("POST", "/user", map[string]string{"name": "Alice Doe", "username": "alice2", "password": "x"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "Name already exists", suite.message(w))

	w = suite.do("POST", "/user", map[string]string{"username": "nobody"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do("GET", "/user/alice", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var user map[string]any
	suite.decodeBody(w, &user)
	assert.Equal(suite.T(), "Alice Doe", user["name"])
	assert.NotContains(suite.T(), user, "password_hash")

	w = suite.do("PUT", "/user/alice", map[string]string{"name": "Alice Smith"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	w = suite.do("GET", "/user", nil)
	var users []map[string]any
	suite.decodeBody(w, &users)
	require.Len(suite.T(), users, 1)
	assert.Equal(suite.T(), "Alice Smith", users[0]["name"])

	w = suite.do("DELETE", "/user/alice", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestMissingUserIs404() {
	w := suite.do("GET", "/user/nonexistent", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "User not found", suite.message(w))

	w = suite.do("DELETE", "/user/nonexistent", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.NotEmpty(suite.T(), suite.message(w))

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), count)
}

func (suite *APITestSuite) TestLogin() {
	suite.createUser("Bob", "bob", "hunter2")

	w := suite.do("POST", "/auth/login", map[string]string{"username": "bob"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "Missing credentials", suite.message(w))

	w = suite.do("POST", "/auth/login", map[string]string{"username": "carol", "password": "x"})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.do("POST", "/auth/login", map[string]string{"username": "bob", "password": "wrong"})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "Invalid password", suite.message(w))

	w = suite.do("POST", "/auth/login", map[string]string{"username": "bob", "password": "hunter2"})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var body struct {
		Message string            `json:"message"`
		User    map[string]string `json:"user"`
	}
	suite.decodeBody(w, &body)
	assert.Equal(suite.T(), "Login successful", body.Message)
	assert.Equal(suite.T(), map[string]string{"name": "Bob", "username": "bob"}, body.User)
}

func (suite *APITestSuite) TestLogoutRevokesSession() {
	suite.createUser("Bob", "bob", "hunter2")
	cookie := suite.login("bob", "hunter2")

	w := suite.do("POST", "/chat/start", nil, cookie)
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	w = suite.do("GET", "/auth/logout", nil, cookie)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "Logged out successfully", suite.message(w))

	w = suite.do("POST", "/chat/start", nil, cookie)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestBearerTokenAccepted() {
	suite.createUser("Bob", "bob", "hunter2")
	w := suite.do("POST", "/auth/login", map[string]string{"username": "bob", "password": "hunter2"})
	var body struct {
		Token string `json:"token"`
	}
	suite.decodeBody(w, &body)
	require.NotEmpty(suite.T(), body.Token)

	req := httptest.NewRequest("POST", "/chat/start", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusCreated, rec.Code)
}

func (suite *APITestSuite) TestProjectCRUDAndSummary() {
	w := suite.do("POST", "/project", map[string]any{"title": "Garden", "created_by": "ghost"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "User not found", suite.message(w))

	suite.createUser("Alice", "alice", "pw")
	suite.createProject("Garden", "alice", 300)

	w = suite.do("GET", "/project/Garden", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var project map[string]any
	suite.decodeBody(w, &project)
	assert.Equal(suite.T(), "proposed", project["status"])
	assert.Equal(suite.T(), "alice", project["created_by"])

	w = suite.do("PUT", "/project/Garden", map[string]any{"status": "finished"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	w = suite.do("PUT", "/project/Garden", map[string]any{"status": "active"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do("POST", "/contribution", map[string]any{"user_username": "alice", "project_title": "Nowhere", "amount": 5})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "Project not found", suite.message(w))

	for _, amt := range []float64{100.1, 0.2} {
		w = suite.do("POST", "/contribution", map[string]any{"user_username": "alice", "project_title": "Garden", "amount": amt})
		require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	}
	w = suite.do("POST", "/vote", map[string]any{"user_username": "alice", "project_title": "Garden", "vote_type": "support"})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	w = suite.do("GET", "/project/Garden/summary", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var summary struct {
		Status    string         `json:"status"`
		Funded    float64        `json:"funded"`
		Remaining float64        `json:"remaining"`
		Votes     map[string]int `json:"votes"`
	}
	suite.decodeBody(w, &summary)
	assert.Equal(suite.T(), "active", summary.Status)
	assert.Equal(suite.T(), 100.3, summary.Funded)
	assert.Equal(suite.T(), 199.7, summary.Remaining)
	assert.Equal(suite.T(), map[string]int{"support": 1}, summary.Votes)

	w = suite.do("DELETE", "/project/Missing", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestContributionAndVoteUpdates() {
	suite.createUser("Alice", "alice", "pw")
	suite.createProject("Library", "alice", 50)

	w := suite.do("POST", "/contribution", map[string]any{"user_username": "alice", "project_title": "Library", "amount": 10})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	suite.decodeBody(w, &created)

	w = suite.do("PUT", "/contribution/"+itoa(created.ID), map[string]any{"amount": 12.5})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	w = suite.do("GET", "/contribution/"+itoa(created.ID), nil)
	var c map[string]any
	suite.decodeBody(w, &c)
	assert.Equal(suite.T(), 12.5, c["amount"])
	assert.Equal(suite.T(), "Library", c["project_title"])

	w = suite.do("GET", "/contribution/abc", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.do("POST", "/vote", map[string]any{"user_username": "alice", "project_title": "Library"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do("POST", "/vote", map[string]any{"user_username": "alice", "project_title": "Library", "vote_type": "oppose"})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	suite.decodeBody(w, &created)

	w = suite.do("PUT", "/vote/"+itoa(created.ID), map[string]any{"vote_type": "support", "comment": "changed my mind"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	w = suite.do("GET", "/vote/"+itoa(created.ID), nil)
	var v map[string]any
	suite.decodeBody(w, &v)
	assert.Equal(suite.T(), "support", v["vote_type"])
	assert.Equal(suite.T(), "changed my mind", v["comment"])

	w = suite.do("DELETE", "/vote/"+itoa(created.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	w = suite.do("DELETE", "/vote/"+itoa(created.ID), nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestBudgetTotalRecomputed() {
	suite.createUser("Alice", "alice", "pw")

	w := suite.do("POST", "/budget", map[string]any{
		"name": "Spring", "mandatory": 10.1, "essential": 20.2, "discretionary": 0.3,
		"total": 999, "created_by": "alice",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID    int64   `json:"id"`
		Total float64 `json:"total"`
	}
	suite.decodeBody(w, &created)
	assert.Equal(suite.T(), 30.6, created.Total)

	w = suite.do("PUT", "/budget/"+itoa(created.ID), map[string]any{"mandatory": 1.1, "total": 0})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do("GET", "/budget/"+itoa(created.ID), nil)
	var b map[string]any
	suite.decodeBody(w, &b)
	assert.Equal(suite.T(), 21.6, b["total"])
	assert.Equal(suite.T(), "Spring", b["name"])

	w = suite.do("POST", "/budget", map[string]any{"name": "X", "created_by": "ghost"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestExpenseAmountCoercionAndStats() {
	suite.createUser("Alice", "alice", "pw")
	suite.createProject("Fridge", "alice", 100)

	w := suite.do("POST", "/expense", map[string]any{
		"description": "Shelves", "amount": "12.50", "category": "Supplies",
		"project_title": "Fridge", "created_by": "alice", "date": "2024-03-05T10:00",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID int64 `json:"id"`
	}
	suite.decodeBody(w, &created)

	w = suite.do("POST", "/expense", map[string]any{
		"amount": 7.5, "category": "food", "created_by": "alice", "date": "2024-03-06",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	w = suite.do("POST", "/expense", map[string]any{"amount": "lots", "created_by": "alice"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do("GET", "/expense/"+itoa(created.ID), nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var e map[string]any
	suite.decodeBody(w, &e)
	assert.Equal(suite.T(), 12.5, e["amount"])
	assert.Equal(suite.T(), "supplies", e["category"])
	assert.Equal(suite.T(), "Fridge", e["project_title"])

	w = suite.do("PUT", "/expense/"+itoa(created.ID), map[string]any{"amount": "2.5", "project_title": ""})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	w = suite.do("GET", "/expense/"+itoa(created.ID), nil)
	suite.decodeBody(w, &e)
	assert.Equal(suite.T(), 2.5, e["amount"])
	assert.Nil(suite.T(), e["project_title"])

	w = suite.do("GET", "/expense/stats?year=2024&month=3", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var stats StatsResponse
	suite.decodeBody(w, &stats)
	assert.Equal(suite.T(), "March", stats.MonthName)
	assert.Equal(suite.T(), 10.0, stats.Total)
	require.Len(suite.T(), stats.Categories, 2)
	assert.Equal(suite.T(), "food", stats.Categories[0].Category)
	assert.Equal(suite.T(), 75.0, stats.Categories[0].Percentage)
	assert.Len(suite.T(), stats.Expenses, 2)
	assert.Equal(suite.T(), MonthRef{Year: 2024, Month: 2}, stats.Prev)
	assert.Equal(suite.T(), MonthRef{Year: 2024, Month: 4}, stats.Next)
}

func (suite *APITestSuite) TestChatRequiresLogin() {
	w := suite.do("POST", "/chat/start", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "Please login first", suite.message(w))

	w = suite.do("GET", "/chat/history/1", nil, &http.Cookie{Name: SessionCookieName, Value: "garbage"})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) startChat(cookie *http.Cookie) string {
	w := suite.do("POST", "/chat/start", nil, cookie)
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		SessionID int64 `json:"session_id"`
	}
	suite.decodeBody(w, &body)
	require.NotZero(suite.T(), body.SessionID)
	return itoa(body.SessionID)
}

func (suite *APITestSuite) send(cookie *http.Cookie, id, text string) *httptest.ResponseRecorder {
	return suite.do("POST", "/chat/message/"+id, map[string]string{"message": text}, cookie)
}

func (suite *APITestSuite) response(w *httptest.ResponseRecorder) string {
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	var body map[string]string
	suite.decodeBody(w, &body)
	assert.NotContains(suite.T(), body, "error")
	return body["response"]
}

func (suite *APITestSuite) TestChatConversation() {
	suite.createUser("Dana", "dana", "pw")
	cookie := suite.login("dana", "pw")
	id := suite.startChat(cookie)

	w := suite.do("GET", "/chat/history/"+id, nil, cookie)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var history []struct {
		Content   string    `json:"content"`
		IsUser    bool      `json:"is_user"`
		Timestamp time.Time `json:"timestamp"`
	}
	suite.decodeBody(w, &history)
	require.Len(suite.T(), history, 1)
	assert.False(suite.T(), history[0].IsUser)
	assert.Equal(suite.T(), advisor.Primer, history[0].Content)

	assert.Equal(suite.T(), chat.DescriptionPrompt, suite.response(suite.send(cookie, id, "hello")))
	assert.Equal(suite.T(), chat.BudgetPrompt, suite.response(suite.send(cookie, id, "a tool library")))
	assert.Equal(suite.T(), chat.TimelinePrompt, suite.response(suite.send(cookie, id, "about $400")))
	assert.Equal(suite.T(), chat.HelpersPrompt, suite.response(suite.send(cookie, id, "next spring")))

	assert.Equal(suite.T(), "generated reply", suite.response(suite.send(cookie, id, "my neighbours")))
	prompt := suite.gen.lastPrompt()
	for _, answer := range []string{"a tool library", "about $400", "next spring", "my neighbours"} {
		assert.Contains(suite.T(), prompt, answer)
	}

	assert.Equal(suite.T(), "generated reply", suite.response(suite.send(cookie, id, "what should I buy first?")))
	assert.Contains(suite.T(), suite.gen.lastPrompt(), "what should I buy first?")

	w = suite.send(cookie, id, "   ")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.send(cookie, id, "BYE")
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "Chat ended successfully", suite.message(w))

	w = suite.send(cookie, id, "hello again")
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.do("POST", "/chat/end/"+id, nil, cookie)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do("GET", "/chat/history/"+id, nil, cookie)
	suite.decodeBody(w, &history)
	assert.Len(suite.T(), history, 13)
	for i := 1; i < len(history); i++ {
		assert.False(suite.T(), history[i].Timestamp.Before(history[i-1].Timestamp))
	}
}

func (suite *APITestSuite) TestChatAdvisorFailureReturnsApology() {
	suite.createUser("Dana", "dana", "pw")
	cookie := suite.login("dana", "pw")
	id := suite.startChat(cookie)
	for _, text := range []string{"hi", "a mural", "$50", "summer"} {
		suite.response(suite.send(cookie, id, text))
	}

	suite.gen.fail = true
	assert.Equal(suite.T(), chat.AdviceApology, suite.response(suite.send(cookie, id, "friends")))
	suite.gen.fail = false
	assert.Equal(suite.T(), "generated reply", suite.response(suite.send(cookie, id, "friends")))
}

func (suite *APITestSuite) TestChatSessionsArePrivate() {
	suite.createUser("Dana", "dana", "pw")
	suite.createUser("Eli", "eli", "pw")
	dana := suite.login("dana", "pw")
	eli := suite.login("eli", "pw")
	id := suite.startChat(dana)

	for _, w := range []*httptest.ResponseRecorder{
		suite.send(eli, id, "hello"),
		suite.do("GET", "/chat/history/"+id, nil, eli),
		suite.do("POST", "/chat/end/"+id, nil, eli),
		suite.do("GET", "/chat/history/999", nil, dana),
	} {
		assert.Equal(suite.T(), http.StatusNotFound, w.Code)
		assert.Equal(suite.T(), "Chat session not found", suite.message(w))
	}
}

func (suite *APITestSuite) TestChatStartWithProject() {
	suite.createUser("Dana", "dana", "pw")
	suite.createProject("Bike Repair", "dana", 80)
	cookie := suite.login("dana", "pw")

	w := suite.do("POST", "/chat/start", map[string]string{"project_title": "Unknown"}, cookie)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.do("POST", "/chat/start", map[string]string{"project_title": "Bike Repair"}, cookie)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
}

func (suite *APITestSuite) TestRequestIDAndHealth() {
	w := suite.do("GET", "/healthz", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.NotEmpty(suite.T(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	assert.Equal(suite.T(), "abc-123", rec.Header().Get(RequestIDHeader))
}

func (suite *APITestSuite) TestExpenseRejectsNonFiniteAmount() {
	suite.createUser("Alice", "alice", "pw")

	for _, body := range []string{
		`{"amount":"Inf","created_by":"alice"}`,
		`{"amount":"-inf","created_by":"alice"}`,
		`{"amount":"NaN","created_by":"alice"}`,
		`{"amount":"1e400","created_by":"alice"}`,
		`{"amount":1e400,"created_by":"alice"}`,
	} {
		req := httptest.NewRequest("POST", "/expense", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		suite.router.ServeHTTP(w, req)
		assert.Equal(suite.T(), http.StatusBadRequest, w.Code, body)
		assert.NotEmpty(suite.T(), suite.message(w), body)
	}

	w := suite.do("GET", "/expense", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), "[]", w.Body.String())

	w = suite.do("GET", "/expense/stats", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestContributionAndVoteNeedKnownUserAndProject() {
	suite.createUser("Alice", "alice", "pw")
	suite.createProject("Library", "alice", 50)

	tests := []struct {
		name    string
		path    string
		body    map[string]any
		message string
	}{
		{"contribution unknown user", "/contribution", map[string]any{"user_username": "ghost", "project_title": "Library", "amount": 5}, "User not found"},
		{"contribution unknown project", "/contribution", map[string]any{"user_username": "alice", "project_title": "Nowhere", "amount": 5}, "Project not found"},
		{"vote unknown user", "/vote", map[string]any{"user_username": "ghost", "project_title": "Library", "vote_type": "support"}, "User not found"},
		{"vote unknown project", "/vote", map[string]any{"user_username": "alice", "project_title": "Nowhere", "vote_type": "support"}, "Project not found"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.do("POST", tt.path, tt.body)
			assert.Equal(suite.T(), http.StatusNotFound, w.Code)
			assert.Equal(suite.T(), tt.message, suite.message(w))
		})
	}

	for _, path := range []string{"/contribution", "/vote"} {
		w := suite.do("GET", path, nil)
		require.Equal(suite.T(), http.StatusOK, w.Code)
		assert.JSONEq(suite.T(), "[]", w.Body.String(), path)
	}
}

func (suite *APITestSuite) TestStoreFailureIsNotReportedAsMissingUser() {
	require.NoError(suite.T(), suite.db.Close())

	w := suite.do("POST", "/auth/login", map[string]string{"username": "alice", "password": "pw"})
	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
	assert.Equal(suite.T(), "Internal server error", suite.message(w))

	w = suite.do("POST", "/user", map[string]string{"name": "Alice", "username": "alice", "password": "pw"})
	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
	assert.Equal(suite.T(), "Internal server error", suite.message(w))
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestAmountUnmarshal(t *testing.T) {
	var req expenseRequest
	require.NoError(t, json.NewDecoder(strings.NewReader(`{"amount":" 3.25 "}`)).Decode(&req))
	assert.Equal(t, amount(3.25), *req.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount":4}`), &req))
	assert.Equal(t, amount(4), *req.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"four"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"amount":true}`), &req))

	for _, s := range []string{`"Inf"`, `"-Infinity"`, `"NaN"`, `"1e400"`} {
		var a amount
		err := a.UnmarshalJSON([]byte(s))
		assert.Error(t, err, s)
		assert.True(t, isValidation(err), s)
	}
}

func TestAuthenticateRejectsTokenForDeletedSession(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	user, err := db.CreateUser(context.Background(), "Fay", "fay", "hash")
	require.NoError(t, err)
	secret := []byte("s")
	token, err := auth.IssueToken(secret, user.ID, user.Username, "never-stored", time.Now().Add(time.Hour))
	require.NoError(t, err)

	h := NewHandlers(db, nil, Options{JWTSecret: secret}, zaptest.NewLogger(t))
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	_, _, err = h.authenticate(req)
	assert.Error(t, err)
}

func TestWriteJSONUnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]float64{"total": math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, w.Body.String())

	w = httptest.NewRecorder()
	writeJSON(w, http.StatusCreated, map[string]int{"id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
