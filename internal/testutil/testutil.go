// Package testutil wires stores and routers against an in-memory SQLite
// database so every test runs on an isolated schema.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"crosspoll/internal/db"
	"crosspoll/internal/models"
	"crosspoll/internal/router"
	"crosspoll/internal/store"
	"crosspoll/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenStore returns a Store over a fresh in-memory SQLite database.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	// Each SQLite connection gets its own :memory: database; a single
	// connection keeps every query on the same one.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return store.New(gdb)
}

// CreateUser creates an authenticated user.
func CreateUser(t *testing.T, st *store.Store, email, name string) *models.User {
	t.Helper()
	user, err := st.CreateUser(&email, &name)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

// CreateAnonymousUser creates an identity with no email.
func CreateAnonymousUser(t *testing.T, st *store.Store) *models.User {
	t.Helper()
	user, err := st.CreateUser(nil, nil)
	if err != nil {
		t.Fatalf("create anonymous test user: %v", err)
	}
	return user
}

// CreatePoll creates a poll with the given answers.
func CreatePoll(t *testing.T, st *store.Store, authorID uint, question string, answers ...string) *models.Poll {
	t.Helper()
	poll, err := st.CreatePollWithAnswers(authorID, question, answers)
	if err != nil {
		t.Fatalf("create test poll: %v", err)
	}
	return poll
}

// CastVote records a vote and fails the test on any error or duplicate.
func CastVote(t *testing.T, st *store.Store, userID, pollID, answerID uint) *models.Vote {
	t.Helper()
	vote, created, err := st.CreateVoteIfAbsent(userID, pollID, answerID)
	if err != nil {
		t.Fatalf("cast test vote: %v", err)
	}
	if !created {
		t.Fatalf("test vote for user %d on poll %d already existed", userID, pollID)
	}
	return vote
}

// NewRouter builds the full engine over the store, plus a test-only login
// route that signs the session in as an arbitrary user id.
func NewRouter(t *testing.T, st *store.Store) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("crosspoll_session", cookie.NewStore([]byte("test-secret"))))

	r.GET("/__test/login/:id", func(c *gin.Context) {
		id, ok := utils.ParseUint(c.Param("id"))
		if !ok {
			c.Status(http.StatusBadRequest)
			return
		}
		session := sessions.Default(c)
		session.Set("user_id", id)
		session.Save()
		c.Status(http.StatusNoContent)
	})

	router.RegisterRoutes(r, st)
	return r
}

// Login signs the session in as userID and returns the session cookies to
// attach to later requests.
func Login(t *testing.T, r *gin.Engine, userID uint) []*http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/__test/login/"+strconv.FormatUint(uint64(userID), 10), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("test login failed with status %d", w.Code)
	}
	return w.Result().Cookies()
}

// Do performs a request against the engine. A non-nil body is sent as JSON.
func Do(t *testing.T, r *gin.Engine, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DecodeJSON decodes the response body into v.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, w.Body.String())
	}
}
