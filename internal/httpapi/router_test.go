package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"imagenbot/internal/auth"
	"imagenbot/internal/config"
	"imagenbot/internal/settings"
	"imagenbot/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.User{}, &store.Ban{}, &store.Setting{}, &store.LogEntry{}))

	st := store.New(db)
	sp := settings.NewProvider(st, settings.Defaults{RateLimitSeconds: 30, AdminID: 777})

	hash, err := auth.HashPassword("open-sesame")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.API.JWTSecret = "test-secret"
	cfg.API.AdminPasswordHash = hash

	return NewRouter(st, sp, cfg), st, cfg
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/login", "", gin.H{"password": "open-sesame"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func TestPing(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/login", "", gin.H{"password": "nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStats_RequiresAuth(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/stats", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStats_CountsAndTopStyles(t *testing.T) {
	r, st, _ := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, 1, "a"))
	require.NoError(t, st.UpsertUser(ctx, 2, "b"))
	for i := 0; i < 3; i++ {
		require.NoError(t, st.AppendLog(ctx, &store.LogEntry{UserID: 1, Prompt: "cat", Style: "anime", TS: int64(i)}))
	}
	require.NoError(t, st.AppendLog(ctx, &store.LogEntry{UserID: 2, Prompt: "dog", Style: "pixel", TS: 9}))

	token := loginToken(t, r)
	w := doJSON(t, r, http.MethodGet, "/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Users       int64 `json:"users"`
			Generations int64 `json:"generations"`
			TopStyles   []struct {
				Value string `json:"value"`
				Count int64  `json:"count"`
			} `json:"top_styles"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, int64(2), resp.Data.Users)
	require.Equal(t, int64(4), resp.Data.Generations)
	require.Equal(t, "anime", resp.Data.TopStyles[0].Value)
}

func TestLogs_LimitValidation(t *testing.T) {
	r, _, _ := newTestRouter(t)
	token := loginToken(t, r)

	w := doJSON(t, r, http.MethodGet, "/logs?limit=0", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/logs?limit=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
