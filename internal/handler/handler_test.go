package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/snowparadise/reactor/internal/apperr"
	"github.com/snowparadise/reactor/internal/middleware"
	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/ratelimit"
	"github.com/snowparadise/reactor/internal/service"
	"github.com/snowparadise/reactor/internal/store/memory"
	"github.com/snowparadise/reactor/pkg/logger"
)

const secret = "handler-secret"

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type server struct {
	t     *testing.T
	store *memory.Store
	srv   *httptest.Server
}

func newServer(t *testing.T, checks map[string]Pinger) *server {
	t.Helper()
	s := memory.New()
	log := logger.NewNop()
	limiter := ratelimit.New(s)
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)

	keywords := service.NewKeywordService(s, limiter,
		ratelimit.Policy{Action: "searchKeyword", Window: time.Minute, Max: 5}, log)
	reports := service.NewReportService(s, limiter,
		ratelimit.Policy{Action: "createReport", Window: time.Minute, Max: 1}, log)
	admin := service.NewAdminService(s, string(hash), log)

	router := NewRouter(RouterConfig{
		JWTSecret:         secret,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		Health:            NewHealthHandler(checks),
		Keywords:          NewKeywordHandler(keywords, log),
		Reports:           NewReportHandler(reports, log),
		Admin:             NewAdminHandler(admin, log),
		Logger:            log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &server{t: t, store: s, srv: srv}
}

func (s *server) post(path, user string, body any) (*http.Response, []byte) {
	s.t.Helper()
	data, err := json.Marshal(body)
	require.NoError(s.t, err)

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+path, strings.NewReader(string(data)))
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}})
		signed, err := token.SignedString([]byte(secret))
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp, b
}

func errorCode(t *testing.T, body []byte) apperr.Code {
	t.Helper()
	var e apperr.ErrorBody
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Error.Code
}

func TestSearchKeywords(t *testing.T) {
	s := newServer(t, nil)

	resp, body := s.post("/api/v1/search-keywords", "u1", map[string]string{"keyword": " Ski Goggles "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(body))
	require.Len(t, s.store.Keywords(), 1)
	assert.Equal(t, "ski goggles", s.store.Keywords()[0].Keyword)

	resp, body = s.post("/api/v1/search-keywords", "u1", map[string]string{"keyword": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperr.CodeInvalidArgument, errorCode(t, body))

	resp, body = s.post("/api/v1/search-keywords", "", map[string]string{"keyword": "boots"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apperr.CodeUnauthenticated, errorCode(t, body))

	resp, _ = s.post("/api/v1/search-keywords", "u1", map[string]string{"keyword": "boots", "extra": "field"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReports(t *testing.T) {
	s := newServer(t, nil)
	req := model.CreateReportRequest{TargetUID: "t1", TargetContentID: "c1", Reason: "scam"}

	resp, body := s.post("/api/v1/reports", "u1", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.CreateReportResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.True(t, created.Success)
	assert.NotEmpty(t, created.ReportID)

	resp, body = s.post("/api/v1/reports", "u1", req)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, apperr.CodeResourceExhausted, errorCode(t, body))

	long := req
	long.Reason = strings.Repeat("r", 501)
	resp, body = s.post("/api/v1/reports", "u2", long)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperr.CodeInvalidArgument, errorCode(t, body))

	assert.Len(t, s.store.Reports(), 1)
}

func TestAdminVerify(t *testing.T) {
	s := newServer(t, nil)

	resp, body := s.post("/api/v1/admin/verify", "u1", model.VerifyAdminRequest{Password: "nope"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperr.CodePermissionDenied, errorCode(t, body))

	resp, _ = s.post("/api/v1/admin/verify", "u1", model.VerifyAdminRequest{Password: "letmein"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, s.store.IsAdmin("u1"))
}

func TestHealth(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		s := newServer(t, map[string]Pinger{"store": pingFunc(func(context.Context) error { return nil })})
		resp, err := http.Get(s.srv.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("not ready", func(t *testing.T) {
		s := newServer(t, map[string]Pinger{"nats": pingFunc(func(context.Context) error { return errors.New("down") })})
		resp, err := http.Get(s.srv.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("liveness", func(t *testing.T) {
		s := newServer(t, nil)
		resp, err := http.Get(s.srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
