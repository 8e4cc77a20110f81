package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowparadise/reactor/internal/model"
)

func TestClient_SendMulticast(t *testing.T) {
	var got model.MulticastMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, MulticastPath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.BatchResponse{Responses: []model.SendResponse{
			{Success: true},
			{Error: &model.SendError{Code: "messaging/invalid-registration-token"}},
		}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second})
	msg := &model.MulticastMessage{
		Tokens:        []string{"a", "b"},
		Notification:  model.Notification{Title: "t", Body: "b"},
		Data:          map[string]string{"type": "chat"},
		PlatformHints: model.PlatformHints{Priority: "high", ChannelID: "ch", Sound: "default"},
	}

	resp, err := c.SendMulticast(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.SuccessCount())
	assert.Equal(t, 1, resp.FailureCount())
	assert.Equal(t, "messaging/invalid-registration-token", resp.Responses[1].Error.Code)
	assert.Equal(t, *msg, got)
}

func TestClient_SendMulticast_Errors(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":"unavailable","message":"try later"}}`))
		}))
		defer srv.Close()

		_, err := NewClient(Config{BaseURL: srv.URL}).SendMulticast(context.Background(),
			&model.MulticastMessage{Tokens: []string{"a"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
		assert.Contains(t, err.Error(), "unavailable")
	})

	t.Run("verdict count mismatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"responses":[{"success":true}]}`))
		}))
		defer srv.Close()

		_, err := NewClient(Config{BaseURL: srv.URL}).SendMulticast(context.Background(),
			&model.MulticastMessage{Tokens: []string{"a", "b"}})
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("unreachable gateway", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(Config{BaseURL: url, Timeout: time.Second}).SendMulticast(context.Background(),
			&model.MulticastMessage{Tokens: []string{"a"}})
		assert.Error(t, err)
	})
}
