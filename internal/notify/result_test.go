package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snowparadise/reactor/internal/model"
)

func failure(code string) model.SendResponse {
	if code == "" {
		return model.SendResponse{}
	}
	return model.SendResponse{Error: &model.SendError{Code: code}}
}

func TestSummarize(t *testing.T) {
	tokens := []string{"ok", "gone", "bad", "flaky", "quiet"}
	resp := &model.BatchResponse{Responses: []model.SendResponse{
		{Success: true},
		failure(CodeTokenNotRegistered),
		failure(CodeTokenInvalid),
		failure("messaging/internal-error"),
		failure(""),
	}}

	s := Summarize(tokens, resp)

	assert.Equal(t, 5, s.Tokens)
	assert.Equal(t, 1, s.Successes)
	assert.Equal(t, 4, s.Failures)
	assert.Equal(t, map[string]int{
		CodeTokenNotRegistered:     1,
		CodeTokenInvalid:           1,
		"messaging/internal-error": 1,
		CodeUnknown:                1,
	}, s.ByCode)
	assert.Equal(t, []string{"gone", "bad"}, s.Prune)
}

func TestSummarize_AllSuccessful(t *testing.T) {
	s := Summarize([]string{"a", "b"}, &model.BatchResponse{Responses: []model.SendResponse{
		{Success: true}, {Success: true},
	}})

	assert.Equal(t, 2, s.Successes)
	assert.Zero(t, s.Failures)
	assert.Empty(t, s.ByCode)
	assert.Empty(t, s.Prune)
}

func TestIsPermanentTokenError(t *testing.T) {
	assert.True(t, IsPermanentTokenError(CodeTokenNotRegistered))
	assert.True(t, IsPermanentTokenError(CodeTokenInvalid))
	assert.False(t, IsPermanentTokenError(CodeUnknown))
	assert.False(t, IsPermanentTokenError("messaging/quota-exceeded"))
}
