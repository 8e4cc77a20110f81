package notify

import (
	"github.com/snowparadise/reactor/internal/model"
)

// Gateway error codes that mean a token will never work again.
const (
	CodeTokenNotRegistered = "messaging/registration-token-not-registered"
	CodeTokenInvalid       = "messaging/invalid-registration-token"
	CodeUnknown            = "unknown"
)

// IsPermanentTokenError reports whether code marks the token for pruning.
func IsPermanentTokenError(code string) bool {
	return code == CodeTokenNotRegistered || code == CodeTokenInvalid
}

// Summary is the per-token breakdown of one multicast.
type Summary struct {
	Tokens    int
	Successes int
	Failures  int
	ByCode    map[string]int
	Prune     []string
}

// Summarize pairs each verdict with the token at the same position. Failures
// are tallied per code and tokens with a permanent error are listed in Prune.
func Summarize(tokens []string, resp *model.BatchResponse) Summary {
	s := Summary{Tokens: len(tokens), ByCode: make(map[string]int)}
	if resp == nil {
		return s
	}
	for i, r := range resp.Responses {
		if r.Success {
			s.Successes++
			continue
		}
		s.Failures++

		code := CodeUnknown
		if r.Error != nil && r.Error.Code != "" {
			code = r.Error.Code
		}
		s.ByCode[code]++

		if IsPermanentTokenError(code) && i < len(tokens) {
			s.Prune = append(s.Prune, tokens[i])
		}
	}
	return s
}
