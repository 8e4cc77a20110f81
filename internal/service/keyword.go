package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/snowparadise/reactor/internal/apperr"
	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/ratelimit"
	"github.com/snowparadise/reactor/pkg/logger"
)

// Keyword length bounds, in characters, after normalization.
const (
	MinKeywordRunes = 2
	MaxKeywordRunes = 40
)

// KeywordStore persists search keywords.
type KeywordStore interface {
	RecordKeyword(ctx context.Context, k model.SearchKeyword) error
}

// KeywordService records search keywords for analytics.
type KeywordService struct {
	store   KeywordStore
	limiter RateLimiter
	policy  ratelimit.Policy
	now     func() time.Time
	logger  *logger.Logger
}

// NewKeywordService creates a new keyword service.
func NewKeywordService(store KeywordStore, limiter RateLimiter, policy ratelimit.Policy, log *logger.Logger) *KeywordService {
	return &KeywordService{
		store:   store,
		limiter: limiter,
		policy:  policy,
		now:     time.Now,
		logger:  log.Named("keywords"),
	}
}

// NormalizeKeyword trims and lowercases a keyword.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Record stores keyword for userID. Over quota the keyword is dropped but the
// call still succeeds.
func (s *KeywordService) Record(ctx context.Context, userID, keyword string) error {
	if userID == "" {
		return apperr.Unauthenticated()
	}

	keyword = NormalizeKeyword(keyword)
	if n := utf8.RuneCountInString(keyword); n < MinKeywordRunes || n > MaxKeywordRunes {
		return apperr.InvalidArgument("keyword must be between %d and %d characters", MinKeywordRunes, MaxKeywordRunes)
	}

	decision, err := s.limiter.Allow(ctx, userID, s.policy)
	if err != nil {
		return apperr.Internal("failed to check keyword quota", err)
	}
	if !decision.Allowed {
		s.logger.Info("keyword quota exceeded, dropping keyword",
			zap.String("user_id", userID),
			zap.Int("count", decision.Count),
		)
		return nil
	}

	if err := s.store.RecordKeyword(ctx, model.SearchKeyword{
		UserID:     userID,
		Keyword:    keyword,
		SearchedAt: s.now().UTC(),
	}); err != nil {
		return apperr.Internal("failed to record keyword", err)
	}
	return nil
}
