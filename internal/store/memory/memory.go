// Package memory is an in-process document store used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/store"
)

// Store keeps every collection in maps guarded by one mutex. A transaction
// holds the mutex for its whole duration, which gives the same single-record
// isolation the real backends offer (and more).
type Store struct {
	mu sync.Mutex

	products      map[string]*model.Product
	users         map[string]*model.User
	conversations map[string]*model.Conversation
	blocks        map[blockKey]struct{}
	windows       map[string]*model.RateWindow
	reports       []model.Report
	keywords      []model.SearchKeyword
	admins        map[string]time.Time
}

type blockKey struct {
	blocker string
	blocked string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		products:      make(map[string]*model.Product),
		users:         make(map[string]*model.User),
		conversations: make(map[string]*model.Conversation),
		blocks:        make(map[blockKey]struct{}),
		windows:       make(map[string]*model.RateWindow),
		admins:        make(map[string]time.Time),
	}
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

// PutUser inserts or replaces a user profile.
func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Tokens = slices.Clone(u.Tokens)
	s.users[u.ID] = &u
}

// PutConversation inserts or replaces a chat room.
func (s *Store) PutConversation(c model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = &c
}

// Block records that blocker blocked blocked.
func (s *Store) Block(blocker, blocked string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[blockKey{blocker, blocked}] = struct{}{}
}

// AddTokens registers destination tokens on a user profile (set union).
func (s *Store) AddTokens(userID string, tokens ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		u = &model.User{ID: userID}
		s.users[userID] = u
	}
	for _, t := range tokens {
		if !slices.Contains(u.Tokens, t) {
			u.Tokens = append(u.Tokens, t)
		}
	}
}

// Reports returns a copy of the filed reports.
func (s *Store) Reports() []model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reports)
}

// Keywords returns a copy of the recorded keywords.
func (s *Store) Keywords() []model.SearchKeyword {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.keywords)
}

// IsAdmin reports whether the admin claim was granted to userID.
func (s *Store) IsAdmin(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.admins[userID]
	return ok
}

// Window returns a copy of the stored rate window for key.
func (s *Store) Window(key string) (model.RateWindow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[key]
	if !ok {
		return model.RateWindow{}, false
	}
	return *w, true
}

// Conversation returns a copy of a chat room.
func (s *Store) Conversation(_ context.Context, id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// Product returns a copy of a product.
func (s *Store) Product(_ context.Context, id string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// User returns a copy of a user profile.
func (s *Store) User(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	cp.Tokens = slices.Clone(u.Tokens)
	return &cp, nil
}

// IsBlocked reports whether blocker has blocked blocked.
func (s *Store) IsBlocked(_ context.Context, blocker, blocked string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blocks[blockKey{blocker, blocked}]
	return ok, nil
}

// RemoveTokens removes tokens from the user's set, leaving every other entry.
func (s *Store) RemoveTokens(_ context.Context, userID string, tokens []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	u.Tokens = slices.DeleteFunc(u.Tokens, func(t string) bool {
		return slices.Contains(tokens, strings.TrimSpace(t))
	})
	return nil
}

// CreateReport stores a report.
func (s *Store) CreateReport(_ context.Context, r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, *r)
	return nil
}

// RecordKeyword appends a search keyword.
func (s *Store) RecordKeyword(_ context.Context, k model.SearchKeyword) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = append(s.keywords, k)
	return nil
}

// GrantAdmin records the admin claim for userID.
func (s *Store) GrantAdmin(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[userID]; !ok {
		s.admins[userID] = time.Now()
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// UpdateWindow applies fn to the window stored under key.
func (s *Store) UpdateWindow(_ context.Context, key string, _ time.Duration, fn store.WindowUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *model.RateWindow
	if w, ok := s.windows[key]; ok {
		cp := *w
		current = &cp
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next != nil {
		cp := *next
		cp.Key = key
		s.windows[key] = &cp
	}
	return nil
}

// RunInTx runs fn while holding the store lock. Writes are staged and only
// applied when fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:        s,
		counters: make(map[model.CounterRef]int64),
		flags:    make(map[string]bool),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	s        *Store
	counters map[model.CounterRef]int64
	flags    map[string]bool
}

func (t *memTx) Counter(_ context.Context, ref model.CounterRef) (int64, error) {
	if v, ok := t.counters[ref]; ok {
		return v, nil
	}
	switch ref.Collection {
	case model.CollectionProducts:
		p, ok := t.s.products[ref.ID]
		if !ok {
			return 0, store.ErrNotFound
		}
		switch ref.Field {
		case model.FieldLikeCount:
			return max(p.LikeCount, 0), nil
		case model.FieldChatCount:
			return max(p.ChatCount, 0), nil
		}
	case model.CollectionUsers:
		u, ok := t.s.users[ref.ID]
		if !ok {
			return 0, store.ErrNotFound
		}
		if ref.Field == model.FieldUnreadTotal {
			return max(u.UnreadTotal, 0), nil
		}
	}
	return 0, fmt.Errorf("unknown counter %s", ref)
}

func (t *memTx) SetCounter(ctx context.Context, ref model.CounterRef, value int64) error {
	if _, err := t.Counter(ctx, ref); err != nil {
		return err
	}
	t.counters[ref] = value
	return nil
}

func (t *memTx) Conversation(_ context.Context, id string) (*model.Conversation, error) {
	c, ok := t.s.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	if t.flags[id] {
		cp.FirstMessageSent = true
	}
	return &cp, nil
}

func (t *memTx) MarkFirstMessageSent(_ context.Context, id string) error {
	if _, ok := t.s.conversations[id]; !ok {
		return store.ErrNotFound
	}
	t.flags[id] = true
	return nil
}

func (t *memTx) commit() {
	for ref, v := range t.counters {
		switch ref.Collection {
		case model.CollectionProducts:
			p := t.s.products[ref.ID]
			if ref.Field == model.FieldLikeCount {
				p.LikeCount = v
			} else {
				p.ChatCount = v
			}
		case model.CollectionUsers:
			t.s.users[ref.ID].UnreadTotal = v
		}
	}
	for id := range t.flags {
		t.s.conversations[id].FirstMessageSent = true
	}
}
