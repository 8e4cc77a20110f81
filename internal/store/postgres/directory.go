package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/store"
)

const selectConversation = `
SELECT id, seller_id, buyer_id, seller_name, buyer_name, product_id, product_title,
       is_first_message_sent, seller_unread_count, buyer_unread_count
FROM chat_rooms
WHERE id = $1`

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(
		&c.ID, &c.SellerID, &c.BuyerID, &c.SellerName, &c.BuyerName,
		&c.ProductID, &c.ProductTitle, &c.FirstMessageSent,
		&c.SellerUnread, &c.BuyerUnread,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	c.SellerUnread = max(c.SellerUnread, 0)
	c.BuyerUnread = max(c.BuyerUnread, 0)
	return &c, nil
}

// Conversation loads a chat room.
func (db *DB) Conversation(ctx context.Context, id string) (*model.Conversation, error) {
	return scanConversation(db.Pool.QueryRow(ctx, selectConversation, id))
}

// Product loads a product.
func (db *DB) Product(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := db.Pool.QueryRow(ctx,
		`SELECT id, seller_id, title, like_count, chat_count FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.SellerID, &p.Title, &p.LikeCount, &p.ChatCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

// User loads a user profile.
func (db *DB) User(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.Pool.QueryRow(ctx,
		`SELECT id, nickname, fcm_tokens, unread_total FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Nickname, &u.Tokens, &u.UnreadTotal)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// IsBlocked reports whether blocker has blocked blocked.
func (db *DB) IsBlocked(ctx context.Context, blocker, blocked string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocked_users WHERE user_id = $1 AND blocked_user_id = $2)`,
		blocker, blocked,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select block: %w", err)
	}
	return exists, nil
}

// RemoveTokens removes tokens from the user's set in a single statement, so
// tokens registered concurrently by other devices survive.
func (db *DB) RemoveTokens(ctx context.Context, userID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := db.Pool.Exec(ctx, `
UPDATE users
SET fcm_tokens = ARRAY(
    SELECT t FROM unnest(fcm_tokens) AS t
    WHERE NOT (btrim(t) = ANY($2::text[]))
)
WHERE id = $1`, userID, tokens)
	if err != nil {
		return fmt.Errorf("remove tokens: %w", err)
	}
	return nil
}
