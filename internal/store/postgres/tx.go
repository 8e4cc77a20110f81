package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/store"
)

type counterColumn struct {
	table  string
	column string
}

// counterColumns whitelists the counters that may be addressed by a CounterRef.
var counterColumns = map[model.Collection]map[string]counterColumn{
	model.CollectionProducts: {
		model.FieldLikeCount: {table: "products", column: "like_count"},
		model.FieldChatCount: {table: "products", column: "chat_count"},
	},
	model.CollectionUsers: {
		model.FieldUnreadTotal: {table: "users", column: "unread_total"},
	},
}

func resolveCounter(ref model.CounterRef) (counterColumn, error) {
	if fields, ok := counterColumns[ref.Collection]; ok {
		if col, ok := fields[ref.Field]; ok {
			return col, nil
		}
	}
	return counterColumn{}, fmt.Errorf("unknown counter %s", ref)
}

// RunInTx runs fn in a read-committed transaction. Reads inside fn take row
// locks (SELECT ... FOR UPDATE) so concurrent writers of one record queue up.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Counter(ctx context.Context, ref model.CounterRef) (int64, error) {
	col, err := resolveCounter(ref)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", col.column, col.table)

	var value int64
	if err := t.tx.QueryRow(ctx, sql, ref.ID).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("select %s: %w", ref, err)
	}
	return max(value, 0), nil
}

func (t *pgTx) SetCounter(ctx context.Context, ref model.CounterRef, value int64) error {
	col, err := resolveCounter(ref)
	if err != nil {
		return err
	}
	sql := fmt.Sprintf("UPDATE %s SET %s = $2 WHERE id = $1", col.table, col.column)

	ct, err := t.tx.Exec(ctx, sql, ref.ID, value)
	if err != nil {
		return fmt.Errorf("update %s: %w", ref, err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *pgTx) Conversation(ctx context.Context, id string) (*model.Conversation, error) {
	row := t.tx.QueryRow(ctx, selectConversation+" FOR UPDATE", id)
	return scanConversation(row)
}

func (t *pgTx) MarkFirstMessageSent(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE chat_rooms SET is_first_message_sent = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark first message: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
