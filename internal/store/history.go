package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type historyRepo struct {
	db  *sql.DB
	now func() time.Time
}

var historyColumnNames = []string{"id", "user_id", "flow", "title", "input", "output", "created_at"}

// Add stores item, assigning an ID and timestamp when unset.
func (r *historyRepo) Add(ctx context.Context, item *HistoryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = r.now().UTC()
	}

	query, args := sqlite().Insert(historyTable.Name).
		Columns(historyColumnNames...).
		Values(item.ID, item.UserID, item.Flow, item.Title, string(item.Input), string(item.Output), millis(item.CreatedAt)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("add history", err)
	}
	return nil
}

func (r *historyRepo) List(ctx context.Context, userID string, f HistoryFilter) ([]HistoryItem, error) {
	sel := sqlite().Select(historyColumnNames...).
		From(entsql.Table(historyTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"))
	if f.Flow != "" {
		sel.Where(entsql.EQ("flow", f.Flow))
	}
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list history", err)
	}
	defer rows.Close()

	var out []HistoryItem
	for rows.Next() {
		item, err := scanHistory(rows)
		if err != nil {
			return nil, wrap("list history", err)
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list history", err)
	}
	return out, nil
}

func (r *historyRepo) Get(ctx context.Context, userID, id string) (*HistoryItem, error) {
	query, args := sqlite().Select(historyColumnNames...).
		From(entsql.Table(historyTable.Name)).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID))).
		Query()

	item, err := scanHistory(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("get history", ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get history", err)
	}
	return item, nil
}

func (r *historyRepo) Delete(ctx context.Context, userID, id string) error {
	query, args := sqlite().Delete(historyTable.Name).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID))).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap("delete history", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("delete history", err)
	}
	if n == 0 {
		return wrap("delete history", ErrNotFound)
	}
	return nil
}

func scanHistory(row rowScanner) (*HistoryItem, error) {
	var (
		item          HistoryItem
		input, output string
		created       int64
	)
	if err := row.Scan(&item.ID, &item.UserID, &item.Flow, &item.Title, &input, &output, &created); err != nil {
		return nil, err
	}
	item.Input = []byte(input)
	item.Output = []byte(output)
	item.CreatedAt = fromMillis(created)
	return &item, nil
}
