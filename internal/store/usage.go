package store

import (
	"context"
	"database/sql"
	"errors"

	entsql "entgo.io/ent/dialect/sql"
)

type usageRepo struct {
	db *sql.DB
}

// Increment uses raw SQL: the upsert must add to the stored value and return
// it in one statement.
func (r *usageRepo) Increment(ctx context.Context, userID, day string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO usage_counters (user_id, day, count) VALUES (?, ?, 1)
		 ON CONFLICT (user_id, day) DO UPDATE SET count = count + 1
		 RETURNING count`,
		userID, day,
	).Scan(&n)
	if err != nil {
		return 0, wrap("increment usage", err)
	}
	return n, nil
}

func (r *usageRepo) Count(ctx context.Context, userID, day string) (int, error) {
	query, args := sqlite().Select("count").
		From(entsql.Table(usageTable.Name)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("day", day))).
		Query()

	var n int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, wrap("count usage", err)
	}
	return n, nil
}
