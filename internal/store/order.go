package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type orderRepo struct {
	db  *sql.DB
	now func() time.Time
}

func (r *orderRepo) Create(ctx context.Context, o *PaymentOrder) error {
	now := r.now().UTC()
	if o.Status == "" {
		o.Status = OrderCreated
	}
	o.CreatedAt, o.UpdatedAt = now, now

	query, args := sqlite().Insert(ordersTable.Name).
		Columns("order_id", "user_id", "receipt", "amount", "currency", "status", "payment_id", "created_at", "updated_at").
		Values(o.OrderID, o.UserID, o.Receipt, o.Amount, o.Currency, o.Status, o.PaymentID, millis(now), millis(now)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("create order", err)
	}
	return nil
}

func (r *orderRepo) Get(ctx context.Context, orderID string) (*PaymentOrder, error) {
	query, args := sqlite().
		Select("order_id", "user_id", "receipt", "amount", "currency", "status", "payment_id", "created_at", "updated_at").
		From(entsql.Table(ordersTable.Name)).
		Where(entsql.EQ("order_id", orderID)).
		Query()

	var (
		order            PaymentOrder
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&order.OrderID, &order.UserID, &order.Receipt, &order.Amount, &order.Currency,
		&order.Status, &order.PaymentID, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("get order", ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get order", err)
	}
	order.CreatedAt = fromMillis(created)
	order.UpdatedAt = fromMillis(updated)
	return &order, nil
}

func (r *orderRepo) MarkPaid(ctx context.Context, orderID, paymentID string) error {
	query, args := sqlite().Update(ordersTable.Name).
		Set("status", OrderPaid).
		Set("payment_id", paymentID).
		Set("updated_at", millis(r.now())).
		Where(entsql.EQ("order_id", orderID)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap("mark order paid", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("mark order paid", err)
	}
	if n == 0 {
		return wrap("mark order paid", ErrNotFound)
	}
	return nil
}
