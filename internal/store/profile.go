package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type profileRepo struct {
	db  *sql.DB
	now func() time.Time
}

func (r *profileRepo) Get(ctx context.Context, userID string) (*Profile, error) {
	query, args := sqlite().
		Select("user_id", "display_name", "grade_level", "learning_style", "plan", "created_at", "updated_at").
		From(entsql.Table(profilesTable.Name)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var (
		p                Profile
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&p.UserID, &p.DisplayName, &p.GradeLevel, &p.LearningStyle, &p.Plan, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("get profile", ErrNotFound)
	}
	if err != nil {
		return nil, wrap("get profile", err)
	}
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}

func (r *profileRepo) Upsert(ctx context.Context, p *Profile) (*Profile, error) {
	now := millis(r.now())
	query, args := sqlite().Insert(profilesTable.Name).
		Columns("user_id", "display_name", "grade_level", "learning_style", "plan", "created_at", "updated_at").
		Values(p.UserID, p.DisplayName, p.GradeLevel, p.LearningStyle, PlanFree, now, now).
		OnConflict(
			entsql.ConflictColumns("user_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("display_name")
				u.SetExcluded("grade_level")
				u.SetExcluded("learning_style")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, wrap("upsert profile", err)
	}
	return r.Get(ctx, p.UserID)
}

func (r *profileRepo) SetPlan(ctx context.Context, userID, plan string) error {
	now := millis(r.now())
	query, args := sqlite().Insert(profilesTable.Name).
		Columns("user_id", "plan", "created_at", "updated_at").
		Values(userID, plan, now, now).
		OnConflict(
			entsql.ConflictColumns("user_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("plan")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("set plan", err)
	}
	return nil
}
