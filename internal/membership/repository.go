package membership

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrPlanNotFound       = errors.New("membership plan not found")
	ErrMembershipNotFound = errors.New("membership not found")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetPlanByID(ctx context.Context, id int) (*Plan, error) {
	return getPlan(ctx, r.db, id)
}

func getPlan(ctx context.Context, q sqlx.QueryerContext, id int) (*Plan, error) {
	var plan Plan
	err := sqlx.GetContext(ctx, q, &plan, `
		SELECT id, name, period_days, price_cents, created_at
		FROM membership_plans
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	return &plan, nil
}

func (r *Repository) ListPlans(ctx context.Context) ([]Plan, error) {
	plans := []Plan{}
	err := r.db.SelectContext(ctx, &plans, `
		SELECT id, name, period_days, price_cents, created_at
		FROM membership_plans
		ORDER BY price_cents ASC
	`)
	if err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *Repository) CreatePlan(ctx context.Context, name string, periodDays int, priceCents int64) (*Plan, error) {
	var plan Plan
	err := r.db.GetContext(ctx, &plan, `
		INSERT INTO membership_plans (name, period_days, price_cents)
		VALUES ($1, $2, $3)
		RETURNING id, name, period_days, price_cents, created_at
	`, name, periodDays, priceCents)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *Repository) GetActiveForUser(ctx context.Context, userID int) (*Membership, error) {
	var m Membership
	err := r.db.GetContext(ctx, &m, `
		SELECT id, user_id, plan_id, start_date, end_date, status, created_at, updated_at
		FROM memberships
		WHERE user_id = $1 AND status = 'active' AND end_date >= NOW()
		ORDER BY end_date DESC
		LIMIT 1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	return &m, nil
}

// ActivateOrExtend extends the user's active membership by the plan period,
// or creates a fresh one when nothing is active. It runs on the caller's
// transaction so a payment confirmation and its membership effect commit (or
// roll back) as one unit.
func (r *Repository) ActivateOrExtend(ctx context.Context, tx *sqlx.Tx, userID, planID int, amountCents int64) (*Membership, error) {
	plan, err := getPlan(ctx, tx, planID)
	if err != nil {
		return nil, err
	}

	var m Membership
	err = tx.GetContext(ctx, &m, `
		UPDATE memberships
		SET end_date = end_date + make_interval(days => $3),
		    plan_id = $2,
		    updated_at = NOW()
		WHERE id = (
			SELECT id FROM memberships
			WHERE user_id = $1 AND status = 'active' AND end_date >= NOW()
			ORDER BY end_date DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING id, user_id, plan_id, start_date, end_date, status, created_at, updated_at
	`, userID, planID, plan.PeriodDays)
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.GetContext(ctx, &m, `
		INSERT INTO memberships (user_id, plan_id, start_date, end_date, status)
		VALUES ($1, $2, NOW(), NOW() + make_interval(days => $3), 'active')
		RETURNING id, user_id, plan_id, start_date, end_date, status, created_at, updated_at
	`, userID, planID, plan.PeriodDays)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
