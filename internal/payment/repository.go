package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	ErrTransactionNotFound = errors.New("payment transaction not found")
	ErrNotPending          = errors.New("payment transaction is not pending")
	ErrActivationFailed    = errors.New("membership activation failed")
)

const txColumns = `id, reference, user_id, plan_id, amount_cents, method, status,
	description, bank_name, bank_account_name, bank_account_number,
	proof_ref, notes, reason, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateManual(ctx context.Context, t *Transaction) (*Transaction, error) {
	var created Transaction
	err := r.db.GetContext(ctx, &created, `
		INSERT INTO payment_transactions
			(reference, user_id, plan_id, amount_cents, method, status,
			 description, bank_name, bank_account_name, bank_account_number)
		VALUES ($1, $2, $3, $4, $5, 'pending', NULLIF($6, ''), $7, $8, $9)
		RETURNING `+txColumns+`
	`, t.Reference, t.UserID, t.PlanID, t.AmountCents, MethodManualTransfer,
		derefString(t.Description), t.BankName, t.BankAccountName, t.BankAccountNumber)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		SELECT `+txColumns+`
		FROM payment_transactions
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	return &t, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Transaction, error) {
	transactions := []Transaction{}
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT `+txColumns+`
		FROM payment_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (r *repository) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Transaction, error) {
	transactions := []Transaction{}
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT `+txColumns+`
		FROM payment_transactions
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

// Confirm flips a pending transaction to completed and runs the activation
// callback on the same transaction. Two admins confirming at once race on the
// conditional update; exactly one wins, the other sees ErrNotPending.
func (r *repository) Confirm(ctx context.Context, id int, notes string, activate ActivateFn) (*Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var t Transaction
	err = tx.GetContext(ctx, &t, `
		UPDATE payment_transactions
		SET status = 'completed',
		    notes = COALESCE(NULLIF($2, ''), notes),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+txColumns+`
	`, id, notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.whyNotUpdated(ctx, id, ErrNotPending)
		}
		return nil, err
	}

	if activate != nil && t.PlanID != nil {
		if err := activate(ctx, tx, &t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrActivationFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *repository) Reject(ctx context.Context, id int, reason string) (*Transaction, error) {
	return r.transition(ctx, id, StatusPending, StatusFailed, reason, ErrNotPending)
}

// Refund closes a pending transaction as refunded, the reject outcome used
// when the member's transfer arrived but has to be returned. Completed and
// terminal transactions are immutable.
func (r *repository) Refund(ctx context.Context, id int, reason string) (*Transaction, error) {
	return r.transition(ctx, id, StatusPending, StatusRefunded, reason, ErrNotPending)
}

func (r *repository) transition(ctx context.Context, id int, from, to Status, reason string, stateErr error) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		UPDATE payment_transactions
		SET status = $2, reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING `+txColumns+`
	`, id, to, reason, from)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.whyNotUpdated(ctx, id, stateErr)
		}
		return nil, err
	}

	return &t, nil
}

func (r *repository) UploadProof(ctx context.Context, id int, proofRef string) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		UPDATE payment_transactions
		SET proof_ref = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+txColumns+`
	`, id, proofRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.whyNotUpdated(ctx, id, ErrNotPending)
		}
		return nil, err
	}

	return &t, nil
}

// whyNotUpdated distinguishes a missing row from a row in the wrong state
// after a zero-row conditional update.
func (r *repository) whyNotUpdated(ctx context.Context, id int, stateErr error) error {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM payment_transactions WHERE id = $1)`, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTransactionNotFound
	}
	return stateErr
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
