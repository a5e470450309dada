package payment

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ActivateFn runs inside the confirmation transaction, after the status flip
// but before commit. Returning an error rolls the whole confirmation back.
type ActivateFn func(ctx context.Context, tx *sqlx.Tx, t *Transaction) error

type Repository interface {
	CreateManual(ctx context.Context, t *Transaction) (*Transaction, error)
	GetByID(ctx context.Context, id int) (*Transaction, error)
	ListByUser(ctx context.Context, userID int) ([]Transaction, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Transaction, error)
	Confirm(ctx context.Context, id int, notes string, activate ActivateFn) (*Transaction, error)
	Reject(ctx context.Context, id int, reason string) (*Transaction, error)
	Refund(ctx context.Context, id int, reason string) (*Transaction, error)
	UploadProof(ctx context.Context, id int, proofRef string) (*Transaction, error)
}
