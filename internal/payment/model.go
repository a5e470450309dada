package payment

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusRefunded
}

const MethodManualTransfer = "manual_transfer"

type Transaction struct {
	ID          int     `db:"id" json:"id"`
	Reference   string  `db:"reference" json:"reference"`
	UserID      int     `db:"user_id" json:"user_id"`
	PlanID      *int    `db:"plan_id" json:"plan_id,omitempty"`
	AmountCents int64   `db:"amount_cents" json:"amount_cents"`
	Method      string  `db:"method" json:"method"`
	Status      Status  `db:"status" json:"status"`
	Description *string `db:"description" json:"description,omitempty"`

	// Bank details are snapshotted at creation time so instructions stay
	// valid even if the configured account changes later.
	BankName          string `db:"bank_name" json:"bank_name"`
	BankAccountName   string `db:"bank_account_name" json:"bank_account_name"`
	BankAccountNumber string `db:"bank_account_number" json:"bank_account_number"`

	ProofRef *string `db:"proof_ref" json:"proof_ref,omitempty"`
	Notes    *string `db:"notes" json:"notes,omitempty"`
	Reason   *string `db:"reason" json:"reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type CreateTransactionRequest struct {
	PlanID      *int   `json:"plan_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

type UploadProofRequest struct {
	ProofRef string `json:"proof_ref" binding:"required"`
}

type ConfirmRequest struct {
	Notes string `json:"notes"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}
