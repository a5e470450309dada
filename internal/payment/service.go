package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gymcore/internal/logger"
	"gymcore/internal/membership"
	"gymcore/internal/metrics"
	"gymcore/internal/notify"
	"gymcore/internal/user"
)

var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrNotOwner       = errors.New("transaction belongs to another user")
	ErrReasonRequired = errors.New("reason is required")
)

// BankInfo is the receiving account shown in transfer instructions.
type BankInfo struct {
	Name          string
	AccountName   string
	AccountNumber string
}

// MembershipStore is the slice of the membership repository that payment
// confirmation needs.
type MembershipStore interface {
	GetPlanByID(ctx context.Context, id int) (*membership.Plan, error)
	ActivateOrExtend(ctx context.Context, tx *sqlx.Tx, userID, planID int, amountCents int64) (*membership.Membership, error)
}

type Service interface {
	CreateManual(ctx context.Context, userID int, req CreateTransactionRequest) (*Transaction, error)
	Get(ctx context.Context, id, requesterID int, isAdmin bool) (*Transaction, error)
	ListMine(ctx context.Context, userID int) ([]Transaction, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Transaction, error)
	UploadProof(ctx context.Context, id, userID int, proofRef string) (*Transaction, error)
	Confirm(ctx context.Context, id int, notes string) (*Transaction, error)
	Reject(ctx context.Context, id int, reason string) (*Transaction, error)
	Refund(ctx context.Context, id int, reason string) (*Transaction, error)
}

type service struct {
	repo        Repository
	memberships MembershipStore
	users       user.Repository
	publisher   notify.Publisher
	bank        BankInfo
}

func NewService(repo Repository, memberships MembershipStore, users user.Repository, publisher notify.Publisher, bank BankInfo) Service {
	return &service{
		repo:        repo,
		memberships: memberships,
		users:       users,
		publisher:   publisher,
		bank:        bank,
	}
}

func (s *service) CreateManual(ctx context.Context, userID int, req CreateTransactionRequest) (*Transaction, error) {
	amount := req.AmountCents
	if req.PlanID != nil {
		plan, err := s.memberships.GetPlanByID(ctx, *req.PlanID)
		if err != nil {
			return nil, err
		}
		// Plan purchases are always charged at the plan price.
		amount = plan.PriceCents
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	t := &Transaction{
		Reference:         uuid.NewString(),
		UserID:            userID,
		PlanID:            req.PlanID,
		AmountCents:       amount,
		BankName:          s.bank.Name,
		BankAccountName:   s.bank.AccountName,
		BankAccountNumber: s.bank.AccountNumber,
	}
	if req.Description != "" {
		t.Description = &req.Description
	}

	created, err := s.repo.CreateManual(ctx, t)
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentTransition("pending")
	s.notifyTransaction(ctx, notify.EventPaymentInstructions, created)

	return created, nil
}

func (s *service) Get(ctx context.Context, id, requesterID int, isAdmin bool) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if t.UserID != requesterID && !isAdmin {
		return nil, ErrNotOwner
	}

	return t, nil
}

func (s *service) ListMine(ctx context.Context, userID int) ([]Transaction, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

func (s *service) UploadProof(ctx context.Context, id, userID int, proofRef string) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, ErrNotOwner
	}

	return s.repo.UploadProof(ctx, id, proofRef)
}

func (s *service) Confirm(ctx context.Context, id int, notes string) (*Transaction, error) {
	t, err := s.repo.Confirm(ctx, id, notes, func(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
		_, err := s.memberships.ActivateOrExtend(ctx, tx, t.UserID, *t.PlanID, t.AmountCents)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentTransition("completed")
	s.notifyTransaction(ctx, notify.EventPaymentReceipt, t)

	return t, nil
}

func (s *service) Reject(ctx context.Context, id int, reason string) (*Transaction, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	t, err := s.repo.Reject(ctx, id, reason)
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentTransition("failed")
	return t, nil
}

func (s *service) Refund(ctx context.Context, id int, reason string) (*Transaction, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	t, err := s.repo.Refund(ctx, id, reason)
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentTransition("refunded")
	return t, nil
}

// notifyTransaction queues a payment email. Delivery is best effort and never
// fails the calling operation.
func (s *service) notifyTransaction(ctx context.Context, eventType notify.EventType, t *Transaction) {
	u, err := s.users.FindByID(ctx, t.UserID)
	if err != nil {
		logger.Errorf("Failed to load user %d for %s event: %v", t.UserID, eventType, err)
		return
	}

	amount := t.AmountCents
	txID := t.ID
	ev := notify.Event{
		Type:          eventType,
		Email:         u.Email,
		Name:          u.Name,
		TransactionID: &txID,
		Reference:     t.Reference,
		AmountCents:   &amount,
		BankName:      t.BankName,
		BankAccount:   t.BankAccountNumber,
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.Errorf("Failed to publish %s event for transaction %d: %v", eventType, t.ID, err)
	}
}
