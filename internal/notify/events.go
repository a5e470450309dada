package notify

import "time"

type EventType string

const (
	EventBookingConfirmed    EventType = "booking.confirmed"
	EventBookingWaitlisted   EventType = "booking.waitlisted"
	EventPaymentInstructions EventType = "payment.instructions"
	EventPaymentReceipt      EventType = "payment.receipt"
)

// Event is the unit queued for the notification worker. Recipient fields are
// resolved by the publisher so the worker never touches the database.
type Event struct {
	Type  EventType `json:"type"`
	Email string    `json:"email"`
	Name  string    `json:"name"`

	ScheduleID    *int       `json:"schedule_id,omitempty"`
	ClassName     string     `json:"class_name,omitempty"`
	ScheduleStart *time.Time `json:"schedule_start,omitempty"`

	TransactionID *int   `json:"transaction_id,omitempty"`
	Reference     string `json:"reference,omitempty"`
	AmountCents   *int64 `json:"amount_cents,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	BankAccount   string `json:"bank_account,omitempty"`

	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}
