package types

import "time"

// NotificationStatus tracks an outbox entry through delivery.
type NotificationStatus string

const (
	NotificationPending    NotificationStatus = "pending"
	NotificationDispatched NotificationStatus = "dispatched"
	NotificationDelivered  NotificationStatus = "delivered"
	// NotificationUndeliverable marks an entry the relay gave up on.
	NotificationUndeliverable NotificationStatus = "undeliverable"
)

// Email is a plain-text message addressed to one recipient.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notification is an applicant email recorded in the outbox in the same
// transaction as the status change that caused it.
type Notification struct {
	// ID is the idempotency key shared by every delivery attempt.
	ID string `json:"id" db:"id"`

	// ApplicationID identifies the application the email is about.
	ApplicationID int64 `json:"application_id" db:"application_id"`

	// Recipient is the destination email address.
	Recipient string `json:"recipient" db:"recipient"`

	// Subject is the email subject line.
	Subject string `json:"subject" db:"subject"`

	// Body is the plain-text email body.
	Body string `json:"body" db:"body"`

	// Status is the delivery state of the entry.
	Status NotificationStatus `json:"status" db:"status"`

	// Attempts counts failed relay attempts.
	Attempts int `json:"attempts" db:"attempts"`

	// LastError holds the most recent relay failure, if any.
	LastError *string `json:"last_error,omitempty" db:"last_error"`

	// NextAttemptAt is the earliest time the relay picks the entry up again.
	NextAttemptAt time.Time `json:"next_attempt_at" db:"next_attempt_at"`

	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty" db:"dispatched_at"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
}

// Email returns the message carried by the notification.
func (n Notification) Email() Email {
	return Email{To: n.Recipient, Subject: n.Subject, Body: n.Body}
}
