package model

import (
	"time"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

const (
	NotificationChannelPush  = "push"
	NotificationChannelEmail = "email"
)

// Notification is an outbox row for a best-effort outbound message.
// Rows are written by the booking paths and drained asynchronously by
// the worker; delivery failure never affects the booking that produced
// the row.
type Notification struct {
	Base
	Channel   string             `db:"channel" json:"channel"`
	Recipient string             `db:"recipient" json:"recipient"`
	Subject   string             `db:"subject" json:"subject"`
	Message   string             `db:"message" json:"message"`
	Status    NotificationStatus `db:"status" json:"status"`
	Attempts  int                `db:"attempts" json:"attempts"`
	SentAt    *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
}
