package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusFailed  = "FAILED"
)

// Change event types carried by outbox messages.
const (
	EventDonationCreated = "DONATION_CREATED"
	EventDonationUpdated = "DONATION_UPDATED"
	EventDonationDeleted = "DONATION_DELETED"
)

// OutboxMessage is a change notification waiting to be relayed to Kafka.
// Rows are removed once sent, so the table never grows into a history.
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName maps OutboxMessage to the outbox_message table.
func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// DonationEvent is the JSON payload of an outbox message.
type DonationEvent struct {
	Type       string          `json:"type"`
	DonationID int64           `json:"donation_id"`
	Fields     *DonationFields `json:"fields,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
