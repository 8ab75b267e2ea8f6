package queue

import (
	"fmt"
	"strings"
	"time"
)

// EventType names a batch lifecycle transition. It doubles as the routing key.
type EventType string

const (
	EventBatchApproved EventType = "batch.approved"
	EventBatchExpired  EventType = "batch.expired"
)

func (t EventType) IsValid() bool {
	return t == EventBatchApproved || t == EventBatchExpired
}

// BatchEvent is the broker payload announcing a terminal batch transition.
type BatchEvent struct {
	Type            EventType `json:"type"`
	BatchID         string    `json:"batch_id"`
	CampaignID      string    `json:"campaign_id"`
	CompanyID       string    `json:"company_id"`
	CorrelationID   string    `json:"correlation_id,omitempty"`
	MessagesCreated int       `json:"messages_created"`
	RecipientsCount int       `json:"recipients_count"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func (e BatchEvent) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid event type %q", e.Type)
	}
	if strings.TrimSpace(e.BatchID) == "" {
		return fmt.Errorf("batch_id is required")
	}
	if e.MessagesCreated < 0 || e.RecipientsCount < 0 {
		return fmt.Errorf("event counts must not be negative")
	}
	return nil
}
