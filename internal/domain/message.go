package domain

import "time"

// MessageStatus is the delivery state of a persisted message.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
	MessageStatusCancelled MessageStatus = "cancelled"
)

func (s MessageStatus) String() string { return string(s) }

// MessageMetadata links a message back to the campaign objects that produced it.
type MessageMetadata struct {
	CampaignID    string `json:"campaign_id"`
	CampaignName  string `json:"campaign_name,omitempty"`
	BatchID       string `json:"batch_id"`
	TemplateID    string `json:"template_id"`
	TemplateName  string `json:"template_name,omitempty"`
	ContactID     string `json:"contact_id"`
	RecipientName string `json:"recipient_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// MediaPayload is the media part of a dispatch payload.
type MediaPayload struct {
	URL      string `json:"url"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// DispatchPayload is the rendered per-recipient message submitted to the job queue.
type DispatchPayload struct {
	CompanyID   string          `json:"company_id"`
	SessionID   string          `json:"session_id"`
	ChatID      string          `json:"chat_id"`
	RunAt       int64           `json:"run_at"`
	ContentType ContentType     `json:"content_type"`
	Content     string          `json:"content,omitempty"`
	Media       *MediaPayload   `json:"media,omitempty"`
	Metadata    MessageMetadata `json:"metadata"`
}

// DispatchOutcome is the job-queue result for one payload. JobID is set on success,
// Error on failure.
type DispatchOutcome struct {
	Payload DispatchPayload
	JobID   *string
	Error   string
}

func (o DispatchOutcome) Succeeded() bool {
	return o.JobID != nil && o.Error == ""
}

// Message is the durable record of one dispatched recipient.
type Message struct {
	ID             string
	CompanyID      string
	CampaignID     string
	BatchID        string
	ContactID      string
	TemplateID     string
	SessionID      string
	ChatID         string
	ContentType    ContentType
	Content        string
	MediaURL       *string
	Status         MessageStatus
	SchedulerJobID *string
	ErrorDetails   *string
	RunAt          int64
	Metadata       MessageMetadata
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
