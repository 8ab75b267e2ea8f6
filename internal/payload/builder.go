package payload

import (
	"fmt"
	"strings"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/pacing"
)

const DefaultChatIDSuffix = "@c.us"

// Reasons a recipient produced no payload.
const (
	SkipMissingMediaURL = "missing_media_url"
	SkipMissingPhone    = "missing_phone"
)

// Recipient is one entry of the resolved or stored recipient list. Contact is
// nil when only the batch snapshot is available.
type Recipient struct {
	ContactID string
	Phone     string
	Name      string
	Contact   *domain.Contact
}

// RecipientFromContact builds a recipient backed by a full contact record.
func RecipientFromContact(c *domain.Contact) Recipient {
	return Recipient{ContactID: c.ID, Phone: c.Phone, Name: c.DisplayName(), Contact: c}
}

func (r Recipient) phone() string {
	if r.Contact != nil && strings.TrimSpace(r.Contact.Phone) != "" {
		return r.Contact.Phone
	}
	return r.Phone
}

func (r Recipient) displayName() string {
	if r.Contact != nil {
		if name := r.Contact.FullName(); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return strings.TrimSpace(r.phone())
}

// Input is everything needed to build the payloads of one batch.
type Input struct {
	Batch      *domain.BatchSchedule
	Campaign   *domain.Campaign
	Templates  []*domain.MessageTemplate
	Recipients []Recipient
	Company    *domain.Company
	User       *domain.User
}

// Skip records a recipient that produced no payload.
type Skip struct {
	Index     int
	ContactID string
	Reason    string
}

type Result struct {
	Payloads []domain.DispatchPayload
	Skipped  []Skip
}

// Builder converts recipients into dispatch payloads.
type Builder struct {
	chatIDSuffix string
	randInt63    func(n int64) int64
}

// NewBuilder returns a builder. randInt63 seeds the pacing scheduler; nil uses math/rand.
func NewBuilder(chatIDSuffix string, randInt63 func(n int64) int64) *Builder {
	if chatIDSuffix == "" {
		chatIDSuffix = DefaultChatIDSuffix
	}
	return &Builder{chatIDSuffix: chatIDSuffix, randInt63: randInt63}
}

// Build renders one payload per recipient. Recipient i gets templates[i mod len],
// sessions[i mod len] and the i-th paced send time, whether or not an earlier
// recipient was skipped.
func (b *Builder) Build(in Input) (Result, error) {
	if in.Batch == nil {
		return Result{}, fmt.Errorf("%w: batch is required", domain.ErrValidation)
	}
	if len(in.Templates) == 0 {
		return Result{}, fmt.Errorf("%w: batch has no templates", domain.ErrValidation)
	}
	for i, tpl := range in.Templates {
		if tpl == nil {
			return Result{}, fmt.Errorf("%w: templates[%d] is missing", domain.ErrValidation, i)
		}
	}
	if len(in.Batch.SelectedSessions) == 0 {
		return Result{}, fmt.Errorf("%w: batch has no selected sessions", domain.ErrValidation)
	}

	result := Result{Payloads: make([]domain.DispatchPayload, 0, len(in.Recipients))}
	if len(in.Recipients) == 0 {
		return result, nil
	}

	campaignID, campaignName := in.Batch.CampaignID, ""
	if in.Campaign != nil {
		campaignName = in.Campaign.Name
	}

	times := pacing.FromSettings(in.Batch.DeliverySettings, b.randInt63).Times(in.Batch.RunAt, len(in.Recipients))
	sessions := in.Batch.SelectedSessions

	for i, recipient := range in.Recipients {
		tpl := in.Templates[i%len(in.Templates)]
		contentType := tpl.ContentType
		if contentType == "" {
			contentType = domain.ContentText
		}

		chatID := ChatID(recipient.phone(), b.chatIDSuffix)
		if chatID == "" {
			result.Skipped = append(result.Skipped, Skip{Index: i, ContactID: recipient.ContactID, Reason: SkipMissingPhone})
			continue
		}

		var media *domain.MediaPayload
		if contentType.IsMedia() {
			url := tpl.MediaURL()
			if url == "" {
				result.Skipped = append(result.Skipped, Skip{Index: i, ContactID: recipient.ContactID, Reason: SkipMissingMediaURL})
				continue
			}
			attachment := tpl.Attachments[0]
			media = &domain.MediaPayload{URL: url, FileName: attachment.FileName, MimeType: attachment.MimeType}
		}

		name := recipient.displayName()
		content := Render(tpl.Content, NewVariables(recipient.Contact, recipient.Name, recipient.phone(), in.User, in.Company))
		if media != nil {
			media.Caption = content
		}

		result.Payloads = append(result.Payloads, domain.DispatchPayload{
			CompanyID:   in.Batch.CompanyID,
			SessionID:   sessions[i%len(sessions)],
			ChatID:      chatID,
			RunAt:       times[i],
			ContentType: contentType,
			Content:     content,
			Media:       media,
			Metadata: domain.MessageMetadata{
				CampaignID:    campaignID,
				CampaignName:  campaignName,
				BatchID:       in.Batch.ID,
				TemplateID:    tpl.ID,
				TemplateName:  tpl.Name,
				ContactID:     recipient.ContactID,
				RecipientName: name,
				Phone:         recipient.phone(),
			},
		})
	}

	return result, nil
}
