package repository

import (
	"encoding/json"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ContactModel is the persistence model for the contacts table.
type ContactModel struct {
	ID              string                `gorm:"type:uuid;primaryKey"`
	CompanyID       string                `gorm:"type:uuid;not null;index"`
	FirstName       string                `gorm:"type:varchar(120)"`
	LastName        string                `gorm:"type:varchar(120)"`
	Phone           string                `gorm:"type:varchar(40)"`
	Email           string                `gorm:"type:varchar(255)"`
	Tags            pq.StringArray        `gorm:"type:text[];not null;default:'{}'"`
	SystemTags      pq.StringArray        `gorm:"type:text[];not null;default:'{}'"`
	Status          string                `gorm:"type:varchar(80)"`
	Source          string                `gorm:"type:varchar(80)"`
	CompanyName     string                `gorm:"type:varchar(255)"`
	Position        string                `gorm:"type:varchar(120)"`
	BirthDate       *time.Time            `gorm:"type:date"`
	LastContactDate *time.Time            `gorm:"type:timestamptz"`
	Value           *float64              `gorm:"type:numeric(14,2)"`
	Deleted         bool                  `gorm:"not null;default:false"`
	Addresses       []ContactAddressModel `gorm:"foreignKey:ContactID"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ContactModel) TableName() string {
	return "contacts"
}

// ContactAddressModel is the persistence model for contact_addresses.
type ContactAddressModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	ContactID    string `gorm:"type:uuid;not null;index"`
	Street       string `gorm:"type:varchar(255)"`
	Neighborhood string `gorm:"type:varchar(120)"`
	City         string `gorm:"type:varchar(120)"`
	State        string `gorm:"type:varchar(60)"`
	ZipCode      string `gorm:"type:varchar(20)"`
}

func (ContactAddressModel) TableName() string {
	return "contact_addresses"
}

// TagModel is the persistence model for user-applied tags.
type TagModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	CompanyID string `gorm:"type:uuid;not null;index"`
	Name      string `gorm:"type:varchar(120);not null"`
	CreatedAt time.Time
}

func (TagModel) TableName() string {
	return "tags"
}

// SystemTagModel is the persistence model for automatically applied tags.
type SystemTagModel struct {
	ID        string               `gorm:"type:uuid;primaryKey"`
	CompanyID string               `gorm:"type:uuid;not null;index"`
	Name      string               `gorm:"type:varchar(120);not null"`
	Flag      domain.SystemTagFlag `gorm:"type:varchar(40)"`
	CreatedAt time.Time
}

func (SystemTagModel) TableName() string {
	return "system_tags"
}

// CampaignModel is the persistence model for campaigns.
type CampaignModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	CompanyID string `gorm:"type:uuid;not null;index"`
	Name      string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CampaignModel) TableName() string {
	return "campaigns"
}

// BatchScheduleModel is the persistence model for batch_schedules.
type BatchScheduleModel struct {
	ID               string             `gorm:"type:uuid;primaryKey"`
	CompanyID        string             `gorm:"type:uuid;not null"`
	CampaignID       string             `gorm:"type:uuid;not null"`
	Status           domain.BatchStatus `gorm:"type:varchar(20);not null"`
	RunAt            int64              `gorm:"not null"`
	IsDynamic        bool               `gorm:"not null;default:false"`
	ContactFilters   datatypes.JSON     `gorm:"type:jsonb;not null;default:'[]'::jsonb"`
	FilterLogic      domain.FilterLogic `gorm:"type:varchar(3);not null;default:'AND'"`
	Recipients       datatypes.JSON     `gorm:"type:jsonb;not null;default:'[]'::jsonb"`
	TemplateIDs      pq.StringArray     `gorm:"type:text[];not null;default:'{}'"`
	SelectedSessions pq.StringArray     `gorm:"type:text[];not null;default:'{}'"`
	DeliverySettings datatypes.JSON     `gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (BatchScheduleModel) TableName() string {
	return "batch_schedules"
}

// MessageTemplateModel is the persistence model for message_templates.
type MessageTemplateModel struct {
	ID          string             `gorm:"type:uuid;primaryKey"`
	CompanyID   string             `gorm:"type:uuid;not null;index"`
	Name        string             `gorm:"type:varchar(255);not null"`
	Content     string             `gorm:"type:text;not null;default:''"`
	ContentType domain.ContentType `gorm:"type:varchar(10);not null;default:'text'"`
	Attachments datatypes.JSON     `gorm:"type:jsonb;not null;default:'[]'::jsonb"`
	Variables   pq.StringArray     `gorm:"type:text[];not null;default:'{}'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (MessageTemplateModel) TableName() string {
	return "message_templates"
}

// MessageModel is the persistence model for messages.
type MessageModel struct {
	ID             string               `gorm:"type:uuid;primaryKey"`
	CompanyID      string               `gorm:"type:uuid;not null"`
	CampaignID     string               `gorm:"type:uuid;not null"`
	BatchID        string               `gorm:"type:uuid;not null"`
	ContactID      string               `gorm:"type:varchar(64);index"`
	TemplateID     string               `gorm:"type:varchar(64)"`
	SessionID      string               `gorm:"type:varchar(120);not null"`
	ChatID         string               `gorm:"type:varchar(80);not null"`
	ContentType    domain.ContentType   `gorm:"type:varchar(10);not null"`
	Content        string               `gorm:"type:text;not null;default:''"`
	MediaURL       *string              `gorm:"type:text"`
	Status         domain.MessageStatus `gorm:"type:varchar(20);not null"`
	SchedulerJobID *string              `gorm:"type:varchar(255)"`
	ErrorDetails   *string              `gorm:"type:text"`
	RunAt          int64                `gorm:"not null"`
	Metadata       datatypes.JSON       `gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}

// CompanyModel is the persistence model for companies.
type CompanyModel struct {
	ID         string            `gorm:"type:uuid;primaryKey"`
	Name       string            `gorm:"type:varchar(255);not null"`
	Email      string            `gorm:"type:varchar(255)"`
	Phone      string            `gorm:"type:varchar(40)"`
	Attributes datatypes.JSONMap `gorm:"type:jsonb;default:'{}'::jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CompanyModel) TableName() string {
	return "companies"
}

// UserModel is the persistence model for users.
type UserModel struct {
	ID         string            `gorm:"type:uuid;primaryKey"`
	CompanyID  string            `gorm:"type:uuid;not null;index"`
	Name       string            `gorm:"type:varchar(255);not null"`
	Email      string            `gorm:"type:varchar(255)"`
	Phone      string            `gorm:"type:varchar(40)"`
	Attributes datatypes.JSONMap `gorm:"type:jsonb;default:'{}'::jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (UserModel) TableName() string {
	return "users"
}

func contactModelToDomain(m *ContactModel) *domain.Contact {
	if m == nil {
		return nil
	}

	addresses := make([]domain.Address, 0, len(m.Addresses))
	for _, a := range m.Addresses {
		addresses = append(addresses, domain.Address{
			Street:       a.Street,
			Neighborhood: a.Neighborhood,
			City:         a.City,
			State:        a.State,
			ZipCode:      a.ZipCode,
		})
	}

	return &domain.Contact{
		ID:              m.ID,
		CompanyID:       m.CompanyID,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Phone:           m.Phone,
		Email:           m.Email,
		Tags:            []string(m.Tags),
		SystemTags:      []string(m.SystemTags),
		Status:          m.Status,
		Source:          m.Source,
		CompanyName:     m.CompanyName,
		Position:        m.Position,
		BirthDate:       m.BirthDate,
		LastContactDate: m.LastContactDate,
		Value:           m.Value,
		Addresses:       addresses,
		Deleted:         m.Deleted,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func batchModelToDomain(m *BatchScheduleModel) (*domain.BatchSchedule, error) {
	if m == nil {
		return nil, nil
	}

	b := &domain.BatchSchedule{
		ID:               m.ID,
		CompanyID:        m.CompanyID,
		CampaignID:       m.CampaignID,
		Status:           m.Status,
		RunAt:            m.RunAt,
		IsDynamic:        m.IsDynamic,
		FilterLogic:      m.FilterLogic,
		TemplateIDs:      []string(m.TemplateIDs),
		SelectedSessions: []string(m.SelectedSessions),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if err := decodeJSON(m.ContactFilters, &b.ContactFilters); err != nil {
		return nil, err
	}
	if err := decodeJSON(m.Recipients, &b.Recipients); err != nil {
		return nil, err
	}
	if err := decodeJSON(m.DeliverySettings, &b.DeliverySettings); err != nil {
		return nil, err
	}
	return b, nil
}

func templateModelToDomain(m *MessageTemplateModel) (*domain.MessageTemplate, error) {
	if m == nil {
		return nil, nil
	}

	t := &domain.MessageTemplate{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		Name:        m.Name,
		Content:     m.Content,
		ContentType: m.ContentType,
		Variables:   []string(m.Variables),
	}
	if err := decodeJSON(m.Attachments, &t.Attachments); err != nil {
		return nil, err
	}
	return t, nil
}

func messageModelFromDomain(msg *domain.Message) (*MessageModel, error) {
	if msg == nil {
		return nil, nil
	}

	metadata, err := encodeJSON(msg.Metadata, "{}")
	if err != nil {
		return nil, err
	}

	return &MessageModel{
		ID:             msg.ID,
		CompanyID:      msg.CompanyID,
		CampaignID:     msg.CampaignID,
		BatchID:        msg.BatchID,
		ContactID:      msg.ContactID,
		TemplateID:     msg.TemplateID,
		SessionID:      msg.SessionID,
		ChatID:         msg.ChatID,
		ContentType:    msg.ContentType,
		Content:        msg.Content,
		MediaURL:       msg.MediaURL,
		Status:         msg.Status,
		SchedulerJobID: msg.SchedulerJobID,
		ErrorDetails:   msg.ErrorDetails,
		RunAt:          msg.RunAt,
		Metadata:       metadata,
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      msg.UpdatedAt,
	}, nil
}

func companyModelToDomain(m *CompanyModel) *domain.Company {
	if m == nil {
		return nil
	}
	return &domain.Company{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Attributes: stringAttributes(m.Attributes),
	}
}

func userModelToDomain(m *UserModel) *domain.User {
	if m == nil {
		return nil
	}
	return &domain.User{
		ID:         m.ID,
		CompanyID:  m.CompanyID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Attributes: stringAttributes(m.Attributes),
	}
}

func stringAttributes(m datatypes.JSONMap) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		default:
			raw, err := json.Marshal(val)
			if err == nil {
				out[k] = string(raw)
			}
		}
	}
	return out
}

func encodeJSON(v any, empty string) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		raw = []byte(empty)
	}
	return datatypes.JSON(raw), nil
}

func decodeJSON(raw datatypes.JSON, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
