package domain

import (
	"fmt"
	"strings"
)

// ContentType is the kind of message a template produces.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentFile  ContentType = "file"
	ContentAudio ContentType = "audio"
)

func (t ContentType) String() string { return string(t) }

func (t ContentType) IsValid() bool {
	switch t {
	case ContentText, ContentImage, ContentVideo, ContentFile, ContentAudio:
		return true
	}
	return false
}

func (t ContentType) IsMedia() bool {
	return t.IsValid() && t != ContentText
}

func ParseContentTypeFromString(s string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if ct == "" {
		return ContentText, nil
	}
	if !ct.IsValid() {
		return "", fmt.Errorf("%w: invalid content type %q", ErrValidation, s)
	}
	return ct, nil
}

// Attachment describes a media file attached to a template.
type Attachment struct {
	URL      string `json:"url"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// MessageTemplate is the content a campaign sends.
type MessageTemplate struct {
	ID          string
	CompanyID   string
	Name        string
	Content     string
	ContentType ContentType
	Attachments []Attachment
	Variables   []string
}

// MediaURL returns the first attachment URL, or "" when the template has none.
func (t *MessageTemplate) MediaURL() string {
	if t == nil || len(t.Attachments) == 0 {
		return ""
	}
	return strings.TrimSpace(t.Attachments[0].URL)
}
