package domain

import (
	"strings"
	"time"
)

// Contact is a customer record owned by the record store. The pipeline only reads it.
type Contact struct {
	ID              string
	CompanyID       string
	FirstName       string
	LastName        string
	Phone           string
	Email           string
	Tags            []string
	SystemTags      []string
	Status          string
	Source          string
	CompanyName     string
	Position        string
	BirthDate       *time.Time
	LastContactDate *time.Time
	Value           *float64
	Addresses       []Address
	Deleted         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Address is one of the contact's postal addresses.
type Address struct {
	Street       string
	Neighborhood string
	City         string
	State        string
	ZipCode      string
}

func (c *Contact) FullName() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// DisplayName falls back to the phone number when the contact has no name.
func (c *Contact) DisplayName() string {
	if name := c.FullName(); name != "" {
		return name
	}
	if c == nil {
		return ""
	}
	return c.Phone
}

// Tag is a user-applied label.
type Tag struct {
	ID        string
	CompanyID string
	Name      string
}

// SystemTagFlag marks automatically applied tags.
type SystemTagFlag string

const (
	SystemTagInvalidNumber   SystemTagFlag = "invalid_number"
	SystemTagNumberNotExists SystemTagFlag = "number_not_exists"
)

// MarksUnreachable reports whether contacts carrying the tag must never be messaged.
func (f SystemTagFlag) MarksUnreachable() bool {
	return f == SystemTagInvalidNumber || f == SystemTagNumberNotExists
}

// SystemTag is a tag applied by automated processes.
type SystemTag struct {
	ID        string
	CompanyID string
	Name      string
	Flag      SystemTagFlag
}
