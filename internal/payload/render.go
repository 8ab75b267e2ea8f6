package payload

import (
	"regexp"
	"strings"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

const (
	userNamespace    = "user."
	companyNamespace = "company."
)

// Variables holds the values a template may reference. Keys are lower case.
type Variables struct {
	contact map[string]string
	user    map[string]string
	company map[string]string
}

// NewVariables collects placeholder values for one recipient. Any argument may be nil.
// fallbackName and fallbackPhone come from the batch snapshot and fill the
// contact fields the live record leaves empty.
func NewVariables(contact *domain.Contact, fallbackName, fallbackPhone string, user *domain.User, company *domain.Company) Variables {
	v := Variables{
		contact: map[string]string{},
		user:    map[string]string{},
		company: map[string]string{},
	}

	if contact != nil {
		v.contact["first_name"] = strings.TrimSpace(contact.FirstName)
		v.contact["last_name"] = strings.TrimSpace(contact.LastName)
		v.contact["full_name"] = contact.FullName()
		v.contact["email"] = strings.TrimSpace(contact.Email)
		v.contact["phone"] = strings.TrimSpace(contact.Phone)
		v.contact["company_name"] = strings.TrimSpace(contact.CompanyName)
	}
	if v.contact["full_name"] == "" && fallbackName != "" {
		v.contact["full_name"] = strings.TrimSpace(fallbackName)
		if v.contact["first_name"] == "" {
			v.contact["first_name"] = firstWord(fallbackName)
		}
	}
	if v.contact["phone"] == "" {
		v.contact["phone"] = strings.TrimSpace(fallbackPhone)
	}

	if user != nil {
		for k, val := range user.Attributes {
			v.user[strings.ToLower(k)] = val
		}
		v.user["name"] = user.Name
		v.user["email"] = user.Email
		v.user["phone"] = user.Phone
	}

	if company != nil {
		for k, val := range company.Attributes {
			v.company[strings.ToLower(k)] = val
		}
		v.company["name"] = company.Name
		v.company["email"] = company.Email
		v.company["phone"] = company.Phone
		if v.contact["company_name"] == "" {
			v.contact["company_name"] = company.Name
		}
	}

	return v
}

// lookup resolves a placeholder key. known is false for keys outside the
// supported vocabulary, which are left in the text untouched.
func (v Variables) lookup(key string) (value string, known bool) {
	key = strings.ToLower(key)

	switch {
	case strings.HasPrefix(key, userNamespace):
		return v.user[strings.TrimPrefix(key, userNamespace)], true
	case strings.HasPrefix(key, companyNamespace):
		return v.company[strings.TrimPrefix(key, companyNamespace)], true
	}

	switch key {
	case "first_name", "last_name", "full_name", "email", "phone", "company_name":
		return v.contact[key], true
	}
	return "", false
}

// Render substitutes {{placeholder}} markers case-insensitively. Supported
// placeholders without a value become empty strings.
func Render(content string, vars Variables) string {
	if !strings.Contains(content, "{{") {
		return content
	}

	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		value, known := vars.lookup(sub[1])
		if !known {
			return match
		}
		return value
	})
}

// ChatID turns a phone number into the channel address. It returns "" when the
// phone has no digits.
func ChatID(phone, suffix string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + suffix
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
