package domain

// Company is the tenant that owns contacts and campaigns.
type Company struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Attributes map[string]string
}

// User is an operator of a company account.
type User struct {
	ID         string
	CompanyID  string
	Name       string
	Email      string
	Phone      string
	Attributes map[string]string
}

// Caller is the authenticated principal of a request.
type Caller struct {
	CompanyID string
	UserID    string
}
