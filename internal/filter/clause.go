package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
)

// Supported contact attributes and pseudo-fields.
const (
	FieldHasTag              = "has_tag"
	FieldStatus              = "status"
	FieldSource              = "source"
	FieldCompanyName         = "company_name"
	FieldPosition            = "position"
	FieldFirstName           = "first_name"
	FieldLastName            = "last_name"
	FieldEmail               = "email"
	FieldPhone               = "phone"
	FieldBirthDate           = "birth_date"
	FieldLastContactDate     = "last_contact_date"
	FieldCreatedDate         = "created_date"
	FieldValue               = "value"
	FieldAddressCity         = "address_city"
	FieldAddressState        = "address_state"
	FieldAddressNeighborhood = "address_neighborhood"
)

// Operator names shared across clause kinds.
const (
	OpIsTrue             = "is_true"
	OpIsFalse            = "is_false"
	OpEquals             = "equals"
	OpNotEquals          = "not_equals"
	OpIn                 = "in"
	OpNotIn              = "not_in"
	OpContains           = "contains"
	OpNotContains        = "not_contains"
	OpIsFilled           = "is_filled"
	OpIsNotFilled        = "is_not_filled"
	OpIsToday            = "is_today"
	OpIsThisWeek         = "is_this_week"
	OpIsThisMonth        = "is_this_month"
	OpDaysAgoEquals      = "days_ago_equals"
	OpDaysAgoGreaterThan = "days_ago_greater_than"
	OpDaysAgoLessThan    = "days_ago_less_than"
	OpBetween            = "between"
	OpGreaterThan        = "greater_than"
	OpLessThan           = "less_than"

	OpAllContacts = "all_contacts"
	OpWithErrors  = "with_errors"
	OpPending     = "pending"
	OpSuccess     = "success"
	OpCancelled   = "cancelled"
)

const floatEpsilon = 1e-6

// Clause is a validated audience rule. The set of implementations is closed:
// every value is produced by Parse and carries a typed operator and value.
type Clause interface {
	Raw() domain.FilterClause
	Matches(c *domain.Contact, ec *EvalContext) bool
	isClause()
}

type base struct {
	raw domain.FilterClause
}

func (b base) Raw() domain.FilterClause { return b.raw }
func (base) isClause()                  {}

// TagOp is an operator over has_tag.
type TagOp string

// TagClause matches contact tags by normalized id or display name.
type TagClause struct {
	base
	Op     TagOp
	Values []string
}

// TextOp is an operator over a free-text attribute.
type TextOp string

// TextClause compares one scalar text attribute.
type TextClause struct {
	base
	Field  string
	Op     TextOp
	Values []string
}

// BirthDateOp is a calendar operator over birth_date.
type BirthDateOp string

// BirthDateClause compares day and month of birth against the reference date.
type BirthDateClause struct {
	base
	Op BirthDateOp
}

// DateDeltaOp is a whole-day delta operator.
type DateDeltaOp string

// DateDeltaClause compares the number of UTC days since a date.
type DateDeltaClause struct {
	base
	Field   string
	Op      DateDeltaOp
	Days    int
	MaxDays int
}

// NumberOp is an operator over value.
type NumberOp string

// NumberClause compares the numeric value attribute.
type NumberClause struct {
	base
	Op NumberOp
	A  float64
	B  float64
}

// AddressClause holds when any address of the contact satisfies the text
// predicate. Negative operators hold when no address satisfies the positive one.
type AddressClause struct {
	base
	Part   string
	Op     TextOp
	Values []string
}

// CampaignOp selects messages of a campaign by delivery state.
type CampaignOp string

// CampaignClause holds for contacts referenced by matching messages of a campaign.
// Membership is precomputed by the audience resolver into EvalContext.
type CampaignClause struct {
	base
	CampaignID string
	Op         CampaignOp
}

// Key identifies the precomputed member set of the clause.
func (c CampaignClause) Key() string {
	return c.CampaignID + "|" + string(c.Op)
}

// Statuses returns the message states the clause selects; nil selects every state.
func (c CampaignClause) Statuses() []domain.MessageStatus {
	switch c.Op {
	case OpWithErrors:
		return []domain.MessageStatus{domain.MessageStatusFailed}
	case OpPending:
		return []domain.MessageStatus{domain.MessageStatusPending}
	case OpSuccess:
		return []domain.MessageStatus{domain.MessageStatusSent, domain.MessageStatusDelivered, domain.MessageStatusRead}
	case OpCancelled:
		return []domain.MessageStatus{domain.MessageStatusCancelled}
	}
	return nil
}

var (
	textFieldOps = map[string][]string{
		FieldStatus:      {OpEquals, OpNotEquals, OpIn, OpNotIn, OpIsFilled, OpIsNotFilled},
		FieldSource:      {OpEquals, OpNotEquals, OpIn, OpNotIn, OpIsFilled, OpIsNotFilled},
		FieldCompanyName: {OpEquals, OpNotEquals, OpContains, OpNotContains, OpIsFilled, OpIsNotFilled},
		FieldPosition:    {OpEquals, OpNotEquals, OpContains, OpNotContains, OpIsFilled, OpIsNotFilled},
		FieldFirstName:   {OpEquals, OpNotEquals, OpContains, OpNotContains, OpIsFilled, OpIsNotFilled},
		FieldLastName:    {OpEquals, OpNotEquals, OpContains, OpNotContains, OpIsFilled, OpIsNotFilled},
		FieldEmail:       {OpEquals, OpNotEquals, OpContains, OpNotContains, OpIsFilled, OpIsNotFilled},
		FieldPhone:       {OpEquals, OpNotEquals, OpContains, OpNotContains, OpIsFilled, OpIsNotFilled},
	}
	addressParts = map[string]string{
		FieldAddressCity:         "city",
		FieldAddressState:        "state",
		FieldAddressNeighborhood: "neighborhood",
	}
	addressOps = []string{OpEquals, OpNotEquals, OpIn, OpNotIn, OpContains, OpNotContains, OpIsFilled, OpIsNotFilled}
)

// ParseAll validates every clause. The first invalid clause aborts the parse so
// no partial audience is ever computed.
func ParseAll(raws []domain.FilterClause) ([]Clause, error) {
	clauses := make([]Clause, 0, len(raws))
	for i, raw := range raws {
		clause, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// Parse turns a wire clause into its typed form. Unknown fields and operators
// outside a field's allow-list are validation errors.
func Parse(raw domain.FilterClause) (Clause, error) {
	raw.Field = strings.TrimSpace(raw.Field)
	raw.Operator = strings.ToLower(strings.TrimSpace(raw.Operator))
	if raw.Field == "" {
		return nil, fmt.Errorf("%w: filter field is required", domain.ErrValidation)
	}
	if raw.Operator == "" {
		return nil, fmt.Errorf("%w: filter %s: operator is required", domain.ErrValidation, raw.Field)
	}

	if raw.IsCampaignClause() {
		return parseCampaign(raw)
	}

	field := strings.ToLower(raw.Field)
	switch {
	case field == FieldHasTag:
		return parseTag(raw)
	case textFieldOps[field] != nil:
		return parseText(raw, field)
	case field == FieldBirthDate:
		return parseBirthDate(raw)
	case field == FieldLastContactDate || field == FieldCreatedDate:
		return parseDateDelta(raw, field)
	case field == FieldValue:
		return parseNumber(raw)
	case addressParts[field] != "":
		return parseAddress(raw, field)
	}

	return nil, fmt.Errorf("%w: unknown filter field %q", domain.ErrValidation, raw.Field)
}

func unsupportedOperator(raw domain.FilterClause) error {
	return fmt.Errorf("%w: operator %q is not supported for field %q", domain.ErrValidation, raw.Operator, raw.Field)
}

func allowed(op string, ops []string) bool {
	for _, candidate := range ops {
		if candidate == op {
			return true
		}
	}
	return false
}

func needsValue(op string) bool {
	switch op {
	case OpIsFilled, OpIsNotFilled, OpIsTrue, OpIsFalse:
		return false
	}
	return true
}

func parseTag(raw domain.FilterClause) (Clause, error) {
	switch raw.Operator {
	case OpIsTrue, OpIsFalse, OpEquals, OpNotEquals, OpIn, OpNotIn, OpContains, OpNotContains:
	default:
		return nil, unsupportedOperator(raw)
	}

	values := make([]string, 0)
	for _, v := range stringValues(raw.Value) {
		if n := Normalize(v); n != "" {
			values = append(values, n)
		}
	}
	// "true"/"false" for is_true/is_false carry no tag.
	if raw.Operator == OpIsTrue || raw.Operator == OpIsFalse {
		if len(values) == 1 && (values[0] == "true" || values[0] == "false") {
			values = nil
		}
	}
	if needsValue(raw.Operator) && len(values) == 0 {
		return nil, invalidValue(raw, "a tag value is required")
	}

	return TagClause{base: base{raw: raw}, Op: TagOp(raw.Operator), Values: values}, nil
}

func parseText(raw domain.FilterClause, field string) (Clause, error) {
	if !allowed(raw.Operator, textFieldOps[field]) {
		return nil, unsupportedOperator(raw)
	}

	values := make([]string, 0)
	for _, v := range stringValues(raw.Value) {
		if n := normalizeField(field, v); n != "" {
			values = append(values, n)
		}
	}
	if needsValue(raw.Operator) && len(values) == 0 {
		return nil, invalidValue(raw, "a value is required")
	}

	return TextClause{base: base{raw: raw}, Field: field, Op: TextOp(raw.Operator), Values: values}, nil
}

func parseBirthDate(raw domain.FilterClause) (Clause, error) {
	switch raw.Operator {
	case OpIsToday, OpIsThisWeek, OpIsThisMonth, OpIsFilled, OpIsNotFilled:
	default:
		return nil, unsupportedOperator(raw)
	}
	return BirthDateClause{base: base{raw: raw}, Op: BirthDateOp(raw.Operator)}, nil
}

func parseDateDelta(raw domain.FilterClause, field string) (Clause, error) {
	clause := DateDeltaClause{base: base{raw: raw}, Field: field, Op: DateDeltaOp(raw.Operator)}

	switch raw.Operator {
	case OpDaysAgoEquals, OpDaysAgoGreaterThan, OpDaysAgoLessThan:
		n, ok := numberValue(raw.Value)
		if !ok || n < 0 || n != math.Trunc(n) {
			return nil, invalidValue(raw, "value must be a non-negative whole number of days")
		}
		clause.Days = int(n)
	case OpBetween:
		lo, hi, ok := rangeValue(raw.Value)
		if !ok || lo < 0 || lo != math.Trunc(lo) || hi != math.Trunc(hi) {
			return nil, invalidValue(raw, "value must be a [min, max] range of whole days")
		}
		clause.Days, clause.MaxDays = int(lo), int(hi)
	case OpIsFilled, OpIsNotFilled:
		if field != FieldLastContactDate {
			return nil, unsupportedOperator(raw)
		}
	default:
		return nil, unsupportedOperator(raw)
	}

	return clause, nil
}

func parseNumber(raw domain.FilterClause) (Clause, error) {
	clause := NumberClause{base: base{raw: raw}, Op: NumberOp(raw.Operator)}

	switch raw.Operator {
	case OpGreaterThan, OpLessThan, OpEquals:
		n, ok := numberValue(raw.Value)
		if !ok {
			return nil, invalidValue(raw, "value must be numeric")
		}
		clause.A = n
	case OpBetween:
		lo, hi, ok := rangeValue(raw.Value)
		if !ok {
			return nil, invalidValue(raw, "value must be a [min, max] numeric range")
		}
		clause.A, clause.B = lo, hi
	case OpIsFilled, OpIsNotFilled:
	default:
		return nil, unsupportedOperator(raw)
	}

	return clause, nil
}

func parseAddress(raw domain.FilterClause, field string) (Clause, error) {
	if !allowed(raw.Operator, addressOps) {
		return nil, unsupportedOperator(raw)
	}

	values := make([]string, 0)
	for _, v := range stringValues(raw.Value) {
		if n := Normalize(v); n != "" {
			values = append(values, n)
		}
	}
	if needsValue(raw.Operator) && len(values) == 0 {
		return nil, invalidValue(raw, "a value is required")
	}

	return AddressClause{base: base{raw: raw}, Part: addressParts[field], Op: TextOp(raw.Operator), Values: values}, nil
}

func parseCampaign(raw domain.FilterClause) (Clause, error) {
	switch raw.Operator {
	case OpAllContacts, OpWithErrors, OpPending, OpSuccess, OpCancelled:
	default:
		return nil, unsupportedOperator(raw)
	}
	return CampaignClause{base: base{raw: raw}, CampaignID: raw.Field, Op: CampaignOp(raw.Operator)}, nil
}

func normalizeField(field string, v string) string {
	if field == FieldPhone {
		return Digits(v)
	}
	return Normalize(v)
}
