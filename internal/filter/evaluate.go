package filter

import (
	"math"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
)

// EvalContext holds everything a clause may consult besides the contact.
// Reference is the batch anchor when scheduling ahead and now otherwise.
type EvalContext struct {
	Reference       time.Time
	TagNames        map[string]string
	CampaignMembers map[string]map[string]struct{}
}

// Evaluate runs one clause against one contact.
func Evaluate(c *domain.Contact, clause Clause, ec *EvalContext) bool {
	if c == nil || clause == nil {
		return false
	}
	if ec == nil {
		ec = &EvalContext{Reference: time.Now().UTC()}
	}
	return clause.Matches(c, ec)
}

// Combine applies logic across clause results. An empty result set matches.
func Combine(results []bool, logic domain.FilterLogic) bool {
	if len(results) == 0 {
		return true
	}
	if logic == domain.LogicOr {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}

// Matches evaluates the clause set, short-circuiting in the direction of logic.
func Matches(c *domain.Contact, clauses []Clause, logic domain.FilterLogic, ec *EvalContext) bool {
	if len(clauses) == 0 {
		return c != nil
	}
	for _, clause := range clauses {
		ok := Evaluate(c, clause, ec)
		if logic == domain.LogicOr && ok {
			return true
		}
		if logic != domain.LogicOr && !ok {
			return false
		}
	}
	return logic != domain.LogicOr
}

func (t TagClause) Matches(c *domain.Contact, ec *EvalContext) bool {
	tags := contactTagForms(c, ec)

	has := func(value string) bool {
		_, ok := tags[value]
		return ok
	}
	hasAny := func() bool {
		for _, v := range t.Values {
			if has(v) {
				return true
			}
		}
		return false
	}
	containsAny := func() bool {
		for tag := range tags {
			for _, v := range t.Values {
				if strings.Contains(tag, v) {
					return true
				}
			}
		}
		return false
	}

	switch t.Op {
	case OpIsTrue:
		if len(t.Values) == 0 {
			return len(tags) > 0
		}
		return hasAny()
	case OpIsFalse:
		if len(t.Values) == 0 {
			return len(tags) == 0
		}
		return !hasAny()
	case OpEquals, OpIn:
		return hasAny()
	case OpNotEquals, OpNotIn:
		return !hasAny()
	case OpContains:
		return containsAny()
	case OpNotContains:
		return !containsAny()
	}
	return false
}

// contactTagForms returns the normalized id and display name of every tag.
func contactTagForms(c *domain.Contact, ec *EvalContext) map[string]struct{} {
	forms := make(map[string]struct{}, len(c.Tags)*2)
	for _, tag := range c.Tags {
		if n := Normalize(tag); n != "" {
			forms[n] = struct{}{}
		}
		if ec != nil && ec.TagNames != nil {
			if name, ok := ec.TagNames[tag]; ok {
				if n := Normalize(name); n != "" {
					forms[n] = struct{}{}
				}
			}
		}
	}
	return forms
}

func (t TextClause) Matches(c *domain.Contact, _ *EvalContext) bool {
	return matchText(t.Op, normalizeField(t.Field, textAttribute(c, t.Field)), t.Values)
}

func textAttribute(c *domain.Contact, field string) string {
	switch field {
	case FieldStatus:
		return c.Status
	case FieldSource:
		return c.Source
	case FieldCompanyName:
		return c.CompanyName
	case FieldPosition:
		return c.Position
	case FieldFirstName:
		return c.FirstName
	case FieldLastName:
		return c.LastName
	case FieldEmail:
		return c.Email
	case FieldPhone:
		return c.Phone
	}
	return ""
}

// matchText compares a normalized attribute against normalized values.
func matchText(op TextOp, attr string, values []string) bool {
	equalsAny := func() bool {
		for _, v := range values {
			if attr == v {
				return true
			}
		}
		return false
	}
	containsAny := func() bool {
		if attr == "" {
			return false
		}
		for _, v := range values {
			if strings.Contains(attr, v) {
				return true
			}
		}
		return false
	}

	switch op {
	case OpEquals, OpIn:
		return equalsAny()
	case OpNotEquals, OpNotIn:
		return !equalsAny()
	case OpContains:
		return containsAny()
	case OpNotContains:
		return !containsAny()
	case OpIsFilled:
		return attr != ""
	case OpIsNotFilled:
		return attr == ""
	}
	return false
}

func (a AddressClause) Matches(c *domain.Contact, _ *EvalContext) bool {
	positive := a.Op
	negate := false
	switch a.Op {
	case OpNotEquals:
		positive, negate = OpEquals, true
	case OpNotIn:
		positive, negate = OpIn, true
	case OpNotContains:
		positive, negate = OpContains, true
	case OpIsNotFilled:
		positive, negate = OpIsFilled, true
	}

	found := false
	for _, addr := range c.Addresses {
		if matchText(positive, Normalize(addressPart(addr, a.Part)), a.Values) {
			found = true
			break
		}
	}

	if negate {
		return !found
	}
	return found
}

func addressPart(addr domain.Address, part string) string {
	switch part {
	case "city":
		return addr.City
	case "state":
		return addr.State
	case "neighborhood":
		return addr.Neighborhood
	}
	return ""
}

func (b BirthDateClause) Matches(c *domain.Contact, ec *EvalContext) bool {
	switch b.Op {
	case OpIsFilled:
		return c.BirthDate != nil
	case OpIsNotFilled:
		return c.BirthDate == nil
	}
	if c.BirthDate == nil {
		return false
	}

	birth := c.BirthDate.UTC()
	ref := ec.Reference.UTC()

	switch b.Op {
	case OpIsToday:
		return birth.Month() == ref.Month() && birth.Day() == ref.Day()
	case OpIsThisMonth:
		return birth.Month() == ref.Month()
	case OpIsThisWeek:
		// Monday-start ISO week containing the reference day.
		offset := (int(ref.Weekday()) + 6) % 7
		monday := time.Date(ref.Year(), ref.Month(), ref.Day()-offset, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 7; i++ {
			day := monday.AddDate(0, 0, i)
			if day.Month() == birth.Month() && day.Day() == birth.Day() {
				return true
			}
		}
	}
	return false
}

func (d DateDeltaClause) Matches(c *domain.Contact, ec *EvalContext) bool {
	var date *time.Time
	switch d.Field {
	case FieldLastContactDate:
		date = c.LastContactDate
	case FieldCreatedDate:
		if !c.CreatedAt.IsZero() {
			created := c.CreatedAt
			date = &created
		}
	}

	switch d.Op {
	case OpIsFilled:
		return date != nil
	case OpIsNotFilled:
		return date == nil
	}
	if date == nil {
		return false
	}

	delta := DaysBetween(*date, ec.Reference)
	switch d.Op {
	case OpDaysAgoEquals:
		return delta == d.Days
	case OpDaysAgoGreaterThan:
		return delta > d.Days
	case OpDaysAgoLessThan:
		return delta < d.Days
	case OpBetween:
		return delta >= d.Days && delta <= d.MaxDays
	}
	return false
}

// DaysBetween returns the whole UTC calendar days from then to ref.
func DaysBetween(then, ref time.Time) int {
	return int(utcDay(ref) - utcDay(then))
}

func utcDay(t time.Time) int64 {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func (n NumberClause) Matches(c *domain.Contact, _ *EvalContext) bool {
	switch n.Op {
	case OpIsFilled:
		return c.Value != nil
	case OpIsNotFilled:
		return c.Value == nil
	}
	if c.Value == nil {
		return false
	}

	v := *c.Value
	switch n.Op {
	case OpGreaterThan:
		return v > n.A
	case OpLessThan:
		return v < n.A
	case OpEquals:
		return math.Abs(v-n.A) <= floatEpsilon
	case OpBetween:
		return v >= n.A-floatEpsilon && v <= n.B+floatEpsilon
	}
	return false
}

func (cc CampaignClause) Matches(c *domain.Contact, ec *EvalContext) bool {
	if ec == nil || ec.CampaignMembers == nil {
		return false
	}
	members, ok := ec.CampaignMembers[cc.Key()]
	if !ok {
		return false
	}
	_, ok = members[c.ID]
	return ok
}
