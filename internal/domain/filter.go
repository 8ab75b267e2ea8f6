package domain

import (
	"fmt"
	"strings"
)

// FilterLogic combines a clause set uniformly.
type FilterLogic string

const (
	LogicAnd FilterLogic = "AND"
	LogicOr  FilterLogic = "OR"
)

func (l FilterLogic) String() string { return string(l) }

func (l FilterLogic) IsValid() bool {
	return l == LogicAnd || l == LogicOr
}

// ParseFilterLogicFromString defaults to AND when s is blank.
func ParseFilterLogicFromString(s string) (FilterLogic, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return LogicAnd, nil
	}
	logic := FilterLogic(trimmed)
	if !logic.IsValid() {
		return "", fmt.Errorf("%w: invalid filter logic %q", ErrValidation, s)
	}
	return logic, nil
}

// CategoryCampaign marks clauses evaluated against campaign message history.
const CategoryCampaign = "campanha"

// FilterClause is the untyped wire form of an audience rule.
type FilterClause struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
	Category string `json:"category,omitempty"`
}

func (c FilterClause) IsCampaignClause() bool {
	return strings.EqualFold(strings.TrimSpace(c.Category), CategoryCampaign)
}
