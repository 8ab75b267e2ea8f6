package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/service"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultResolveLimit = 100
	DefaultResolveMax   = 5000
)

// contactFields is the projection vocabulary of the filter endpoint.
var contactFields = []string{
	"id", "first_name", "last_name", "full_name", "phone", "email", "tags", "status", "source",
	"company_name", "position", "birth_date", "last_contact_date", "created_at", "value", "addresses",
}

type ContactResolver interface {
	Resolve(ctx context.Context, q service.AudienceQuery) (*service.Audience, error)
}

type ContactsHandler struct {
	resolver ContactResolver
	maxLimit int
	timeout  time.Duration
}

func NewContactsHandler(resolver ContactResolver, maxLimit int, timeout time.Duration) (*ContactsHandler, error) {
	if resolver == nil {
		return nil, fmt.Errorf("contact resolver is required")
	}
	if maxLimit <= 0 {
		maxLimit = DefaultResolveMax
	}
	return &ContactsHandler{resolver: resolver, maxLimit: maxLimit, timeout: timeout}, nil
}

// RegisterContactRoutes mounts the filter endpoint. router is expected to run
// RequireCaller.
func RegisterContactRoutes(router fiber.Router, resolver ContactResolver, maxLimit int, timeout time.Duration) error {
	h, err := NewContactsHandler(resolver, maxLimit, timeout)
	if err != nil {
		return err
	}

	router.Post("/contacts/filter", h.FilterContacts)
	return nil
}

type filterContactsRequest struct {
	Filters        []domain.FilterClause `json:"filters"`
	Logic          string                `json:"logic"`
	SimulationDate any                   `json:"simulation_date"`
	Limit          *int                  `json:"limit"`
	Offset         *int                  `json:"offset"`
	Project        []string              `json:"project"`
	Debug          bool                  `json:"debug"`
	TagsMap        map[string]string     `json:"tags_map"`
}

type filterDebug struct {
	ReferenceDate   string                `json:"reference_date"`
	Logic           string                `json:"logic"`
	Candidates      int                   `json:"candidates"`
	ExcludedInvalid int                   `json:"excluded_invalid"`
	Matched         int                   `json:"matched"`
	ClauseMatches   []service.ClauseTrace `json:"clause_matches"`
}

type filterContactsResponse struct {
	Success  bool             `json:"success"`
	Count    int              `json:"count"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	HasMore  bool             `json:"has_more"`
	Contacts []map[string]any `json:"contacts"`
	Debug    *filterDebug     `json:"debug,omitempty"`
}

func (h *ContactsHandler) FilterContacts(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req filterContactsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	logic, err := domain.ParseFilterLogicFromString(req.Logic)
	if err != nil {
		return err
	}
	reference, err := parseSimulationDate(req.SimulationDate)
	if err != nil {
		return err
	}
	limit, offset, err := h.page(req.Limit, req.Offset)
	if err != nil {
		return err
	}
	fields, err := projection(req.Project)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	audience, err := h.resolver.Resolve(ctx, service.AudienceQuery{
		CompanyID: caller.CompanyID,
		Filters:   req.Filters,
		Logic:     logic,
		Reference: reference,
		TagNames:  req.TagsMap,
		Trace:     req.Debug,
	})
	if err != nil {
		return err
	}

	count := len(audience.Contacts)
	page := []*domain.Contact{}
	if offset < count {
		end := offset + limit
		if end > count {
			end = count
		}
		page = audience.Contacts[offset:end]
	}

	resp := filterContactsResponse{
		Success:  true,
		Count:    count,
		Limit:    limit,
		Offset:   offset,
		HasMore:  offset+len(page) < count,
		Contacts: make([]map[string]any, 0, len(page)),
	}
	for _, contact := range page {
		resp.Contacts = append(resp.Contacts, contactView(contact, fields))
	}
	if req.Debug {
		clauses := audience.Clauses
		if clauses == nil {
			clauses = []service.ClauseTrace{}
		}
		resp.Debug = &filterDebug{
			ReferenceDate:   audience.Reference.Format(time.RFC3339),
			Logic:           audience.Logic.String(),
			Candidates:      audience.Candidates,
			ExcludedInvalid: audience.ExcludedInvalid,
			Matched:         count,
			ClauseMatches:   clauses,
		}
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *ContactsHandler) page(limit, offset *int) (int, int, error) {
	l, o := defaultResolveLimit, 0
	if limit != nil {
		if *limit < 0 {
			return 0, 0, fmt.Errorf("%w: limit must not be negative", domain.ErrValidation)
		}
		if *limit > 0 {
			l = *limit
		}
	}
	if offset != nil {
		if *offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset must not be negative", domain.ErrValidation)
		}
		o = *offset
	}
	if l > h.maxLimit {
		l = h.maxLimit
	}
	return l, o, nil
}

// parseSimulationDate accepts RFC3339, YYYY-MM-DD or epoch milliseconds. An
// absent value yields the zero time, which the resolver reads as now.
func parseSimulationDate(v any) (time.Time, error) {
	switch value := v.(type) {
	case nil:
		return time.Time{}, nil
	case float64:
		return time.UnixMilli(int64(value)).UTC(), nil
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse(time.DateOnly, trimmed); err == nil {
			return t, nil
		}
		if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: simulation_date must be RFC3339, YYYY-MM-DD or epoch milliseconds", domain.ErrValidation)
}

func projection(project []string) (map[string]struct{}, error) {
	if len(project) == 0 {
		return nil, nil
	}

	known := make(map[string]struct{}, len(contactFields))
	for _, f := range contactFields {
		known[f] = struct{}{}
	}

	fields := make(map[string]struct{}, len(project))
	for _, raw := range project {
		f := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := known[f]; !ok {
			return nil, fmt.Errorf("%w: unknown projection field %q", domain.ErrValidation, raw)
		}
		fields[f] = struct{}{}
	}
	return fields, nil
}

// contactView renders a contact, restricted to fields when it is non-nil.
func contactView(c *domain.Contact, fields map[string]struct{}) map[string]any {
	view := map[string]any{
		"id":                c.ID,
		"first_name":        c.FirstName,
		"last_name":         c.LastName,
		"full_name":         c.FullName(),
		"phone":             c.Phone,
		"email":             c.Email,
		"tags":              nonNilStrings(c.Tags),
		"status":            c.Status,
		"source":            c.Source,
		"company_name":      c.CompanyName,
		"position":          c.Position,
		"birth_date":        formatTime(c.BirthDate, time.DateOnly),
		"last_contact_date": formatTime(c.LastContactDate, time.RFC3339),
		"created_at":        c.CreatedAt.UTC().Format(time.RFC3339),
		"value":             c.Value,
		"addresses":         addressViews(c.Addresses),
	}
	if fields == nil {
		return view
	}
	for key := range view {
		if _, keep := fields[key]; !keep {
			delete(view, key)
		}
	}
	return view
}

func addressViews(addresses []domain.Address) []map[string]string {
	out := make([]map[string]string, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, map[string]string{
			"street":       a.Street,
			"neighborhood": a.Neighborhood,
			"city":         a.City,
			"state":        a.State,
			"zip_code":     a.ZipCode,
		})
	}
	return out
}

func formatTime(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(layout)
	return &s
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
