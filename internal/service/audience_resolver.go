package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/filter"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/repository"
	"go.uber.org/zap"
)

// AudienceQuery describes one audience resolution.
type AudienceQuery struct {
	CompanyID string
	Filters   []domain.FilterClause
	Logic     domain.FilterLogic
	// Reference replaces now in date-relative clauses. Zero means now.
	Reference time.Time
	// TagNames augments the catalog id to name map used by tag clauses.
	TagNames map[string]string
	// Trace counts per-clause matches over the candidate set.
	Trace bool
}

// ClauseTrace is the per-clause match count reported by a traced resolution.
type ClauseTrace struct {
	Index    int    `json:"index"`
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Category string `json:"category,omitempty"`
	Matched  int    `json:"matched"`
}

// Audience is the outcome of a resolution.
type Audience struct {
	Contacts        []*domain.Contact
	Reference       time.Time
	Logic           domain.FilterLogic
	Candidates      int
	ExcludedInvalid int
	Clauses         []ClauseTrace
}

// AudienceResolver computes the contacts matched by a filter clause set.
type AudienceResolver struct {
	contacts repository.ContactRepository
	tags     repository.TagCatalog
	messages repository.MessageRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewAudienceResolver(
	contacts repository.ContactRepository,
	tags repository.TagCatalog,
	messages repository.MessageRepository,
	logger *zap.Logger,
) (*AudienceResolver, error) {
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AudienceResolver{
		contacts: contacts,
		tags:     tags,
		messages: messages,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Resolve loads the company's live contacts, drops unreachable ones and keeps the
// contacts matched by the clause set. Clauses are validated before any lookup.
func (r *AudienceResolver) Resolve(ctx context.Context, q AudienceQuery) (*Audience, error) {
	companyID := strings.TrimSpace(q.CompanyID)
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", domain.ErrValidation)
	}

	clauses, err := filter.ParseAll(q.Filters)
	if err != nil {
		return nil, err
	}

	// Stored batches may carry lower case logic.
	logic, err := domain.ParseFilterLogicFromString(string(q.Logic))
	if err != nil {
		return nil, err
	}

	reference := q.Reference.UTC()
	if q.Reference.IsZero() {
		reference = r.now().UTC()
	}

	all, err := r.contacts.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	invalid := r.invalidTagSet(ctx, companyID)
	candidates := make([]*domain.Contact, 0, len(all))
	for _, c := range all {
		if c == nil || c.Deleted {
			continue
		}
		if carriesAny(c.SystemTags, invalid) {
			continue
		}
		candidates = append(candidates, c)
	}

	ec := &filter.EvalContext{
		Reference: reference,
		TagNames:  r.tagNames(ctx, companyID, clauses, q.TagNames),
	}
	if ec.CampaignMembers, err = r.campaignMembers(ctx, clauses); err != nil {
		return nil, err
	}

	audience := &Audience{
		Contacts:        make([]*domain.Contact, 0, len(candidates)),
		Reference:       reference,
		Logic:           logic,
		Candidates:      len(candidates),
		ExcludedInvalid: len(all) - len(candidates),
	}
	for _, c := range candidates {
		if filter.Matches(c, clauses, logic, ec) {
			audience.Contacts = append(audience.Contacts, c)
		}
	}

	if q.Trace {
		audience.Clauses = traceClauses(candidates, clauses, ec)
	}

	return audience, nil
}

func (r *AudienceResolver) invalidTagSet(ctx context.Context, companyID string) map[string]struct{} {
	if r.tags == nil {
		return nil
	}
	ids, err := r.tags.InvalidSystemTagIDs(ctx, companyID)
	if err != nil {
		r.logger.Warn("tag catalog unavailable, assuming no invalid system tags",
			zap.String("companyId", companyID),
			zap.Error(err),
		)
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// tagNames is only consulted when a tag clause is present.
func (r *AudienceResolver) tagNames(ctx context.Context, companyID string, clauses []filter.Clause, extra map[string]string) map[string]string {
	names := make(map[string]string, len(extra))
	needed := false
	for _, clause := range clauses {
		if _, ok := clause.(filter.TagClause); ok {
			needed = true
			break
		}
	}

	if needed && r.tags != nil {
		catalog, err := r.tags.TagNames(ctx, companyID)
		if err != nil {
			r.logger.Warn("tag names unavailable, matching tags by id only",
				zap.String("companyId", companyID),
				zap.Error(err),
			)
		}
		for id, name := range catalog {
			names[id] = name
		}
	}
	for id, name := range extra {
		if strings.TrimSpace(id) == "" {
			continue
		}
		names[id] = name
	}
	return names
}

func (r *AudienceResolver) campaignMembers(ctx context.Context, clauses []filter.Clause) (map[string]map[string]struct{}, error) {
	var members map[string]map[string]struct{}
	for _, clause := range clauses {
		cc, ok := clause.(filter.CampaignClause)
		if !ok {
			continue
		}
		if members == nil {
			members = make(map[string]map[string]struct{})
		}
		if _, done := members[cc.Key()]; done {
			continue
		}

		ids, err := r.messages.ContactIDsForCampaign(ctx, cc.CampaignID, cc.Statuses())
		if err != nil {
			return nil, fmt.Errorf("campaign %s members: %w", cc.CampaignID, err)
		}
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		members[cc.Key()] = set
	}
	return members, nil
}

func traceClauses(candidates []*domain.Contact, clauses []filter.Clause, ec *filter.EvalContext) []ClauseTrace {
	traces := make([]ClauseTrace, 0, len(clauses))
	for i, clause := range clauses {
		raw := clause.Raw()
		trace := ClauseTrace{Index: i, Field: raw.Field, Operator: raw.Operator, Category: raw.Category}
		for _, c := range candidates {
			if filter.Evaluate(c, clause, ec) {
				trace.Matched++
			}
		}
		traces = append(traces, trace)
	}
	return traces
}

func carriesAny(tags []string, set map[string]struct{}) bool {
	if len(set) == 0 {
		return false
	}
	for _, tag := range tags {
		if _, ok := set[tag]; ok {
			return true
		}
	}
	return false
}
