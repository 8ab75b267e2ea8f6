package domain

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus is the lifecycle state of a scheduled batch.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusApproved  BatchStatus = "approved"
	BatchStatusExpired   BatchStatus = "expired"
	BatchStatusCancelled BatchStatus = "cancelled"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPending, BatchStatusApproved, BatchStatusExpired, BatchStatusCancelled:
		return true
	}
	return false
}

func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusApproved || s == BatchStatusExpired || s == BatchStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s. Only pending batches move.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	return s == BatchStatusPending && next.IsTerminal()
}

func ParseBatchStatusFromString(s string) (BatchStatus, error) {
	st := BatchStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid batch status %q", ErrValidation, s)
	}
	return st, nil
}

// Pacing bounds applied when a batch does not configure them.
const (
	DefaultIntervalMinMillis int64 = 20000
	DefaultIntervalMaxMillis int64 = 60000
)

// DeliverySettings controls per-recipient pacing.
type DeliverySettings struct {
	IntervalRandomMin *int64 `json:"interval_random_min,omitempty"`
	IntervalRandomMax *int64 `json:"interval_random_max,omitempty"`
}

// Bounds returns the pacing interval with defaults applied and min <= max.
func (d DeliverySettings) Bounds() (int64, int64) {
	lo, hi := DefaultIntervalMinMillis, DefaultIntervalMaxMillis
	if d.IntervalRandomMin != nil && *d.IntervalRandomMin >= 0 {
		lo = *d.IntervalRandomMin
	}
	if d.IntervalRandomMax != nil && *d.IntervalRandomMax >= 0 {
		hi = *d.IntervalRandomMax
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// BatchRecipient is one entry of a materialized recipient snapshot.
type BatchRecipient struct {
	ContactID string `json:"contact_id"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
}

// BatchSchedule is one scheduled send wave of a campaign.
type BatchSchedule struct {
	ID               string
	CompanyID        string
	CampaignID       string
	Status           BatchStatus
	RunAt            int64
	IsDynamic        bool
	ContactFilters   []FilterClause
	FilterLogic      FilterLogic
	Recipients       []BatchRecipient
	TemplateIDs      []string
	SelectedSessions []string
	DeliverySettings DeliverySettings
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RunAtTime returns the anchor as a UTC time.
func (b *BatchSchedule) RunAtTime() time.Time {
	return time.UnixMilli(b.RunAt).UTC()
}

// CheckApprovable gates every side effect of an approval. A pending batch whose
// anchor is already in the past reports ErrBatchExpired.
func (b *BatchSchedule) CheckApprovable(now time.Time) error {
	if b == nil {
		return fmt.Errorf("%w: batch is required", ErrValidation)
	}
	if b.Status != BatchStatusPending {
		return fmt.Errorf("%w: batch cannot be approved, current status = %s", ErrInvalidState, b.Status)
	}
	if b.RunAt < now.UnixMilli() {
		return ErrBatchExpired
	}
	return nil
}

// ErrBatchExpired is returned when a pending batch passed its run window. The
// caller transitions the batch to expired instead of dispatching it.
var ErrBatchExpired = fmt.Errorf("%w: batch run window has passed", ErrInvalidState)

// Campaign owns a sequence of batches.
type Campaign struct {
	ID        string
	CompanyID string
	Name      string
}
