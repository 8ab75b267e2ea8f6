package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseBatchStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    BatchStatus
		wantErr bool
	}{
		{name: "valid lowercase", input: "pending", want: BatchStatusPending},
		{name: "valid uppercase with spaces", input: " APPROVED ", want: BatchStatusApproved},
		{name: "invalid", input: "sending", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseBatchStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseBatchStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBatchStatusFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseBatchStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBatchStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from BatchStatus
		to   BatchStatus
		want bool
	}{
		{from: BatchStatusPending, to: BatchStatusApproved, want: true},
		{from: BatchStatusPending, to: BatchStatusExpired, want: true},
		{from: BatchStatusPending, to: BatchStatusCancelled, want: true},
		{from: BatchStatusPending, to: BatchStatusPending, want: false},
		{from: BatchStatusApproved, to: BatchStatusExpired, want: false},
		{from: BatchStatusExpired, to: BatchStatusApproved, want: false},
		{from: BatchStatusCancelled, to: BatchStatusApproved, want: false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Fatalf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestBatchScheduleCheckApprovable(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name      string
		batch     BatchSchedule
		wantErr   error
		wantClean bool
	}{
		{
			name:      "pending in the future",
			batch:     BatchSchedule{Status: BatchStatusPending, RunAt: now.UnixMilli() + 1000},
			wantClean: true,
		},
		{
			name:      "pending exactly now",
			batch:     BatchSchedule{Status: BatchStatusPending, RunAt: now.UnixMilli()},
			wantClean: true,
		},
		{
			name:    "pending in the past",
			batch:   BatchSchedule{Status: BatchStatusPending, RunAt: now.UnixMilli() - 1},
			wantErr: ErrBatchExpired,
		},
		{
			name:    "already approved",
			batch:   BatchSchedule{Status: BatchStatusApproved, RunAt: now.UnixMilli() + 1000},
			wantErr: ErrInvalidState,
		},
		{
			name:    "cancelled in the past is reported as not pending",
			batch:   BatchSchedule{Status: BatchStatusCancelled, RunAt: now.UnixMilli() - 1000},
			wantErr: ErrInvalidState,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.batch.CheckApprovable(now)
			if tt.wantClean {
				if err != nil {
					t.Fatalf("CheckApprovable() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckApprovable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBatchScheduleCheckApprovableNotPendingIsNotExpired(t *testing.T) {
	t.Parallel()

	batch := BatchSchedule{Status: BatchStatusApproved, RunAt: 0}
	err := batch.CheckApprovable(time.Now())
	if errors.Is(err, ErrBatchExpired) {
		t.Fatal("approved batch must not be reported as expired")
	}
	if err == nil || err.Error() != "invalid state: batch cannot be approved, current status = approved" {
		t.Fatalf("CheckApprovable() error = %v", err)
	}
}

func TestDeliverySettingsBounds(t *testing.T) {
	t.Parallel()

	int64Ptr := func(v int64) *int64 { return &v }

	tests := []struct {
		name     string
		settings DeliverySettings
		wantMin  int64
		wantMax  int64
	}{
		{name: "defaults", settings: DeliverySettings{}, wantMin: 20000, wantMax: 60000},
		{name: "explicit", settings: DeliverySettings{IntervalRandomMin: int64Ptr(1000), IntervalRandomMax: int64Ptr(5000)}, wantMin: 1000, wantMax: 5000},
		{name: "fixed", settings: DeliverySettings{IntervalRandomMin: int64Ptr(20000), IntervalRandomMax: int64Ptr(20000)}, wantMin: 20000, wantMax: 20000},
		{name: "min above default max", settings: DeliverySettings{IntervalRandomMin: int64Ptr(90000)}, wantMin: 90000, wantMax: 90000},
		{name: "negative ignored", settings: DeliverySettings{IntervalRandomMin: int64Ptr(-5)}, wantMin: 20000, wantMax: 60000},
	}

	for _, tt := range tests {
		lo, hi := tt.settings.Bounds()
		if lo != tt.wantMin || hi != tt.wantMax {
			t.Fatalf("%s: Bounds() = (%d, %d), want (%d, %d)", tt.name, lo, hi, tt.wantMin, tt.wantMax)
		}
	}
}

func TestParseFilterLogicFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseFilterLogicFromString(" or ")
	if err != nil || got != LogicOr {
		t.Fatalf("ParseFilterLogicFromString(or) = %s, %v", got, err)
	}

	got, err = ParseFilterLogicFromString("")
	if err != nil || got != LogicAnd {
		t.Fatalf("ParseFilterLogicFromString(\"\") = %s, %v", got, err)
	}

	_, err = ParseFilterLogicFromString("XOR")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseFilterLogicFromString(XOR) error = %v, want ErrValidation", err)
	}
}
