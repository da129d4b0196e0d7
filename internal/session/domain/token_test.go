package domain

import (
	"testing"
	"time"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	testCases := []struct {
		name         string
		expiresAt    *time.Time
		wantStatus   TokenStatus
		wantIn       *time.Duration
		needsRefresh bool
	}{
		{"absent", nil, TokenInvalid, nil, true},
		{"expired one second ago", at(-time.Second), TokenExpired, durPtr(0), true},
		{"expires exactly now", at(0), TokenExpired, durPtr(0), true},
		{"inside window", at(4 * time.Minute), TokenValid, durPtr(4 * time.Minute), true},
		{"on window boundary", at(5 * time.Minute), TokenValid, durPtr(5 * time.Minute), true},
		{"outside window", at(15 * time.Minute), TokenValid, durPtr(15 * time.Minute), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.expiresAt, now, DefaultRenewalWindow)
			if got.Status != tc.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tc.wantStatus)
			}
			if got.NeedsRefresh != tc.needsRefresh {
				t.Errorf("NeedsRefresh = %v, want %v", got.NeedsRefresh, tc.needsRefresh)
			}
			switch {
			case tc.wantIn == nil && got.ExpiresIn != nil:
				t.Errorf("ExpiresIn = %v, want nil", *got.ExpiresIn)
			case tc.wantIn != nil && (got.ExpiresIn == nil || *got.ExpiresIn != *tc.wantIn):
				t.Errorf("ExpiresIn = %v, want %v", got.ExpiresIn, *tc.wantIn)
			}
			if tc.expiresAt == nil {
				if got.ExpiresAt != nil {
					t.Errorf("ExpiresAt = %v, want nil", got.ExpiresAt)
				}
			} else if got.ExpiresAt == nil || !got.ExpiresAt.Equal(*tc.expiresAt) {
				t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, *tc.expiresAt)
			}
		})
	}
}

func TestEvaluate_DoesNotAliasInput(t *testing.T) {
	now := time.Now()
	exp := now.Add(time.Hour)
	info := Evaluate(&exp, now, time.Minute)
	exp = exp.Add(time.Hour)
	if info.ExpiresAt.Equal(exp) {
		t.Error("TokenInfo.ExpiresAt aliases the caller's value")
	}
}

func durPtr(d time.Duration) *time.Duration { return &d }
