package calculator

import (
	"errors"
	"math"
	"testing"
)

func TestSplitEqually(t *testing.T) {
	tests := []struct {
		name         string
		amount       float64
		participants []string
		wantErr      bool
		validateFunc func(t *testing.T, shares []Share)
	}{
		{
			name:         "three people split evenly",
			amount:       90.0,
			participants: []string{"Alice", "Bob", "Charlie"},
			validateFunc: func(t *testing.T, shares []Share) {
				if len(shares) != 3 {
					t.Fatalf("got %d shares, want 3", len(shares))
				}
				for _, s := range shares {
					if math.Abs(s.Amount-30.0) > 1e-9 {
						t.Errorf("%s share = %v, want 30.0", s.MemberID, s.Amount)
					}
				}
			},
		},
		{
			name:         "order of participants is kept",
			amount:       10.0,
			participants: []string{"Zoe", "Adam"},
			validateFunc: func(t *testing.T, shares []Share) {
				if shares[0].MemberID != "Zoe" || shares[1].MemberID != "Adam" {
					t.Errorf("unexpected order: %+v", shares)
				}
			},
		},
		{
			name:         "uneven amount is not rounded",
			amount:       100.0,
			participants: []string{"Alice", "Bob", "Charlie"},
			validateFunc: func(t *testing.T, shares []Share) {
				var sum float64
				for _, s := range shares {
					sum += s.Amount
					if s.Amount == 33.33 {
						t.Errorf("share was rounded to cents: %v", s.Amount)
					}
				}
				if math.Abs(sum-100.0) > 1e-9 {
					t.Errorf("shares sum to %v, want 100", sum)
				}
			},
		},
		{
			name:         "single participant takes everything",
			amount:       50.0,
			participants: []string{"Alice"},
			validateFunc: func(t *testing.T, shares []Share) {
				if shares[0].Amount != 50.0 {
					t.Errorf("share = %v, want 50", shares[0].Amount)
				}
			},
		},
		{
			name:         "no participants should error",
			amount:       10.0,
			participants: []string{},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := SplitEqually(tt.amount, tt.participants)
			if (err != nil) != tt.wantErr {
				t.Errorf("SplitEqually() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidExpense) {
				t.Errorf("error = %v, want ErrInvalidExpense", err)
			}
			if !tt.wantErr && tt.validateFunc != nil {
				tt.validateFunc(t, shares)
			}
		})
	}
}
