package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalEntry_Validate(t *testing.T) {
	tests := []struct {
		name        string
		lines       []JournalLine
		expectError error
	}{
		{
			name:  "balanced two lines",
			lines: []JournalLine{DebitLine("ar", 100000), CreditLine("income", 100000)},
		},
		{
			name: "balanced split",
			lines: []JournalLine{
				DebitLine("fuel", 30000),
				DebitLine("repairs", 20000),
				CreditLine("cash", 50000),
			},
		},
		{
			name:        "single line",
			lines:       []JournalLine{DebitLine("ar", 100)},
			expectError: ErrValidation,
		},
		{
			name:        "unbalanced by a cent",
			lines:       []JournalLine{DebitLine("ar", 100000), CreditLine("income", 99999)},
			expectError: ErrIntegrity,
		},
		{
			name:        "line with both sides",
			lines:       []JournalLine{{AccountID: "ar", Debit: 5, Credit: 5}, CreditLine("income", 0)},
			expectError: ErrValidation,
		},
		{
			name:        "negative amount",
			lines:       []JournalLine{DebitLine("ar", -5), CreditLine("income", -5)},
			expectError: ErrValidation,
		},
		{
			name:        "line above maximum",
			lines:       []JournalLine{DebitLine("cash", MaxAmount+1), CreditLine("equity", MaxAmount+1)},
			expectError: ErrValidation,
		},
		{
			name:  "line at maximum",
			lines: []JournalLine{DebitLine("cash", MaxAmount), CreditLine("equity", MaxAmount)},
		},
		{
			name: "totals that would wrap to equal",
			lines: []JournalLine{
				DebitLine("cash", math.MaxInt64), DebitLine("cash", math.MaxInt64),
				DebitLine("cash", math.MaxInt64), DebitLine("cash", math.MaxInt64),
				DebitLine("cash", 4),
				CreditLine("equity", math.MaxInt64), CreditLine("equity", math.MaxInt64),
				CreditLine("equity", 2),
			},
			expectError: ErrValidation,
		},
		{
			name:        "missing account",
			lines:       []JournalLine{DebitLine("", 5), CreditLine("income", 5)},
			expectError: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &JournalEntry{Lines: tt.lines}

			err := entry.Validate()

			if tt.expectError == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.expectError), "expected %v, got %v", tt.expectError, err)
		})
	}
}

func TestJournalEntry_ReversalLines(t *testing.T) {
	entry := &JournalEntry{Lines: []JournalLine{DebitLine("expense", 85000), CreditLine("ap", 85000)}}

	reversed := &JournalEntry{Lines: entry.ReversalLines()}
	require.NoError(t, reversed.Validate())

	assert.Equal(t, Money(85000), reversed.Lines[0].Credit)
	assert.Equal(t, Money(85000), reversed.Lines[1].Debit)

	debits, credits, err := reversed.Totals()
	require.NoError(t, err)
	assert.Equal(t, debits, credits)
}

func TestJournalEntry_TotalsOverflow(t *testing.T) {
	huge := Money(math.MaxInt64)
	entry := &JournalEntry{Lines: []JournalLine{
		DebitLine("cash", huge),
		DebitLine("cash", huge),
		CreditLine("equity", 2),
	}}

	_, _, err := entry.Totals()
	assert.ErrorIs(t, err, ErrIntegrity)
}
