package domain

import (
	"fmt"
	"strings"
)

// Validation constants
const (
	MaxNameLength = 255
	MinNameLength = 1
	MaxMemoLength = 1024
	MaxLineCount  = 500

	// MaxAmount caps a single document, payment or line at ten billion.
	MaxAmount Money = 1_000_000_000_000
)

// ValidateName validates a display name such as an account or payee name.
func ValidateName(entity, name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinNameLength {
		return NewValidationError(entity, "name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return NewValidationError(entity, fmt.Sprintf("name exceeds %d characters", MaxNameLength))
	}

	return nil
}

// ValidateAmount validates a positive monetary amount.
func ValidateAmount(entity string, amount Money) error {
	if !amount.IsPositive() {
		return NewValidationError(entity, "amount must be positive")
	}

	if amount > MaxAmount {
		return NewValidationError(entity, fmt.Sprintf("amount exceeds maximum of %s", MaxAmount))
	}

	return nil
}

// ValidateMemo validates free-text memo length.
func ValidateMemo(entity, memo string) error {
	if len(memo) > MaxMemoLength {
		return NewValidationError(entity, fmt.Sprintf("memo exceeds %d characters", MaxMemoLength))
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
