package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ValidateUUID validates UUID format with comprehensive checks
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}

	if len(idStr) != 36 {
		return uuid.Nil, fmt.Errorf("%s must be exactly 36 characters (including hyphens)", fieldName)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s contains invalid characters: %v", fieldName, err)
	}

	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ParsePagination reads limit/offset query values, falling back to defaultLimit
func ParsePagination(limitStr, offsetStr string, defaultLimit int) (int, int, error) {
	limit, offset := defaultLimit, 0
	var err error
	if limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return 0, 0, fmt.Errorf("limit must be an integer")
		}
	}
	if offsetStr != "" {
		if offset, err = strconv.Atoi(offsetStr); err != nil {
			return 0, 0, fmt.Errorf("offset must be an integer")
		}
	}
	return ValidatePaginationParams(limit, offset)
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		return 0, 0, fmt.Errorf("limit must be positive")
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		return 0, 0, fmt.Errorf("offset cannot be negative")
	}
	if offset > 1000000 {
		return 0, 0, fmt.Errorf("offset cannot exceed 1,000,000")
	}
	return limit, offset, nil
}
