package services

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/server/validation"
)

// BandError rejects a band token outside the catalog.
type BandError struct {
	Band string
}

func (e *BandError) Error() string {
	return validation.BandValidationError(e.Band)
}

func (e *BandError) Is(target error) bool {
	return target == common.ErrorValidation
}

// ModeError carries every mode/submode/custom-mode violation of a request.
type ModeError struct {
	Violations []string
}

func (e *ModeError) Error() string {
	return "Mode validation failed: " + strings.Join(e.Violations, ", ")
}

func (e *ModeError) Is(target error) bool {
	return target == common.ErrorValidation
}

// DuplicateError reports records that look like the one being created.
// The caller may retry with the override flag to save anyway.
type DuplicateError struct {
	ExistingIDs []string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("Potential duplicate detected (found %d similar QSO(s)). "+
		"Pass confirmDuplicate=true to save anyway. Existing IDs: %s",
		len(e.ExistingIDs), strings.Join(e.ExistingIDs, ", "))
}
