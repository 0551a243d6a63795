package models

import (
	"strings"
	"time"

	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

// ParseDay parses YYYY-MM-DD. An empty string yields nil.
func ParseDay(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, field+" must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}
