package pricing

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrRuleNotFound     = errors.New("pricing: rule not found")
	ErrProductNotFound  = errors.New("pricing: product not found")
	ErrInvalidRule      = errors.New("pricing: invalid rule")
	ErrInvalidInput     = errors.New("pricing: invalid input")
	ErrPriorityConflict = errors.New("pricing: another active rule already uses this priority")
	ErrUnknownCondition = errors.New("pricing: unknown condition type")
	ErrUnknownAction    = errors.New("pricing: unknown action type")
	ErrUpstream         = errors.New("pricing: store unavailable")
)

// ValidationError maps field names to human readable problems.
type ValidationError url.Values

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if msgs := e[field]; len(msgs) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msgs[0]))
		}
	}
	return "validation error: " + strings.Join(parts, ", ")
}

// Is makes every ValidationError match ErrInvalidInput.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add records message for field.
func (e ValidationError) Add(field, message string) {
	url.Values(e).Add(field, message)
}

// Get returns the first message for field.
func (e ValidationError) Get(field string) string {
	return url.Values(e).Get(field)
}

// IsEmpty reports whether no field failed.
func (e ValidationError) IsEmpty() bool {
	return len(e) == 0
}

func (e ValidationError) merge(prefix string, other ValidationError) {
	for field, msgs := range other {
		for _, msg := range msgs {
			e.Add(prefix+field, msg)
		}
	}
}

func (e ValidationError) errOrNil() error {
	if e.IsEmpty() {
		return nil
	}
	return e
}
