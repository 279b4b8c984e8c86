package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/rules"
	"github.com/google/uuid"
)

const (
	maxNameLength    = 255
	maxURLLength     = 2048
	maxPatternLength = 1024
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Errors is a list of validation errors usable as an error value
type Errors []ValidationError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateFeed validates a feed registration request and its rules
func ValidateFeed(feed *models.FeedCreate) Errors {
	var errs Errors

	name := strings.TrimSpace(feed.Name)
	if name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required"})
	} else if len(name) > maxNameLength {
		errs = append(errs, ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", maxNameLength)})
	}

	if feed.URL == "" {
		errs = append(errs, ValidationError{Field: "url", Message: "url is required"})
	} else if !isValidFeedURL(feed.URL) {
		errs = append(errs, ValidationError{Field: "url", Message: "url must be an absolute http(s) URL", Value: feed.URL})
	}

	seen := make(map[string]bool, len(feed.Rules))
	for i := range feed.Rules {
		errs = append(errs, ValidateRule(&feed.Rules[i], fmt.Sprintf("rules[%d]", i))...)
		if p := feed.Rules[i].Pattern; p != "" {
			if seen[p] {
				errs = append(errs, ValidationError{Field: fmt.Sprintf("rules[%d].pattern", i), Message: "duplicate pattern", Value: p})
			}
			seen[p] = true
		}
	}

	return errs
}

// ValidateRule validates one rule; prefix names the field path in messages
func ValidateRule(rule *models.RuleCreate, prefix string) Errors {
	var errs Errors
	field := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	if strings.TrimSpace(rule.Name) == "" {
		errs = append(errs, ValidationError{Field: field("name"), Message: "name is required"})
	} else if len(rule.Name) > maxNameLength {
		errs = append(errs, ValidationError{Field: field("name"), Message: fmt.Sprintf("name must be at most %d characters", maxNameLength)})
	}

	switch {
	case rule.Pattern == "":
		errs = append(errs, ValidationError{Field: field("pattern"), Message: "pattern is required"})
	case len(rule.Pattern) > maxPatternLength:
		errs = append(errs, ValidationError{Field: field("pattern"), Message: fmt.Sprintf("pattern must be at most %d characters", maxPatternLength)})
	default:
		if err := rules.Validate(rule.Pattern); err != nil {
			errs = append(errs, ValidationError{Field: field("pattern"), Message: "pattern does not compile", Value: rule.Pattern})
		}
	}

	return errs
}

// ValidateJobStatus accepts an empty status (no filter) or a known one
func ValidateJobStatus(status string) Errors {
	if status == "" || models.ValidJobStatuses[models.JobStatus(status)] {
		return nil
	}
	return Errors{{Field: "status", Message: "invalid status", Value: status}}
}

// ValidateID validates a resource identifier
func ValidateID(id string) Errors {
	if !IsValidUUID(id) {
		return Errors{{Field: "id", Message: "invalid UUID format", Value: id}}
	}
	return nil
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func isValidFeedURL(s string) bool {
	if len(s) > maxURLLength {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}
