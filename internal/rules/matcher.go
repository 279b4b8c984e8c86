// Package rules decides which rules a piece of text satisfies.
package rules

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/cryptomonitor/internal/models"
	"github.com/rs/zerolog"
)

// Matcher tests text against rule patterns. A pattern matches only when it
// matches starting at the first character of the text; patterns that want a
// match anywhere must begin with a wildcard span such as ".*".
// Compiled patterns are cached and the Matcher is safe for concurrent use.
type Matcher struct {
	cache sync.Map // pattern -> *compiled
	log   zerolog.Logger
}

type compiled struct {
	re  *regexp.Regexp
	err error
}

// NewMatcher creates a Matcher
func NewMatcher(log zerolog.Logger) *Matcher {
	return &Matcher{log: log.With().Str("component", "matcher").Logger()}
}

// Match returns the rules whose pattern matches body, in input order.
// A pattern that does not compile never matches.
func (m *Matcher) Match(rules []models.Rule, body string) []models.Rule {
	var matched []models.Rule
	for _, rule := range rules {
		c := m.compile(rule.Pattern)
		if c.err != nil {
			m.log.Warn().Err(c.err).Str("rule", rule.Name).Msg("Skipping rule with invalid pattern")
			continue
		}
		if c.re.MatchString(body) {
			matched = append(matched, rule)
		}
	}
	return matched
}

func (m *Matcher) compile(pattern string) *compiled {
	if v, ok := m.cache.Load(pattern); ok {
		return v.(*compiled)
	}
	re, err := anchored(pattern)
	v, _ := m.cache.LoadOrStore(pattern, &compiled{re: re, err: err})
	return v.(*compiled)
}

// Validate reports whether pattern is usable as a rule
func Validate(pattern string) error {
	_, err := anchored(pattern)
	return err
}

// anchored compiles pattern on its own first. Only a pattern that is valid by
// itself is wrapped, so an unbalanced ")" cannot close the anchoring group.
func anchored(pattern string) (*regexp.Regexp, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}
