package detect

import (
	"regexp"
	"sort"

	"github.com/pagemask/pagemask/internal/logger"
	"go.uber.org/zap"
)

var (
	emailPattern = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+?91[-\s]?)?[6-9]\d{9}`)
)

// DefaultRules returns the built-in detection rules in registration order.
// Order matters: when two matches start at the same offset, the earlier
// rule wins the tie.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: KindEmail, Pattern: emailPattern},
		{Kind: KindPhone, Pattern: phonePattern},
	}
}

// Matcher scans raw text for PII substrings
type Matcher struct {
	rules  []Rule
	logger *logger.Logger
}

// NewMatcher creates a matcher with the built-in rules.
func NewMatcher(log *logger.Logger) *Matcher {
	return &Matcher{
		rules:  DefaultRules(),
		logger: log,
	}
}

// Find returns every PII match in text, earliest occurrence first, ties
// broken by rule registration order. Matches of different kinds are never
// deduplicated against each other, even when their spans overlap. Malformed
// or empty text yields an empty result, never an error.
func (m *Matcher) Find(text string) []Match {
	matches := make([]Match, 0)
	if text == "" {
		return matches
	}

	for _, rule := range m.rules {
		for _, span := range rule.Pattern.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Kind:  rule.Kind,
				Text:  text[span[0]:span[1]],
				Start: span[0],
				End:   span[1],
			})
		}
	}

	// Stable sort keeps registration order for equal start offsets.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})

	if len(matches) > 0 {
		m.logger.Debug("PII matched",
			zap.Int("count", len(matches)),
		)
	}

	return matches
}
