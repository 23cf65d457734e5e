package transcript

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultFilters are phrases whisper tends to hallucinate on silence.
var DefaultFilters = []string{
	`\bthanks? for watching\b`,
	`\bthank you\b`,
	`\byou\b`,
}

const trailingFiller = `[.!?,;:…\s]*`

// Cleaner removes filter phrases together with punctuation and whitespace
// that directly follows them.
type Cleaner struct {
	patterns []*regexp.Regexp
}

// NewCleaner compiles case-insensitive filters. A nil slice selects
// DefaultFilters; an empty slice disables filtering.
func NewCleaner(filters []string) (*Cleaner, error) {
	if filters == nil {
		filters = DefaultFilters
	}

	patterns := make([]*regexp.Regexp, 0, len(filters))
	for _, filter := range filters {
		filter = strings.TrimSpace(filter)
		if filter == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)(?:` + filter + `)` + trailingFiller)
		if err != nil {
			return nil, fmt.Errorf("compile filter %q: %w", filter, err)
		}
		patterns = append(patterns, re)
	}
	return &Cleaner{patterns: patterns}, nil
}

// Clean applies every filter in order and normalizes whitespace. An empty
// result means the transcript held nothing but filler.
func (c *Cleaner) Clean(text string) string {
	for _, re := range c.patterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.Join(strings.Fields(text), " ")
}
