// Package ner calls the named-entity extraction service and formats its results.
package ner

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Result is one extraction outcome: an error, a no-entities message, or
// grouped entities with per-entity hit counts.
type Result struct {
	Error    string
	Message  string
	Entities map[string][]string
	Hits     map[string]int
}

// ErrorResult wraps a user-facing failure message.
func ErrorResult(msg string) Result {
	return Result{Error: msg}
}

// HasError reports whether the result carries a failure.
func (r Result) HasError() bool {
	return r.Error != ""
}

// Format renders a result as a stable, sorted block for pasting.
//
// Errors render as indented JSON. Entity labels come first in sorted order,
// one line each, followed by a hits block sorted by entity text. A result
// without entities renders as "{}".
func Format(r Result) string {
	if r.HasError() {
		return formatError(r.Error)
	}

	labels := make([]string, 0, len(r.Entities))
	for label, values := range r.Entities {
		if len(values) == 0 {
			continue
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels)+1)
	for _, label := range labels {
		values := r.Entities[label]
		quoted := make([]string, 0, len(values))
		for _, value := range values {
			quoted = append(quoted, quote(value))
		}
		parts = append(parts, quote(label)+": ["+strings.Join(quoted, ", ")+"]")
	}

	if len(r.Hits) > 0 {
		keys := make([]string, 0, len(r.Hits))
		for key := range r.Hits {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		lines := make([]string, 0, len(keys))
		for _, key := range keys {
			lines = append(lines, "    "+quote(key)+": "+itoa(r.Hits[key]))
		}
		parts = append(parts, "\"hits\": {\n"+strings.Join(lines, ",\n")+"\n  }")
	}

	if len(parts) == 0 {
		return "{}"
	}
	return "{\n  " + strings.Join(parts, ",\n  ") + "\n}"
}

func formatError(msg string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]string{"error": msg}); err != nil {
		return `{"error": "Failed to format NER error result."}`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// quote renders s as a JSON string literal without HTML escaping.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

func itoa(n int) string {
	out, _ := json.Marshal(n)
	return string(out)
}
