// Package choices implements the key/label vocabularies a ProjectType can
// define for project statuses and milestone types, including the textarea
// format admins edit them in ("key, Display Name" per line).
package choices

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Pair is a single choice: a stable key and a display label.
type Pair struct {
	Key   string
	Label string
}

// List is an ordered choice list. Its JSON form is the shape stored on the
// ProjectType row: an array of 2-element arrays, e.g. [["audit","Audit"]].
type List []Pair

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Key, p.Label})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("choice must be a [key, label] pair, got %d elements", len(raw))
	}
	p.Key, p.Label = raw[0], raw[1]
	return nil
}

// DefaultProjectStatuses is the implicit status set for projects whose type
// defines no custom choices.
var DefaultProjectStatuses = List{
	{Key: "not_started", Label: "Not Started"},
	{Key: "in_progress", Label: "In Progress"},
	{Key: "completed", Label: "Completed"},
}

// ResolveLabel returns the display label for key, comparing key and each
// choice key after trimming whitespace on both sides. When no choice
// matches, the raw key is returned unchanged. An empty list therefore also
// resolves to the raw key; no default label is ever substituted.
func ResolveLabel(list List, key string) string {
	want := strings.TrimSpace(key)
	for _, c := range list {
		if strings.TrimSpace(c.Key) == want {
			return strings.TrimSpace(c.Label)
		}
	}
	return key
}

// HasKey reports whether key (post-trim) is a defined choice.
func HasKey(list List, key string) bool {
	want := strings.TrimSpace(key)
	for _, c := range list {
		if strings.TrimSpace(c.Key) == want {
			return true
		}
	}
	return false
}

// ValidationError aggregates every problem found in a submitted choice-list
// text, so the admin sees all bad lines and duplicate keys at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Parse converts the textarea representation into a List. Each non-blank
// line is split on the first comma only, so labels may contain commas. A
// line that does not yield two non-empty trimmed parts is invalid. Keys
// must be unique (case-sensitive, exact match); all violations are
// collected into one ValidationError rather than failing on the first.
func Parse(text string) (List, error) {
	var (
		list     List
		problems []string
	)
	seen := make(map[string]bool)
	dup := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, label, found := strings.Cut(line, ",")
		key = strings.TrimSpace(key)
		label = strings.TrimSpace(label)
		if !found || key == "" || label == "" {
			problems = append(problems, fmt.Sprintf("invalid line %q, use format: key, Display Name", line))
			continue
		}
		if seen[key] && !dup[key] {
			problems = append(problems, fmt.Sprintf("duplicate key %q, each key must be unique", key))
			dup[key] = true
		}
		seen[key] = true
		list = append(list, Pair{Key: key, Label: label})
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return list, nil
}

// Format renders a List back into the textarea representation. Parsing the
// result yields the same list.
func Format(list List) string {
	lines := make([]string, 0, len(list))
	for _, c := range list {
		lines = append(lines, c.Key+", "+c.Label)
	}
	return strings.Join(lines, "\n")
}
