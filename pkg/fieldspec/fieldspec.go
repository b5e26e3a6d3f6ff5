// Package fieldspec materializes the per-ProjectType issue field schema:
// a JSON list of field descriptors that drives form generation at request
// time and value serialization into the issue's dynamic field bag.
package fieldspec

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/techopolis/tracker/pkg/choices"
)

// FieldType is the input kind of a dynamic field.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeSelect   FieldType = "select"
	TypeCheckbox FieldType = "checkbox"
	TypeRadio    FieldType = "radio"
	TypeDate     FieldType = "date"
	TypeFile     FieldType = "file"
)

var validTypes = []FieldType{
	TypeText, TypeTextarea, TypeSelect, TypeCheckbox, TypeRadio, TypeDate, TypeFile,
}

// Reserved descriptor names that map to real issue columns instead of the
// JSON bag.
const (
	ReservedMilestone    = "milestone"
	ReservedPageScenario = "page_scenario"
)

// Descriptor is one entry of a ProjectType's issue_fields schema, exactly
// as stored in its JSON column.
type Descriptor struct {
	Name     string       `json:"name"`
	Type     FieldType    `json:"type"`
	Required bool         `json:"required"`
	Choices  choices.List `json:"choices,omitempty"`
	Label    string       `json:"label,omitempty"`
	HelpText string       `json:"help_text,omitempty"`
}

// Field is a materialized input spec, ready for form rendering.
type Field struct {
	Name     string       `json:"name"`
	Type     FieldType    `json:"type"`
	Required bool         `json:"required"`
	Choices  choices.List `json:"choices,omitempty"`
	Label    string       `json:"label"`
	HelpText string       `json:"helpText,omitempty"`
}

// DefaultLabel derives a display label from a field name: underscores
// become spaces and each word is title-cased.
func DefaultLabel(name string) string {
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Materialize turns one descriptor into a typed input spec. The descriptor
// is invalid when its name is empty, its type is unknown, or a select/radio
// field carries no choices.
func Materialize(d Descriptor) (Field, error) {
	if strings.TrimSpace(d.Name) == "" {
		return Field{}, fmt.Errorf("field descriptor has no name")
	}
	if !lo.Contains(validTypes, d.Type) {
		return Field{}, fmt.Errorf("field %q has unknown type %q", d.Name, d.Type)
	}
	if (d.Type == TypeSelect || d.Type == TypeRadio) && len(d.Choices) == 0 {
		return Field{}, fmt.Errorf("field %q of type %s requires a non-empty choices list", d.Name, d.Type)
	}
	label := d.Label
	if label == "" {
		label = DefaultLabel(d.Name)
	}
	return Field{
		Name:     d.Name,
		Type:     d.Type,
		Required: d.Required,
		Choices:  d.Choices,
		Label:    label,
		HelpText: d.HelpText,
	}, nil
}

// SchemaError aggregates every invalid descriptor in a schema.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// MaterializeAll materializes a whole schema, collecting all invalid
// descriptors (and duplicate field names) into one SchemaError so the
// admin form can show every problem at once.
func MaterializeAll(schema []Descriptor) ([]Field, error) {
	var (
		fields   []Field
		problems []string
	)
	seen := make(map[string]bool)
	for _, d := range schema {
		f, err := Materialize(d)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if seen[d.Name] {
			problems = append(problems, fmt.Sprintf("duplicate field name %q", d.Name))
			continue
		}
		seen[d.Name] = true
		fields = append(fields, f)
	}
	if len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}
	return fields, nil
}
