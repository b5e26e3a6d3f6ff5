package fieldspec

import (
	"fmt"
	"strings"
	"time"
)

// Value is a submitted value for one dynamic field: a tagged union over the
// representations the JSON bag can hold.
type Value struct {
	kind FieldType
	text string
	flag bool
	date time.Time
}

func Text(s string) Value     { return Value{kind: TypeText, text: s} }
func Choice(key string) Value { return Value{kind: TypeSelect, text: key} }
func Bool(b bool) Value       { return Value{kind: TypeCheckbox, flag: b} }
func Date(t time.Time) Value  { return Value{kind: TypeDate, date: t} }

// FileRef names an uploaded file. Only the filename enters the bag; file
// storage is a collaborator concern.
func FileRef(filename string) Value { return Value{kind: TypeFile, text: filename} }

// bagValue is the JSON representation stored in the issue's dynamic field
// bag. Dates serialize to ISO-8601 date strings.
func (v Value) bagValue() any {
	switch v.kind {
	case TypeCheckbox:
		return v.flag
	case TypeDate:
		return v.date.Format("2006-01-02")
	default:
		return v.text
	}
}

func (v Value) isZero() bool {
	switch v.kind {
	case TypeCheckbox:
		return false // an unchecked checkbox is still a value
	case TypeDate:
		return v.date.IsZero()
	default:
		return strings.TrimSpace(v.text) == ""
	}
}

// SerializeValues builds the dynamic field bag for one submission. For
// every descriptor in the schema — except the reserved milestone and
// page_scenario names, which map to real foreign keys — the submitted value
// is pulled, type-checked against the descriptor, and stored under the
// field name. Submitted keys with no descriptor are ignored; the schema in
// force at write time is the only validator.
func SerializeValues(schema []Descriptor, submitted map[string]Value) (map[string]any, error) {
	var problems []string
	bag := make(map[string]any)

	for _, d := range schema {
		if d.Name == ReservedMilestone || d.Name == ReservedPageScenario {
			continue
		}
		v, ok := submitted[d.Name]
		if !ok || v.isZero() {
			if d.Required {
				problems = append(problems, fmt.Sprintf("field %q is required", d.Name))
			}
			continue
		}
		if err := checkValue(d, v); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		bag[d.Name] = v.bagValue()
	}

	if len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}
	return bag, nil
}

func checkValue(d Descriptor, v Value) error {
	switch d.Type {
	case TypeSelect, TypeRadio:
		if v.kind != TypeSelect && v.kind != TypeText {
			return fmt.Errorf("field %q expects a choice key", d.Name)
		}
		for _, c := range d.Choices {
			if c.Key == v.text {
				return nil
			}
		}
		return fmt.Errorf("field %q has no choice %q", d.Name, v.text)
	case TypeCheckbox:
		if v.kind != TypeCheckbox {
			return fmt.Errorf("field %q expects a boolean", d.Name)
		}
	case TypeDate:
		if v.kind != TypeDate {
			return fmt.Errorf("field %q expects a date", d.Name)
		}
	case TypeFile:
		if v.kind != TypeFile {
			return fmt.Errorf("field %q expects a file", d.Name)
		}
	default:
		if v.kind != TypeText && v.kind != TypeSelect {
			return fmt.Errorf("field %q expects text", d.Name)
		}
	}
	return nil
}
