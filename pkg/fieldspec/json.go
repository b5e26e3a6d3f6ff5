package fieldspec

import (
	"fmt"
	"time"
)

// ParseSubmission converts a decoded JSON object into typed values using
// the schema, then builds the storage bag via SerializeValues. Keys with no
// descriptor are dropped silently; type mismatches and bad dates are
// aggregated with the serialization problems.
func ParseSubmission(schema []Descriptor, raw map[string]any) (map[string]any, error) {
	byName := make(map[string]Descriptor, len(schema))
	for _, d := range schema {
		byName[d.Name] = d
	}

	var problems []string
	submitted := make(map[string]Value, len(raw))
	for name, rawValue := range raw {
		d, ok := byName[name]
		if !ok {
			continue
		}
		value, err := valueFromJSON(d, rawValue)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		submitted[name] = value
	}
	if len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}

	return SerializeValues(schema, submitted)
}

func valueFromJSON(d Descriptor, raw any) (Value, error) {
	switch d.Type {
	case TypeCheckbox:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("field %q expects a boolean", d.Name)
		}
		return Bool(b), nil
	case TypeDate:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("field %q expects an ISO date string", d.Name)
		}
		if s == "" {
			return Date(time.Time{}), nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Value{}, fmt.Errorf("field %q has an invalid date %q", d.Name, s)
		}
		return Date(t), nil
	case TypeFile:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("field %q expects a filename", d.Name)
		}
		return FileRef(s), nil
	case TypeSelect, TypeRadio:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("field %q expects a choice key", d.Name)
		}
		return Choice(s), nil
	default:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("field %q expects text", d.Name)
		}
		return Text(s), nil
	}
}
