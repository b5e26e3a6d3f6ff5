package fieldspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techopolis/tracker/pkg/choices"
)

func TestParseSubmission(t *testing.T) {
	schema := []Descriptor{
		{Name: "severity", Type: TypeSelect, Required: true,
			Choices: choices.List{{Key: "low", Label: "Low"}, {Key: "high", Label: "High"}}},
		{Name: "verified", Type: TypeCheckbox},
		{Name: "retest_date", Type: TypeDate},
		{Name: "notes", Type: TypeTextarea},
	}

	t.Run("well-formed submission", func(t *testing.T) {
		bag, err := ParseSubmission(schema, map[string]any{
			"severity":    "high",
			"verified":    true,
			"retest_date": "2026-03-15",
			"notes":       "confirmed with NVDA",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"severity":    "high",
			"verified":    true,
			"retest_date": "2026-03-15",
			"notes":       "confirmed with NVDA",
		}, bag)
	})

	t.Run("unknown keys are dropped", func(t *testing.T) {
		bag, err := ParseSubmission(schema, map[string]any{
			"severity":   "low",
			"deprecated": "kept on old issues, never re-stored",
		})
		require.NoError(t, err)
		assert.NotContains(t, bag, "deprecated")
	})

	t.Run("type mismatches are aggregated", func(t *testing.T) {
		_, err := ParseSubmission(schema, map[string]any{
			"severity":    "high",
			"verified":    "yes",
			"retest_date": "15/03/2026",
		})
		require.Error(t, err)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Len(t, schemaErr.Problems, 2)
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := ParseSubmission(schema, map[string]any{"notes": "no severity given"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "severity")
	})

	t.Run("empty date string is treated as absent", func(t *testing.T) {
		bag, err := ParseSubmission(schema, map[string]any{
			"severity":    "low",
			"retest_date": "",
		})
		require.NoError(t, err)
		assert.NotContains(t, bag, "retest_date")
	})

	t.Run("unknown choice key is rejected", func(t *testing.T) {
		_, err := ParseSubmission(schema, map[string]any{"severity": "critical"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "critical")
	})
}
