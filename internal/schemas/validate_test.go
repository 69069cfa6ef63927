package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAnalysis_Valid(t *testing.T) {
	doc := `{
		"overallScore": 72,
		"atsScore": 80.5,
		"keywordScore": 60,
		"formattingScore": 70,
		"suggestions": [{"id": "s1", "title": "Add metrics", "description": "Quantify impact", "priority": "high", "category": "Content"}],
		"atsIssues": ["Tables detected"],
		"improvedText": "Jane Doe"
	}`

	assert.NoError(t, ValidateAnalysis(doc))
}

func TestValidateAnalysis_PartialIsValid(t *testing.T) {
	assert.NoError(t, ValidateAnalysis(`{"overallScore": 50}`))
	assert.NoError(t, ValidateAnalysis(`{}`))
}

func TestValidateAnalysis_TypeMismatch(t *testing.T) {
	err := ValidateAnalysis(`{"overallScore": "high", "atsIssues": [1, 2]}`)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.GreaterOrEqual(t, len(validationErr.Errors), 2)
	assert.Contains(t, err.Error(), "overallScore")
}

func TestValidateAnalysis_SuggestionWithoutTitle(t *testing.T) {
	err := ValidateAnalysis(`{"suggestions": [{"description": "no title"}]}`)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Errors[0].Field, "suggestions.0")
}

func TestValidateAnalysis_NotJSON(t *testing.T) {
	err := ValidateAnalysis(`not json`)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name": "x"}`))

	err := ValidateJSONString(schema, `{}`)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}
