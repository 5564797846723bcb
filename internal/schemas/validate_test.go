package schemas

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "count"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "count": {"type": "integer", "minimum": 0}
  }
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateJSON_ValidJSON(t *testing.T) {
	schemaPath := writeFile(t, "schema.json", testSchema)
	jsonPath := writeFile(t, "doc.json", `{"name": "seller", "count": 3}`)

	err := ValidateJSON(schemaPath, jsonPath)
	assert.NoError(t, err)
}

func TestValidateJSON_InvalidJSON_MissingField(t *testing.T) {
	schemaPath := writeFile(t, "schema.json", testSchema)
	jsonPath := writeFile(t, "doc.json", `{"name": "seller"}`)

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	require.Len(t, validationErr.Errors, 1)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidateJSON_InvalidJSON_WrongType(t *testing.T) {
	schemaPath := writeFile(t, "schema.json", testSchema)
	jsonPath := writeFile(t, "doc.json", `{"name": "seller", "count": "three"}`)

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	require.NotEmpty(t, validationErr.Errors)
	assert.Equal(t, "count", validationErr.Errors[0].Field)
}

func TestValidateJSON_NonExistentSchema(t *testing.T) {
	jsonPath := writeFile(t, "doc.json", `{}`)

	err := ValidateJSON("testdata/nonexistent_schema.json", jsonPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSON_NonExistentJSON(t *testing.T) {
	schemaPath := writeFile(t, "schema.json", testSchema)

	err := ValidateJSON(schemaPath, "testdata/nonexistent_json.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSON_MalformedJSON(t *testing.T) {
	schemaPath := writeFile(t, "schema.json", testSchema)
	jsonPath := writeFile(t, "doc.json", "{ invalid json }")

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestValidateJSONString(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantError bool
	}{
		{name: "valid", doc: `{"name": "a", "count": 0}`},
		{name: "empty name", doc: `{"name": "", "count": 0}`, wantError: true},
		{name: "negative count", doc: `{"name": "a", "count": -1}`, wantError: true},
		{name: "not an object", doc: `[]`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONString(testSchema, tt.doc)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateJSONBytes(t *testing.T) {
	assert.NoError(t, ValidateJSONBytes(testSchema, []byte(`{"name": "a", "count": 1}`)))

	err := ValidateJSONBytes(testSchema, []byte(`{"count": 1}`))
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateJSONString_InvalidSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "(string schema)", loadErr.Path)
}

func TestSchemaLoadError_Error(t *testing.T) {
	cause := errors.New("boom")
	err := &SchemaLoadError{Path: "x.json", Message: "bad", Cause: cause}
	assert.Equal(t, "failed to load schema x.json: bad: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	err = &SchemaLoadError{Path: "x.json", Message: "bad"}
	assert.Equal(t, "failed to load schema x.json: bad", err.Error())
}
