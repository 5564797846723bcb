package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSessionJSON = `{
	"scrape_job": {"id": "8f0c1f0e-7a4b-4c55-9d4f-0a1b2c3d4e5f", "status": "completed", "started_at": "2025-06-01T10:00:00Z"},
	"sellers": {},
	"products": []
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateCommand_EmbeddedSchema(t *testing.T) {
	binaryPath := getBinaryPath(t)
	jsonPath := writeTemp(t, "session.json", validSessionJSON)

	cmd := exec.Command(binaryPath, "validate", "--json", jsonPath)
	output, err := cmd.CombinedOutput()

	require.NoError(t, err, string(output))
	assert.Contains(t, string(output), "Validation passed")
}

func TestValidateCommand_SchemaFile(t *testing.T) {
	binaryPath := getBinaryPath(t)
	schemaPath := filepath.Join("..", "..", "schemas", "scrape_session.schema.json")
	jsonPath := writeTemp(t, "session.json", validSessionJSON)

	cmd := exec.Command(binaryPath, "validate", "--schema", schemaPath, "--json", jsonPath)
	output, err := cmd.CombinedOutput()

	require.NoError(t, err, string(output))
	assert.Contains(t, string(output), "Validation passed")
}

func TestValidateCommand_Failure(t *testing.T) {
	binaryPath := getBinaryPath(t)
	jsonPath := writeTemp(t, "session.json", `{"sellers": {}, "products": []}`)

	cmd := exec.Command(binaryPath, "validate", "--json", jsonPath)
	output, err := cmd.CombinedOutput()

	assert.Error(t, err, "command should fail")
	assert.Contains(t, string(output), "Validation failed")
	if exitError, ok := err.(*exec.ExitError); ok {
		assert.Equal(t, 1, exitError.ExitCode())
	}
}

func TestValidateCommand_MissingJSONFlag(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "validate")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required")
}
