package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmycader/metermate-backend/internal/rules"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseJobsFile_YAML(t *testing.T) {
	path := writeTempFile(t, "jobs.yaml", `
- reference: J-1
  site_lat: 51.5
  site_lng: -0.12
  register_values: ["12345"]
- reference: J-2
  site_lat: 53.48
  site_lng: -2.24
  no_access_reason: "Property locked - no key access"
`)

	jobs, err := parseJobsFile(path)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "J-1", jobs[0].Reference)
	assert.Equal(t, rules.OutcomeRegisterFilled, rules.Classify(jobs[0].Data()))
	assert.Equal(t, rules.OutcomeNoAccess, rules.Classify(jobs[1].Data()))
}

func TestParseJobsFile_JSON(t *testing.T) {
	path := writeTempFile(t, "jobs.json",
		`[{"reference":"J-1","site_lat":51.5,"site_lng":-0.12,"register_values":["42"]}]`)

	jobs, err := parseJobsFile(path)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.InDelta(t, 51.5, jobs[0].SiteLat, 1e-9)
}

func TestParseJobsFile_Errors(t *testing.T) {
	_, err := parseJobsFile("missing.yaml")
	assert.Error(t, err)

	_, err = parseJobsFile(writeTempFile(t, "jobs.txt", "nope"))
	assert.Error(t, err)

	_, err = parseJobsFile(writeTempFile(t, "empty.json", "[]"))
	assert.Error(t, err)

	_, err = parseJobsFile(writeTempFile(t, "bad.yaml", "{not yaml: ["))
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "score", "report", "import"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}
