package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredentialsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeCredentialsFile(t, `{
		"apiKey": "abc123",
		"authDomain": "cfgvault.example.com",
		"projectId": "cfgvault-prod",
		"appId": "1:234:web:567"
	}`)

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", creds.APIKey)
	assert.Equal(t, "cfgvault.example.com", creds.AuthDomain)
	assert.Equal(t, "cfgvault-prod", creds.ProjectID)
	assert.Equal(t, "1:234:web:567", creds.AppID)
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestLoadCredentialsInvalidJSON(t *testing.T) {
	path := writeCredentialsFile(t, `{"apiKey": `)
	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoadCredentialsMissingRequiredKeys(t *testing.T) {
	path := writeCredentialsFile(t, `{"apiKey": "abc123", "projectId": "  "}`)

	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields")
	assert.Contains(t, err.Error(), "authDomain")
	assert.Contains(t, err.Error(), "projectId")
	assert.NotContains(t, err.Error(), "apiKey")
}
