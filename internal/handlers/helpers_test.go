package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "tok-123", extractBearerToken("Bearer tok-123"))
	assert.Equal(t, "tok-123", extractBearerToken("bearer tok-123"))
	assert.Equal(t, "tok-123", extractBearerToken("  Bearer tok-123  "))
	// A raw token without the scheme is accepted as-is.
	assert.Equal(t, "tok-123", extractBearerToken("tok-123"))
	assert.Equal(t, "", extractBearerToken(""))
	assert.Equal(t, "", extractBearerToken("   "))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, 409, "already in progress")

	assert.Equal(t, 409, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "already in progress", resp.Message)
}
