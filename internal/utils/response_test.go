package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-events/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	utils.WriteJSON(rec, http.StatusServiceUnavailable, utils.ErrorResponse("database unavailable", "closed"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "database unavailable", resp.Message)
	assert.Equal(t, "closed", resp.Error)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestSuccessResponseOmitsError(t *testing.T) {
	raw, err := json.Marshal(utils.SuccessResponse("ok", nil))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"error"`)
	assert.NotContains(t, string(raw), `"data"`)
	assert.Contains(t, string(raw), `"success":true`)
}
