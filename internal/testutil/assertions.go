package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/learnplay/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies the error envelope's status and error type
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedType string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var body response.ErrorBody
	AssertJSONResponse(t, resp, &body)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, expectedType, body.ErrorType, "unexpected error type (message: %s)", body.Message)
}

// AssertTokenCookieCleared verifies the response expires the token cookie
func AssertTokenCookieCleared(t *testing.T, resp *http.Response) {
	t.Helper()

	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			assert.Empty(t, c.Value)
			assert.True(t, c.MaxAge < 0, "token cookie should be expired")
			return
		}
	}
	t.Errorf("response does not clear the token cookie")
}
