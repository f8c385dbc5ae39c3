package api_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dom/learnplay/internal/config"
	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Health(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.BaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_CORSPreflight(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.WithConfig(func(c *config.Config) {
		c.AllowedOrigins = "http://localhost:5173"
	}))

	req, err := http.NewRequest(http.MethodOptions, ts.APIURL("/results"), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestRouter_CORSRejectsUnlistedOrigins(t *testing.T) {
	tests := []struct {
		name    string
		origins string
	}{
		{"empty list", ""},
		{"other origin listed", "http://localhost:5173"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testutil.NewTestServer(t, testutil.WithConfig(func(c *config.Config) {
				c.AllowedOrigins = tt.origins
			}))

			req, err := http.NewRequest(http.MethodOptions, ts.APIURL("/results"), nil)
			require.NoError(t, err)
			req.Header.Set("Origin", "http://evil.test")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
		})
	}
}

// Full flow against PostgreSQL: signup, play, report, exhaust the budget.
func TestRouter_PostgresFlow(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.WithPostgres(), testutil.WithConfig(func(c *config.Config) {
		c.SessionBudgetMinutes = 2
	}))
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	ts.Clock.Advance(30 * time.Second)
	resp := ts.Do(t, http.MethodPost, "/results", token, map[string]interface{}{
		"gameName":   "Bubble Pop",
		"score":      70,
		"timePlayed": 30,
		"gameData":   map[string]interface{}{"accuracy": 0.75},
	})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	ts.Clock.Advance(30 * time.Second)
	resp = ts.Do(t, http.MethodGet, "/dashboard/report/summary", token, nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var body struct {
		Summary domain.ReportSummary `json:"summary"`
	}
	testutil.AssertJSONResponse(t, resp, &body)
	assert.Equal(t, 1, body.Summary.TotalGamesPlayed)
	assert.Equal(t, 0.75, body.Summary.AverageAccuracy)

	ts.Clock.Advance(time.Minute)
	resp = ts.Do(t, http.MethodGet, "/session/ping", token, nil)
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, domain.ReasonActiveTimeExceeded)

	resp = ts.Do(t, http.MethodGet, "/session/ping", token, nil)
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, domain.ReasonSessionExpired)
}
