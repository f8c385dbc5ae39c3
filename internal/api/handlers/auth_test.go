package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dom/learnplay/internal/config"
	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Signup(t *testing.T) {
	ts := testutil.NewTestServer(t)

	tests := []struct {
		name           string
		request        map[string]string
		setup          func()
		expectedStatus int
		expectedType   string
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name: "successful signup",
			request: map[string]string{
				"fullName": "Ada Reader",
				"email":    "ada@example.com",
				"password": "password123",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result testutil.AuthResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.Equal(t, "Ada Reader", result.User.FullName)
				assert.Equal(t, "ada@example.com", result.User.Email)
				assert.NotEmpty(t, result.Token)
				assert.Equal(t, 10, result.Session.BudgetMinutes)
				assert.Equal(t, 600.0, result.Session.RemainingSeconds)

				cookie := tokenCookie(resp)
				require.NotNil(t, cookie)
				assert.Equal(t, result.Token, cookie.Value)
				assert.True(t, cookie.HttpOnly)
				assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
				assert.Equal(t, 7*24*60*60, cookie.MaxAge)
			},
		},
		{
			name: "missing full name",
			request: map[string]string{
				"email":    "b@example.com",
				"password": "password123",
			},
			expectedStatus: http.StatusBadRequest,
			expectedType:   domain.ReasonValidation,
		},
		{
			name: "duplicate email",
			request: map[string]string{
				"fullName": "Copy",
				"email":    "existing@example.com",
				"password": "password123",
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithEmail("existing@example.com").
					Save(t, ts.Repos.User)
			},
			expectedStatus: http.StatusConflict,
			expectedType:   "EMAIL_EXISTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}

			resp := ts.Do(t, http.MethodPost, "/auth/signup", "", tt.request)

			if tt.expectedType != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedType)
				return
			}
			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, password := testutil.NewUserBuilder().
		WithEmail("reader@example.com").
		Save(t, ts.Repos.User)

	t.Run("successful login", func(t *testing.T) {
		resp := ts.Do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email":    "reader@example.com",
			"password": password,
		})
		testutil.AssertStatusCode(t, resp, http.StatusOK)

		var result testutil.AuthResponse
		testutil.AssertJSONResponse(t, resp, &result)
		assert.Equal(t, user.ID.String(), result.User.ID)
		assert.NotNil(t, tokenCookie(resp))
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := ts.Do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email":    "reader@example.com",
			"password": "wrongpassword",
		})
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := ts.Do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email":    "nobody@example.com",
			"password": password,
		})
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := ts.Do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "reader@example.com"})
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, domain.ReasonValidation)
	})

	t.Run("bad body", func(t *testing.T) {
		resp := ts.Do(t, http.MethodPost, "/auth/login", "", []byte(`{"email":`))
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, domain.ReasonValidation)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, token := testutil.NewUserBuilder().WithFullName("Ada Reader").BuildAndAuthenticate(t, ts)

	t.Run("bearer credential", func(t *testing.T) {
		resp := ts.Do(t, http.MethodGet, "/auth/me", token, nil)
		testutil.AssertStatusCode(t, resp, http.StatusOK)

		var result struct {
			Success bool `json:"success"`
			User    struct {
				ID       string `json:"id"`
				FullName string `json:"fullName"`
			} `json:"user"`
		}
		testutil.AssertJSONResponse(t, resp, &result)
		assert.True(t, result.Success)
		assert.Equal(t, user.ID.String(), result.User.ID)
		assert.Equal(t, "Ada Reader", result.User.FullName)
	})

	t.Run("cookie credential", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.APIURL("/auth/me"), nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		testutil.AssertStatusCode(t, resp, http.StatusOK)
	})

	t.Run("no credential", func(t *testing.T) {
		resp := ts.Do(t, http.MethodGet, "/auth/me", "", nil)
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, domain.ReasonUnauthenticated)
	})

	t.Run("credential that is not a token", func(t *testing.T) {
		resp := ts.Do(t, http.MethodGet, "/auth/me", "not-a-token", nil)
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, domain.ReasonInvalidToken)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	resp := ts.Do(t, http.MethodPost, "/auth/logout", token, nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertTokenCookieCleared(t, resp)

	resp = ts.Do(t, http.MethodGet, "/auth/me", token, nil)
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, domain.ReasonSessionExpired)
}

func TestAuthHandler_LogoutAlwaysClearsCookie(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.WithConfig(func(c *config.Config) {
		c.SessionBudgetMinutes = 1
	}))
	_, exhausted := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	ts.Clock.Advance(2 * time.Minute)
	resp := ts.Do(t, http.MethodGet, "/session/ping", exhausted, nil)
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, domain.ReasonActiveTimeExceeded)

	tests := []struct {
		name   string
		cookie string
		bearer string
	}{
		{"no credential", "", ""},
		{"garbage cookie", "garbage", ""},
		{"garbage bearer", "", "not.a.jwt"},
		{"exhausted session", exhausted, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.APIURL("/auth/logout"), nil)
			require.NoError(t, err)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			testutil.AssertTokenCookieCleared(t, resp)
		})
	}
}

func TestAuthHandler_LogoutDoesNotChargeSession(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	claims, err := ts.Tokens.Verify(token)
	require.NoError(t, err)
	require.NotNil(t, claims.SessionID)

	ts.Clock.Advance(3 * time.Minute)
	resp := ts.Do(t, http.MethodPost, "/auth/logout", token, nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	s, err := ts.Repos.Session.Get(context.Background(), *claims.SessionID)
	require.NoError(t, err)
	assert.False(t, s.IsActive)
	assert.Zero(t, s.UsedActiveTime)
}
