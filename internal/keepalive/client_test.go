package keepalive_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dom/learnplay/internal/config"
	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/keepalive"
	"github.com/dom/learnplay/internal/testutil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_LoginAndPing(t *testing.T) {
	ts := testutil.NewTestServer(t)
	testutil.NewUserBuilder().
		WithEmail("reader@example.com").
		WithPassword("password123").
		Save(t, ts.Repos.User)

	client := keepalive.New(ts.BaseURL())
	ctx := context.Background()

	status, err := client.Login(ctx, "reader@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, 10, status.BudgetMinutes)
	assert.NotEmpty(t, client.Token())

	ts.Clock.Advance(20 * time.Second)
	status, err = client.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20.0, status.UsedSeconds)
	assert.Equal(t, 580.0, status.RemainingSeconds)
}

func TestClient_LoginFailure(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client := keepalive.New(ts.BaseURL())

	_, err := client.Login(context.Background(), "nobody@example.com", "password123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestClient_RunStopsOnExpiry(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.WithConfig(func(c *config.Config) {
		c.SessionBudgetMinutes = 1
	}))
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	clientClock := clockwork.NewFakeClock()
	client := keepalive.New(ts.BaseURL(),
		keepalive.WithToken(token),
		keepalive.WithClock(clientClock),
		keepalive.WithInterval(keepalive.DefaultInterval))

	alive := make(chan keepalive.Status, 1)
	var reason string
	client.OnAlive = func(s keepalive.Status) { alive <- s }
	client.OnExpired = func(r string) { reason = r }

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	clientClock.BlockUntil(1)
	ts.Clock.Advance(15 * time.Second)
	clientClock.Advance(keepalive.DefaultInterval)

	select {
	case s := <-alive:
		assert.Equal(t, 15.0, s.UsedSeconds)
	case <-time.After(2 * time.Second):
		t.Fatal("no ping was accepted")
	}

	ts.Clock.Advance(time.Minute)
	clientClock.Advance(keepalive.DefaultInterval)

	select {
	case err := <-done:
		var expired *keepalive.ExpiredError
		require.True(t, errors.As(err, &expired))
		assert.Equal(t, domain.ReasonActiveTimeExceeded, expired.Reason)
		assert.Equal(t, domain.ReasonActiveTimeExceeded, reason)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after the session ended")
	}
}

func TestClient_RunReportsTransportErrors(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	clientClock := clockwork.NewFakeClock()
	client := keepalive.New(srv.URL, keepalive.WithToken("t"), keepalive.WithClock(clientClock))

	errs := make(chan error, 4)
	client.OnError = func(err error) { errs <- err }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	for i := 0; i < 2; i++ {
		clientClock.BlockUntil(1)
		clientClock.Advance(keepalive.DefaultInterval)
		select {
		case err := <-errs:
			assert.Contains(t, err.Error(), "status 500")
		case <-time.After(2 * time.Second):
			t.Fatal("error was not reported")
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}
