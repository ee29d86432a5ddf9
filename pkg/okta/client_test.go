package okta

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "test-token")
	require.NoError(t, err)
	return client, server
}

func TestNewClient_RequiresConfiguration(t *testing.T) {
	_, err := NewClient("", "token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Configuration))

	_, err = NewClient("https://example.okta.com", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Configuration))
}

func TestClient_ListPagination(t *testing.T) {
	var requests atomic.Int32
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "SSWS test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/users", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		switch r.URL.Query().Get("after") {
		case "":
			w.Header().Add("Link", fmt.Sprintf(`<%s/api/v1/users?limit=2&after=cursor-abc>; rel="next"`, serverURL(r)))
			fmt.Fprint(w, `[{"id":"00u1"},{"id":"00u2"}]`)
		case "cursor-abc":
			fmt.Fprint(w, `[{"id":"00u3"}]`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
		}
	}))
	_ = server

	pager := client.List(Resource{Kind: KindUsers}, ListOptions{Limit: 2})
	entities, window, err := CollectBounded(context.Background(), pager, 100)
	require.NoError(t, err)

	assert.Len(t, entities, 3)
	assert.False(t, window.Truncated)
	assert.Empty(t, window.NextCursor)
	assert.Equal(t, int32(2), requests.Load())
}

func serverURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestClient_ListQueryParameters(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, `status eq "ACTIVE"`, query.Get("search"))
		assert.Equal(t, "created", query.Get("sortBy"))
		assert.Equal(t, "desc", query.Get("sortOrder"))
		assert.Equal(t, "resume-here", query.Get("after"))
		fmt.Fprint(w, `[]`)
	}))

	pager := client.List(Resource{Kind: KindUsers}, ListOptions{
		Search:    `status eq "ACTIVE"`,
		SortBy:    "created",
		SortOrder: "desc",
		After:     "resume-here",
	})
	_, _, err := CollectBounded(context.Background(), pager, 10)
	require.NoError(t, err)
}

func TestClient_LogEventsSortOrder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/logs", r.URL.Path)
		assert.Equal(t, "ASCENDING", r.URL.Query().Get("sortOrder"))
		assert.Equal(t, "2025-01-01T00:00:00.000Z", r.URL.Query().Get("since"))
		fmt.Fprint(w, `[]`)
	}))

	pager := client.List(Resource{Kind: KindLogEvents}, ListOptions{
		Since:     "2025-01-01T00:00:00.000Z",
		SortOrder: "ASCENDING",
	})
	_, _, err := CollectBounded(context.Background(), pager, 10)
	require.NoError(t, err)
}

func TestClient_RateLimited(t *testing.T) {
	var requests atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"errorCode":"E0000047","errorSummary":"API call exceeded rate limit"}`)
	}))

	pager := client.List(Resource{Kind: KindUsers}, ListOptions{})
	_, _, err := CollectBounded(context.Background(), pager, 100)
	require.Error(t, err)

	coded, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.RateLimited, coded.Code)
	assert.Equal(t, 30, coded.RetryAfter)

	// While the window is open, the next call fails fast without touching
	// the remote API.
	pager = client.List(Resource{Kind: KindUsers}, ListOptions{})
	_, _, err = CollectBounded(context.Background(), pager, 100)
	require.Error(t, err)
	coded, ok = errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.RateLimited, coded.Code)
	assert.Greater(t, coded.RetryAfter, 0)
	assert.Equal(t, int32(1), requests.Load())
}

func TestClient_RateLimitWindowExpires(t *testing.T) {
	var requests atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	current := time.Now()
	client.now = func() time.Time { return current }

	pager := client.List(Resource{Kind: KindUsers}, ListOptions{})
	_, _, err := CollectBounded(context.Background(), pager, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.RateLimited))
	assert.Equal(t, int32(1), requests.Load())

	// Advance the clock past the window: the client calls out again.
	current = current.Add(10 * time.Second)
	pager = client.List(Resource{Kind: KindUsers}, ListOptions{})
	_, _, err = CollectBounded(context.Background(), pager, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.RateLimited))
	assert.Equal(t, int32(2), requests.Load())
}

func TestClient_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errorCode":"E0000007","errorSummary":"Not found: 00uMISSING"}`)
	}))

	_, err := client.Get(context.Background(), Resource{Kind: KindUsers}, "00uMISSING")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestClient_UpstreamErrorEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorCode":"E0000031","errorSummary":"The provided filter is unsupported"}`)
	}))

	pager := client.List(Resource{Kind: KindUsers}, ListOptions{Filter: "bogus"})
	_, _, err := CollectBounded(context.Background(), pager, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Upstream))
	assert.Contains(t, err.Error(), "E0000031")
	assert.Contains(t, err.Error(), "unsupported")
}

func TestClient_Get(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/00u123", r.URL.Path)
		fmt.Fprint(w, `{"id":"00u123","status":"ACTIVE"}`)
	}))

	entity, err := client.Get(context.Background(), Resource{Kind: KindUsers}, "00u123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"00u123","status":"ACTIVE"}`, string(entity))
}

func TestClient_GetPolicyRule(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/policies/00p1/rules/0pr9", r.URL.Path)
		fmt.Fprint(w, `{"id":"0pr9","type":"SIGN_ON"}`)
	}))

	entity, err := client.Get(context.Background(),
		Resource{Kind: KindPolicyRules, ParentID: "00p1"}, "0pr9")
	require.NoError(t, err)
	assert.Contains(t, string(entity), "SIGN_ON")
}

func TestClient_Cancellation(t *testing.T) {
	started := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	pager := client.List(Resource{Kind: KindUsers}, ListOptions{})
	_, _, err := CollectBounded(ctx, pager, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Cancelled))
}

func TestNextCursorFromLink(t *testing.T) {
	header := http.Header{}
	header.Add("Link", `<https://example.okta.com/api/v1/users?limit=100>; rel="self"`)
	header.Add("Link", `<https://example.okta.com/api/v1/users?limit=100&after=100u1abc>; rel="next"`)
	assert.Equal(t, "100u1abc", nextCursorFromLink(header))

	header = http.Header{}
	header.Add("Link", `<https://example.okta.com/api/v1/users?limit=100>; rel="self"`)
	assert.Empty(t, nextCursorFromLink(header))
}
