package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/evidencefetch/internal/metrics"
)

type fakeAPI struct {
	mux        *http.ServeMux
	server     *httptest.Server
	tokenCalls atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux()}
	f.mux.HandleFunc("POST /api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) client(t *testing.T, m *metrics.Collector) *Client {
	t.Helper()
	c, err := New(Config{
		ClientID:          "id",
		ClientSecret:      "secret",
		UserAgent:         "test-agent/1.0",
		Timeout:           2 * time.Second,
		RequestsPerMinute: 600000,
		Retry: RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
			Multiplier: 2,
		},
		BaseURL:  f.server.URL,
		TokenURL: f.server.URL + "/api/v1/access_token",
		Metrics:  m,
	})
	require.NoError(t, err)
	return c
}

func post(id string) thing {
	body := "body of " + id
	return thing{Kind: KindPost, Data: thingData{
		ID: id, Name: "t3_" + id, Title: "title " + id, Selftext: &body,
		Author: "someone", Subreddit: "diy", Score: 10, IsSelf: true,
		Permalink: "/r/diy/comments/" + id + "/x/",
	}}
}

func writeListing(w http.ResponseWriter, after string, children ...thing) {
	var l listing
	l.Kind = "Listing"
	l.Data.After = after
	l.Data.Children = children
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(l)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{ClientID: "id"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSearchPaging(t *testing.T) {
	api := newFakeAPI(t)
	var pages atomic.Int32
	api.mux.HandleFunc("GET /r/diy/search", func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		q := r.URL.Query()
		assert.Equal(t, "leaky faucet", q.Get("q"))
		assert.Equal(t, "1", q.Get("restrict_sr"))
		assert.Equal(t, "false", q.Get("include_over_18"))
		assert.Equal(t, "relevance", q.Get("sort"))

		switch q.Get("after") {
		case "":
			writeListing(w, "t3_b", post("a"), post("b"))
		case "t3_b":
			writeListing(w, "t3_d", post("c"), thing{Kind: KindMore}, post("d"))
		default:
			writeListing(w, "")
		}
	})

	session := api.client(t, nil).NewSession()
	defer session.Close()

	var ids []string
	for c, err := range session.Search(context.Background(), "r/DIY", "leaky faucet", 100) {
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, int32(3), pages.Load())
	assert.Equal(t, int32(1), api.tokenCalls.Load(), "token is reused")
}

func TestSearchRespectsLimitAndRestarts(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /r/diy/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		writeListing(w, "t3_c", post("a"), post("b"), post("c"))
	})

	seq := api.client(t, nil).NewSession().Search(context.Background(), "diy", "x", 2)
	for range 2 {
		var ids []string
		for c, err := range seq {
			require.NoError(t, err)
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []string{"a", "b"}, ids)
	}
}

func TestSearchRetriesThenSucceeds(t *testing.T) {
	api := newFakeAPI(t)
	var calls atomic.Int32
	api.mux.HandleFunc("GET /r/diy/search", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			writeListing(w, "", post("a"))
		}
	})

	m := metrics.NewCollector("test")
	var got []RawCandidate
	for c, err := range api.client(t, m).NewSession().Search(context.Background(), "diy", "x", 10) {
		require.NoError(t, err)
		got = append(got, c)
	}
	require.Len(t, got, 1)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Retries.WithLabelValues(EndpointSearch)))
}

func TestSearchExhaustsRetries(t *testing.T) {
	api := newFakeAPI(t)
	var calls atomic.Int32
	api.mux.HandleFunc("GET /r/diy/search", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	var errs []error
	for _, err := range api.client(t, nil).NewSession().Search(context.Background(), "diy", "x", 10) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)

	var te *TransportError
	require.True(t, errors.As(errs[0], &te))
	assert.Equal(t, EndpointSearch, te.Endpoint)
	assert.Equal(t, http.StatusServiceUnavailable, te.Status)
	assert.Equal(t, 3, te.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearchDoesNotRetryClientErrors(t *testing.T) {
	api := newFakeAPI(t)
	var calls atomic.Int32
	api.mux.HandleFunc("GET /r/diy/search", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	for _, err := range api.client(t, nil).NewSession().Search(context.Background(), "diy", "x", 10) {
		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, 1, te.Attempts)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestReplies(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /comments/abc", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "50", q.Get("limit"))
		assert.Equal(t, "1", q.Get("depth"))
		assert.Equal(t, "top", q.Get("sort"))

		body := "a helpful reply"
		comment := thing{Kind: KindComment, Data: thingData{
			ID: "c1", ParentID: "t3_abc", Body: &body, Author: "helper", Score: 12,
		}}
		var postListing, comments listing
		postListing.Data.Children = []thing{post("abc")}
		comments.Data.Children = []thing{comment, {Kind: KindMore}}
		_ = json.NewEncoder(w).Encode([]listing{postListing, comments})
	})

	replies, err := api.client(t, nil).NewSession().Replies(context.Background(), "t3_abc")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "c1", replies[0].ID)
	assert.Equal(t, "a helpful reply", *replies[0].Body)
	parent, ok := replies[0].ParentItemID()
	assert.True(t, ok)
	assert.Equal(t, "abc", parent)
}

func TestRepliesMalformed(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /comments/abc", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `[]`)
	})

	_, err := api.client(t, nil).NewSession().Replies(context.Background(), "abc")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestTokenFailureIsTransportError(t *testing.T) {
	api := newFakeAPI(t)
	c, err := New(Config{
		ClientID:          "id",
		ClientSecret:      "wrong",
		RequestsPerMinute: 600000,
		Retry:             RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
		BaseURL:           api.server.URL,
		TokenURL:          api.server.URL + "/api/v1/access_token",
	})
	require.NoError(t, err)

	_, err = c.NewSession().Replies(context.Background(), "abc")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnauthorized, te.Status)
	assert.Equal(t, 1, te.Attempts)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 3*time.Second, parseRetryAfter("3", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1", now))
	assert.Equal(t, 10*time.Second, parseRetryAfter(now.Add(10*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, attempts, err := retryWithBackoff(ctx, RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}, nil,
		func() (int, error) {
			calls++
			cancel()
			return 0, &statusError{status: 500}
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestTransportErrorMessage(t *testing.T) {
	err := &TransportError{Endpoint: EndpointSearch, Status: 503, Attempts: 4, Err: errors.New("boom")}
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), strconv.Itoa(4))
}
