package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c1fapp/internal/apierr"
	"c1fapp/internal/mapping"
)

const okPayload = `[{
	"feed_label": ["Phishtank"],
	"domain": ["onedrive.live.com"],
	"description": ["Microsoft"],
	"derived": "direct",
	"address": ["https://onedrive.live.com/?authkey=%21AG7v3K%5Fv%5Fvmx0wU"],
	"ip_address": ["13.107.42.13"],
	"asn": ["-"],
	"confidence": [95],
	"country": ["US"],
	"reportime": ["2020-04-12"],
	"source": ["http://www.phishtank.com/phish_detail.php?phish_id=62", "http://www.phishtank.com/phish_detail.php?phish_id=62"],
	"assessment": ["phishing"]
}]`

func newTestClient(t *testing.T, url string, retries uint64) *Client {
	t.Helper()
	c := NewClient(Config{APIURL: url, MaxRetries: retries, Timeout: 5 * time.Second}, nil, nil)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestLookup_Success(t *testing.T) {
	var got lookupRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(okPayload))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv.URL, 0).Lookup(context.Background(), "secret", "onedrive.live.com")
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, lookupRequest{Format: "json", Backend: "es", Key: "secret", Request: "onedrive.live.com"}, got)
	rec := records[0]
	assert.Equal(t, []string{"95"}, rec[mapping.FieldConfidence])
	assert.Equal(t, []string{"Phishtank"}, rec[mapping.FieldFeedLabel])
	assert.Len(t, rec[mapping.FieldSource], 2)
}

func TestLookup_NoDataSentinel(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error status", http.StatusNotFound, "No results found"},
		{"ok status with text", http.StatusOK, "no records found for request"},
		{"empty ok body", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			records, err := newTestClient(t, srv.URL, 0).Lookup(context.Background(), "k", "a.com")
			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Empty(t, records)
		})
	}
}

func TestLookup_UnexpectedStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Invalid API key"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 3).Lookup(context.Background(), "k", "a.com")
	require.Error(t, err)

	var ue *UnexpectedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusForbidden, ue.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
	assert.Equal(t, apierr.Entry{
		Code:    apierr.CodeForbidden,
		Message: "Unexpected response from C1fApp: Invalid API key",
		Type:    apierr.TypeFatal,
	}, apierr.From(err))
}

func TestLookup_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(okPayload))
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv.URL, 3).Lookup(context.Background(), "k", "a.com")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLookup_RetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 2).Lookup(context.Background(), "k", "a.com")
	require.Error(t, err)
	assert.True(t, IsUnexpected(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, apierr.CodeUnknown, apierr.From(err).Code)
}

func TestLookup_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 0).Lookup(context.Background(), "k", "a.com")
	require.Error(t, err)
	assert.True(t, IsUnexpected(err))
}

func TestLookup_MalformedKnownField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"confidence": [{"score": 1}]}]`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 0).Lookup(context.Background(), "k", "a.com")
	require.Error(t, err)
	assert.True(t, mapping.IsDataShape(err))
}

func TestLookup_TLSVerificationFailure(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okPayload))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 3).Lookup(context.Background(), "k", "a.com")
	require.Error(t, err)
	require.True(t, IsTransportSecurity(err), "got %v", err)

	entry := apierr.From(err)
	assert.Equal(t, apierr.CodeUnknown, entry.Code)
	assert.Contains(t, entry.Message, "Unable to verify SSL certificate: ")
	assert.Contains(t, entry.Message, "x509")
}

func TestLookup_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okPayload))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, srv.URL, 3).Lookup(ctx, "k", "a.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
