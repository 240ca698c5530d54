package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const transactionsPage = `{
	"status": 200,
	"transactions": [
		{
			"id": "9001",
			"transaction_date": "2025-11-02 10:15:30",
			"account_number": "0123456789",
			"amount_in": "250000.00",
			"transaction_content": "Chuyen tien DH1234 ok",
			"reference_number": "FT25306123456",
			"bank_brand_name": "VCB"
		},
		{
			"id": "9002",
			"transaction_date": "2025-11-02 10:16:02",
			"account_number": "0123456789",
			"amount_in": "99000",
			"transaction_content": "khong lien quan",
			"reference_number": "FT25306123457",
			"bank_brand_name": "VCB"
		}
	]
}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "apikey_test", 5*time.Second, nil)
	c.retryDelay = time.Millisecond
	return c, srv
}

func TestPollTransactionsParsesPage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer apikey_test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(transactionsPage))
	}))

	txns, err := c.PollTransactions(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	require.Equal(t, "9001", txns[0].ID)
	require.Equal(t, float64(250000), txns[0].Amount)
	require.Equal(t, "Chuyen tien DH1234 ok", txns[0].TransferContent)
	require.Equal(t, 2025, txns[0].TransactionTime.Year())
}

func TestFindByReferenceMatches(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(transactionsPage))
	}))

	match, err := c.FindByReference(context.Background(), "DH1234", 20)
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, "9001", match.ID)

	match, err = c.FindByReference(context.Background(), "DH9999", 20)
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestRetryOnServerErrorThenSuccess(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(transactionsPage))
	}))

	txns, err := c.PollTransactions(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(transactionsPage))
	}))

	_, err := c.PollTransactions(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.PollTransactions(context.Background(), 5)
	require.ErrorIs(t, err, ErrProviderInvalidRequest)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetriesExhaustedSurfacesServerError(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.PollTransactions(context.Background(), 5)
	require.ErrorIs(t, err, ErrProviderServer)
	require.Equal(t, int32(1+maxRetries), atomic.LoadInt32(&calls))
}

func TestRateLimitErrorCarriesRetryAfter(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	c.retryDelay = time.Millisecond

	_, err := c.PollTransactions(context.Background(), 5)
	require.ErrorIs(t, err, ErrProviderRateLimited)

	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
}

func TestNetworkErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close()

	c := NewClient(srv.URL, "apikey_test", time.Second, nil)
	c.retryDelay = time.Millisecond

	_, err := c.PollTransactions(context.Background(), 5)
	require.ErrorIs(t, err, ErrProviderNetwork)
}
