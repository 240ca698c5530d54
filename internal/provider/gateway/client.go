package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tabpay/tabpay/internal/observability/metrics"
	"github.com/tabpay/tabpay/internal/payment/domain"
	"github.com/tabpay/tabpay/internal/payment/matcher"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	initialDelay   = 1 * time.Second
)

// TransactionSource is the provider-side read surface the reconciler polls.
type TransactionSource interface {
	PollTransactions(ctx context.Context, limit int) ([]domain.ProviderTransaction, error)
	FindByReference(ctx context.Context, reference string, searchLimit int) (*domain.ProviderTransaction, error)
}

// Client talks to the bank-transfer provider's recent-transactions API.
type Client struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	log        *zap.Logger
	retryDelay time.Duration
	obsMetrics *metrics.PaymentMetrics
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		client:     &http.Client{Timeout: timeout},
		log:        log.Named("provider.gateway"),
		retryDelay: initialDelay,
	}
}

// WithMetrics attaches retry counters. A nil receiver on the metrics side is
// fine, so callers may pass whatever they were injected with.
func (c *Client) WithMetrics(m *metrics.PaymentMetrics) *Client {
	c.obsMetrics = m
	return c
}

type transactionsResponse struct {
	Status       int                `json:"status"`
	Transactions []transactionsItem `json:"transactions"`
}

type transactionsItem struct {
	ID              string `json:"id"`
	TransactionDate string `json:"transaction_date"`
	AccountNumber   string `json:"account_number"`
	AmountIn        string `json:"amount_in"`
	TransferContent string `json:"transaction_content"`
	ReferenceNumber string `json:"reference_number"`
	BankBrandName   string `json:"bank_brand_name"`
	SenderAccount   string `json:"sender_account_number"`
	SenderName      string `json:"sender_name"`
}

// PollTransactions fetches the provider's most recent incoming transfers.
func (c *Client) PollTransactions(ctx context.Context, limit int) ([]domain.ProviderTransaction, error) {
	if limit <= 0 {
		limit = 20
	}

	body, err := c.doWithRetry(ctx, fmt.Sprintf("%s/transactions/list?limit=%d", c.baseURL, limit))
	if err != nil {
		return nil, err
	}

	var parsed transactionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	out := make([]domain.ProviderTransaction, 0, len(parsed.Transactions))
	for _, item := range parsed.Transactions {
		out = append(out, item.toDomain())
	}
	return out, nil
}

// FindByReference polls recent transactions and delegates to the tiered
// matcher; it returns nil when nothing in the page correlates.
func (c *Client) FindByReference(ctx context.Context, reference string, searchLimit int) (*domain.ProviderTransaction, error) {
	txns, err := c.PollTransactions(ctx, searchLimit)
	if err != nil {
		return nil, err
	}

	match, tier := matcher.Match(reference, txns)
	if match == nil {
		return nil, nil
	}
	c.log.Debug("transaction matched",
		zap.String("reference", reference),
		zap.String("provider_transaction_id", match.ID),
		zap.String("tier", tier),
	)
	return match, nil
}

// doWithRetry issues the GET with the provider auth header, retrying
// transient failures up to maxRetries times with exponential backoff
// (1s, 2s, 4s). 4xx responses other than 429 are never retried.
func (c *Client) doWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			if rl, ok := lastErr.(*RateLimitedError); ok && rl.RetryAfter > delay {
				delay = rl.RetryAfter
			}
			c.obsMetrics.IncProviderRetry(retryReason(lastErr))
			c.log.Warn("provider request retrying",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retryable, err := c.do(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrProviderNetwork, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrProviderNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", ErrProviderServer, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("%w: status %d: %s", ErrProviderInvalidRequest, resp.StatusCode, truncate(body, 200))
	}

	return body, false, nil
}

func (t transactionsItem) toDomain() domain.ProviderTransaction {
	amount, _ := strconv.ParseFloat(strings.TrimSpace(t.AmountIn), 64)
	when, err := time.Parse("2006-01-02 15:04:05", t.TransactionDate)
	if err != nil {
		when = time.Time{}
	}
	return domain.ProviderTransaction{
		ID:                  t.ID,
		Amount:              amount,
		AccountNumber:       t.AccountNumber,
		TransferContent:     t.TransferContent,
		TransactionTime:     when,
		BankCode:            t.BankBrandName,
		SenderAccountNumber: t.SenderAccount,
		SenderName:          t.SenderName,
		ReferenceCode:       t.ReferenceNumber,
	}
}

func retryReason(err error) string {
	switch {
	case errors.Is(err, ErrProviderRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrProviderServer):
		return "server_error"
	default:
		return "network"
	}
}

func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
