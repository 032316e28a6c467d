package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is kept for the message.
const maxErrorBody = 512

// Client is an HTTP client for the provider's transactions endpoint:
//
//	GET {base}/accounts/{accountID}/transactions?count=&start_date=&end_date=
//
// authenticated with the account access token as the basic-auth user.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a provider client. A zero timeout means 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type wireTransaction struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Details     struct {
		Counterparty *struct {
			Name string `json:"name"`
		} `json:"counterparty"`
	} `json:"details"`
}

// ListTransactions fetches transactions for one account. Failures are returned
// as is; retrying is left to the caller.
func (c *Client) ListTransactions(ctx context.Context, accessToken, accountID string, opts ListOptions) ([]Transaction, error) {
	q := url.Values{}
	if opts.Count > 0 {
		q.Set("count", strconv.Itoa(opts.Count))
	}
	if !opts.StartDate.IsZero() {
		q.Set("start_date", opts.StartDate.String())
	}
	if !opts.EndDate.IsZero() {
		q.Set("end_date", opts.EndDate.String())
	}

	endpoint := fmt.Sprintf("%s/accounts/%s/transactions", c.baseURL, url.PathEscape(accountID))
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.SetBasicAuth(accessToken, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var wire []wireTransaction
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	out := make([]Transaction, 0, len(wire))
	for _, w := range wire {
		tx := Transaction{
			ID:          w.ID,
			AccountID:   w.AccountID,
			Date:        w.Date,
			Amount:      w.Amount,
			Description: w.Description,
			Status:      w.Status,
		}
		if cp := w.Details.Counterparty; cp != nil && strings.TrimSpace(cp.Name) != "" {
			name := strings.TrimSpace(cp.Name)
			tx.Counterparty = &name
		}
		out = append(out, tx)
	}
	return out, nil
}
