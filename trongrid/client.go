// Client for the TronGrid account api, used as the ledger indexer for the
// chain poller. Transient failures (network, rate limit, 5xx) are retried a
// bounded number of times with a fixed delay; an empty or unmatched result is
// not a failure, the poller just polls again next cycle.

package trongrid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ADX777/Timelock-newbot/utils"
)

const (
	DefaultBaseURL = "https://api.trongrid.io"

	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

type Client struct {
	baseURL  string
	apiKey   string
	address  string // receiving wallet, base58
	contract string // USDT TRC20 contract address
	http     *http.Client

	maxAttempts int
	retryDelay  time.Duration

	logger *zap.Logger
}

func NewClient(baseURL, apiKey, address, contract string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		address:     address,
		contract:    contract,
		http:        &http.Client{Timeout: 15 * time.Second},
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		logger:      logger.Named("trongrid"),
	}
}

// ListTransfers fetches the most recent inbound token transfers to the
// receiving address, newest first. minTimestamp (unix ms) bounds the query so
// transfers settled before the order existed are never returned.
func (c *Client) ListTransfers(ctx context.Context, limit int, minTimestamp int64) ([]Transfer, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?only_to=true&only_confirmed=true&contract_address=%s&limit=%d",
		c.baseURL, c.address, c.contract, limit)
	if minTimestamp > 0 {
		url += fmt.Sprintf("&min_timestamp=%d", minTimestamp)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		transfers, err := c.fetch(ctx, url)
		if err == nil {
			return transfers, nil
		}
		lastErr = err
		c.logger.Warn("transfer listing failed",
			zap.Int("attempt", attempt), zap.Error(err))
		if attempt < c.maxAttempts {
			if sleepErr := utils.SleepWithContext(ctx, c.retryDelay); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	return nil, fmt.Errorf("list transfers after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) fetch(ctx context.Context, url string) ([]Transfer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trongrid status %s", resp.Status)
	}

	var result trc20Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode trongrid response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("trongrid reported failure")
	}

	transfers := make([]Transfer, 0, len(result.Data))
	for _, ev := range result.Data {
		if ev.Type != "Transfer" || ev.To != c.address {
			continue
		}
		if ev.TokenInfo.Address != c.contract {
			continue
		}
		amount, err := strconv.ParseInt(ev.Value, 10, 64)
		if err != nil {
			c.logger.Warn("unparseable transfer value",
				zap.String("tx", ev.TransactionID), zap.String("value", ev.Value))
			continue
		}
		transfers = append(transfers, Transfer{
			From:      ev.From,
			To:        ev.To,
			Amount:    amount,
			TxHash:    ev.TransactionID,
			Timestamp: ev.BlockTimestamp,
		})
	}
	return transfers, nil
}
