package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sethvargo/go-retry"

	"github.com/tillworks/posedge/pkg/config"
	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
	"github.com/tillworks/posedge/pkg/types"
)

// Operation names carried in the tp form field.
const (
	opCatalog       = "get_items"
	opSiteInventory = "get_site_inventory"
	opSaveSale      = "save_sale"
	opItemBalance   = "get_item_balance"
	opHoldReasons   = "get_hold_reasons"
)

// Gateway is the surface the offline layer consumes. The concrete client
// talks form-encoded HTTP to the single backend endpoint.
type Gateway interface {
	FetchCatalog(ctx context.Context) ([]types.Item, error)
	FetchSiteInventory(ctx context.Context) ([]SiteStock, error)
	SubmitSale(ctx context.Context, uid string, payload json.RawMessage) error
	FetchItemBalance(ctx context.Context, stockID string) (BalanceResult, error)
	FetchHoldReasons(ctx context.Context) ([]string, error)
}

// SiteStock is one row of the site-wide multi-branch inventory view.
type SiteStock struct {
	StockID     string `json:"stock_id"`
	Description string `json:"description"`
	BranchCode  string `json:"branch_code"`
	Quantity    string `json:"quantity"`
}

type saleAck struct {
	UID   string `json:"uid"`
	Saved bool   `json:"saved"`
}

// Client implements Gateway against the remote commerce backend.
type Client struct {
	http *http.Client
	cfg  config.RemoteConfig
	logg *logger.Logger
}

// NewClient validates the config and builds a gateway client.
func NewClient(cfg config.RemoteConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("remote base url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid remote base url: %w", err)
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
		logg: logg,
	}, nil
}

// FetchCatalog pulls the full sellable item list.
func (c *Client) FetchCatalog(ctx context.Context) ([]types.Item, error) {
	body, err := c.post(ctx, opCatalog, nil)
	if err != nil {
		return nil, err
	}
	var items []types.Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding catalog response")
	}
	return items, nil
}

// FetchSiteInventory pulls the multi-branch stock view.
func (c *Client) FetchSiteInventory(ctx context.Context) ([]SiteStock, error) {
	body, err := c.post(ctx, opSiteInventory, nil)
	if err != nil {
		return nil, err
	}
	var rows []SiteStock
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding site inventory response")
	}
	return rows, nil
}

// SubmitSale pushes one recorded sale. The uid doubles as the idempotency
// key: the backend recognizes a retried uid as already applied.
func (c *Client) SubmitSale(ctx context.Context, uid string, payload json.RawMessage) error {
	if strings.TrimSpace(uid) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale uid is required")
	}
	body, err := c.post(ctx, opSaveSale, url.Values{
		"uid":  {uid},
		"sale": {string(payload)},
	})
	if err != nil {
		return err
	}

	var ack saleAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding sale ack")
	}
	if !ack.Saved || ack.UID != uid {
		return pkgerrors.New(pkgerrors.CodeDependency, "sale not acknowledged").
			WithDetails(map[string]any{"uid": uid, "ack_uid": ack.UID})
	}
	return nil
}

// FetchItemBalance asks for the delimited price/quantity/tax line of one item.
func (c *Client) FetchItemBalance(ctx context.Context, stockID string) (BalanceResult, error) {
	if strings.TrimSpace(stockID) == "" {
		return BalanceResult{}, pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}
	body, err := c.post(ctx, opItemBalance, url.Values{"stock_id": {stockID}})
	if err != nil {
		return BalanceResult{}, err
	}
	return ParseBalance(string(body)), nil
}

// FetchHoldReasons pulls the configured held-cart reasons.
func (c *Client) FetchHoldReasons(ctx context.Context) ([]string, error) {
	body, err := c.post(ctx, opHoldReasons, nil)
	if err != nil {
		return nil, err
	}
	var reasons []string
	if err := json.Unmarshal(body, &reasons); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding hold reasons")
	}
	return reasons, nil
}

// post issues one form-encoded request, retrying transient failures with
// fibonacci backoff. Non-2xx statuses above 499 are retryable; 4xx are not.
func (c *Client) post(ctx context.Context, op string, extra url.Values) ([]byte, error) {
	form := url.Values{
		"tp":     {op},
		"comp":   {c.cfg.CompanyPrefix},
		"branch": {c.cfg.BranchCode},
		"user":   {c.cfg.UserID},
	}
	for key, values := range extra {
		for _, value := range values {
			form.Add(key, value)
		}
	}
	encoded := form.Encode()

	backoff := retry.WithMaxRetries(c.cfg.RetryAttempts, retry.NewFibonacci(c.cfg.RetryBackoff))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(encoded))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("backend returned %d", resp.StatusCode))
		case resp.StatusCode >= 300:
			return fmt.Errorf("backend returned %d", resp.StatusCode)
		}

		body = data
		return nil
	})
	if err != nil {
		if c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "op", op), "remote call failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remote call "+op)
	}
	return body, nil
}
