// Package rates fetches fiat exchange rates from an open.er-api.com
// style endpoint. Tables are cached per base currency so the bot can
// answer rate questions without hammering the upstream.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/cache"
	"github.com/tm-quang/bofinance-sub000/internal/config"
)

// Table holds one fetched rate snapshot. Rates map currency codes to
// the amount one unit of Base buys.
type Table struct {
	Base      string
	FetchedAt time.Time
	Rates     map[string]float64
}

// Client talks to the rate endpoint.
type Client struct {
	url   string
	base  string
	ttl   time.Duration
	http  *http.Client
	store *cache.Store
}

func NewClient(cfg config.RatesConfig, store *cache.Store) *Client {
	return &Client{
		url:   strings.TrimRight(cfg.URL, "/"),
		base:  strings.ToUpper(cfg.Base),
		ttl:   cfg.TTL(),
		http:  &http.Client{Timeout: 10 * time.Second},
		store: store,
	}
}

type latestPayload struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// Latest returns the rate table for base, served from cache while
// fresh. An empty base falls back to the configured one.
func (c *Client) Latest(ctx context.Context, base string) (*Table, error) {
	if base == "" {
		base = c.base
	}
	base = strings.ToUpper(base)

	key := cache.Key("rates", 0, base)
	return cache.Fetch(c.store, key, c.ttl, func() (*Table, error) {
		return c.fetch(ctx, base)
	})
}

func (c *Client) fetch(ctx context.Context, base string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/"+base, nil)
	if err != nil {
		return nil, apperr.E("rates.Latest", "rates", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.E("rates.Latest", "rates", fmt.Errorf("%w: %v", apperr.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.E("rates.Latest", "rates", fmt.Errorf("upstream status %d: %w", resp.StatusCode, apperr.ErrUnavailable))
	}

	var payload latestPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperr.E("rates.Latest", "rates", err)
	}
	if payload.Result != "success" || len(payload.Rates) == 0 {
		return nil, apperr.E("rates.Latest", "rates", apperr.ErrUnavailable)
	}

	return &Table{
		Base:      strings.ToUpper(payload.BaseCode),
		FetchedAt: time.Now(),
		Rates:     payload.Rates,
	}, nil
}

// Rate returns how much of `to` one unit of `from` buys.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}

	table, err := c.Latest(ctx, from)
	if err != nil {
		return 0, err
	}
	rate, ok := table.Rates[to]
	if !ok || rate <= 0 {
		return 0, apperr.Invalid("rates.Rate", "unknown currency "+to)
	}
	return rate, nil
}

// Convert rebases an amount in minor units from one currency into
// another, rounded to the nearest unit.
func (c *Client) Convert(ctx context.Context, amount int64, from, to string) (int64, error) {
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(float64(amount) * rate)), nil
}
