// Package coingecko is a client of the CoinGecko public market data API.
//
// It implements the catalog and live price sources of a coinfolio.Tracker.
package coingecko

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/coinfolio"
	"github.com/etnz/coinfolio/metrics"
	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultBaseURL is the public CoinGecko API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Options configure a Client. Zero values are replaced by defaults.
type Options struct {
	BaseURL  string
	Currency string // vs currency, default "usd"
	// APIKey is an optional demo API key.
	APIKey string
	// Timeout of a single request, default 10s.
	Timeout time.Duration
	// RequestsPerMinute and Burst configure the client side rate limit,
	// default 10 per minute with bursts of 3.
	RequestsPerMinute int
	Burst             int
	// CatalogSize is the number of coins listed, by market cap, default 100.
	CatalogSize int
	// QuoteTTL is how long a live price is reused, default 10s. Negative disables the cache.
	QuoteTTL time.Duration
	// DiskCache enables the daily disk cache for the catalog, in CacheDir.
	DiskCache bool
	CacheDir  string
	Transport http.RoundTripper
	Log       logrus.FieldLogger
}

// Client reads the CoinGecko API.
type Client struct {
	base     string
	currency string
	apiKey   string
	size     int

	http    *http.Client // live prices
	catalog *http.Client // catalog, possibly disk cached
	limiter *rate.Limiter
	quotes  *cache.Cache // coin id -> coinfolio.Quote
	log     logrus.FieldLogger
}

// New creates a client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 3
	}
	if opts.CatalogSize <= 0 {
		opts.CatalogSize = 100
	}
	if opts.QuoteTTL == 0 {
		opts.QuoteTTL = 10 * time.Second
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	log := opts.Log.WithField("component", "coingecko")

	c := &Client{
		base:     strings.TrimSuffix(opts.BaseURL, "/"),
		currency: strings.ToLower(opts.Currency),
		apiKey:   opts.APIKey,
		size:     opts.CatalogSize,
		http:     &http.Client{Transport: opts.Transport, Timeout: opts.Timeout},
		catalog:  &http.Client{Transport: opts.Transport, Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), opts.Burst),
		log:      log,
	}
	if opts.QuoteTTL > 0 {
		c.quotes = cache.New(opts.QuoteTTL, time.Minute)
	}
	if opts.DiskCache {
		dir := opts.CacheDir
		if dir == "" {
			dir = defaultCacheDir()
		}
		c.catalog.Transport = &diskCache{base: opts.Transport, dir: dir, now: time.Now, log: log}
	}
	return c
}

// Currency returns the currency prices are quoted in.
func (c *Client) Currency() string { return strings.ToUpper(c.currency) }

// Markets lists the top coins by market cap.
func (c *Client) Markets(ctx context.Context) (*coinfolio.Catalog, error) {
	q := url.Values{}
	q.Set("vs_currency", c.currency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.size))
	q.Set("page", "1")
	q.Set("sparkline", "false")

	coins := make([]coinfolio.Coin, 0, c.size)
	if err := c.get(ctx, c.catalog, "/coins/markets", q, &coins); err != nil {
		return nil, fmt.Errorf("%w: %v", coinfolio.ErrNetwork, err)
	}
	return coinfolio.NewCatalog(c.currency, coins...), nil
}

// SimplePrice fetches the live price and 24h change of coins 'ids'.
//
// Coins unknown to the API are missing from the snapshot.
func (c *Client) SimplePrice(ctx context.Context, ids []string) (coinfolio.Snapshot, error) {
	snap := coinfolio.NewSnapshot(c.currency, time.Now())

	var missing []string
	for _, id := range ids {
		if q, ok := c.cached(id); ok {
			snap.Quotes[id] = q
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return snap, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(missing, ","))
	q.Set("vs_currencies", c.currency)
	q.Set("include_24hr_change", "true")

	// {"bitcoin":{"usd":35000,"usd_24h_change":2.5}}
	content := make(map[string]map[string]float64)
	if err := c.get(ctx, c.http, "/simple/price", q, &content); err != nil {
		return coinfolio.Snapshot{}, fmt.Errorf("%w: %v", coinfolio.ErrNetwork, err)
	}
	for id, fields := range content {
		price, ok := fields[c.currency]
		if !ok {
			continue
		}
		quote := coinfolio.Quote{
			Price:     coinfolio.M(price, c.currency),
			Change24h: coinfolio.Percent(fields[c.currency+"_24h_change"]),
		}
		snap.Quotes[id] = quote
		if c.quotes != nil {
			c.quotes.SetDefault(id, quote)
		}
	}
	return snap, nil
}

func (c *Client) cached(id string) (coinfolio.Quote, bool) {
	if c.quotes == nil {
		return coinfolio.Quote{}, false
	}
	v, ok := c.quotes.Get(id)
	if !ok {
		return coinfolio.Quote{}, false
	}
	metrics.QuoteCacheHits.Inc()
	return v.(coinfolio.Quote), true
}

// get performs a rate limited HTTP GET request on 'endpoint' and unmarshals
// the JSON response body into 'data'.
func (c *Client) get(ctx context.Context, client *http.Client, endpoint string, query url.Values, data any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.APIRequestDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	metrics.APIRequestDuration.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"endpoint": endpoint, "status": resp.StatusCode}).Debug("GET")

	if resp.StatusCode != http.StatusOK {
		if msg := errorMessage(body); msg != "" {
			return fmt.Errorf("cannot http GET %s: %s: %s", endpoint, resp.Status, msg)
		}
		return fmt.Errorf("cannot http GET %s: %s", endpoint, resp.Status)
	}
	if err := json.Unmarshal(body, data); err != nil {
		return fmt.Errorf("cannot parse %s response: %w", endpoint, err)
	}
	return nil
}

// errorMessage extracts the error message from a CoinGecko error body.
//
// CoinGecko uses either {"status":{"error_code":429,"error_message":"..."}}
// or {"error":"..."}.
func errorMessage(body []byte) string {
	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return ""
	}
	for _, path := range []string{"$.status.error_message", "$.error"} {
		jval, err := jsonpath.Get(path, jobj)
		if err != nil {
			continue
		}
		// jsonpath may return a list of 1 answer
		if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
			jval = jlist[0]
		}
		if s, ok := jval.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
