// Package polygon implements the market data provider against the
// Polygon.io REST API. All Polygon calls in the pipeline go through
// this client.
package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tradia/signals/internal/contracts"
	"github.com/tradia/signals/pkg/config"
	"github.com/tradia/signals/pkg/httputil"
	"github.com/tradia/signals/pkg/logger"
	"github.com/tradia/signals/pkg/redis"
)

// maxReferencePages bounds the cursor walk over /v3/reference/tickers.
const maxReferencePages = 10

const pageLimit = 1000

// nameTTL is how long resolved company names stay cached. Names almost
// never change.
const nameTTL = 7 * 24 * time.Hour

// Cache is the optional lookup cache for company names.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Client talks to Polygon.io.
type Client struct {
	httpClient *httputil.Client
	log        *logger.Logger
	apiKey     string
	baseURL    string
	cache      Cache // may be nil
}

// NewClient creates a Polygon client. cache may be nil.
func NewClient(httpClient *httputil.Client, cfg config.PolygonConfig, cache Cache, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		log:        log,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		cache:      cache,
	}
}

type aggsResponse struct {
	Results []struct {
		Time   int64   `json:"t"` // ms since epoch
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Close  float64 `json:"c"`
		Volume float64 `json:"v"`
	} `json:"results"`
}

// GetOHLCV returns daily bars for the trailing window, oldest first.
func (c *Client) GetOHLCV(ctx context.Context, ticker string, days int) ([]contracts.Bar, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s",
		c.baseURL, url.PathEscape(ticker), start.Format("2006-01-02"), end.Format("2006-01-02"))
	params := url.Values{
		"adjusted": {"true"},
		"sort":     {"asc"},
		"limit":    {fmt.Sprint(days)},
	}

	var out aggsResponse
	if err := c.getJSON(ctx, endpoint, params, &out); err != nil {
		return nil, fmt.Errorf("ohlcv %s: %w", ticker, err)
	}

	bars := make([]contracts.Bar, len(out.Results))
	for i, r := range out.Results {
		bars[i] = contracts.Bar{
			Time:   time.UnixMilli(r.Time).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars, nil
}

type groupedResponse struct {
	Results []struct {
		Ticker string  `json:"T"`
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Close  float64 `json:"c"`
		Volume float64 `json:"v"`
	} `json:"results"`
}

// GetGroupedDaily returns one bar per ticker for the whole US stocks
// market on the given date. An empty result means the market was
// closed.
func (c *Client) GetGroupedDaily(ctx context.Context, date time.Time) ([]contracts.GroupedBar, error) {
	endpoint := fmt.Sprintf("%s/v2/aggs/grouped/locale/us/market/stocks/%s",
		c.baseURL, date.Format("2006-01-02"))
	params := url.Values{"adjusted": {"true"}}

	var out groupedResponse
	if err := c.getJSON(ctx, endpoint, params, &out); err != nil {
		return nil, fmt.Errorf("grouped daily %s: %w", date.Format("2006-01-02"), err)
	}

	bars := make([]contracts.GroupedBar, len(out.Results))
	for i, r := range out.Results {
		bars[i] = contracts.GroupedBar{
			Ticker: r.Ticker,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars, nil
}

type referenceResponse struct {
	Results []struct {
		Ticker          string  `json:"ticker"`
		Type            string  `json:"type"`
		MarketCap       float64 `json:"market_cap"`
		SicDescription  string  `json:"sic_description"`
		PrimaryExchange string  `json:"primary_exchange"`
	} `json:"results"`
	NextURL string `json:"next_url"`
}

// GetReferenceTickers walks the paginated reference listing for active
// US stocks. The cursor walk is bounded so a misbehaving pagination
// token cannot loop forever.
func (c *Client) GetReferenceTickers(ctx context.Context) ([]contracts.ReferenceTicker, error) {
	endpoint := c.baseURL + "/v3/reference/tickers"

	var out []contracts.ReferenceTicker
	cursor := ""

	for page := 0; page < maxReferencePages; page++ {
		params := url.Values{
			"market": {"stocks"},
			"active": {"true"},
			"limit":  {fmt.Sprint(pageLimit)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp referenceResponse
		if err := c.getJSON(ctx, endpoint, params, &resp); err != nil {
			if page == 0 {
				return nil, fmt.Errorf("reference tickers: %w", err)
			}
			// A failed later page costs coverage, not the cycle.
			c.log.WithError(err).WithField("page", page).Warn("reference page fetch failed")
			break
		}

		for _, r := range resp.Results {
			sector := r.SicDescription
			if sector == "" {
				sector = "Unknown"
			}
			out = append(out, contracts.ReferenceTicker{
				Ticker:    r.Ticker,
				Type:      r.Type,
				MarketCap: r.MarketCap,
				Sector:    sector,
				Exchange:  r.PrimaryExchange,
			})
		}

		cursor = extractCursor(resp.NextURL)
		if cursor == "" {
			break
		}
	}

	return out, nil
}

type tickerDetailsResponse struct {
	Results struct {
		Name string `json:"name"`
	} `json:"results"`
}

// GetCompanyName resolves a ticker's display name, cached for a week.
// Returns "" without error when the name is unknown.
func (c *Client) GetCompanyName(ctx context.Context, ticker string) (string, error) {
	if ticker == "" {
		return "", nil
	}

	key := redis.CompanyNameKey(ticker)
	if c.cache != nil {
		var name string
		if hit, err := c.cache.Get(ctx, key, &name); err == nil && hit {
			return name, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v3/reference/tickers/%s", c.baseURL, url.PathEscape(ticker))

	var resp tickerDetailsResponse
	if err := c.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return "", fmt.Errorf("ticker details %s: %w", ticker, err)
	}

	name := resp.Results.Name
	if name != "" && c.cache != nil {
		if err := c.cache.Set(ctx, key, name, nameTTL); err != nil {
			c.log.WithError(err).Debug("name cache write failed")
		}
	}

	return name, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, dest interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("polygon api key is not configured")
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)
	fullURL := endpoint + "?" + params.Encode()

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// extractCursor pulls the cursor token out of a Polygon next_url.
func extractCursor(nextURL string) string {
	if nextURL == "" {
		return ""
	}
	u, err := url.Parse(nextURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}
