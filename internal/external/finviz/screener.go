// Package finviz scrapes the finviz screener for bullish reversal
// candlestick patterns. It is a supplemental candidate source; any
// failure only costs the extra names.
package finviz

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/tradia/signals/pkg/config"
	"github.com/tradia/signals/pkg/httputil"
	"github.com/tradia/signals/pkg/logger"
)

// reversalPatterns maps display names to finviz screener filters.
var reversalPatterns = map[string]string{
	"Hammer":            "ta_pattern_hammer",
	"Doji":              "ta_pattern_doji",
	"Double Bottom":     "ta_pattern_doublebottom",
	"Trendline Support": "ta_pattern_tl_support",
}

// tickerSelector matches the symbol links in the screener result table.
const tickerSelector = "a.screener-link-primary"

// Screener scrapes reversal-pattern tickers. Requests are throttled to
// stay polite with an unauthenticated scrape target.
type Screener struct {
	httpClient *httputil.Client
	log        *logger.Logger
	baseURL    string
	limiter    *rate.Limiter
}

// NewScreener creates a finviz screener client.
func NewScreener(httpClient *httputil.Client, cfg config.FinvizConfig, log *logger.Logger) *Screener {
	return &Screener{
		httpClient: httpClient,
		log:        log,
		baseURL:    cfg.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(1), 1), // 1 req/s
	}
}

// ReversalTickers returns the deduplicated union of tickers across all
// reversal-pattern screens, sorted for determinism. A failed pattern
// page is logged and skipped.
func (s *Screener) ReversalTickers(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	for name, filter := range reversalPatterns {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		tickers, err := s.fetchPattern(ctx, filter)
		if err != nil {
			s.log.WithError(err).WithField("pattern", name).Warn("screener pattern fetch failed")
			continue
		}
		for _, t := range tickers {
			seen[t] = true
		}
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)

	return out, nil
}

func (s *Screener) fetchPattern(ctx context.Context, filter string) ([]string, error) {
	url := fmt.Sprintf("%s/screener.ashx?v=111&f=%s", s.baseURL, filter)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// finviz rejects default Go client UAs
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse screener page: %w", err)
	}

	var tickers []string
	doc.Find(tickerSelector).Each(func(_ int, sel *goquery.Selection) {
		ticker := strings.ToUpper(strings.TrimSpace(sel.Text()))
		if len(ticker) >= 1 && len(ticker) <= 5 {
			tickers = append(tickers, ticker)
		}
	})

	return tickers, nil
}
