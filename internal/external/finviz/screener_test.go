package finviz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/tradia/signals/pkg/config"
	"github.com/tradia/signals/pkg/httputil"
	"github.com/tradia/signals/pkg/logger"
)

func newTestScreener(t *testing.T, handler http.Handler) *Screener {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewScreener(httputil.New(logger.NewNop()).DisableRetry(), config.FinvizConfig{
		BaseURL: srv.URL,
		Enabled: true,
	}, logger.NewNop())
	s.limiter = rate.NewLimiter(rate.Inf, 1) // no throttling in tests
	return s
}

func screenerPage(tickers ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	for _, t := range tickers {
		fmt.Fprintf(&b, `<tr><td><a class="screener-link-primary" href="quote.ashx?t=%s">%s</a></td></tr>`, t, t)
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func TestReversalTickers(t *testing.T) {
	s := newTestScreener(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("user agent = %q, want a browser UA", ua)
		}
		switch r.URL.Query().Get("f") {
		case "ta_pattern_hammer":
			fmt.Fprint(w, screenerPage("GME", "AMC"))
		case "ta_pattern_doji":
			fmt.Fprint(w, screenerPage("AMC", "TOOLONGX", "xom"))
		default:
			fmt.Fprint(w, screenerPage())
		}
	}))

	got, err := s.ReversalTickers(context.Background())
	if err != nil {
		t.Fatalf("ReversalTickers() error = %v", err)
	}

	// Union across patterns, uppercased, length-filtered, sorted.
	want := []string{"AMC", "GME", "XOM"}
	if len(got) != len(want) {
		t.Fatalf("tickers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tickers[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReversalTickers_FailedPatternSkipped(t *testing.T) {
	s := newTestScreener(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("f") == "ta_pattern_hammer" {
			fmt.Fprint(w, screenerPage("GME"))
			return
		}
		http.Error(w, "blocked", http.StatusForbidden)
	}))

	got, err := s.ReversalTickers(context.Background())
	if err != nil {
		t.Fatalf("ReversalTickers() error = %v", err)
	}
	if len(got) != 1 || got[0] != "GME" {
		t.Errorf("tickers = %v, want the surviving pattern's names", got)
	}
}
