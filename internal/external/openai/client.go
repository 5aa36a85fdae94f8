// Package openai implements the ranker collaborator on the OpenAI chat
// completions API. Ranking is best effort: an empty pick list is a
// success, and any failure costs only this cycle's promotions.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tradia/signals/internal/contracts"
	"github.com/tradia/signals/pkg/config"
	"github.com/tradia/signals/pkg/httputil"
	"github.com/tradia/signals/pkg/logger"
)

const maxPicks = 5

const systemPrompt = `You are a disciplined equity analyst ranking intraday reversal candidates.
Given candidate stocks with detected signals, probabilities and support/resistance levels,
select at most %d tickers worth promoting and reply with ONLY a JSON array, no prose.
Each element: {"ticker": string, "rank": int starting at 1, "stars": "1"-"5",
"target_price": string, "stop_loss": string, "direction": "long"|"short",
"rationale": one concise sentence}.
Targets must be reachable within %d trading days. Reply [] if nothing qualifies.`

// Client ranks candidates via chat completions.
type Client struct {
	httpClient *httputil.Client
	log        *logger.Logger
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
}

// NewClient creates an OpenAI ranker client.
func NewClient(httpClient *httputil.Client, cfg config.OpenAIConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		log:        log,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// RankTop submits candidates and returns the model's picks. May return
// fewer picks than candidates, or none.
func (c *Client) RankTop(ctx context.Context, candidates []contracts.RankerCandidate, horizonDays int) ([]contracts.RankedPick, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai api key is not configured")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, maxPicks, horizonDays)},
			{Role: "user", Content: string(payload)},
		},
		Temperature: 0.3,
		MaxTokens:   1200,
	}

	resp, err := c.httpClient.PostJSON(ctx, c.baseURL+"/chat/completions", req, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chat completion status %d: %s", resp.StatusCode, body)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices")
	}

	picks, err := extractPicks(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(map[string]interface{}{
		"candidates": len(candidates),
		"picks":      len(picks),
	}).Info("ranker returned picks")

	return picks, nil
}

// extractPicks parses the model's reply. The prompt asks for a bare
// JSON array but models wrap output in code fences or prose often
// enough that we extract the outermost array instead of trusting the
// whole body.
func extractPicks(content string) ([]contracts.RankedPick, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in ranker reply")
	}

	var picks []contracts.RankedPick
	if err := json.Unmarshal([]byte(content[start:end+1]), &picks); err != nil {
		return nil, fmt.Errorf("parse ranker reply: %w", err)
	}

	if len(picks) > maxPicks {
		picks = picks[:maxPicks]
	}
	return picks, nil
}
