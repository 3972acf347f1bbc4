package decisions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/ZhuOS/ai-hedge-fund/internal/logging"
	"github.com/ZhuOS/ai-hedge-fund/internal/models"
	"github.com/ZhuOS/ai-hedge-fund/pkg/utils"
)

const decisionSystemPrompt = `You are a portfolio manager making final trading decisions.
For each ticker, decide one action: buy, sell, short, cover or hold.
Respond with strict JSON only, no prose, in this exact shape:
{"TICKER": {"action": "buy", "quantity": 10, "confidence": 75, "reasoning": "..."}}
Quantities are whole shares. Confidence is 0-100. Use hold with quantity 0 when unsure.`

// LLMProvider asks an OpenAI chat model for trading decisions.
type LLMProvider struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewLLMProvider creates an LLM-backed decision provider.
func NewLLMProvider(apiKey, model string, logger zerolog.Logger) *LLMProvider {
	return &LLMProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Decide prompts the model with the current account state and parses a
// decision per ticker. Transient API failures are retried with backoff;
// tickers the model omits come back as hold.
func (p *LLMProvider) Decide(ctx context.Context, req Request) (models.DecisionSet, error) {
	if len(req.Tickers) == 0 {
		return models.DecisionSet{}, nil
	}

	resp, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() (openai.ChatCompletionResponse, error) {
		return p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: decisionSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	decisions, err := parseDecisions(resp.Choices[0].Message.Content, req.Tickers)
	if err != nil {
		return nil, err
	}

	for ticker, d := range decisions {
		logging.LogDecision(p.logger, ticker, string(d.Action), d.Quantity, d.Confidence)
	}
	return decisions, nil
}

// buildPrompt renders the account snapshot and watchlist into the user
// message. Tickers are sorted so prompts are reproducible.
func buildPrompt(req Request) string {
	var b strings.Builder

	if req.Account != nil {
		fmt.Fprintf(&b, "Account: cash %.2f, buying power %.2f, total assets %.2f\n",
			req.Account.Cash, req.Account.BuyingPower, req.Account.TotalAssets)
	}

	if len(req.Positions) > 0 {
		b.WriteString("Positions:\n")
		for _, pos := range req.Positions {
			fmt.Fprintf(&b, "  %s: %d shares @ %.2f avg cost, unrealized %.2f\n",
				pos.Symbol, pos.Quantity, pos.AvgCost, pos.UnrealizedPnL)
		}
	}

	tickers := make([]string, len(req.Tickers))
	copy(tickers, req.Tickers)
	sort.Strings(tickers)

	b.WriteString("Tickers to decide:\n")
	for _, ticker := range tickers {
		if price, ok := req.Prices[ticker]; ok {
			fmt.Fprintf(&b, "  %s: current price %.2f\n", ticker, price)
		} else {
			fmt.Fprintf(&b, "  %s: price unavailable\n", ticker)
		}
	}

	return b.String()
}

type decisionPayload struct {
	Action     string  `json:"action"`
	Quantity   int     `json:"quantity"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// parseDecisions extracts the JSON object from the model response and
// normalizes it into a decision set. Unknown actions degrade to hold.
func parseDecisions(content string, tickers []string) (models.DecisionSet, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var payload map[string]decisionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parsing decisions: %w", err)
	}

	out := make(models.DecisionSet, len(tickers))
	for _, ticker := range tickers {
		p, ok := payload[ticker]
		if !ok {
			out[ticker] = models.Decision{Action: models.ActionHold}
			continue
		}

		action := models.Action(strings.ToLower(strings.TrimSpace(p.Action)))
		if !action.Valid() {
			action = models.ActionHold
		}

		confidence := p.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 100 {
			confidence = 100
		}

		quantity := p.Quantity
		if quantity < 0 {
			quantity = 0
		}

		out[ticker] = models.Decision{
			Action:     action,
			Quantity:   quantity,
			Confidence: confidence,
			Reasoning:  p.Reasoning,
		}
	}
	return out, nil
}

// extractJSON returns the outermost JSON object in a response, tolerating
// markdown fences around it.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// Ensure LLMProvider implements Provider
var _ Provider = (*LLMProvider)(nil)
