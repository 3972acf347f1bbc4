package decisions

import (
	"context"
	"strings"
	"testing"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

func TestStaticProviderFiltersToRequest(t *testing.T) {
	provider := NewStaticProvider(models.DecisionSet{
		"AAPL": {Action: models.ActionBuy, Quantity: 10, Confidence: 80},
		"TSLA": {Action: models.ActionSell, Quantity: 5},
	})

	set, err := provider.Decide(context.Background(), Request{Tickers: []string{"AAPL", "MSFT"}})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("Expected 2 decisions, got %d", len(set))
	}
	if set["AAPL"].Action != models.ActionBuy || set["AAPL"].Quantity != 10 {
		t.Errorf("AAPL decision = %+v", set["AAPL"])
	}
	if set["MSFT"].Action != models.ActionHold {
		t.Errorf("Unrequested ticker should default to hold, got %+v", set["MSFT"])
	}
	if _, ok := set["TSLA"]; ok {
		t.Error("TSLA was not requested and should not appear")
	}
}

func TestParseDecisions(t *testing.T) {
	content := `{"AAPL": {"action": "buy", "quantity": 10, "confidence": 75, "reasoning": "breakout"},
		"MSFT": {"action": "sell", "quantity": 5, "confidence": 60, "reasoning": "overbought"}}`

	set, err := parseDecisions(content, []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("parseDecisions failed: %v", err)
	}
	if set["AAPL"].Action != models.ActionBuy || set["AAPL"].Quantity != 10 || set["AAPL"].Confidence != 75 {
		t.Errorf("AAPL = %+v", set["AAPL"])
	}
	if set["AAPL"].Reasoning != "breakout" {
		t.Errorf("Reasoning = %q", set["AAPL"].Reasoning)
	}
	if set["MSFT"].Action != models.ActionSell || set["MSFT"].Quantity != 5 {
		t.Errorf("MSFT = %+v", set["MSFT"])
	}
}

func TestParseDecisionsToleratesMarkdownFences(t *testing.T) {
	content := "Here is my analysis:\n```json\n{\"AAPL\": {\"action\": \"buy\", \"quantity\": 3, \"confidence\": 50}}\n```\n"

	set, err := parseDecisions(content, []string{"AAPL"})
	if err != nil {
		t.Fatalf("parseDecisions failed: %v", err)
	}
	if set["AAPL"].Action != models.ActionBuy || set["AAPL"].Quantity != 3 {
		t.Errorf("AAPL = %+v", set["AAPL"])
	}
}

func TestParseDecisionsNormalizes(t *testing.T) {
	content := `{
		"AAPL": {"action": " BUY ", "quantity": 10, "confidence": 150},
		"MSFT": {"action": "liquidate", "quantity": 5, "confidence": -20},
		"NVDA": {"action": "sell", "quantity": -8, "confidence": 55}
	}`

	set, err := parseDecisions(content, []string{"AAPL", "MSFT", "NVDA", "TSLA"})
	if err != nil {
		t.Fatalf("parseDecisions failed: %v", err)
	}

	if set["AAPL"].Action != models.ActionBuy {
		t.Errorf("Action should be trimmed and lowercased, got %q", set["AAPL"].Action)
	}
	if set["AAPL"].Confidence != 100 {
		t.Errorf("Confidence should clamp to 100, got %v", set["AAPL"].Confidence)
	}
	if set["MSFT"].Action != models.ActionHold {
		t.Errorf("Unknown action should degrade to hold, got %q", set["MSFT"].Action)
	}
	if set["MSFT"].Confidence != 0 {
		t.Errorf("Confidence should clamp to 0, got %v", set["MSFT"].Confidence)
	}
	if set["NVDA"].Quantity != 0 {
		t.Errorf("Negative quantity should clamp to 0, got %d", set["NVDA"].Quantity)
	}
	if set["TSLA"].Action != models.ActionHold {
		t.Errorf("Omitted ticker should default to hold, got %+v", set["TSLA"])
	}
}

func TestParseDecisionsErrors(t *testing.T) {
	if _, err := parseDecisions("I would buy AAPL here.", []string{"AAPL"}); err == nil {
		t.Error("Prose without JSON should be rejected")
	}
	if _, err := parseDecisions(`{"AAPL": not json}`, []string{"AAPL"}); err == nil {
		t.Error("Malformed JSON should be rejected")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(Request{
		Tickers: []string{"MSFT", "AAPL"},
		Prices:  map[string]float64{"AAPL": 150.25},
		Account: &models.AccountInfo{Cash: 50000, BuyingPower: 75000, TotalAssets: 120000},
		Positions: []models.Position{
			{Symbol: "AAPL", Quantity: 20, AvgCost: 140, UnrealizedPnL: 205},
		},
	})

	for _, want := range []string{
		"cash 50000.00",
		"AAPL: 20 shares @ 140.00",
		"AAPL: current price 150.25",
		"MSFT: price unavailable",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q:\n%s", want, prompt)
		}
	}

	if strings.Index(prompt, "AAPL: current") > strings.Index(prompt, "MSFT: price") {
		t.Error("Tickers should be listed in sorted order")
	}
}
