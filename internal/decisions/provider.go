// Package decisions produces per-ticker trading decisions for the executor.
package decisions

import (
	"context"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

// Request carries the market context handed to a provider.
type Request struct {
	Tickers   []string
	Prices    map[string]float64
	Account   *models.AccountInfo
	Positions []models.Position
}

// Provider produces a decision per ticker. Tickers without a decision are
// treated as hold.
type Provider interface {
	Decide(ctx context.Context, req Request) (models.DecisionSet, error)
}

// StaticProvider replays a fixed decision set, used for scripted sessions
// and tests.
type StaticProvider struct {
	decisions models.DecisionSet
}

// NewStaticProvider creates a provider that always returns the given set.
func NewStaticProvider(decisions models.DecisionSet) *StaticProvider {
	return &StaticProvider{decisions: decisions}
}

// Decide returns the configured decisions filtered to the requested tickers.
func (s *StaticProvider) Decide(ctx context.Context, req Request) (models.DecisionSet, error) {
	out := make(models.DecisionSet, len(req.Tickers))
	for _, ticker := range req.Tickers {
		if d, ok := s.decisions[ticker]; ok {
			out[ticker] = d
		} else {
			out[ticker] = models.Decision{Action: models.ActionHold}
		}
	}
	return out, nil
}

// Ensure StaticProvider implements Provider
var _ Provider = (*StaticProvider)(nil)
