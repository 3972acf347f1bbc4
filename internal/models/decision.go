package models

// Action represents an AI trading decision action.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionShort Action = "short"
	ActionCover Action = "cover"
	ActionHold  Action = "hold"
)

// Valid reports whether the action is one the execution layer understands.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionShort, ActionCover, ActionHold:
		return true
	}
	return false
}

// Decision represents the upstream engine's per-ticker instruction.
// The execution layer consumes Action and Quantity; Confidence and
// Reasoning are carried through for journaling.
type Decision struct {
	Action     Action  `json:"action"`
	Quantity   int     `json:"quantity"`
	Confidence float64 `json:"confidence"` // 0-100
	Reasoning  string  `json:"reasoning"`
}

// DecisionSet maps tickers to decisions for one trading session batch.
type DecisionSet map[string]Decision
