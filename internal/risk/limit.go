// Package risk enforces trading limits and the daily circuit breaker.
package risk

import "fmt"

// Level represents the severity of a risk evaluation.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

var levelRank = map[Level]int{
	LevelLow:      0,
	LevelMedium:   1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// MaxLevel returns the more severe of two levels.
func MaxLevel(a, b Level) Level {
	if levelRank[b] > levelRank[a] {
		return b
	}
	return a
}

// Exceeds returns true if l is more severe than other.
func (l Level) Exceeds(other Level) bool {
	return levelRank[l] > levelRank[other]
}

// Limit is a named ceiling with current utilization tracking.
type Limit struct {
	Name    string
	Max     float64
	Current float64
	WarnAt  float64 // fraction of Max that triggers a HIGH warning
	Enabled bool
}

// NewLimit creates an enabled limit with the default warning threshold.
func NewLimit(name string, max float64) *Limit {
	return &Limit{
		Name:    name,
		Max:     max,
		WarnAt:  0.8,
		Enabled: true,
	}
}

// Check evaluates whether adding additional would exceed the limit.
// A non-positive Max disables the check.
func (l *Limit) Check(additional float64) (bool, Level, string) {
	if !l.Enabled {
		return true, LevelLow, "Risk control disabled"
	}

	total := l.Current + additional
	utilization := 0.0
	if l.Max > 0 {
		utilization = total / l.Max
	}

	switch {
	case utilization >= 1.0:
		return false, LevelCritical, fmt.Sprintf("%s limit exceeded: %.2f >= %.2f", l.Name, total, l.Max)
	case utilization >= l.WarnAt:
		return true, LevelHigh, fmt.Sprintf("%s approaching limit: %.1f%% used", l.Name, utilization*100)
	case utilization >= 0.5:
		return true, LevelMedium, fmt.Sprintf("%s moderate usage: %.1f%% used", l.Name, utilization*100)
	default:
		return true, LevelLow, fmt.Sprintf("%s within limits: %.1f%% used", l.Name, utilization*100)
	}
}

// Utilization returns the current fraction of the limit in use.
func (l *Limit) Utilization() float64 {
	if l.Max <= 0 {
		return 0
	}
	return l.Current / l.Max
}
