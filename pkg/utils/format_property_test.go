package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Grouping commas are the only transformation FormatMoney applies on top
// of plain two-decimal formatting.
func TestProperty_FormatMoneyGroupingPreservesDigits(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("stripping commas recovers the plain format", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatMoney(amount)
			stripped := strings.ReplaceAll(formatted, ",", "")

			want := fmt.Sprintf("$%.2f", math.Abs(amount))
			if amount < 0 {
				want = "-" + want
			}
			return stripped == want
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("comma groups are three digits wide", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatMoney(math.Abs(amount))
			integerPart := strings.TrimPrefix(formatted[:strings.Index(formatted, ".")], "$")

			groups := strings.Split(integerPart, ",")
			if len(groups[0]) < 1 || len(groups[0]) > 3 {
				return false
			}
			for _, g := range groups[1:] {
				if len(g) != 3 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 1e12),
	))

	properties.TestingRun(t)
}

func TestProperty_FormatQuantityRoundTrips(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("stripping commas recovers the integer", prop.ForAll(
		func(qty int64) bool {
			stripped := strings.ReplaceAll(FormatQuantity(qty), ",", "")
			parsed, err := strconv.ParseInt(stripped, 10, 64)
			return err == nil && parsed == qty
		},
		gen.Int64Range(-1e15, 1e15),
	))

	properties.Property("positive gains carry an explicit sign", prop.ForAll(
		func(pnl float64) bool {
			formatted := FormatPnL(pnl)
			if pnl > 0 {
				return strings.HasPrefix(formatted, "+$")
			}
			if pnl < 0 {
				return strings.HasPrefix(formatted, "-$")
			}
			return strings.HasPrefix(formatted, "$")
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}
