// Package plan folds categorized expenses into a per-category budget view.
package plan

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/receipt-intake/internal/domain/categorization"
)

var hundred = decimal.NewFromInt(100)

// BudgetLine is the caller's current state for one category.
type BudgetLine struct {
	Allocated float64 `json:"allocated"`
	Spent     float64 `json:"spent"`
}

// Impact is the effect of new expenses on one budget line. Remaining may be
// negative and PercentUsed may exceed 100.
type Impact struct {
	Category      categorization.Category `json:"category"`
	Allocated     float64                 `json:"allocated"`
	PreviousSpent float64                 `json:"previousSpent"`
	Added         float64                 `json:"added"`
	NewTotal      float64                 `json:"newTotal"`
	Remaining     float64                 `json:"remaining"`
	PercentUsed   float64                 `json:"percentUsed"`
}

// CalculateImpact sums expenses per category and applies them to state.
// Only categories that received expenses appear in the result. A category
// missing from state is treated as zero allocated and zero spent.
func CalculateImpact(expenses []categorization.Expense, state map[categorization.Category]BudgetLine) map[categorization.Category]Impact {
	added := make(map[categorization.Category]decimal.Decimal)
	for _, e := range expenses {
		added[e.Category] = added[e.Category].Add(decimal.NewFromFloat(e.Amount))
	}

	result := make(map[categorization.Category]Impact, len(added))
	for category, sum := range added {
		line := state[category]
		allocated := decimal.NewFromFloat(line.Allocated)
		spent := decimal.NewFromFloat(line.Spent)

		newTotal := spent.Add(sum)
		percent := decimal.Zero
		if allocated.IsPositive() {
			percent = newTotal.Div(allocated).Mul(hundred)
		}

		result[category] = Impact{
			Category:      category,
			Allocated:     line.Allocated,
			PreviousSpent: line.Spent,
			Added:         sum.InexactFloat64(),
			NewTotal:      newTotal.InexactFloat64(),
			Remaining:     allocated.Sub(newTotal).InexactFloat64(),
			PercentUsed:   percent.Round(4).InexactFloat64(),
		}
	}
	return result
}
