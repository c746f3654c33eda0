package plan

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/FACorreiaa/receipt-intake/internal/domain/categorization"
)

// ErrInvalidBudget is returned for budget documents that cannot be used.
var ErrInvalidBudget = errors.New("invalid budget")

// Budget is the caller's state keyed by category.
type Budget map[categorization.Category]BudgetLine

// ParseBudget decodes a {category: {allocated, spent}} document. Unknown
// categories are rejected; "other" is accepted. A JSON null yields an empty
// budget.
func ParseBudget(data []byte) (Budget, error) {
	var budget Budget
	if err := json.Unmarshal(data, &budget); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBudget, err)
	}
	for category := range budget {
		if !category.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidBudget, category)
		}
	}
	if budget == nil {
		budget = Budget{}
	}
	return budget, nil
}
