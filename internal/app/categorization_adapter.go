package app

import (
	"github.com/FACorreiaa/receipt-intake/internal/domain/categorization"
	importservice "github.com/FACorreiaa/receipt-intake/internal/domain/import/service"
	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
)

// expenseRecorder counts emitted expenses per category.
type expenseRecorder interface {
	Expense(category string)
}

// categorizationAdapter adapts categorization.Engine to import's Categorizer
// interface and records an expense metric per assignment.
type categorizationAdapter struct {
	engine   *categorization.Engine
	recorder expenseRecorder
}

// newCategorizationAdapter creates a new adapter. recorder may be nil.
func newCategorizationAdapter(engine *categorization.Engine, recorder expenseRecorder) importservice.Categorizer {
	return &categorizationAdapter{engine: engine, recorder: recorder}
}

// Categorize implements importservice.Categorizer
func (a *categorizationAdapter) Categorize(r receipt.Record) []categorization.Expense {
	expenses := a.engine.Categorize(r)
	if a.recorder != nil {
		for _, e := range expenses {
			a.recorder.Expense(string(e.Category))
		}
	}
	return expenses
}
