package batch

import (
	"fmt"
	"sync"

	"github.com/adalundhe/glossforge/core/errors"
)

// CostLedger is the running spend accumulator shared by all workers.
// Admission is checked before each unit starts; once the ceiling is
// reached no new units are admitted, but in-flight units finish and their
// cost is still recorded.
type CostLedger struct {
	mu      sync.Mutex
	spent   float64
	ceiling float64
}

// NewCostLedger creates a ledger. A non-positive ceiling means unlimited.
func NewCostLedger(ceilingUSD float64) *CostLedger {
	return &CostLedger{ceiling: ceilingUSD}
}

// Admit reports whether a new unit may start. Returns a BudgetExceeded
// error once cumulative spend has reached the ceiling.
func (l *CostLedger) Admit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ceiling > 0 && l.spent >= l.ceiling {
		return errors.New(errors.KindBudgetExceeded,
			fmt.Sprintf("cost ceiling $%.2f reached (spent $%.4f)", l.ceiling, l.spent))
	}
	return nil
}

// Record adds a finished unit's spend.
func (l *CostLedger) Record(costUSD float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spent += costUSD
}

// Spent returns cumulative spend so far.
func (l *CostLedger) Spent() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spent
}
