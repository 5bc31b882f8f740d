package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget splits a planned spend into three priority categories.
// Total is derived and must only be set through Recompute.
type Budget struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Mandatory     float64   `json:"mandatory"`
	Essential     float64   `json:"essential"`
	Discretionary float64   `json:"discretionary"`
	Total         float64   `json:"total"`
	CreatedByID   int64     `json:"-"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Recompute sets Total to the exact decimal sum of the three categories.
func (b *Budget) Recompute() {
	b.Total = SumAmounts(b.Mandatory, b.Essential, b.Discretionary)
}

// SumAmounts adds monetary amounts without accumulating binary float error.
func SumAmounts(amounts ...float64) float64 {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(decimal.NewFromFloat(a))
	}
	return sum.InexactFloat64()
}
