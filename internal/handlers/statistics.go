package handlers

import (
	"net/http"
	"strconv"
	"time"

	"community-budget/internal/models"

	"github.com/shopspring/decimal"
)

// StatsCategoryItem represents a category with its spending statistics.
type StatsCategoryItem struct {
	Category   string  `json:"category"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// MonthRef names a calendar month.
type MonthRef struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// StatsResponse is the monthly spending breakdown.
type StatsResponse struct {
	Year           int                 `json:"year"`
	Month          int                 `json:"month"`
	MonthName      string              `json:"month_name"`
	Total          float64             `json:"total"`
	Categories     []StatsCategoryItem `json:"categories"`
	Expenses       []models.Expense    `json:"expenses"`
	Prev           MonthRef            `json:"prev"`
	Next           MonthRef            `json:"next"`
	IsCurrentMonth bool                `json:"is_current_month"`
}

// Statistics reports per-category spending for ?year=&month=, defaulting to
// the current month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year := now.Year()
	month := int(now.Month())

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		if y, err := strconv.Atoi(yearStr); err == nil {
			year = y
		}
	}
	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		if m, err := strconv.Atoi(monthStr); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	categoryTotals, err := h.db.GetCategoryTotalsByMonth(r.Context(), year, month)
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	expenses, err := h.db.GetExpensesByMonth(r.Context(), year, month)
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}

	total := decimal.Zero
	for _, ct := range categoryTotals {
		total = total.Add(decimal.NewFromFloat(ct.Total))
	}

	hundred := decimal.NewFromInt(100)
	items := make([]StatsCategoryItem, 0, len(categoryTotals))
	for _, ct := range categoryTotals {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = decimal.NewFromFloat(ct.Total).Div(total).Mul(hundred).Round(2)
		}
		items = append(items, StatsCategoryItem{
			Category:   ct.Category,
			Total:      ct.Total,
			Count:      ct.Count,
			Percentage: pct.InexactFloat64(),
		})
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)

	writeJSON(w, http.StatusOK, StatsResponse{
		Year:           year,
		Month:          month,
		MonthName:      time.Month(month).String(),
		Total:          total.InexactFloat64(),
		Categories:     items,
		Expenses:       expenses,
		Prev:           MonthRef{Year: prev.Year(), Month: int(prev.Month())},
		Next:           MonthRef{Year: next.Year(), Month: int(next.Month())},
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	})
}
