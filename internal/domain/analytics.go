package domain

import "time"

// ============================================================
// Transactions (analytics input)
// ============================================================

// Transaction is a categorized movement submitted for analytics.
type Transaction struct {
	ID          string          `json:"id,omitempty"`
	Date        time.Time       `json:"date"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	Category    string          `json:"category,omitempty"`
	Type        TransactionType `json:"type,omitempty"`
}

// IsIncome reports the direction of the transaction. The explicit type wins;
// without one the amount sign decides.
func (t Transaction) IsIncome() bool {
	if t.Type != "" {
		return t.Type == TypeIngreso
	}
	return t.Amount > 0
}

// ============================================================
// Anomalies
// ============================================================

// Severity grades how far an outlier is from its group.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AnomalyResult is a transaction flagged as a statistical outlier.
type AnomalyResult struct {
	TransactionID string   `json:"transactionId,omitempty"`
	Amount        float64  `json:"amount"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Severity      Severity `json:"severity"`
	Score         float64  `json:"score"`
	Reason        string   `json:"reason"`
}

// AnomalyRequest is the body of POST /v1/analytics/anomalies.
type AnomalyRequest struct {
	Transactions []Transaction `json:"transactions"`
	Threshold    float64       `json:"threshold,omitempty"`
}

// AnomalyResponse is returned by POST /v1/analytics/anomalies.
type AnomalyResponse struct {
	Anomalies []AnomalyResult `json:"anomalies"`
}

// ============================================================
// Period Summary
// ============================================================

// SummaryRequest is the body of POST /v1/analytics/summary.
// From is inclusive and To exclusive; zero values leave the window open.
type SummaryRequest struct {
	Transactions []Transaction `json:"transactions"`
	From         time.Time     `json:"from,omitempty"`
	To           time.Time     `json:"to,omitempty"`
}

// PeriodSummary aggregates income and expenses over a window.
type PeriodSummary struct {
	From              string              `json:"from,omitempty"`
	To                string              `json:"to,omitempty"`
	TotalIncome       float64             `json:"totalIncome"`
	TotalExpenses     float64             `json:"totalExpenses"`
	Net               float64             `json:"net"`
	TransactionCount  int                 `json:"transactionCount"`
	CategoryBreakdown []CategoryBreakdown `json:"categoryBreakdown"`
	MonthlyTrend      []MonthlyTrend      `json:"monthlyTrend"`
}

// CategoryBreakdown is the expense total of one category.
type CategoryBreakdown struct {
	Category         string  `json:"category"`
	Amount           float64 `json:"amount"`
	Percentage       float64 `json:"percentage"`
	TransactionCount int     `json:"transactionCount"`
}

// MonthlyTrend shows monthly income/expenses.
type MonthlyTrend struct {
	Month    string  `json:"month"` // YYYY-MM
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Balance  float64 `json:"balance"`
}

// ============================================================
// Spending Patterns
// ============================================================

// PatternsRequest is the body of POST /v1/analytics/patterns.
type PatternsRequest struct {
	Transactions []Transaction `json:"transactions"`
	Top          int           `json:"top,omitempty"`
}

// SpendingPatterns breaks expenses down by weekday and merchant.
type SpendingPatterns struct {
	ByWeekday     []WeekdaySpend  `json:"byWeekday"`
	TopMerchants  []MerchantSpend `json:"topMerchants"`
	AverageTicket float64         `json:"averageTicket"`
	ExpenseCount  int             `json:"expenseCount"`
}

// WeekdaySpend is the expense total of one weekday.
type WeekdaySpend struct {
	Weekday string  `json:"weekday"`
	Amount  float64 `json:"amount"`
	Count   int     `json:"count"`
}

// MerchantSpend is the expense total of one normalized merchant.
type MerchantSpend struct {
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}
