package service

import (
	"context"
	"sort"
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"
	"github.com/boddenberg/categorizer-go/internal/infra/observability"
	"github.com/boddenberg/categorizer-go/internal/merchant"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultTopMerchants = 5

// Monday first.
var weekdayNames = [7]string{"lunes", "martes", "miércoles", "jueves", "viernes", "sábado", "domingo"}

// Analytics computes summaries, spending patterns and outliers over
// transaction sets supplied by the caller.
type Analytics struct {
	anomalyThreshold float64
	metrics          *observability.Metrics
	logger           *zap.Logger
}

// NewAnalytics creates the analytics service. A non-positive threshold uses
// DefaultAnomalyThreshold.
func NewAnalytics(anomalyThreshold float64, metrics *observability.Metrics, logger *zap.Logger) *Analytics {
	if anomalyThreshold <= 0 {
		anomalyThreshold = DefaultAnomalyThreshold
	}
	return &Analytics{anomalyThreshold: anomalyThreshold, metrics: metrics, logger: logger}
}

// ============================================================
// Anomalies
// ============================================================

// Anomalies runs DetectOutliers with the request threshold, or the configured one.
func (a *Analytics) Anomalies(ctx context.Context, req domain.AnomalyRequest) *domain.AnomalyResponse {
	_, span := tracer.Start(ctx, "Analytics.Anomalies")
	defer span.End()

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = a.anomalyThreshold
	}

	found := DetectOutliers(req.Transactions, threshold)
	for _, r := range found {
		a.metrics.IncrAnomaly(r.Severity)
	}
	span.SetAttributes(
		attribute.Int("anomalies.transactions", len(req.Transactions)),
		attribute.Int("anomalies.flagged", len(found)),
	)
	a.logger.Debug("anomaly detection done",
		zap.Int("transactions", len(req.Transactions)),
		zap.Int("flagged", len(found)),
		zap.Float64("threshold", threshold),
	)
	return &domain.AnomalyResponse{Anomalies: found}
}

// ============================================================
// Period Summary
// ============================================================

// Summarize aggregates income, expenses, the expense breakdown by category
// and the monthly trend of the transactions inside [From, To).
func (a *Analytics) Summarize(ctx context.Context, req domain.SummaryRequest) (*domain.PeriodSummary, error) {
	_, span := tracer.Start(ctx, "Analytics.Summarize")
	defer span.End()

	if !req.From.IsZero() && !req.To.IsZero() && !req.To.After(req.From) {
		return nil, &domain.ErrValidation{Field: "to", Message: "must be after from"}
	}

	var (
		income, expenses decimal.Decimal
		count            int
	)
	type catSum struct {
		total decimal.Decimal
		count int
	}
	byCategory := make(map[string]*catSum)
	type monthSum struct {
		income, expenses decimal.Decimal
	}
	byMonth := make(map[string]*monthSum)

	for _, tx := range req.Transactions {
		if !inWindow(tx.Date, req.From, req.To) {
			continue
		}
		count++

		amount := decimal.NewFromFloat(tx.Amount).Abs()
		// Undated transactions count in the totals but have no month.
		m := &monthSum{}
		if !tx.Date.IsZero() {
			monthKey := tx.Date.Format("2006-01")
			var ok bool
			if m, ok = byMonth[monthKey]; !ok {
				m = &monthSum{}
				byMonth[monthKey] = m
			}
		}

		if tx.IsIncome() {
			income = income.Add(amount)
			m.income = m.income.Add(amount)
			continue
		}

		expenses = expenses.Add(amount)
		m.expenses = m.expenses.Add(amount)

		cat := tx.Category
		if cat == "" {
			cat = domain.CategoryUncategorized
		}
		cs, ok := byCategory[cat]
		if !ok {
			cs = &catSum{}
			byCategory[cat] = cs
		}
		cs.total = cs.total.Add(amount)
		cs.count++
	}

	breakdown := make([]domain.CategoryBreakdown, 0, len(byCategory))
	for cat, cs := range byCategory {
		pct := decimal.Zero
		if expenses.IsPositive() {
			pct = cs.total.Div(expenses).Mul(decimal.NewFromInt(100))
		}
		breakdown = append(breakdown, domain.CategoryBreakdown{
			Category:         cat,
			Amount:           cs.total.Round(2).InexactFloat64(),
			Percentage:       pct.Round(2).InexactFloat64(),
			TransactionCount: cs.count,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Amount != breakdown[j].Amount {
			return breakdown[i].Amount > breakdown[j].Amount
		}
		return breakdown[i].Category < breakdown[j].Category
	})

	trend := make([]domain.MonthlyTrend, 0, len(byMonth))
	for month, m := range byMonth {
		trend = append(trend, domain.MonthlyTrend{
			Month:    month,
			Income:   m.income.Round(2).InexactFloat64(),
			Expenses: m.expenses.Round(2).InexactFloat64(),
			Balance:  m.income.Sub(m.expenses).Round(2).InexactFloat64(),
		})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })

	summary := &domain.PeriodSummary{
		TotalIncome:       income.Round(2).InexactFloat64(),
		TotalExpenses:     expenses.Round(2).InexactFloat64(),
		Net:               income.Sub(expenses).Round(2).InexactFloat64(),
		TransactionCount:  count,
		CategoryBreakdown: breakdown,
		MonthlyTrend:      trend,
	}
	if !req.From.IsZero() {
		summary.From = req.From.Format("2006-01-02")
	}
	if !req.To.IsZero() {
		summary.To = req.To.Format("2006-01-02")
	}
	return summary, nil
}

func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// ============================================================
// Spending Patterns
// ============================================================

// SpendingPatterns breaks expenses down by weekday and by normalized merchant.
// Undated expenses count for merchants and the average ticket only.
func (a *Analytics) SpendingPatterns(ctx context.Context, req domain.PatternsRequest) *domain.SpendingPatterns {
	_, span := tracer.Start(ctx, "Analytics.SpendingPatterns")
	defer span.End()

	top := req.Top
	if top <= 0 {
		top = defaultTopMerchants
	}

	var weekdays [7]struct {
		amount decimal.Decimal
		count  int
	}
	type merchantSum struct {
		amount decimal.Decimal
		count  int
	}
	byMerchant := make(map[string]*merchantSum)
	var (
		total decimal.Decimal
		n     int
	)

	for _, tx := range req.Transactions {
		if tx.IsIncome() {
			continue
		}
		amount := decimal.NewFromFloat(tx.Amount).Abs()
		total = total.Add(amount)
		n++

		if !tx.Date.IsZero() {
			// time.Weekday starts on Sunday.
			idx := (int(tx.Date.Weekday()) + 6) % 7
			weekdays[idx].amount = weekdays[idx].amount.Add(amount)
			weekdays[idx].count++
		}

		raw := tx.Merchant
		if raw == "" {
			raw = tx.Description
		}
		name := merchant.Normalize(raw)
		if name == "" {
			continue
		}
		ms, ok := byMerchant[name]
		if !ok {
			ms = &merchantSum{}
			byMerchant[name] = ms
		}
		ms.amount = ms.amount.Add(amount)
		ms.count++
	}

	out := &domain.SpendingPatterns{
		ByWeekday:    make([]domain.WeekdaySpend, 0, len(weekdays)),
		TopMerchants: make([]domain.MerchantSpend, 0, len(byMerchant)),
		ExpenseCount: n,
	}
	for i, w := range weekdays {
		out.ByWeekday = append(out.ByWeekday, domain.WeekdaySpend{
			Weekday: weekdayNames[i],
			Amount:  w.amount.Round(2).InexactFloat64(),
			Count:   w.count,
		})
	}
	for name, ms := range byMerchant {
		out.TopMerchants = append(out.TopMerchants, domain.MerchantSpend{
			Merchant: name,
			Amount:   ms.amount.Round(2).InexactFloat64(),
			Count:    ms.count,
		})
	}
	sort.Slice(out.TopMerchants, func(i, j int) bool {
		if out.TopMerchants[i].Amount != out.TopMerchants[j].Amount {
			return out.TopMerchants[i].Amount > out.TopMerchants[j].Amount
		}
		return out.TopMerchants[i].Merchant < out.TopMerchants[j].Merchant
	})
	if len(out.TopMerchants) > top {
		out.TopMerchants = out.TopMerchants[:top]
	}
	if n > 0 {
		out.AverageTicket = total.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
	}
	return out
}
